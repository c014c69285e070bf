package importer

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
	"github.com/mealdrop-hq/mealie-importer/pkg/metrics"
	"github.com/mealdrop-hq/mealie-importer/pkg/models"
)

// TagClient is the slice of the Mealie API the reconciler needs
type TagClient interface {
	ListTags(ctx context.Context) ([]models.TagRef, error)
	CreateTag(ctx context.Context, name, slug string) (models.TagRef, error)
	GetRecipe(ctx context.Context, slug string) (*models.Recipe, error)
	SetRecipeTags(ctx context.Context, slug string, tags []models.TagRef) error
}

// Reconciler attaches the configured default tags to imported recipes,
// creating missing tags on the Mealie side as needed
type Reconciler struct {
	client TagClient
	logger logger.Logger
}

// NewReconciler creates a tag reconciler
func NewReconciler(client TagClient, log logger.Logger) *Reconciler {
	return &Reconciler{
		client: client,
		logger: log,
	}
}

// EnsureTags resolves each name to a Mealie tag, creating any that do not
// exist yet. Lookup is case-insensitive, so repeat calls with the same names
// never create duplicates. A name that cannot be resolved is skipped.
func (r *Reconciler) EnsureTags(ctx context.Context, names []string) []models.TagRef {
	existing, err := r.client.ListTags(ctx)
	if err != nil {
		r.logger.ErrorWith(logger.Mealie, "Failed to list tags: %v", err)
		metrics.TagReconcileFailures.Inc()
		return nil
	}

	resolved := make([]models.TagRef, 0, len(names))
	for _, name := range names {
		tag, found := findTag(existing, name)
		if !found {
			tag, err = r.client.CreateTag(ctx, name, Slugify(name))
			if err != nil {
				r.logger.ErrorWith(logger.Mealie, "Failed to create tag %q: %v", name, err)
				metrics.TagReconcileFailures.Inc()
				continue
			}
			r.logger.InfoWith(logger.Mealie, "Created tag %q (%s)", tag.Name, tag.Slug)
			// Make the new tag visible to later names in this call
			existing = append(existing, tag)
		}
		resolved = append(resolved, tag)
	}
	return resolved
}

// Attach merges the given tags into the recipe's current tag set and writes
// the result back. Failures are logged but never fail the import that
// produced the recipe.
func (r *Reconciler) Attach(ctx context.Context, slug string, tags []models.TagRef) {
	if len(tags) == 0 {
		return
	}

	recipe, err := r.client.GetRecipe(ctx, slug)
	if err != nil {
		r.logger.ErrorWith(logger.Mealie, "Failed to fetch recipe %s for tagging: %v", slug, err)
		metrics.TagReconcileFailures.Inc()
		return
	}

	merged := MergeTags(recipe.Tags, tags)
	if err := r.client.SetRecipeTags(ctx, slug, merged); err != nil {
		r.logger.ErrorWith(logger.Mealie, "Failed to set tags on recipe %s: %v", slug, err)
		metrics.TagReconcileFailures.Inc()
		return
	}
	r.logger.DebugWith(logger.Mealie, "Recipe %s tagged with %d tags", slug, len(merged))
}

// MergeTags combines two tag sets, deduplicating by id. Existing order is
// preserved; when the same id appears in both sets the toAdd entry wins.
func MergeTags(existing, toAdd []models.TagRef) []models.TagRef {
	merged := make([]models.TagRef, 0, len(existing)+len(toAdd))
	index := make(map[string]int, len(existing))

	for _, tag := range existing {
		index[tag.ID] = len(merged)
		merged = append(merged, tag)
	}
	for _, tag := range toAdd {
		if i, ok := index[tag.ID]; ok {
			merged[i] = tag
			continue
		}
		index[tag.ID] = len(merged)
		merged = append(merged, tag)
	}
	return merged
}

func findTag(tags []models.TagRef, name string) (models.TagRef, bool) {
	for _, tag := range tags {
		if strings.EqualFold(tag.Name, name) {
			return tag, true
		}
	}
	return models.TagRef{}, false
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// Replacements for letters that diacritic stripping alone does not cover
var slugReplacer = strings.NewReplacer(
	"ł", "l", "Ł", "L",
	"ø", "o", "Ø", "O",
	"đ", "d", "Đ", "D",
	"ß", "ss",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
)

// Slugify turns a tag name into a Mealie-style slug: diacritics folded to
// ASCII, lowercased, non-alphanumeric runs collapsed to single hyphens
func Slugify(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}
	folded = slugReplacer.Replace(folded)

	slug := slugCleaner.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(slug, "-")
}
