package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
	"github.com/mealdrop-hq/mealie-importer/pkg/mealie"
	"github.com/mealdrop-hq/mealie-importer/pkg/metrics"
	"github.com/mealdrop-hq/mealie-importer/pkg/models"
)

// minNameLength is the shortest recipe name the scraper can produce that we
// still consider a real name rather than a parse artifact
const minNameLength = 4

// Import runs the two-stage pipeline for one URL: Mealie's own scraper
// first, the AI extractor as fallback when the scrape fails or produces an
// incomplete recipe. The returned outcome is always one of Created,
// PartiallyCreated or Failed.
func (s *Service) Import(ctx context.Context, url string) models.ImportOutcome {
	if !isValidImportURL(url) {
		return models.Failed(fmt.Sprintf("invalid url: %s", truncate(url, 80)))
	}

	s.logger.InfoWith(logger.Import, "Importing %s", url)

	slug, err := s.mealie.CreateRecipeFromURL(ctx, url, nil)
	if err != nil {
		if errors.Is(err, mealie.ErrBadRequest) {
			// Definite rejection, the URL itself is the problem
			return models.Failed(err.Error())
		}
		// Scrape failures and transport errors both fall through to the AI
		s.logger.InfoWith(logger.Import, "Primary parse failed for %s: %v", url, err)
		return s.aiFallback(ctx, url, "", err.Error())
	}

	if reason := s.validateComplete(ctx, slug); reason != "" {
		s.logger.InfoWith(logger.Import, "Recipe %s incomplete: %s", slug, reason)
		return s.aiFallback(ctx, url, slug, reason)
	}

	s.reconcileTags(ctx, slug)
	return models.Created(slug, models.ImportMethodPrimary)
}

// validateComplete checks the created recipe for the content a usable recipe
// needs. It returns an empty string for complete recipes and the first
// missing element otherwise, checked in order: name, ingredients,
// instructions. An unfetchable recipe counts as incomplete.
func (s *Service) validateComplete(ctx context.Context, slug string) string {
	recipe, err := s.mealie.GetRecipe(ctx, slug)
	if err != nil {
		return fmt.Sprintf("could not verify recipe: %v", err)
	}

	switch {
	case len(strings.TrimSpace(recipe.Name)) < minNameLength:
		return "recipe has no usable name"
	case len(recipe.RecipeIngredient) == 0:
		return "recipe has no ingredients"
	case len(recipe.RecipeInstructions) == 0:
		return "recipe has no instructions"
	}
	return ""
}

// aiFallback attempts the second pipeline stage. partialRef is the slug of
// the incomplete recipe the primary stage left behind, or empty when no
// recipe exists at all; it determines whether an AI failure degrades to
// PartiallyCreated or Failed.
func (s *Service) aiFallback(ctx context.Context, url, partialRef, reason string) models.ImportOutcome {
	if s.extractor == nil {
		return s.degraded(partialRef, reason+" (AI fallback disabled)")
	}

	metrics.AIFallbacks.Inc()
	s.logger.InfoWith(logger.AI, "Falling back to AI extraction for %s", url)

	recipe, err := s.extractor.ExtractRecipe(ctx, url)
	if err != nil {
		s.logger.ErrorWith(logger.AI, "Extraction failed for %s: %v", url, err)
		return s.degraded(partialRef, fmt.Sprintf("%s; AI extraction failed: %v", reason, err))
	}

	recipe.OrgURL = url
	recipe.Tags = s.tags.EnsureTags(ctx, s.opts.DefaultTags)

	// The AI path always creates a fresh recipe rather than patching the
	// partial one, so a bad extraction can never corrupt scraped content
	slug, err := s.mealie.CreateRecipe(ctx, recipe)
	if err != nil {
		s.logger.ErrorWith(logger.AI, "Failed to persist AI recipe for %s: %v", url, err)
		return s.degraded(partialRef, fmt.Sprintf("%s; AI recipe not persisted: %v", reason, err))
	}

	s.logger.InfoWith(logger.AI, "AI extraction created recipe %s", slug)
	return models.Created(slug, models.ImportMethodAI)
}

// degraded builds the outcome for a failed fallback: PartiallyCreated when
// the primary stage left a recipe behind, Failed otherwise
func (s *Service) degraded(partialRef, reason string) models.ImportOutcome {
	if partialRef != "" {
		return models.PartiallyCreated(partialRef, reason)
	}
	return models.Failed(reason)
}

// reconcileTags applies the configured default tags to a recipe. It is
// best-effort and never changes the import outcome.
func (s *Service) reconcileTags(ctx context.Context, slug string) {
	if len(s.opts.DefaultTags) == 0 {
		return
	}
	tags := s.tags.EnsureTags(ctx, s.opts.DefaultTags)
	s.tags.Attach(ctx, slug, tags)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
