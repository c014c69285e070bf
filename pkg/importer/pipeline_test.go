package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
	"github.com/mealdrop-hq/mealie-importer/pkg/mealie"
	"github.com/mealdrop-hq/mealie-importer/pkg/models"
	"github.com/mealdrop-hq/mealie-importer/pkg/retryqueue"
)

// mockBackend is a test implementation of the Mealie API surface
type mockBackend struct {
	mu sync.Mutex

	createFromURLErr   error
	createFromURLSlug  string
	createFromURLCalls int

	recipes map[string]*models.Recipe

	createRecipeErr   error
	createRecipeSlug  string
	createdRecipes    []*models.Recipe
	createRecipeCalls int

	tags        []models.TagRef
	createdTags []string
	tagSets     map[string][]models.TagRef
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		recipes: make(map[string]*models.Recipe),
		tagSets: make(map[string][]models.TagRef),
	}
}

func (m *mockBackend) CreateRecipeFromURL(_ context.Context, _ string, _ []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createFromURLCalls++
	if m.createFromURLErr != nil {
		return "", m.createFromURLErr
	}
	return m.createFromURLSlug, nil
}

func (m *mockBackend) GetRecipe(_ context.Context, slug string) (*models.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recipe, ok := m.recipes[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", mealie.ErrNotFound, slug)
	}
	copied := *recipe
	return &copied, nil
}

func (m *mockBackend) CreateRecipe(_ context.Context, recipe *models.Recipe) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createRecipeCalls++
	if m.createRecipeErr != nil {
		return "", m.createRecipeErr
	}
	m.createdRecipes = append(m.createdRecipes, recipe)
	m.recipes[m.createRecipeSlug] = recipe
	return m.createRecipeSlug, nil
}

func (m *mockBackend) RecipeURL(slug string) string {
	return "https://mealie.test/g/home/r/" + slug
}

func (m *mockBackend) ListTags(_ context.Context) ([]models.TagRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.TagRef(nil), m.tags...), nil
}

func (m *mockBackend) CreateTag(_ context.Context, name, slug string) (models.TagRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tag := models.TagRef{ID: "tag-" + slug, Name: name, Slug: slug}
	m.tags = append(m.tags, tag)
	m.createdTags = append(m.createdTags, name)
	return tag, nil
}

func (m *mockBackend) SetRecipeTags(_ context.Context, slug string, tags []models.TagRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tagSets[slug] = tags
	return nil
}

// mockExtractor is a test implementation of the AI fallback
type mockExtractor struct {
	recipe *models.Recipe
	err    error
	calls  int
}

func (m *mockExtractor) ExtractRecipe(_ context.Context, _ string) (*models.Recipe, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.recipe, nil
}

func completeRecipe(name string) *models.Recipe {
	return &models.Recipe{
		Name:               name,
		RecipeIngredient:   []models.Ingredient{{Note: "1 cup flour"}},
		RecipeInstructions: []models.Instruction{{Text: "Mix everything"}},
	}
}

func newTestService(backend *mockBackend, extractor Extractor) *Service {
	log := &logger.EmptyLogger{}
	queue := retryqueue.New(retryqueue.NewMemoryStore(), log, 3, 30*time.Second)
	return NewService(backend, extractor, NewReconciler(backend, log), queue, NewLogNotifier(log), log, Options{
		DefaultTags: []string{"Discord Import", "Verify"},
		AckTimeout:  time.Second,
		WorkerCount: 1,
	})
}

func TestImportRejectsInvalidURL(t *testing.T) {
	backend := newMockBackend()
	extractor := &mockExtractor{recipe: completeRecipe("Stew")}
	s := newTestService(backend, extractor)

	tests := []struct {
		name string
		url  string
	}{
		{"not a url", "definitely not a url"},
		{"relative path", "/recipes/stew"},
		{"wrong scheme", "ftp://example.com/stew"},
		{"no host", "https:///stew"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := s.Import(context.Background(), tt.url)

			assert.Equal(t, models.ImportFailed, outcome.Status)
			assert.Contains(t, outcome.Reason, "invalid url")
		})
	}

	// Nothing downstream may be touched for a rejected URL
	assert.Equal(t, 0, backend.createFromURLCalls)
	assert.Equal(t, 0, extractor.calls)
}

func TestImportPrimarySuccess(t *testing.T) {
	backend := newMockBackend()
	backend.createFromURLSlug = "beef-stew"
	backend.recipes["beef-stew"] = completeRecipe("Beef Stew")
	extractor := &mockExtractor{recipe: completeRecipe("unused")}
	s := newTestService(backend, extractor)

	outcome := s.Import(context.Background(), "https://example.com/beef-stew")

	assert.Equal(t, models.ImportCreated, outcome.Status)
	assert.Equal(t, "beef-stew", outcome.Ref)
	assert.Equal(t, models.ImportMethodPrimary, outcome.Method)
	assert.Equal(t, 0, extractor.calls)

	// Default tags are reconciled onto the created recipe
	assert.ElementsMatch(t, []string{"Discord Import", "Verify"}, backend.createdTags)
	require.Len(t, backend.tagSets["beef-stew"], 2)
}

func TestImportBadRequestIsTerminal(t *testing.T) {
	backend := newMockBackend()
	backend.createFromURLErr = fmt.Errorf("%w: not a recipe url", mealie.ErrBadRequest)
	extractor := &mockExtractor{recipe: completeRecipe("Stew")}
	s := newTestService(backend, extractor)

	outcome := s.Import(context.Background(), "https://example.com/not-a-recipe")

	assert.Equal(t, models.ImportFailed, outcome.Status)
	// A definite rejection never reaches the AI stage
	assert.Equal(t, 0, extractor.calls)
}

func TestImportIncompleteRecipeReasons(t *testing.T) {
	tests := []struct {
		name   string
		recipe *models.Recipe
		want   string
	}{
		{
			name: "short name",
			recipe: &models.Recipe{
				Name:               "Pie",
				RecipeIngredient:   []models.Ingredient{{Note: "apples"}},
				RecipeInstructions: []models.Instruction{{Text: "Bake"}},
			},
			want: "name",
		},
		{
			name: "no ingredients",
			recipe: &models.Recipe{
				Name:               "Apple Pie",
				RecipeInstructions: []models.Instruction{{Text: "Bake"}},
			},
			want: "ingredients",
		},
		{
			name: "no instructions",
			recipe: &models.Recipe{
				Name:             "Apple Pie",
				RecipeIngredient: []models.Ingredient{{Note: "apples"}},
			},
			want: "instructions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newMockBackend()
			backend.createFromURLSlug = "apple-pie"
			backend.recipes["apple-pie"] = tt.recipe
			s := newTestService(backend, nil) // no AI fallback

			outcome := s.Import(context.Background(), "https://example.com/apple-pie")

			assert.Equal(t, models.ImportPartiallyCreated, outcome.Status)
			assert.Equal(t, "apple-pie", outcome.Ref)
			assert.Contains(t, outcome.Reason, tt.want)
		})
	}
}

func TestImportNameTakesPrecedence(t *testing.T) {
	backend := newMockBackend()
	backend.createFromURLSlug = "x"
	// Missing everything; the name check must win
	backend.recipes["x"] = &models.Recipe{Name: "x"}
	s := newTestService(backend, nil)

	outcome := s.Import(context.Background(), "https://example.com/x")

	assert.Equal(t, models.ImportPartiallyCreated, outcome.Status)
	assert.Contains(t, outcome.Reason, "name")
	assert.NotContains(t, outcome.Reason, "ingredients")
}

func TestImportFallsBackToAIOnTransportError(t *testing.T) {
	backend := newMockBackend()
	backend.createFromURLErr = errors.New("connection refused")
	backend.createRecipeSlug = "ai-stew"
	extractor := &mockExtractor{recipe: completeRecipe("Beef Stew")}
	s := newTestService(backend, extractor)

	outcome := s.Import(context.Background(), "https://example.com/beef-stew")

	assert.Equal(t, models.ImportCreated, outcome.Status)
	assert.Equal(t, "ai-stew", outcome.Ref)
	assert.Equal(t, models.ImportMethodAI, outcome.Method)
	assert.Equal(t, 1, extractor.calls)
}

func TestImportAIRecipeCarriesTagsAndSourceURL(t *testing.T) {
	backend := newMockBackend()
	backend.createFromURLErr = fmt.Errorf("%w: scraper found nothing", mealie.ErrNoRecipe)
	backend.createRecipeSlug = "ai-stew"
	extractor := &mockExtractor{recipe: completeRecipe("Beef Stew")}
	s := newTestService(backend, extractor)

	outcome := s.Import(context.Background(), "https://example.com/beef-stew")
	require.Equal(t, models.ImportCreated, outcome.Status)

	require.Len(t, backend.createdRecipes, 1)
	created := backend.createdRecipes[0]
	assert.Equal(t, "https://example.com/beef-stew", created.OrgURL)
	assert.Len(t, created.Tags, 2)
}

func TestImportAIFallbackDegradesToPartial(t *testing.T) {
	backend := newMockBackend()
	backend.createFromURLSlug = "apple-pie"
	backend.recipes["apple-pie"] = &models.Recipe{Name: "Apple Pie"}
	extractor := &mockExtractor{err: errors.New("model unavailable")}
	s := newTestService(backend, extractor)

	outcome := s.Import(context.Background(), "https://example.com/apple-pie")

	// The partial recipe from the primary stage survives the AI failure
	assert.Equal(t, models.ImportPartiallyCreated, outcome.Status)
	assert.Equal(t, "apple-pie", outcome.Ref)
	assert.Contains(t, outcome.Reason, "ingredients")
	assert.Contains(t, outcome.Reason, "model unavailable")
}

func TestImportAIFallbackDegradesToFailed(t *testing.T) {
	backend := newMockBackend()
	backend.createFromURLErr = fmt.Errorf("%w: scraper found nothing", mealie.ErrNoRecipe)
	extractor := &mockExtractor{err: errors.New("model unavailable")}
	s := newTestService(backend, extractor)

	outcome := s.Import(context.Background(), "https://example.com/nothing")

	// No recipe exists at all, so the outcome is a plain failure
	assert.Equal(t, models.ImportFailed, outcome.Status)
	assert.Empty(t, outcome.Ref)
}

func TestImportAIPersistFailure(t *testing.T) {
	backend := newMockBackend()
	backend.createFromURLSlug = "apple-pie"
	backend.recipes["apple-pie"] = &models.Recipe{Name: "Apple Pie"}
	backend.createRecipeErr = errors.New("backend down")
	extractor := &mockExtractor{recipe: completeRecipe("Apple Pie")}
	s := newTestService(backend, extractor)

	outcome := s.Import(context.Background(), "https://example.com/apple-pie")

	assert.Equal(t, models.ImportPartiallyCreated, outcome.Status)
	assert.Equal(t, "apple-pie", outcome.Ref)
	assert.Contains(t, outcome.Reason, "not persisted")
}
