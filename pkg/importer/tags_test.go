package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
	"github.com/mealdrop-hq/mealie-importer/pkg/models"
)

func TestEnsureTagsCreatesMissing(t *testing.T) {
	backend := newMockBackend()
	r := NewReconciler(backend, &logger.EmptyLogger{})

	tags := r.EnsureTags(context.Background(), []string{"Discord Import", "Verify"})

	require.Len(t, tags, 2)
	assert.Equal(t, "discord-import", tags[0].Slug)
	assert.Equal(t, "verify", tags[1].Slug)
	assert.ElementsMatch(t, []string{"Discord Import", "Verify"}, backend.createdTags)
}

func TestEnsureTagsIsIdempotent(t *testing.T) {
	backend := newMockBackend()
	r := NewReconciler(backend, &logger.EmptyLogger{})
	ctx := context.Background()

	first := r.EnsureTags(ctx, []string{"Discord Import"})
	second := r.EnsureTags(ctx, []string{"Discord Import"})

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	// The second call found the tag instead of creating a duplicate
	assert.Len(t, backend.createdTags, 1)
}

func TestEnsureTagsLookupIsCaseInsensitive(t *testing.T) {
	backend := newMockBackend()
	backend.tags = []models.TagRef{{ID: "tag-1", Name: "discord import", Slug: "discord-import"}}
	r := NewReconciler(backend, &logger.EmptyLogger{})

	tags := r.EnsureTags(context.Background(), []string{"Discord Import"})

	require.Len(t, tags, 1)
	assert.Equal(t, "tag-1", tags[0].ID)
	assert.Empty(t, backend.createdTags)
}

func TestMergeTags(t *testing.T) {
	existing := []models.TagRef{
		{ID: "1", Name: "Dinner"},
		{ID: "2", Name: "Verify"},
	}
	toAdd := []models.TagRef{
		{ID: "2", Name: "Verify Updated"},
		{ID: "3", Name: "Discord Import"},
	}

	merged := MergeTags(existing, toAdd)

	require.Len(t, merged, 3)
	assert.Equal(t, "1", merged[0].ID)
	assert.Equal(t, "2", merged[1].ID)
	// The incoming entry wins for a shared id
	assert.Equal(t, "Verify Updated", merged[1].Name)
	assert.Equal(t, "3", merged[2].ID)
}

func TestMergeTagsEmptySets(t *testing.T) {
	assert.Empty(t, MergeTags(nil, nil))

	only := []models.TagRef{{ID: "1", Name: "Dinner"}}
	assert.Equal(t, only, MergeTags(only, nil))
	assert.Equal(t, only, MergeTags(nil, only))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Verify", "verify"},
		{"spaces", "Discord Import", "discord-import"},
		{"punctuation", "Mac & Cheese!", "mac-cheese"},
		{"diacritics", "Crème Brûlée", "creme-brulee"},
		{"polish letters", "Żółć", "zolc"},
		{"collapsed runs", "a  --  b", "a-b"},
		{"only punctuation", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestAttachMergesWithExistingTags(t *testing.T) {
	backend := newMockBackend()
	backend.recipes["beef-stew"] = &models.Recipe{
		Name: "Beef Stew",
		Tags: []models.TagRef{{ID: "tag-dinner", Name: "Dinner", Slug: "dinner"}},
	}
	r := NewReconciler(backend, &logger.EmptyLogger{})

	r.Attach(context.Background(), "beef-stew", []models.TagRef{
		{ID: "tag-verify", Name: "Verify", Slug: "verify"},
	})

	got := backend.tagSets["beef-stew"]
	require.Len(t, got, 2)
	assert.Equal(t, "tag-dinner", got[0].ID)
	assert.Equal(t, "tag-verify", got[1].ID)
}
