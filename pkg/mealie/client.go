// Package mealie provides a client for interacting with the Mealie API.
package mealie

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
	"github.com/mealdrop-hq/mealie-importer/pkg/models"
)

var (
	// ErrNoRecipe means Mealie's scraper could not extract a recipe from the URL
	ErrNoRecipe = errors.New("no recipe could be extracted")

	// ErrBadRequest means Mealie rejected the URL or payload as malformed.
	// This is a definite rejection, not a transient condition.
	ErrBadRequest = errors.New("invalid recipe url or format")

	// ErrNotFound means the referenced recipe does not exist
	ErrNotFound = errors.New("recipe not found")
)

// tagListResponse is the paginated tag listing returned by Mealie
type tagListResponse struct {
	Items []models.TagRef `json:"items"`
}

// Client represents a Mealie API client
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     logger.Logger
}

// New creates a new Mealie API client
func New(baseURL, apiToken string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiToken:   apiToken,
		httpClient: createHTTPClient(timeout),
		logger:     log,
	}
}

// CreateRecipeFromURL asks Mealie to scrape and create a recipe from a URL.
// It returns the slug of the created recipe. A "no-recipe" response maps to
// ErrNoRecipe and a 400 response maps to ErrBadRequest.
func (c *Client) CreateRecipeFromURL(ctx context.Context, recipeURL string, tags []string) (string, error) {
	payload := map[string]interface{}{
		"url":  recipeURL,
		"tags": tags,
	}

	resp, body, err := c.do(ctx, http.MethodPost, "/api/recipes/create/url", payload)
	if err != nil {
		return "", fmt.Errorf("failed to create recipe from url: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		// Mealie returns the recipe slug as a quoted string, not a JSON object
		text := strings.TrimSpace(string(body))
		if strings.HasPrefix(text, `"no-recipe`) {
			return "", fmt.Errorf("%w: %s", ErrNoRecipe, text)
		}
		if strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) && len(text) > 2 {
			slug := strings.Trim(text, `"`)
			c.logger.InfoWith(logger.Mealie, "Created recipe from URL %s, slug: %s", recipeURL, slug)
			return slug, nil
		}
		return "", fmt.Errorf("unexpected response format: %s", text)
	case resp.StatusCode == http.StatusBadRequest:
		return "", fmt.Errorf("%w: %s", ErrBadRequest, string(body))
	default:
		return "", fmt.Errorf("failed to create recipe: status %d: %s", resp.StatusCode, string(body))
	}
}

// GetRecipe fetches a recipe by slug or id
func (c *Client) GetRecipe(ctx context.Context, slug string) (*models.Recipe, error) {
	resp, body, err := c.do(ctx, http.MethodGet, "/api/recipes/"+slug, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe %s: %w", slug, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var recipe models.Recipe
		if err := json.Unmarshal(body, &recipe); err != nil {
			return nil, fmt.Errorf("failed to decode recipe %s: %w", slug, err)
		}
		return &recipe, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
	default:
		return nil, fmt.Errorf("failed to get recipe %s: status %d: %s", slug, resp.StatusCode, string(body))
	}
}

// CreateRecipe creates a recipe from a full payload, as produced by the AI
// fallback, and returns its slug
func (c *Client) CreateRecipe(ctx context.Context, recipe *models.Recipe) (string, error) {
	resp, body, err := c.do(ctx, http.MethodPost, "/api/recipes", recipe)
	if err != nil {
		return "", fmt.Errorf("failed to create recipe: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("failed to create recipe: status %d: %s", resp.StatusCode, string(body))
	}

	// The endpoint returns either the created recipe object or a bare quoted slug
	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, `"`) {
		return strings.Trim(text, `"`), nil
	}

	var created models.Recipe
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("recipe created but response not decodable: %w", err)
	}
	if created.Slug != "" {
		return created.Slug, nil
	}
	if created.ID != "" {
		return created.ID, nil
	}
	return "", fmt.Errorf("recipe created but no slug returned")
}

// UpdateRecipe replaces fields of an existing recipe
func (c *Client) UpdateRecipe(ctx context.Context, slug string, recipe *models.Recipe) error {
	resp, body, err := c.do(ctx, http.MethodPut, "/api/recipes/"+slug, recipe)
	if err != nil {
		return fmt.Errorf("failed to update recipe %s: %w", slug, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to update recipe %s: status %d: %s", slug, resp.StatusCode, string(body))
	}
	return nil
}

// ListTags returns all tags known to Mealie
func (c *Client) ListTags(ctx context.Context) ([]models.TagRef, error) {
	resp, body, err := c.do(ctx, http.MethodGet, "/api/organizers/tags?perPage=-1", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list tags: status %d: %s", resp.StatusCode, string(body))
	}

	var list tagListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to decode tag list: %w", err)
	}
	return list.Items, nil
}

// CreateTag creates a tag with the given name and slug
func (c *Client) CreateTag(ctx context.Context, name, slug string) (models.TagRef, error) {
	payload := map[string]string{
		"name": name,
		"slug": slug,
	}

	resp, body, err := c.do(ctx, http.MethodPost, "/api/organizers/tags", payload)
	if err != nil {
		return models.TagRef{}, fmt.Errorf("failed to create tag %s: %w", name, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return models.TagRef{}, fmt.Errorf("failed to create tag %s: status %d: %s", name, resp.StatusCode, string(body))
	}

	var tag models.TagRef
	if err := json.Unmarshal(body, &tag); err != nil {
		// Tag was created but the response body was not parseable
		c.logger.DebugWith(logger.Mealie, "Tag %s created but response not JSON: %s", name, string(body))
		return models.TagRef{Name: name, Slug: slug}, nil
	}
	c.logger.InfoWith(logger.Mealie, "Created tag: %s", name)
	return tag, nil
}

// SetRecipeTags replaces the tag set of a recipe
func (c *Client) SetRecipeTags(ctx context.Context, slug string, tags []models.TagRef) error {
	payload := map[string]interface{}{
		"tags": tags,
	}

	resp, body, err := c.do(ctx, http.MethodPatch, "/api/recipes/"+slug, payload)
	if err != nil {
		return fmt.Errorf("failed to assign tags to recipe %s: %w", slug, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("failed to assign tags to recipe %s: status %d: %s", slug, resp.StatusCode, string(body))
	}
	return nil
}

// Ping checks that the Mealie instance is reachable
func (c *Client) Ping(ctx context.Context) error {
	resp, _, err := c.do(ctx, http.MethodGet, "/api/app/about", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mealie not ready: status %d", resp.StatusCode)
	}
	return nil
}

// RecipeURL returns the public URL for a recipe slug.
// Mealie serves household recipes under /g/{household}/r/{slug}.
func (c *Client) RecipeURL(slug string) string {
	return c.baseURL + "/g/home/r/" + slug
}

// do performs an authenticated request against the Mealie API and returns the
// response together with its fully read body
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (*http.Response, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.ErrorWith(logger.Mealie, "Failed to close response body: %v", err)
		}
	}(resp.Body)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp, bodyBytes, nil
}

// Helper function to create an HTTP client with timeouts
func createHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
