// Package ai extracts structured recipes from web pages using a language model.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
	"github.com/mealdrop-hq/mealie-importer/pkg/models"
)

const (
	// maxPageContent caps how much page text is sent to the model
	maxPageContent = 8000

	// maxResponseTokens bounds the model response size
	maxResponseTokens = 2000
)

const systemPrompt = "You are a recipe extraction expert. Extract recipes from web pages and format them for cooking applications."

const promptTemplate = `Extract recipe information from the following webpage content.
Return a JSON object with the following structure:

{
  "name": "Recipe Title",
  "description": "Brief description of the recipe",
  "recipeIngredient": [
    {"note": "ingredient 1", "referenceId": "unique_id_1"},
    {"note": "ingredient 2", "referenceId": "unique_id_2"}
  ],
  "recipeInstructions": [
    {"title": "Step 1", "text": "Instruction text", "id": "step_1_id"}
  ],
  "totalTime": "PT30M",
  "recipeYield": "4",
  "nutrition": {
    "calories": "300",
    "proteinContent": "25g",
    "fatContent": "15g",
    "carbohydrateContent": "20g"
  }
}

IMPORTANT:
- Extract ONLY the main recipe from the page
- Include ALL ingredients with quantities
- Include ALL cooking steps/instructions
- Use clear, descriptive step titles
- Generate a unique referenceId for each ingredient and a unique id for each step
- Omit totalTime, recipeYield and nutrition when the page has no such information

Webpage content:
%s`

// completionClient is the slice of the OpenAI client the extractor uses
type completionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Extractor extracts recipes from URLs via page fetch plus LLM completion
type Extractor struct {
	client  completionClient
	model   string
	fetcher *pageFetcher
	logger  logger.Logger
}

// NewExtractor creates a new AI extractor
func NewExtractor(apiKey, model string, fetchTimeout time.Duration, log logger.Logger) *Extractor {
	return &Extractor{
		client:  openai.NewClient(apiKey),
		model:   model,
		fetcher: newPageFetcher(fetchTimeout, log),
		logger:  log,
	}
}

// ExtractRecipe fetches the page behind url and asks the model to extract a
// structured recipe from it. A response missing a name or ingredients is an
// error regardless of transport success.
func (e *Extractor) ExtractRecipe(ctx context.Context, url string) (*models.Recipe, error) {
	pageText, err := e.fetcher.FetchText(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page content: %w", err)
	}
	if len(pageText) > maxPageContent {
		pageText = pageText[:maxPageContent]
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(promptTemplate, pageText)},
		},
		MaxTokens:   maxResponseTokens,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	recipe, err := decodeRecipe(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	e.logger.InfoWith(logger.AI, "Extracted recipe: %s (%d ingredients, %d steps)",
		recipe.Name, len(recipe.RecipeIngredient), len(recipe.RecipeInstructions))
	return recipe, nil
}

// decodeRecipe parses the model output into a recipe, tolerating markdown
// code fences around the JSON
func decodeRecipe(content string) (*models.Recipe, error) {
	text := stripCodeFence(content)

	var recipe models.Recipe
	if err := json.Unmarshal([]byte(text), &recipe); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}

	if strings.TrimSpace(recipe.Name) == "" || len(recipe.RecipeIngredient) == 0 {
		return nil, fmt.Errorf("model response missing required fields")
	}
	return &recipe, nil
}

func stripCodeFence(s string) string {
	text := strings.TrimSpace(s)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
