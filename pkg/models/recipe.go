package models

// Recipe represents a recipe as exposed by the Mealie API. The same shape is
// used for recipes extracted by the AI fallback, which is prompted to produce
// Mealie-compatible JSON.
type Recipe struct {
	ID                 string        `json:"id,omitempty"`
	Slug               string        `json:"slug,omitempty"`
	Name               string        `json:"name"`
	Description        string        `json:"description,omitempty"`
	RecipeIngredient   []Ingredient  `json:"recipeIngredient"`
	RecipeInstructions []Instruction `json:"recipeInstructions"`
	Tags               []TagRef      `json:"tags,omitempty"`
	TotalTime          string        `json:"totalTime,omitempty"`
	RecipeYield        string        `json:"recipeYield,omitempty"`
	Nutrition          *Nutrition    `json:"nutrition,omitempty"`
	OrgURL             string        `json:"orgURL,omitempty"`
}

// Ingredient is a single ingredient entry
type Ingredient struct {
	Note        string `json:"note"`
	ReferenceID string `json:"referenceId,omitempty"`
}

// Instruction is a single instruction step
type Instruction struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

// Nutrition holds optional nutrition information
type Nutrition struct {
	Calories            string `json:"calories,omitempty"`
	ProteinContent      string `json:"proteinContent,omitempty"`
	FatContent          string `json:"fatContent,omitempty"`
	CarbohydrateContent string `json:"carbohydrateContent,omitempty"`
}

// TagRef identifies a Mealie tag
type TagRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
