package models

import "fmt"

// ImportRequest is a single request to import a recipe from a URL
type ImportRequest struct {
	URL           string
	RequesterID   string
	CorrelationID string
}

// ImportMethod indicates which stage of the pipeline produced a recipe
type ImportMethod string

const (
	// ImportMethodPrimary means the recipe was parsed by the Mealie scraper
	ImportMethodPrimary ImportMethod = "primary"
	// ImportMethodAI means the recipe was extracted by the AI fallback
	ImportMethodAI ImportMethod = "ai"
)

// ImportStatus is the terminal status of an import pipeline run
type ImportStatus string

const (
	// ImportCreated means a complete recipe exists on the backend
	ImportCreated ImportStatus = "created"
	// ImportPartiallyCreated means a recipe exists but is missing required
	// content and the AI fallback could not complete it
	ImportPartiallyCreated ImportStatus = "partially_created"
	// ImportFailed means no recipe object exists
	ImportFailed ImportStatus = "failed"
)

// ImportOutcome is the result of one import pipeline run
type ImportOutcome struct {
	Status ImportStatus
	Ref    string       // recipe slug, set for Created and PartiallyCreated
	Method ImportMethod // set for Created
	Reason string       // set for PartiallyCreated and Failed
}

// Created builds a successful outcome
func Created(ref string, method ImportMethod) ImportOutcome {
	return ImportOutcome{Status: ImportCreated, Ref: ref, Method: method}
}

// PartiallyCreated builds an outcome for a recipe that exists but is incomplete
func PartiallyCreated(ref, reason string) ImportOutcome {
	return ImportOutcome{Status: ImportPartiallyCreated, Ref: ref, Reason: reason}
}

// Failed builds an outcome for an import that produced no recipe
func Failed(reason string) ImportOutcome {
	return ImportOutcome{Status: ImportFailed, Reason: reason}
}

// String renders the outcome as a human-readable status line
func (o ImportOutcome) String() string {
	switch o.Status {
	case ImportCreated:
		return fmt.Sprintf("recipe %s created (%s)", o.Ref, o.Method)
	case ImportPartiallyCreated:
		return fmt.Sprintf("recipe %s created but incomplete: %s", o.Ref, o.Reason)
	default:
		return fmt.Sprintf("import failed: %s", o.Reason)
	}
}
