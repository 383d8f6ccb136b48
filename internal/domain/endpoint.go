package domain

import "strings"

// Endpoint is one entry of the mock endpoint catalog.
type Endpoint struct {
	Method         string            `json:"method"`
	Path           string            `json:"path"`
	Description    string            `json:"description"`
	RequiresAuth   bool              `json:"requiresAuth"`
	RequestSchema  map[string]string `json:"requestSchema,omitempty"`  // field -> type
	ResponseSchema map[string]string `json:"responseSchema,omitempty"` // field -> type
	Tags           []string          `json:"tags,omitempty"`
}

// HasIDParam reports whether the path contains a placeholder segment such as {id}.
func (e *Endpoint) HasIDParam() bool {
	return strings.Contains(e.Path, "{")
}
