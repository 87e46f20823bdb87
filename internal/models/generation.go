package models

// GenerationKind selects which text the generative service produces.
type GenerationKind string

const (
	GenerateAltText  GenerationKind = "altText"
	GenerateLinkText GenerationKind = "linkText"
	GenerateTitle    GenerationKind = "title"
)

// Enrichment carries generated text back into a document through the
// document-processing service. Empty fields are left untouched.
type Enrichment struct {
	AltText  string `json:"altText,omitempty"`
	LinkText string `json:"linkText,omitempty"`
	Title    string `json:"title,omitempty"`
}
