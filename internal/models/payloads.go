package models

// These structs define the JSON payloads for the standalone HTTP functions.

// CheckRequest is the input for the compliance-checker function.
type CheckRequest struct {
	DocumentKey string `json:"documentKey"`
	Phase       Phase  `json:"phase"`
	JobID       string `json:"jobId,omitempty"`
}
