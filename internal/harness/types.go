package harness

import "github.com/roach88/rulegen/internal/ir"

// ArtifactEntry is one emitted artifact as seen by assertions.
type ArtifactEntry struct {
	Name    string          `json:"name"`
	Kind    ir.ArtifactKind `json:"kind"`
	Hash    string          `json:"hash"`
	Content []byte          `json:"-"`
}

// Counts is the inventory of one generation run.
type Counts struct {
	Sources  int `json:"sources"`
	Packages int `json:"packages"`
	Units    int `json:"units"`
	Rules    int `json:"rules"`
	Total    int `json:"total"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation, assertion and invariant held.
	Pass bool `json:"pass"`

	// Artifacts lists the emitted artifacts in emission order.
	Artifacts []ArtifactEntry `json:"artifacts"`

	Counts Counts `json:"counts"`

	// ErrorCode is the code of the generation failure, if any.
	ErrorCode ir.ErrorCode `json:"error_code,omitempty"`

	// Written is the number of files the output writer wrote.
	Written int `json:"written"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Artifacts: []ArtifactEntry{},
		Errors:    []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Artifact returns the artifact with the given logical name.
func (r *Result) Artifact(name string) (ArtifactEntry, bool) {
	for _, a := range r.Artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return ArtifactEntry{}, false
}

// Names returns the logical names in emission order.
func (r *Result) Names() []string {
	names := make([]string, len(r.Artifacts))
	for i, a := range r.Artifacts {
		names[i] = a.Name
	}
	return names
}
