// Package editor holds the detail form state for a selected annotation:
// label, description and the dynamic metadata key/value pairs. Submitting
// produces a partial update carrying only the non-empty fields.
package editor

import (
	"sort"
	"strings"

	"github.com/artifact-annotator/backend/internal/models"
)

// Pair is one metadata key/value entry, kept in insertion order for display.
type Pair struct {
	Key   string
	Value string
}

// Form edits the mutable detail fields of a selected annotation. With no
// annotation bound it is in the placeholder state and Submit yields nothing.
type Form struct {
	annotation  *models.Annotation
	label       string
	description string
	pairs       []Pair
}

// NewForm returns an empty form in the placeholder state.
func NewForm() *Form {
	return &Form{}
}

// SetAnnotation binds the form to an annotation, loading its current detail
// fields, or clears it back to the placeholder state when nil.
func (f *Form) SetAnnotation(ann *models.Annotation) {
	f.annotation = ann
	f.pairs = nil
	if ann == nil {
		f.label = ""
		f.description = ""
		return
	}

	f.label = ann.Label
	f.description = ann.Description

	// Map order is unspecified; sort for stable display.
	keys := make([]string, 0, len(ann.Metadata))
	for k := range ann.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f.pairs = append(f.pairs, Pair{Key: k, Value: ann.Metadata[k]})
	}
}

// Empty reports whether the form is in the placeholder state.
func (f *Form) Empty() bool {
	return f.annotation == nil
}

// Annotation returns the bound annotation, nil in the placeholder state.
func (f *Form) Annotation() *models.Annotation {
	return f.annotation
}

// SetLabel sets the label field.
func (f *Form) SetLabel(label string) {
	f.label = label
}

// SetDescription sets the description field.
func (f *Form) SetDescription(description string) {
	f.description = description
}

func (f *Form) Label() string       { return f.label }
func (f *Form) Description() string { return f.description }

// AddPair appends a metadata pair. The pair is rejected when either the key
// or the value is empty after trimming.
func (f *Form) AddPair(key, value string) bool {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return false
	}
	f.pairs = append(f.pairs, Pair{Key: key, Value: value})
	return true
}

// RemovePair deletes the pair at the given index.
func (f *Form) RemovePair(i int) bool {
	if i < 0 || i >= len(f.pairs) {
		return false
	}
	f.pairs = append(f.pairs[:i], f.pairs[i+1:]...)
	return true
}

// Pairs returns the current metadata pairs.
func (f *Form) Pairs() []Pair {
	return f.pairs
}

// Submit builds the partial update for the bound annotation, carrying only
// non-empty fields. Returns false in the placeholder state. Later pairs win
// when two share a key.
func (f *Form) Submit() (*models.UpdateAnnotationRequest, bool) {
	if f.annotation == nil {
		return nil, false
	}

	req := &models.UpdateAnnotationRequest{}

	if label := strings.TrimSpace(f.label); label != "" {
		req.Label = &label
	}
	if description := strings.TrimSpace(f.description); description != "" {
		req.Description = &description
	}
	if len(f.pairs) > 0 {
		metadata := make(map[string]string, len(f.pairs))
		for _, p := range f.pairs {
			metadata[p.Key] = p.Value
		}
		req.Metadata = &metadata
	}

	return req, true
}
