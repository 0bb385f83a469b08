// Package field holds the canonical representation of one extracted,
// editable form value. Fields are plain values; every mutation helper
// returns a new Field and leaves its input untouched, which keeps
// change detection in the review store trivial.
package field

import "errors"

// ErrNoCoordinates is returned when a coordinate operation is applied
// to a field that is addressed by name only.
var ErrNoCoordinates = errors.New("field has no coordinates")

// UnknownLabel is the display label of a field that carries neither a
// label nor a key.
const UnknownLabel = "Unknown Field"

// NormalizedMax is the upper bound of the normalized coordinate space
// the extraction model emits. Coordinates are page-relative with the
// origin at the top-left of the page.
const NormalizedMax = 1000

// Status is the machine-assessed confidence of an extracted value.
type Status string

const (
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusInvalid Status = "invalid"
)

// NeedsAttention reports whether the status should surface in review.
// The zero value counts as valid so that fields arriving without a
// validation block are treated as neutral.
func (s Status) NeedsAttention() bool {
	return s != "" && s != StatusValid
}

// TypeTag classifies a named document field for value normalization.
type TypeTag string

const (
	TypeText     TypeTag = "text"
	TypeCheckbox TypeTag = "checkbox"
	TypeOther    TypeTag = "other"
)

// Validation is the machine assessment attached to a field.
type Validation struct {
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Coordinates locate a field in the normalized coordinate space when
// the target document exposes no named fields.
type Coordinates struct {
	PageIndex int `json:"page_index"`
	X         int `json:"x"`
	Y         int `json:"y"`
}

// Field is one extracted form value under review.
type Field struct {
	Key           string       `json:"key,omitempty"`
	Label         string       `json:"label"`
	Value         string       `json:"value"`
	SourceContext string       `json:"source_context,omitempty"`
	Validation    Validation   `json:"validation"`
	Verified      bool         `json:"verified"`
	Coordinates   *Coordinates `json:"coordinates,omitempty"`
}

// DisplayLabel returns the human-readable name of the field, falling
// back to the key and then to a fixed placeholder.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	if f.Key != "" {
		return f.Key
	}
	return UnknownLabel
}

// NeedsAttention reports whether the field's machine validation is
// anything other than valid. It is independent of Verified.
func (f Field) NeedsAttention() bool {
	return f.Validation.Status.NeedsAttention()
}

// Edit returns the field with a new value. A manual edit is trusted
// unconditionally: the field becomes verified and any prior validation
// message or suggestion is discarded.
func Edit(f Field, value string) Field {
	f.Value = value
	f.Verified = true
	f.Validation = Validation{Status: StatusValid, Message: "Manually verified"}
	return f
}

// ToggleVerified flips the user confirmation flag without touching the
// value or the machine validation.
func ToggleVerified(f Field) Field {
	f.Verified = !f.Verified
	return f
}

// ApplySuggestion accepts the validation suggestion as the new value.
// Without a suggestion the field is returned unchanged.
func ApplySuggestion(f Field) Field {
	if f.Validation.Suggestion == "" {
		return f
	}
	return Edit(f, f.Validation.Suggestion)
}

// MoveCoordinates repositions a coordinate-addressed field. The new
// position is clamped to the normalized space and the move counts as a
// user confirmation. Fields without coordinates cannot be moved.
func MoveCoordinates(f Field, x, y int) (Field, error) {
	if f.Coordinates == nil {
		return f, ErrNoCoordinates
	}
	moved := *f.Coordinates
	moved.X = clampNormalized(x)
	moved.Y = clampNormalized(y)
	f.Coordinates = &moved
	f.Verified = true
	return f, nil
}

func clampNormalized(v int) int {
	if v < 0 {
		return 0
	}
	if v > NormalizedMax {
		return NormalizedMax
	}
	return v
}
