package extract

import (
	"strings"

	"github.com/inkform/inkform/internal/field"
	"github.com/inkform/inkform/internal/pdf"
)

// Request is one extraction call: the blank form the user wants
// filled, the source document holding the data, and whatever field
// inventory is known up front. When the form exposes named fields they
// are listed so the model keys its answers to them; for a detected
// template the expected labels are listed instead.
type Request struct {
	FormDocument   []byte
	SourceDocument []byte
	SourceText     string
	NamedFields    []pdf.NamedField
	ExpectedLabels []string
}

// Response is the parsed extraction result. The field list is complete
// or absent; there are no partial results.
type Response struct {
	Summary string
	Fields  []field.Field
}

// wire shapes

type requestPayload struct {
	FormDocument   string         `json:"form_document"`
	SourceDocument string         `json:"source_document"`
	SourceText     string         `json:"source_text,omitempty"`
	FormFields     []wireNamed    `json:"form_fields,omitempty"`
	ExpectedLabels []string       `json:"expected_labels,omitempty"`
}

type wireNamed struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type responsePayload struct {
	Summary string      `json:"summary"`
	Fields  []wireField `json:"fields"`
}

type wireField struct {
	Key           string           `json:"key,omitempty"`
	Label         string           `json:"label"`
	Value         string           `json:"value"`
	SourceContext string           `json:"source_context,omitempty"`
	Coordinates   *wireCoordinates `json:"coordinates,omitempty"`
	Validation    *wireValidation  `json:"validation,omitempty"`
}

type wireCoordinates struct {
	PageIndex int `json:"page_index"`
	X         int `json:"x"`
	Y         int `json:"y"`
}

type wireValidation struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// toField maps a wire field onto the canonical model. An absent or
// unrecognized validation status counts as the neutral valid state.
func (w wireField) toField() field.Field {
	f := field.Field{
		Key:           w.Key,
		Label:         w.Label,
		Value:         w.Value,
		SourceContext: w.SourceContext,
		Validation:    field.Validation{Status: field.StatusValid},
	}
	if w.Coordinates != nil {
		f.Coordinates = &field.Coordinates{
			PageIndex: w.Coordinates.PageIndex,
			X:         w.Coordinates.X,
			Y:         w.Coordinates.Y,
		}
	}
	if w.Validation != nil {
		f.Validation = field.Validation{
			Status:     parseStatus(w.Validation.Status),
			Message:    w.Validation.Message,
			Suggestion: w.Validation.Suggestion,
		}
	}
	return f
}

func parseStatus(s string) field.Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warning":
		return field.StatusWarning
	case "invalid":
		return field.StatusInvalid
	default:
		return field.StatusValid
	}
}
