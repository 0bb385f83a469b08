package template

import (
	"strings"

	"github.com/inkform/inkform/internal/field"
)

// FieldMapping maps a template's variables to the label variations the
// extraction model is known to produce for them.
type FieldMapping struct {
	Template string              `json:"template"`
	Fields   []string            `json:"fields"`
	Mapping  map[string][]string `json:"mapping"`
}

// NormalizeLabel canonicalizes a label for matching: lower case,
// trimmed, colons dropped, underscores treated as spaces.
func NormalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.ReplaceAll(label, ":", "")
	label = strings.ReplaceAll(label, "_", " ")
	return label
}

// reverse builds the normalized-label to template-variable lookup.
func (m *FieldMapping) reverse() map[string]string {
	rev := make(map[string]string)
	for variable, labels := range m.Mapping {
		for _, label := range labels {
			rev[NormalizeLabel(label)] = variable
		}
	}
	return rev
}

// Apply maps extracted fields onto template variables. Exact
// normalized matches win; otherwise a containment match in either
// direction counts. Fields without a label or value are ignored.
func (m *FieldMapping) Apply(fields []field.Field) map[string]string {
	rev := m.reverse()
	out := make(map[string]string)

	for _, f := range fields {
		label := NormalizeLabel(f.Label)
		if label == "" || f.Value == "" {
			continue
		}

		if variable, ok := rev[label]; ok {
			out[variable] = f.Value
			continue
		}

		for candidate, variable := range rev {
			if strings.Contains(label, candidate) || strings.Contains(candidate, label) {
				out[variable] = f.Value
				break
			}
		}
	}

	return out
}

// MatchCount reports how many of the labels resolve to a template
// variable, used to score template detection.
func (m *FieldMapping) MatchCount(labels []string) int {
	rev := m.reverse()
	n := 0
	for _, raw := range labels {
		label := NormalizeLabel(raw)
		if label == "" {
			continue
		}
		if _, ok := rev[label]; ok {
			n++
			continue
		}
		for candidate := range rev {
			if strings.Contains(label, candidate) || strings.Contains(candidate, label) {
				n++
				break
			}
		}
	}
	return n
}
