package pdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog"

	"github.com/inkform/inkform/internal/field"
)

// NamedField is one addressable interactive field exposed by a document.
type NamedField struct {
	Name string        `json:"name"`
	Type field.TypeTag `json:"type"`
}

// Inspector lists the named AcroForm fields of a document. Whether a
// document exposes any is the mode selector for the fill engine, so
// the inspector never fails: corrupted input and formless documents
// both yield an empty list.
type Inspector struct {
	log zerolog.Logger
}

// NewInspector creates a new field inspector.
func NewInspector(log zerolog.Logger) *Inspector {
	return &Inspector{log: log.With().Str("component", "inspector").Logger()}
}

// Inspect returns the named fields of the document, if any.
func (in *Inspector) Inspect(doc []byte) []NamedField {
	ctx, err := readContext(doc)
	if err != nil {
		in.log.Debug().Err(err).Msg("document not inspectable, treating as formless")
		return nil
	}

	fields, err := acroFields(ctx)
	if err != nil {
		in.log.Debug().Err(err).Msg("acroform walk failed, treating as formless")
		return nil
	}

	named := make([]NamedField, 0, len(fields))
	for _, af := range fields {
		named = append(named, NamedField{Name: af.name, Type: af.typ})
	}
	return named
}

// acroField is one entry of the document's AcroForm Fields array with
// its dictionary still attached so the filler can write through it.
type acroField struct {
	name     string
	typ      field.TypeTag
	readOnly bool
	dict     types.Dict
}

// acroFields walks the AcroForm dictionary of the catalog. A document
// without one yields an empty slice, not an error. Unresolvable field
// entries are skipped individually.
func acroFields(ctx *model.Context) ([]acroField, error) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}

	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return nil, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil
	}

	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("dereference Fields array: %w", err)
	}

	var fields []acroField
	for i, fieldRef := range fieldsArray {
		fieldDict, err := ctx.DereferenceDict(fieldRef)
		if err != nil || fieldDict == nil {
			continue
		}

		af := acroField{
			name: fieldName(ctx, fieldDict, i),
			typ:  fieldType(ctx, fieldDict),
			dict: fieldDict,
		}

		if flagsObj, found := fieldDict.Find("Ff"); found {
			if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
				af.readOnly = (*flags & 1) != 0 // Bit 1
			}
		}

		fields = append(fields, af)
	}

	return fields, nil
}

// fieldName extracts the partial field name (T entry), falling back to
// a positional name like the rest of the toolchain does.
func fieldName(ctx *model.Context, fieldDict types.Dict, index int) string {
	if nameObj, found := fieldDict.Find("T"); found {
		if name, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil && name != "" {
			return name
		}
	}
	return fmt.Sprintf("field_%d", index)
}

// fieldType maps the FT entry to the tag that drives value
// normalization during filling. FT inherits through Parent.
func fieldType(ctx *model.Context, fieldDict types.Dict) field.TypeTag {
	ftObj, found := fieldDict.Find("FT")
	if !found {
		if parentObj, found := fieldDict.Find("Parent"); found {
			if parentDict, err := ctx.DereferenceDict(parentObj); err == nil && parentDict != nil {
				return fieldType(ctx, parentDict)
			}
		}
		return field.TypeOther
	}

	ftName, err := ctx.DereferenceName(ftObj, model.V10, nil)
	if err != nil {
		return field.TypeOther
	}

	switch ftName {
	case "Tx":
		return field.TypeText
	case "Btn":
		// Radio buttons (bit 16) and pushbuttons (bit 17) are not
		// fillable as plain checkboxes.
		if flagsObj, found := fieldDict.Find("Ff"); found {
			if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
				if (*flags&(1<<15)) != 0 || (*flags&(1<<16)) != 0 {
					return field.TypeOther
				}
			}
		}
		return field.TypeCheckbox
	default:
		return field.TypeOther
	}
}
