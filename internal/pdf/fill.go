package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog"

	"github.com/inkform/inkform/internal/field"
)

// Mode selects the write path of the fill engine. Exactly one mode is
// authoritative per fill: named-field writes when the document exposes
// an AcroForm, the coordinate overlay otherwise.
type Mode string

const (
	ModeNamedFields       Mode = "named_fields"
	ModeCoordinateOverlay Mode = "coordinate_overlay"
)

const (
	// overlayFontSize is the size overlay text is drawn at.
	overlayFontSize = 10
	// overlayNudge shifts overlay text down so it sits above an
	// underline instead of straddling it.
	overlayNudge = 4.0
)

// FieldFailure records one field that could not be written.
type FieldFailure struct {
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// FillReport aggregates the outcome of one fill pass. One bad field
// never aborts the batch; it lands here instead.
type FillReport struct {
	Written  int            `json:"written"`
	Skipped  []string       `json:"skipped,omitempty"`
	Failures []FieldFailure `json:"failures,omitempty"`
}

// Filler writes field values into a document.
type Filler struct {
	log zerolog.Logger
}

// NewFiller creates a new fill engine.
func NewFiller(log zerolog.Logger) *Filler {
	return &Filler{log: log.With().Str("component", "filler").Logger()}
}

// Fill writes the field values into the document using the given mode
// and returns the new document bytes. Document-level failures return
// an error; per-field failures are reported and skipped.
func (fl *Filler) Fill(doc []byte, fields []field.Field, mode Mode) ([]byte, *FillReport, error) {
	switch mode {
	case ModeCoordinateOverlay:
		return fl.fillOverlay(doc, fields)
	default:
		return fl.fillNamed(doc, fields)
	}
}

// fillNamed writes values into the document's AcroForm fields by name.
func (fl *Filler) fillNamed(doc []byte, fields []field.Field) ([]byte, *FillReport, error) {
	report := &FillReport{}

	ctx, err := readContext(doc)
	if err != nil {
		return nil, nil, err
	}

	values := fieldValues(fields)
	for _, f := range fields {
		if f.Key == "" {
			report.Skipped = append(report.Skipped, f.DisplayLabel())
		}
	}

	acro, err := acroFields(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDocumentRead, err)
	}

	written := map[string]bool{}
	for _, af := range acro {
		value, ok := values[af.name]
		if !ok {
			continue
		}
		written[af.name] = true

		if af.readOnly {
			report.Failures = append(report.Failures, FieldFailure{Label: af.name, Reason: "field is read-only"})
			fl.log.Warn().Str("field", af.name).Msg("skipping read-only field")
			continue
		}

		if err := fl.writeField(ctx, af, value); err != nil {
			report.Failures = append(report.Failures, FieldFailure{Label: af.name, Reason: err.Error()})
			fl.log.Warn().Err(err).Str("field", af.name).Msg("field write failed, skipping")
			continue
		}
		report.Written++
	}

	// Keys the model extracted but the document does not expose.
	for key := range values {
		if !written[key] {
			report.Skipped = append(report.Skipped, key)
		}
	}

	fl.setNeedAppearances(ctx)

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, nil, fmt.Errorf("write filled document: %w", err)
	}
	return buf.Bytes(), report, nil
}

// writeField writes one value through a field dictionary according to
// its type tag.
func (fl *Filler) writeField(ctx *model.Context, af acroField, value string) error {
	switch af.typ {
	case field.TypeCheckbox:
		on := checkboxOnState(ctx, af.dict)
		state := types.Name("Off")
		if checkboxChecked(value) {
			state = on
		}
		// V and AS together keep the widget out of an indeterminate
		// state; an unchecked box is explicitly Off.
		af.dict["V"] = state
		af.dict["AS"] = state
		return nil
	case field.TypeText:
		af.dict["V"] = pdfTextString(value)
		// Drop the stale appearance stream; NeedAppearances makes the
		// viewer regenerate it from V.
		delete(af.dict, "AP")
		return nil
	default:
		return fmt.Errorf("unsupported field type %q", af.typ)
	}
}

// setNeedAppearances flags the AcroForm so viewers regenerate widget
// appearances from the new values.
func (fl *Filler) setNeedAppearances(ctx *model.Context) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return
	}
	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil || acroFormDict == nil {
		return
	}
	acroFormDict["NeedAppearances"] = types.Boolean(true)
}

// checkboxOnState finds the widget's on-state name from its normal
// appearance dictionary. Forms in the wild use /Yes, /On, /Ja and
// friends; anything that is not /Off is the on state.
func checkboxOnState(ctx *model.Context, fieldDict types.Dict) types.Name {
	dicts := []types.Dict{fieldDict}

	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kidsArray, err := ctx.DereferenceArray(kidsObj); err == nil && len(kidsArray) > 0 {
			if widgetDict, err := ctx.DereferenceDict(kidsArray[0]); err == nil && widgetDict != nil {
				dicts = append(dicts, widgetDict)
			}
		}
	}

	for _, d := range dicts {
		apObj, found := d.Find("AP")
		if !found {
			continue
		}
		apDict, err := ctx.DereferenceDict(apObj)
		if err != nil || apDict == nil {
			continue
		}
		nObj, found := apDict.Find("N")
		if !found {
			continue
		}
		nDict, err := ctx.DereferenceDict(nObj)
		if err != nil || nDict == nil {
			continue
		}
		for name := range nDict {
			if name != "Off" {
				return types.Name(name)
			}
		}
	}

	return types.Name("Yes")
}

// fieldValues builds the key to value mapping for the named-field
// path. Duplicate keys should not occur but are not rejected; the last
// field in iteration order wins.
func fieldValues(fields []field.Field) map[string]string {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		values[f.Key] = f.Value
	}
	return values
}

// checkboxChecked normalizes a field value to a checkbox state.
func checkboxChecked(value string) bool {
	return strings.EqualFold(value, "true") || strings.EqualFold(value, "yes")
}

// placement is one overlay draw operation in physical page space.
type placement struct {
	page int // 1-based
	x, y float64
	text string
}

// overlayPlacements maps coordinate-addressed fields onto physical
// page positions. Fields with an empty value, no coordinates or a page
// index outside the document are skipped, never fatal.
func overlayPlacements(fields []field.Field, dims []types.Dim) (placements []placement, skipped []string) {
	for _, f := range fields {
		if f.Value == "" || f.Coordinates == nil {
			skipped = append(skipped, f.DisplayLabel())
			continue
		}
		page := f.Coordinates.PageIndex
		if page < 0 || page >= len(dims) {
			skipped = append(skipped, f.DisplayLabel())
			continue
		}

		dim := dims[page]
		px, py := ToPagePoint(f.Coordinates.X, f.Coordinates.Y, dim.Width, dim.Height)
		placements = append(placements, placement{
			page: page + 1,
			x:    px,
			y:    py - overlayNudge,
			text: f.Value,
		})
	}
	return placements, skipped
}

// fillOverlay draws field values as positioned text on top of the
// document. The output is always the full re-rendered document, even
// when nothing was drawn.
func (fl *Filler) fillOverlay(doc []byte, fields []field.Field) ([]byte, *FillReport, error) {
	report := &FillReport{}

	ctx, err := readContext(doc)
	if err != nil {
		return nil, nil, err
	}
	dims, err := pageDims(ctx)
	if err != nil {
		return nil, nil, err
	}

	placements, skipped := overlayPlacements(fields, dims)
	report.Skipped = skipped

	byPage := make(map[int][]*model.Watermark, len(placements))
	for _, p := range placements {
		wm, err := textStamp(p)
		if err != nil {
			report.Failures = append(report.Failures, FieldFailure{Label: p.text, Reason: err.Error()})
			fl.log.Warn().Err(err).Int("page", p.page).Msg("overlay draw failed, skipping")
			continue
		}
		byPage[p.page] = append(byPage[p.page], wm)
		report.Written++
	}

	if len(byPage) == 0 {
		// No-op fill: re-render the document as-is.
		var buf bytes.Buffer
		if err := api.WriteContext(ctx, &buf); err != nil {
			return nil, nil, fmt.Errorf("write document: %w", err)
		}
		return buf.Bytes(), report, nil
	}

	var buf bytes.Buffer
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.AddWatermarksSliceMap(bytes.NewReader(doc), &buf, byPage, conf); err != nil {
		return nil, nil, fmt.Errorf("apply overlay: %w", err)
	}
	return buf.Bytes(), report, nil
}

// textStamp builds a pdfcpu stamp drawing the placement text at an
// absolute offset from the page's bottom-left corner.
func textStamp(p placement) (*model.Watermark, error) {
	desc := fmt.Sprintf(
		"fontname:Helvetica, points:%d, scalefactor:1 abs, position:bl, offset:%.2f %.2f, rotation:0, fillcolor:#000000, opacity:1",
		overlayFontSize, p.x, p.y,
	)
	return api.TextWatermark(p.text, desc, true, false, types.POINTS)
}
