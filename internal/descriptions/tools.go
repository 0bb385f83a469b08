package descriptions

// Comprehensive tool descriptions with practical examples and use cases

const (
	// Session Tools
	FormSessionStartDescription = `Start an AI-assisted form-filling session from a blank form and a source document.

**When to use:** Beginning any form-filling workflow. The session is the unit of work; every other tool operates on the session ID this returns.

**Why it's useful:** Runs extraction once up front, detects whether the form has fillable named fields or needs coordinate-placed text, and sets up live preview rendering.

**Examples:**
• Fill an application: "Start a session with visa-application.pdf and passport-scan.pdf"
• Process an intake form: "Start a session with intake-form.pdf and referral-letter.pdf"

**Common workflows:**
1. Review Loop: Start session → List fields → Edit and verify → Download filled form
2. Template Flow: Start session → Check templates → Generate from matching template

**Best practices:** The source document may be a PDF or an image. Extraction failures leave no session behind; fix the inputs and start again.`

	FormListFieldsDescription = `List the current field state of a session in review order.

**When to use:** After starting a session, after edits, or whenever you need to see which fields still need attention.

**Why it's useful:** Shows every extracted field with its value, validation status, verification state, and source context, sorted so fields needing attention come first.

**Examples:**
• Review extraction: "List fields for session X to see what was extracted"
• Find problems: "List only fields needing attention in session X"

**Common workflows:**
1. Triage: List fields → Work through attention items → Verify the rest
2. Final Check: List fields → Confirm all verified → Download

**Best practices:** Use the attention filter to focus on invalid or warned fields; field indexes are stable across edits.`

	FormEditFieldDescription = `Set a field's value manually, marking it verified and valid.

**When to use:** The extracted value is wrong or missing and you know the correct value.

**Why it's useful:** A manual edit is authoritative: it clears any validation warning and marks the field verified in one step.

**Examples:**
• Fix a typo: "Set field 3 to 'Joanna Reyes' in session X"
• Fill a blank: "Set the date of birth field to '1989-04-12'"

**Common workflows:**
1. Correction Pass: List fields → Edit wrong values → Download
2. Suggestion Override: Review suggestion → Edit with a different value instead

**Best practices:** Edits trigger a preview re-render automatically after the debounce window.`

	FormVerifyFieldDescription = `Toggle a field's verified flag without changing its value.

**When to use:** The extracted value is correct as-is and just needs sign-off, or a verification was applied by mistake.

**Why it's useful:** Verified fields drop out of the attention list even when their validation status is not valid, recording that a human reviewed them.

**Examples:**
• Sign off: "Mark field 0 verified in session X"
• Undo: "Unverify field 2, it needs another look"

**Best practices:** Verification does not alter validation status; use edit when the value itself must change.`

	FormApplySuggestionDescription = `Accept the validation suggestion for a field as its new value.

**When to use:** Extraction flagged a field with a suggested correction and the suggestion is right.

**Why it's useful:** One step instead of reading the suggestion and retyping it; the field becomes verified and valid like any manual edit.

**Examples:**
• Accept a fix: "Apply the suggestion on field 5 in session X"

**Best practices:** Applying on a field with no suggestion is a harmless no-op; check the field listing first.`

	FormMoveFieldDescription = `Reposition a field's placement on the page using normalized coordinates.

**When to use:** Coordinate-overlay sessions where a value landed in the wrong spot on the rendered form.

**Why it's useful:** Coordinates are normalized to a 0-1000 grid independent of page size, so placements survive different page dimensions.

**Examples:**
• Nudge a value: "Move field 2 to x=480 y=130 in session X"

**Best practices:** Only fields that already have coordinates can be moved; origin is the top-left of the page and values clamp to the 0-1000 range. Pages in listings and confirmations are numbered from 1, matching the field listing.`

	FormPreviewDescription = `Get the path of the current rendered preview of the filled form.

**When to use:** After edits, to inspect how the filled form currently looks.

**Why it's useful:** Previews render in the background after each change; this returns the latest complete render without blocking on in-flight work.

**Best practices:** The preview lags edits by the debounce window. A missing preview means no render has completed yet; try again shortly.`

	FormDownloadDescription = `Produce the final filled form and write it to a file.

**When to use:** The review is done and you want the deliverable document.

**Why it's useful:** Runs a fresh authoritative fill over the current field state and reports exactly which fields were written, skipped, and why.

**Examples:**
• Finish up: "Download session X to /output/filled-application.pdf"

**Common workflows:**
1. Final Delivery: List fields → Confirm verified → Download → Close session

**Best practices:** Check the fill report; skipped fields (no matching form field, no coordinates) are listed rather than failing the whole document.`

	FormCloseSessionDescription = `End a session and release its resources.

**When to use:** The workflow is finished, or you want to start over with different documents.

**Why it's useful:** Stops background preview rendering and removes the preview file from the working directory.

**Best practices:** Closed sessions cannot be resumed; download first if you need the output.`

	// Template Tools
	FormTemplatesDescription = `List form templates available from the template service.

**When to use:** Checking whether a known template matches the form being filled, before choosing the template generation path.

**Why it's useful:** Template-generated documents are typeset rather than overlaid, producing cleaner output for supported form types.

**Best practices:** Returns an empty result when the template service is not configured or unreachable; the overlay path always remains available.`

	FormGenerateTemplateDescription = `Generate a filled document from a template using a session's field values.

**When to use:** A template matching the form exists and you want typeset output instead of a filled or overlaid PDF.

**Why it's useful:** The template service maps extracted labels onto template fields with fuzzy matching and typesets the result, avoiding placement artifacts entirely.

**Examples:**
• Generate: "Generate the 'residence-permit' template from session X to /output/permit.pdf"
• Auto-detect: "Generate a template document from session X" (no template name)

**Best practices:** Omitting the template name uses the template detected when the session started, or matches the extracted labels against all known templates. Check the mapped-fields count in the result; labels the template could not match are simply left out of the generated document.`

	FormTemplatePreviewDescription = `Show the filled template source without compiling it to a document.

**When to use:** Inspecting exactly what the template service will typeset before committing to generation.

**Why it's useful:** Surfaces the substituted values in place, so mapping mistakes are visible as text instead of buried in a rendered PDF.

**Examples:**
• Inspect: "Preview the 'residence-permit' template source for session X"

**Best practices:** The template name resolves the same way as in generation: explicit name first, then the detected template.`
)

// ToolDescriptions maps tool names to their comprehensive descriptions
var ToolDescriptions = map[string]string{
	"form_session_start":     FormSessionStartDescription,
	"form_list_fields":       FormListFieldsDescription,
	"form_edit_field":        FormEditFieldDescription,
	"form_verify_field":      FormVerifyFieldDescription,
	"form_apply_suggestion":  FormApplySuggestionDescription,
	"form_move_field":        FormMoveFieldDescription,
	"form_preview":           FormPreviewDescription,
	"form_download":          FormDownloadDescription,
	"form_close_session":     FormCloseSessionDescription,
	"form_templates":         FormTemplatesDescription,
	"form_generate_template": FormGenerateTemplateDescription,
	"form_template_preview":  FormTemplatePreviewDescription,
}

// GetToolDescription returns the comprehensive description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns a list of all available tool names
func GetAllToolNames() []string {
	var names []string
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	return names
}
