package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/inkform/inkform/internal/config"
	"github.com/inkform/inkform/internal/descriptions"
	"github.com/inkform/inkform/internal/field"
	"github.com/inkform/inkform/internal/pdf"
	"github.com/inkform/inkform/internal/review"
	"github.com/inkform/inkform/internal/session"
	"github.com/inkform/inkform/internal/template"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	sessions  *session.Manager
	templates *template.Client
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, sessions *session.Manager, templates *template.Client) (*Server, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session manager cannot be nil")
	}
	if templates == nil {
		return nil, fmt.Errorf("template client cannot be nil")
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		sessions:  sessions,
		templates: templates,
		mcpServer: mcpServer,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	sessionStartTool := mcp.NewTool(
		"form_session_start",
		mcp.WithDescription(descriptions.GetToolDescription("form_session_start")),
		mcp.WithString("form_path",
			mcp.Required(),
			mcp.Description("Full path to the blank form PDF"),
		),
		mcp.WithString("source_path",
			mcp.Required(),
			mcp.Description("Full path to the source document (PDF or image)"),
		),
	)
	s.mcpServer.AddTool(sessionStartTool, s.handleSessionStart)

	listFieldsTool := mcp.NewTool(
		"form_list_fields",
		mcp.WithDescription(descriptions.GetToolDescription("form_list_fields")),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier from form_session_start"),
		),
		mcp.WithString("filter",
			mcp.Description("Field filter: 'all' (default) or 'attention'"),
		),
	)
	s.mcpServer.AddTool(listFieldsTool, s.handleListFields)

	editFieldTool := mcp.NewTool(
		"form_edit_field",
		mcp.WithDescription(descriptions.GetToolDescription("form_edit_field")),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
		mcp.WithNumber("index",
			mcp.Required(),
			mcp.Description("Field index from form_list_fields"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("New value for the field"),
		),
	)
	s.mcpServer.AddTool(editFieldTool, s.handleEditField)

	verifyFieldTool := mcp.NewTool(
		"form_verify_field",
		mcp.WithDescription(descriptions.GetToolDescription("form_verify_field")),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
		mcp.WithNumber("index",
			mcp.Required(),
			mcp.Description("Field index from form_list_fields"),
		),
	)
	s.mcpServer.AddTool(verifyFieldTool, s.handleVerifyField)

	applySuggestionTool := mcp.NewTool(
		"form_apply_suggestion",
		mcp.WithDescription(descriptions.GetToolDescription("form_apply_suggestion")),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
		mcp.WithNumber("index",
			mcp.Required(),
			mcp.Description("Field index from form_list_fields"),
		),
	)
	s.mcpServer.AddTool(applySuggestionTool, s.handleApplySuggestion)

	moveFieldTool := mcp.NewTool(
		"form_move_field",
		mcp.WithDescription(descriptions.GetToolDescription("form_move_field")),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
		mcp.WithNumber("index",
			mcp.Required(),
			mcp.Description("Field index from form_list_fields"),
		),
		mcp.WithNumber("x",
			mcp.Required(),
			mcp.Description("Horizontal position, 0-1000 from the left page edge"),
		),
		mcp.WithNumber("y",
			mcp.Required(),
			mcp.Description("Vertical position, 0-1000 from the top page edge"),
		),
	)
	s.mcpServer.AddTool(moveFieldTool, s.handleMoveField)

	previewTool := mcp.NewTool(
		"form_preview",
		mcp.WithDescription(descriptions.GetToolDescription("form_preview")),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
	)
	s.mcpServer.AddTool(previewTool, s.handlePreview)

	downloadTool := mcp.NewTool(
		"form_download",
		mcp.WithDescription(descriptions.GetToolDescription("form_download")),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
		mcp.WithString("output_path",
			mcp.Required(),
			mcp.Description("Full path to write the filled form to"),
		),
	)
	s.mcpServer.AddTool(downloadTool, s.handleDownload)

	closeSessionTool := mcp.NewTool(
		"form_close_session",
		mcp.WithDescription(descriptions.GetToolDescription("form_close_session")),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
	)
	s.mcpServer.AddTool(closeSessionTool, s.handleCloseSession)

	templatesTool := mcp.NewTool(
		"form_templates",
		mcp.WithDescription(descriptions.GetToolDescription("form_templates")),
	)
	s.mcpServer.AddTool(templatesTool, s.handleTemplates)

	generateTemplateTool := mcp.NewTool(
		"form_generate_template",
		mcp.WithDescription(descriptions.GetToolDescription("form_generate_template")),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
		mcp.WithString("template",
			mcp.Description("Template name from form_templates; omit to use the detected template"),
		),
		mcp.WithString("output_path",
			mcp.Required(),
			mcp.Description("Full path to write the generated document to"),
		),
	)
	s.mcpServer.AddTool(generateTemplateTool, s.handleGenerateTemplate)

	templatePreviewTool := mcp.NewTool(
		"form_template_preview",
		mcp.WithDescription(descriptions.GetToolDescription("form_template_preview")),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
		mcp.WithString("template",
			mcp.Description("Template name from form_templates; omit to use the detected template"),
		),
	)
	s.mcpServer.AddTool(templatePreviewTool, s.handleTemplatePreview)
}

// Handler functions
func (s *Server) handleSessionStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formPath, err := request.RequireString("form_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sourcePath, err := request.RequireString("source_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sess, err := s.sessions.Start(ctx, formPath, sourcePath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Session started: %s\n", sess.ID)
	responseText += fmt.Sprintf("Fill mode: %s\n", describeMode(sess.Mode))
	responseText += fmt.Sprintf("Fields extracted: %d\n", sess.Store.Len())
	if n := sess.Store.AttentionCount(); n > 0 {
		responseText += fmt.Sprintf("Fields needing attention: %d\n", n)
	}
	if sess.Summary != "" {
		responseText += fmt.Sprintf("\nDocument summary:\n%s\n", sess.Summary)
	}
	responseText += "\nUse form_list_fields to review the extracted values."

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleListFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.requireSession(request)
	if errResult != nil {
		return errResult, nil
	}

	args := request.GetArguments()
	if f, ok := args["filter"].(string); ok && f != "" {
		sess.Store.SetFilter(review.Filter(f))
	}

	responseText := s.formatFieldList(sess)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleEditField(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.requireSession(request)
	if errResult != nil {
		return errResult, nil
	}
	index, err := request.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := sess.Store.Edit(index, value); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	f := sess.Store.Fields()[index]
	responseText := fmt.Sprintf("Updated %q to %q (verified)", f.DisplayLabel(), f.Value)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleVerifyField(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.requireSession(request)
	if errResult != nil {
		return errResult, nil
	}
	index, err := request.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := sess.Store.ToggleVerified(index); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	f := sess.Store.Fields()[index]
	state := "unverified"
	if f.Verified {
		state = "verified"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Field %q is now %s", f.DisplayLabel(), state)), nil
}

func (s *Server) handleApplySuggestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.requireSession(request)
	if errResult != nil {
		return errResult, nil
	}
	index, err := request.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fields := sess.Store.Fields()
	hadSuggestion := index >= 0 && index < len(fields) && fields[index].Validation.Suggestion != ""

	if err := sess.Store.ApplySuggestion(index); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	f := sess.Store.Fields()[index]
	if !hadSuggestion {
		return mcp.NewToolResultText(fmt.Sprintf("Field %q has no suggestion; value unchanged", f.DisplayLabel())), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Applied suggestion to %q: %q", f.DisplayLabel(), f.Value)), nil
}

func (s *Server) handleMoveField(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.requireSession(request)
	if errResult != nil {
		return errResult, nil
	}
	index, err := request.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, err := request.RequireInt("x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	y, err := request.RequireInt("y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := sess.Store.Move(index, x, y); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	f := sess.Store.Fields()[index]
	return mcp.NewToolResultText(fmt.Sprintf("Moved %q to (%d, %d) on page %d",
		f.DisplayLabel(), f.Coordinates.X, f.Coordinates.Y, f.Coordinates.PageIndex+1)), nil
}

func (s *Server) handlePreview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.requireSession(request)
	if errResult != nil {
		return errResult, nil
	}

	path, ok := sess.Scheduler.Current()
	if !ok {
		return mcp.NewToolResultText("No preview rendered yet; previews appear shortly after the first change."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Current preview: %s", path)), nil
}

func (s *Server) handleDownload(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.requireSession(request)
	if errResult != nil {
		return errResult, nil
	}
	outputPath, err := request.RequireString("output_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := sess.Download(outputPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Filled form written to: %s\n", outputPath)
	responseText += s.formatFillReport(report)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleCloseSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.sessions.Remove(sessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s closed", sessionID)), nil
}

func (s *Server) handleTemplates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.templates.Available(ctx) {
		return mcp.NewToolResultText("Template service is not available; the fill and overlay paths remain usable."), nil
	}

	names, err := s.templates.Templates(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("Template service has no templates."), nil
	}

	responseText := fmt.Sprintf("Available templates (%d):\n", len(names))
	for i, name := range names {
		responseText += fmt.Sprintf("%d. %s\n", i+1, name)
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleGenerateTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.requireSession(request)
	if errResult != nil {
		return errResult, nil
	}
	outputPath, err := request.RequireString("output_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	templateName, mapping, err := s.resolveTemplate(ctx, sess, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.templates.Generate(ctx, templateName, sess.Store.Fields())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := os.WriteFile(outputPath, result.PDF, 0o600); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("write output document: %v", err)), nil
	}

	mapped := result.MappedFields
	if len(mapped) == 0 && mapping != nil {
		// Older service versions omit the mapping echo; rebuild it
		// locally so the caller still sees the coverage.
		mapped = mapping.Apply(sess.Store.Fields())
	}

	responseText := fmt.Sprintf("Generated %q template to: %s\n", templateName, outputPath)
	if len(mapped) > 0 {
		responseText += fmt.Sprintf("Mapped fields: %d\n", len(mapped))
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleTemplatePreview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.requireSession(request)
	if errResult != nil {
		return errResult, nil
	}
	templateName, _, err := s.resolveTemplate(ctx, sess, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	source, err := s.templates.Preview(ctx, templateName, sess.Store.Fields())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Template %q source:\n\n%s", templateName, source)
	return mcp.NewToolResultText(responseText), nil
}

// resolveTemplate picks the template a generation call renders: an
// explicit name wins, then the template detected at session start,
// then a fresh detection against the extracted field labels.
func (s *Server) resolveTemplate(ctx context.Context, sess *session.Session, request mcp.CallToolRequest) (string, *template.FieldMapping, error) {
	args := request.GetArguments()
	if name, ok := args["template"].(string); ok && name != "" {
		mapping, err := s.templates.FieldMapping(ctx, name)
		if err != nil {
			// The name alone is enough to generate; the mapping only
			// backs the coverage report.
			mapping = nil
		}
		return name, mapping, nil
	}

	if sess.Template != nil {
		return sess.Template.Template, sess.Template, nil
	}

	fields := sess.Store.Fields()
	labels := make([]string, 0, len(fields))
	for _, f := range fields {
		labels = append(labels, f.DisplayLabel())
	}
	mapping, err := s.templates.Detect(ctx, labels, template.DefaultMinMatches)
	if err != nil {
		return "", nil, err
	}
	if mapping == nil {
		return "", nil, fmt.Errorf("no template given and none matches the extracted fields")
	}
	return mapping.Template, mapping, nil
}

// requireSession resolves the session_id argument to a live session. On
// failure it returns a tool error result for the caller to pass back.
func (s *Server) requireSession(request mcp.CallToolRequest) (*session.Session, *mcp.CallToolResult) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return sess, nil
}

// Formatting methods
func (s *Server) formatFieldList(sess *session.Session) string {
	entries := sess.Store.Visible()
	verified, total := sess.Store.VerifiedCount()

	text := fmt.Sprintf("Session: %s\n", sess.ID)
	text += fmt.Sprintf("Fill mode: %s\n", describeMode(sess.Mode))
	text += fmt.Sprintf("Verified: %d/%d", verified, total)
	if n := sess.Store.AttentionCount(); n > 0 {
		text += fmt.Sprintf(", needing attention: %d", n)
	}
	text += "\n"

	if sess.Store.Filter() == review.FilterAttention {
		text += "Filter: attention only\n"
	}

	if len(entries) == 0 {
		text += "\nNo fields to show."
		return text
	}

	text += "\nFields:\n"
	for _, e := range entries {
		text += s.formatFieldEntry(e)
	}
	return text
}

func (s *Server) formatFieldEntry(e review.Entry) string {
	f := e.Field
	text := fmt.Sprintf("\n[%d] %s\n", e.Index, f.DisplayLabel())

	value := f.Value
	if value == "" {
		value = "(empty)"
	}
	text += fmt.Sprintf("    Value: %s\n", value)
	text += fmt.Sprintf("    Status: %s\n", describeFieldState(f))

	if f.Validation.Message != "" {
		text += fmt.Sprintf("    Note: %s\n", f.Validation.Message)
	}
	if f.Validation.Suggestion != "" {
		text += fmt.Sprintf("    Suggestion: %s\n", f.Validation.Suggestion)
	}
	if f.SourceContext != "" {
		text += fmt.Sprintf("    Source: %s\n", f.SourceContext)
	}
	if f.Coordinates != nil {
		text += fmt.Sprintf("    Position: page %d at (%d, %d)\n",
			f.Coordinates.PageIndex+1, f.Coordinates.X, f.Coordinates.Y)
	}
	return text
}

func (s *Server) formatFillReport(report *pdf.FillReport) string {
	text := fmt.Sprintf("Fields written: %d\n", report.Written)

	if len(report.Skipped) > 0 {
		text += fmt.Sprintf("Skipped (%d): %s\n", len(report.Skipped), strings.Join(report.Skipped, ", "))
	}
	if len(report.Failures) > 0 {
		text += fmt.Sprintf("Failed (%d):\n", len(report.Failures))
		for _, f := range report.Failures {
			text += fmt.Sprintf("  %s: %s\n", f.Label, f.Reason)
		}
	}
	return text
}

func describeMode(mode pdf.Mode) string {
	switch mode {
	case pdf.ModeNamedFields:
		return "named form fields"
	case pdf.ModeCoordinateOverlay:
		return "coordinate overlay"
	default:
		return string(mode)
	}
}

func describeFieldState(f field.Field) string {
	status := string(f.Validation.Status)
	if status == "" {
		status = string(field.StatusValid)
	}
	if f.Verified {
		return status + ", verified"
	}
	if f.NeedsAttention() {
		return status + ", needs attention"
	}
	return status
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting form-filling MCP server in stdio mode")
		log.Printf("Working directory: %s", s.config.WorkDir)
	}

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode runs the server in HTTP server mode
func (s *Server) runServerMode(ctx context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting form-filling MCP server in SSE mode on %s", s.config.Address())
	}

	sseServer := server.NewSSEServer(s.mcpServer)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sseServer.Shutdown(shutdownCtx)
	}()

	if err := sseServer.Start(s.config.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve sse: %w", err)
	}
	return nil
}
