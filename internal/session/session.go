// Package session owns one form-filling workflow: the uploaded form
// and source documents, the detected fill mode, the review store and
// the preview scheduler. Sessions are created whole from one
// extraction response and discarded whole on reset; there is no
// partial re-extraction.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/inkform/inkform/internal/extract"
	"github.com/inkform/inkform/internal/pdf"
	"github.com/inkform/inkform/internal/preview"
	"github.com/inkform/inkform/internal/review"
	"github.com/inkform/inkform/internal/template"
)

// ErrNotFound is returned for an unknown session ID.
var ErrNotFound = errors.New("session not found")

// Extractor is the one-shot extraction call. *extract.Client satisfies
// it; tests substitute a fake.
type Extractor interface {
	Extract(ctx context.Context, req extract.Request) (*extract.Response, error)
}

// Detector matches a form's printed labels against the template
// service's known field mappings. *template.Client satisfies it; a nil
// detector disables template detection.
type Detector interface {
	Available(ctx context.Context) bool
	Detect(ctx context.Context, labels []string, minMatches int) (*template.FieldMapping, error)
}

var _ Detector = (*template.Client)(nil)

// Session is one live form-filling workflow.
type Session struct {
	ID          string
	FormDoc     []byte
	SourceDoc   []byte
	Mode        pdf.Mode
	NamedFields []pdf.NamedField
	Template    *template.FieldMapping
	Summary     string
	Store       *review.Store
	Scheduler   *preview.Scheduler

	filler *pdf.Filler
}

// Download runs the authoritative fill pass over the current field
// list and writes the result to path.
func (s *Session) Download(path string) (*pdf.FillReport, error) {
	out, report, err := s.filler.Fill(s.FormDoc, s.Store.Fields(), s.Mode)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return nil, fmt.Errorf("write output document: %w", err)
	}
	return report, nil
}

// Config carries the manager's tunables.
type Config struct {
	WorkDir         string
	MaxFileSize     int64
	PreviewDebounce time.Duration
}

// Manager creates and tracks sessions.
type Manager struct {
	cfg       Config
	extractor Extractor
	detector  Detector
	inspector *pdf.Inspector
	filler    *pdf.Filler
	text      *pdf.TextExtractor
	log       zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager. The detector may be nil when
// no template service is configured.
func NewManager(cfg Config, extractor Extractor, detector Detector, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:       cfg,
		extractor: extractor,
		detector:  detector,
		inspector: pdf.NewInspector(log),
		filler:    pdf.NewFiller(log),
		text:      pdf.NewTextExtractor(log),
		log:       log.With().Str("component", "session").Logger(),
		sessions:  make(map[string]*Session),
	}
}

// Start reads both documents, inspects the form for named fields, runs
// the extraction call and installs the resulting field list into a new
// session. Extraction failures create no session and install no
// partial field list.
func (m *Manager) Start(ctx context.Context, formPath, sourcePath string) (*Session, error) {
	formDoc, err := m.readDocument(formPath)
	if err != nil {
		return nil, err
	}
	sourceDoc, err := m.readDocument(sourcePath)
	if err != nil {
		return nil, err
	}

	named := m.inspector.Inspect(formDoc)
	mode := pdf.ModeCoordinateOverlay
	if len(named) > 0 {
		mode = pdf.ModeNamedFields
	}

	req := extract.Request{
		FormDocument:   formDoc,
		SourceDocument: sourceDoc,
		SourceText:     m.text.Text(sourceDoc),
		NamedFields:    named,
	}

	// A flat form without named fields may still be a known template;
	// when it is, the model gets the template's label inventory to key
	// its answers to instead of the (absent) field names.
	var detected *template.FieldMapping
	if mode == pdf.ModeCoordinateOverlay {
		detected = m.detectTemplate(ctx, formDoc)
		if detected != nil {
			req.ExpectedLabels = expectedLabels(detected)
		}
	}

	resp, err := m.extractor.Extract(ctx, req)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:          uuid.NewString(),
		FormDoc:     formDoc,
		SourceDoc:   sourceDoc,
		Mode:        mode,
		NamedFields: named,
		Template:    detected,
		Summary:     resp.Summary,
		Store:       review.NewStore(resp.Fields),
		filler:      m.filler,
	}

	s.Scheduler = preview.NewScheduler(m.cfg.WorkDir, m.cfg.PreviewDebounce, m.renderFunc(s), m.log)
	s.Store.OnChange(s.Scheduler.Notify)
	// Seed an initial preview so the review surface has something to
	// show before the first edit.
	s.Scheduler.Notify()

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.log.Info().
		Str("session", s.ID).
		Str("mode", string(mode)).
		Int("named_fields", len(named)).
		Int("fields", s.Store.Len()).
		Msg("session started")

	return s, nil
}

// detectTemplate matches the form's printed labels against the
// template service's known mappings. Detection is best effort; any
// failure means "no template detected", never an aborted session.
func (m *Manager) detectTemplate(ctx context.Context, formDoc []byte) *template.FieldMapping {
	if m.detector == nil || !m.detector.Available(ctx) {
		return nil
	}

	labels := labelCandidates(m.text.Text(formDoc))
	mapping, err := m.detector.Detect(ctx, labels, template.DefaultMinMatches)
	if err != nil {
		m.log.Debug().Err(err).Msg("template detection failed")
		return nil
	}
	if mapping != nil {
		m.log.Info().Str("template", mapping.Template).Msg("known template detected")
	}
	return mapping
}

// labelCandidates turns a form's text into the line-shaped label
// candidates detection scores. Long lines are prose, not labels.
func labelCandidates(text string) []string {
	var labels []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > 80 {
			continue
		}
		labels = append(labels, line)
		if len(labels) == 200 {
			break
		}
	}
	return labels
}

// expectedLabels flattens a mapping into the label inventory the
// extraction model should look for, one label per template variable.
func expectedLabels(mapping *template.FieldMapping) []string {
	labels := make([]string, 0, len(mapping.Fields))
	for _, variable := range mapping.Fields {
		if variants := mapping.Mapping[variable]; len(variants) > 0 {
			labels = append(labels, variants[0])
			continue
		}
		labels = append(labels, variable)
	}
	return labels
}

// renderFunc snapshots the field list at fire time so the preview
// always reflects a complete, untorn state.
func (m *Manager) renderFunc(s *Session) preview.RenderFunc {
	return func(ctx context.Context) ([]byte, error) {
		out, _, err := m.filler.Fill(s.FormDoc, s.Store.Fields(), s.Mode)
		return out, err
	}
}

// Get looks up a session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Remove tears a session down, releasing its preview resources.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.Scheduler.Close()
}

// CloseAll tears down every session, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		if err := s.Scheduler.Close(); err != nil {
			m.log.Warn().Err(err).Str("session", s.ID).Msg("session teardown failed")
		}
	}
}

// readDocument loads a document with the same path discipline the rest
// of the toolchain uses.
func (m *Manager) readDocument(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("document path cannot be empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if m.cfg.MaxFileSize > 0 && info.Size() > m.cfg.MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), m.cfg.MaxFileSize)
	}

	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(doc) == 0 || !strings.HasPrefix(string(doc[:min(8, len(doc))]), "%PDF") {
		// Image uploads are legitimate source documents; only the
		// blank form needs to be a parseable PDF, which the inspector
		// and filler decide for themselves.
		m.log.Debug().Str("path", path).Msg("document is not a PDF")
	}
	return doc, nil
}
