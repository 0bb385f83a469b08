// Package template is the client side of the optional external
// template-rendering service. The service is a black box behind a
// small HTTP contract; when it is unreachable the caller degrades to
// the coordinate-overlay path instead of surfacing an error.
package template

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkform/inkform/internal/field"
)

// ErrServiceUnavailable means the template service did not answer.
var ErrServiceUnavailable = errors.New("template service unavailable")

// probeTimeout bounds the availability check. A slow health endpoint
// counts as absence, not as an error.
const probeTimeout = 3 * time.Second

// DefaultMinMatches is how many labels must resolve to template
// variables before a detection result counts as a match.
const DefaultMinMatches = 3

// Client talks to the template-rendering service.
type Client struct {
	baseURL string
	http    *http.Client
	probe   *http.Client
	log     zerolog.Logger
}

// NewClient creates a template service client for the given base URL.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		probe:   &http.Client{Timeout: probeTimeout},
		log:     log.With().Str("component", "template").Logger(),
	}
}

// Available probes the service's health endpoint. Timeouts and
// connection errors mean "not available", never an error.
func (c *Client) Available(ctx context.Context) bool {
	if c.baseURL == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.probe.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Msg("template service probe failed")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Templates lists the template names the service can render.
func (c *Client) Templates(ctx context.Context) ([]string, error) {
	var payload struct {
		Templates []string `json:"templates"`
	}
	if err := c.getJSON(ctx, "/templates", &payload); err != nil {
		return nil, err
	}
	return payload.Templates, nil
}

// FieldMapping fetches the label mapping for one template. An unknown
// template yields (nil, nil): absence, not failure.
func (c *Client) FieldMapping(ctx context.Context, name string) (*FieldMapping, error) {
	var mapping FieldMapping
	err := c.getJSON(ctx, "/field-mapping/"+name, &mapping)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &mapping, nil
}

// Detect scores every known template against the extracted labels and
// returns the best mapping, or nil when nothing matches at least
// minMatches labels.
func (c *Client) Detect(ctx context.Context, labels []string, minMatches int) (*FieldMapping, error) {
	names, err := c.Templates(ctx)
	if err != nil {
		return nil, err
	}

	var best *FieldMapping
	bestScore := 0
	for _, name := range names {
		mapping, err := c.FieldMapping(ctx, name)
		if err != nil || mapping == nil {
			continue
		}
		if score := mapping.MatchCount(labels); score > bestScore {
			best, bestScore = mapping, score
		}
	}

	if bestScore < minMatches {
		return nil, nil
	}
	return best, nil
}

// FieldValue is one field sent to the generation endpoints.
type FieldValue struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Key   string `json:"key,omitempty"`
}

// GenerateResult is a successfully rendered template.
type GenerateResult struct {
	PDF          []byte
	MappedFields map[string]string
}

// Generate renders a filled template into a document.
func (c *Client) Generate(ctx context.Context, templateName string, fields []field.Field) (*GenerateResult, error) {
	body := struct {
		Template string       `json:"template"`
		Fields   []FieldValue `json:"fields"`
		Format   string       `json:"format"`
	}{
		Template: templateName,
		Fields:   fieldValues(fields),
		Format:   "base64",
	}

	var payload struct {
		Success      bool              `json:"success"`
		PDF          string            `json:"pdf"`
		MappedFields map[string]string `json:"mapped_fields"`
		Error        string            `json:"error"`
	}
	if err := c.postJSON(ctx, "/generate", body, &payload); err != nil {
		return nil, err
	}
	if !payload.Success || payload.PDF == "" {
		return nil, fmt.Errorf("template generation failed: %s", payload.Error)
	}

	pdf, err := base64.StdEncoding.DecodeString(payload.PDF)
	if err != nil {
		return nil, fmt.Errorf("decode generated document: %w", err)
	}

	return &GenerateResult{PDF: pdf, MappedFields: payload.MappedFields}, nil
}

// Preview returns the filled template source without compiling it.
func (c *Client) Preview(ctx context.Context, templateName string, fields []field.Field) (string, error) {
	body := struct {
		Template string       `json:"template"`
		Fields   []FieldValue `json:"fields"`
	}{
		Template: templateName,
		Fields:   fieldValues(fields),
	}

	var payload struct {
		Success bool   `json:"success"`
		LaTeX   string `json:"latex"`
		Error   string `json:"error"`
	}
	if err := c.postJSON(ctx, "/preview", body, &payload); err != nil {
		return "", err
	}
	if payload.Error != "" {
		return "", fmt.Errorf("template preview failed: %s", payload.Error)
	}
	return payload.LaTeX, nil
}

func fieldValues(fields []field.Field) []FieldValue {
	out := make([]FieldValue, 0, len(fields))
	for _, f := range fields {
		out = append(out, FieldValue{Label: f.DisplayLabel(), Value: f.Value, Key: f.Key})
	}
	return out
}

// statusError carries a non-2xx response through errors.As.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("template service returned status %d: %s", e.code, e.body)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build template request: %w", err)
	}
	return c.doJSON(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode template request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build template request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(buf.String())}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode template response: %w", err)
	}
	return nil
}
