// Package extract calls the hosted multimodal model that reads a
// source document and maps its values onto the target form. The call
// is one-shot and awaited; either a complete field list comes back or
// nothing does.
package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrMissingCredential means no API key is configured; the call is
	// not attempted.
	ErrMissingCredential = errors.New("extraction credential not configured")
	// ErrNoResponse means the model returned nothing usable.
	ErrNoResponse = errors.New("extraction returned no response")
	// ErrMalformedResponse means the response body did not parse as
	// the expected shape.
	ErrMalformedResponse = errors.New("extraction response is malformed")
)

// DefaultTimeout bounds one extraction round trip.
const DefaultTimeout = 120 * time.Second

// Client talks to the extraction endpoint.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	log      zerolog.Logger
}

// NewClient creates an extraction client. The credential is checked at
// call time, not here, so a server can start without one.
func NewClient(endpoint, apiKey string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		log:      log.With().Str("component", "extract").Logger(),
	}
}

// Extract performs the extraction call. On any failure no partial
// field list is returned.
func (c *Client) Extract(ctx context.Context, req Request) (*Response, error) {
	if c.apiKey == "" {
		return nil, ErrMissingCredential
	}

	payload := requestPayload{
		FormDocument:   base64.StdEncoding.EncodeToString(req.FormDocument),
		SourceDocument: base64.StdEncoding.EncodeToString(req.SourceDocument),
		SourceText:     req.SourceText,
		ExpectedLabels: req.ExpectedLabels,
	}
	for _, nf := range req.NamedFields {
		payload.FormFields = append(payload.FormFields, wireNamed{Name: nf.Name, Type: string(nf.Type)})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode extraction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build extraction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read extraction response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("extraction failed with status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrNoResponse
	}

	var parsed responsePayload
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	result := &Response{Summary: parsed.Summary}
	for _, wf := range parsed.Fields {
		result.Fields = append(result.Fields, wf.toField())
	}

	c.log.Info().
		Int("fields", len(result.Fields)).
		Dur("elapsed", time.Since(start)).
		Msg("extraction completed")

	return result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
