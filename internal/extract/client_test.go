package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkform/inkform/internal/field"
	"github.com/inkform/inkform/internal/pdf"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", 5*time.Second, zerolog.Nop())
}

func TestClient_Extract(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.NotEmpty(t, payload["form_document"])
		assert.Equal(t, "Max Mustermann, geboren 1970", payload["source_text"])

		_, _ = w.Write([]byte(`{
			"summary": "patient intake form",
			"fields": [
				{"key": "firstName", "label": "First Name", "value": "John",
				 "validation": {"status": "VALID"}},
				{"label": "Diagnose", "value": "J06.9",
				 "coordinates": {"page_index": 1, "x": 250, "y": 740},
				 "validation": {"status": "WARNING", "message": "unsure", "suggestion": "J06.8"}},
				{"label": "Plain", "value": "x"}
			]
		}`))
	})

	resp, err := client.Extract(context.Background(), Request{
		FormDocument:   []byte("%PDF-fake"),
		SourceDocument: []byte("%PDF-fake-source"),
		SourceText:     "Max Mustermann, geboren 1970",
		NamedFields:    []pdf.NamedField{{Name: "firstName", Type: field.TypeText}},
	})
	require.NoError(t, err)

	assert.Equal(t, "patient intake form", resp.Summary)
	require.Len(t, resp.Fields, 3)

	assert.Equal(t, "firstName", resp.Fields[0].Key)
	assert.Equal(t, field.StatusValid, resp.Fields[0].Validation.Status)

	coord := resp.Fields[1]
	require.NotNil(t, coord.Coordinates)
	assert.Equal(t, 1, coord.Coordinates.PageIndex)
	assert.Equal(t, 250, coord.Coordinates.X)
	assert.Equal(t, field.StatusWarning, coord.Validation.Status)
	assert.Equal(t, "J06.8", coord.Validation.Suggestion)

	// Missing validation block defaults to the neutral valid state.
	assert.Equal(t, field.StatusValid, resp.Fields[2].Validation.Status)
}

func TestClient_Extract_MissingCredential(t *testing.T) {
	client := NewClient("http://unused.invalid", "", time.Second, zerolog.Nop())

	_, err := client.Extract(context.Background(), Request{})
	require.ErrorIs(t, err, ErrMissingCredential)
}

func TestClient_Extract_EmptyBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := client.Extract(context.Background(), Request{})
	require.ErrorIs(t, err, ErrNoResponse)
}

func TestClient_Extract_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not valid json"))
	})

	resp, err := client.Extract(context.Background(), Request{})
	require.ErrorIs(t, err, ErrMalformedResponse)
	// No partial field list ever escapes.
	assert.Nil(t, resp)
}

func TestClient_Extract_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	})

	_, err := client.Extract(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, field.StatusValid, parseStatus("VALID"))
	assert.Equal(t, field.StatusValid, parseStatus(""))
	assert.Equal(t, field.StatusValid, parseStatus("something else"))
	assert.Equal(t, field.StatusWarning, parseStatus("Warning"))
	assert.Equal(t, field.StatusInvalid, parseStatus("INVALID"))
}
