// analysis_server.go - Fake generative-language service for testing
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

// RecordedRequest captures one call made to the fake service.
type RecordedRequest struct {
	Method string
	Key    string
	Body   map[string]any
}

// AnalysisServer answers generateContent calls with a canned response.
type AnalysisServer struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	body     string
	requests []RecordedRequest
}

// NewAnalysisServer starts a fake service that answers 200 with an
// "Accepted" analysis until told otherwise. It is closed with the test.
func NewAnalysisServer(t *testing.T) *AnalysisServer {
	t.Helper()

	s := &AnalysisServer{
		status: http.StatusOK,
		body:   SuccessBody("**Document Type** Lab report\nClassification: Accepted"),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Respond replaces the canned status and body.
func (s *AnalysisServer) Respond(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.body = body
}

// Requests returns the calls received so far.
func (s *AnalysisServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *AnalysisServer) handle(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	rec := RecordedRequest{Method: r.Method, Key: r.URL.Query().Get("key")}
	_ = json.Unmarshal(raw, &rec.Body)

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	status, body := s.status, s.body
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// SuccessBody renders a generateContent success response carrying text.
func SuccessBody(text string) string {
	resp := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		panic(err)
	}
	return string(data)
}
