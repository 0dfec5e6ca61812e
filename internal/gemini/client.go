// Package gemini sends documents to the generative-language analysis service.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/medreport/analyzer/internal/models"
)

// DefaultEndpoint is the generateContent URL of the default vision model.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

// Config holds the client settings resolved at start-up.
type Config struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client // optional; the transport default applies otherwise
}

// Client issues generateContent requests. One call maps to exactly one POST:
// no retries and no client-side timeout.
type Client struct {
	http     *resty.Client
	endpoint string
	apiKey   string
	logger   *slog.Logger
}

// NewClient creates a new analysis service client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetRetryCount(0)

	return &Client{
		http:     rc,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		logger:   logger.With("component", "gemini"),
	}, nil
}

// Analyze sends the file for analysis and returns the first text part of the
// first candidate verbatim.
func (c *Client) Analyze(ctx context.Context, f *models.UploadedFile) (string, error) {
	body, err := json.Marshal(buildRequest(f))
	if err != nil {
		return "", fmt.Errorf("encoding analysis request: %w", err)
	}

	c.logger.Debug("sending analysis request", "mime_type", f.MimeType, "file_bytes", f.Size, "body_bytes", len(body))
	start := time.Now()

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", c.apiKey).
		SetBody(body).
		Post(c.endpoint)
	if err != nil {
		return "", &TransportError{Err: c.redact(err)}
	}

	c.logger.Info("analysis service responded",
		"status", resp.StatusCode(),
		"elapsed", time.Since(start).Round(time.Millisecond))

	if !resp.IsSuccess() {
		return "", &TransportError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	return extractText(resp.Body())
}

// extractText pulls candidates[0].content.parts[0].text out of a response body.
func extractText(body []byte) (string, error) {
	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &FormatError{Reason: "body is not valid JSON", Err: err}
	}

	if len(out.Candidates) == 0 {
		return "", &FormatError{Reason: "no candidates"}
	}
	first := out.Candidates[0]
	if first.Content == nil {
		return "", &FormatError{Reason: "candidate has no content"}
	}
	if len(first.Content.Parts) == 0 {
		return "", &FormatError{Reason: "candidate has no content parts"}
	}
	if first.Content.Parts[0].Text == nil {
		return "", &FormatError{Reason: "first part has no text"}
	}

	return *first.Content.Parts[0].Text, nil
}

// redact strips the credential-bearing query string from URL errors.
func (c *Client) redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return &url.Error{Op: uerr.Op, URL: c.endpoint, Err: uerr.Err}
	}
	return err
}
