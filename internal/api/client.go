// Package api wraps the correction backend's HTTP endpoints. It is a
// stateless request/response layer; caching and session state live above it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lbourdet/veridoc/internal/document"
)

const defaultTimeout = 30 * time.Second

// Logger receives one line per request outcome. The TUI passes the file
// logger; tests usually leave the default no-op in place.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Client talks to one backend. Safe to share; it holds no mutable state.
type Client struct {
	base   string
	http   *http.Client
	logger Logger
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying transport, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a client for the given base URL, e.g. "http://localhost:8000".
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: defaultTimeout},
		logger: nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.base
}

// ArtifactURL builds the static URL where the backend serves the original
// uploaded file, for human-facing preview only.
func (c *Client) ArtifactURL(filename string) string {
	return c.base + "/uploads/" + url.PathEscape(filename)
}

// ListDocuments fetches the registry's current view of all documents.
func (c *Client) ListDocuments(ctx context.Context) ([]document.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/documents", nil)
	if err != nil {
		return nil, fmt.Errorf("api: build documents request: %w", err)
	}
	var docs []document.Document
	if err := c.do(req, &docs); err != nil {
		return nil, fmt.Errorf("api: list documents: %w", err)
	}
	c.logger.Printf("api: listed %d documents", len(docs))
	return docs, nil
}

// UploadAck is the backend's acknowledgment of an accepted upload. The
// registry refresh is the authoritative view; callers only log this.
type UploadAck struct {
	ID         int               `json:"id"`
	Extraction map[string]string `json:"extraction"`
}

// Upload sends the raw file content as a multipart request. The backend
// runs extraction and creates the document record before responding.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (UploadAck, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return UploadAck{}, fmt.Errorf("api: build upload form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return UploadAck{}, fmt.Errorf("api: read upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return UploadAck{}, fmt.Errorf("api: finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/upload", &body)
	if err != nil {
		return UploadAck{}, fmt.Errorf("api: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var ack UploadAck
	if err := c.do(req, &ack); err != nil {
		return UploadAck{}, fmt.Errorf("api: upload %s: %w", filename, err)
	}
	c.logger.Printf("api: uploaded %s as document %d", filename, ack.ID)
	return ack, nil
}

// ValidationEvent commits a finished correction: the final draft plus how
// long the review took, in whole seconds.
type ValidationEvent struct {
	DocumentID    int               `json:"document_id"`
	CorrectedData map[string]string `json:"corrected_data"`
	TimeTaken     int               `json:"time_taken"`
}

// Validate submits a validation event. The backend persists the corrected
// data and flips the document's status to validated.
func (c *Client) Validate(ctx context.Context, event ValidationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("api: encode validation event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/validate", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("api: build validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("api: validate document %d: %w", event.DocumentID, err)
	}
	c.logger.Printf("api: validated document %d (%ds review)", event.DocumentID, event.TimeTaken)
	return nil
}

type retrainResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Retrain asks the backend to start a retraining cycle over its accumulated
// validated data and returns the backend's status message verbatim.
func (c *Client) Retrain(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/retrain", nil)
	if err != nil {
		return "", fmt.Errorf("api: build retrain request: %w", err)
	}
	var resp retrainResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("api: retrain: %w", err)
	}
	c.logger.Printf("api: retrain accepted: %s", resp.Message)
	return resp.Message, nil
}

// do executes the request and decodes a JSON body into out when out is
// non-nil. Any non-2xx status is an error carrying the response body.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
