// Package modelsdk is the client for the remote model service: it opens and creates working
// copies, loads units, stages property writes and commits them to the team server.
package modelsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pandeptwidyaop/classmod/internal/logging"
	"github.com/pandeptwidyaop/classmod/internal/models"
)

// Header names carrying the API credentials.
const (
	HeaderUser = "X-Api-User"
	HeaderKey  = "X-Api-Key"
)

var (
	// ErrNotFound matches APIErrors with status 404.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized matches APIErrors with status 401 or 403.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSessionClosed is returned by a Model used after Close.
	ErrSessionClosed = errors.New("working copy session closed")
)

// APIError is a non-2xx response from the model service.
type APIError struct {
	Method     string
	Path       string
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("model service: %s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Is lets callers test the status class with errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	Username       string
	APIKey         string
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         *zap.Logger
	// DeltaBatchSize caps the staged writes sent per request on commit. Zero uses DefaultDeltaBatchSize.
	DeltaBatchSize int
}

// DefaultDeltaBatchSize keeps a batch of deltas well under the server's 1MB body limit.
const DefaultDeltaBatchSize = 500

// Client talks to the model service over its JSON API.
type Client struct {
	baseURL    *url.URL
	username   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	deltaBatch int
}

// NewClient validates the base URL and builds a client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("model service URL is not configured")
	}
	u, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid model service URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid model service URL scheme %q", u.Scheme)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.RequestTimeout}
	}

	batch := opts.DeltaBatchSize
	if batch <= 0 {
		batch = DefaultDeltaBatchSize
	}

	return &Client{
		baseURL:    u,
		username:   opts.Username,
		apiKey:     opts.APIKey,
		httpClient: hc,
		logger:     logging.OrNop(opts.Logger).Named("modelsdk"),
		deltaBatch: batch,
	}, nil
}

// OpenWorkingCopy opens a session on an existing working copy.
func (c *Client) OpenWorkingCopy(ctx context.Context, id string) (Model, error) {
	if id == "" {
		return nil, errors.New("working copy id is empty")
	}
	var wc models.WorkingCopy
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/working-copies/"+url.PathEscape(id)+"/open", nil, &wc); err != nil {
		return nil, err
	}
	return newSession(c, wc), nil
}

// CreateOnlineWorkingCopy creates a working copy of a project revision on the server. The copy is
// not opened.
func (c *Client) CreateOnlineWorkingCopy(ctx context.Context, projectID string, rev models.Revision) (*models.WorkingCopy, error) {
	if projectID == "" {
		return nil, errors.New("project id is empty")
	}
	req := models.CreateWorkingCopyRequest{Branch: rev.Branch, Revision: rev.Number}
	var wc models.WorkingCopy
	path := "/api/v1/projects/" + url.PathEscape(projectID) + "/working-copies"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &wc); err != nil {
		return nil, err
	}
	return &wc, nil
}

// CreateParams describes a working copy created from a local template file.
type CreateParams struct {
	Name     string
	Template string
}

// CreateAndOpenWorkingCopy uploads a template file and opens the working copy made from it.
func (c *Client) CreateAndOpenWorkingCopy(ctx context.Context, params CreateParams) (Model, error) {
	data, err := os.ReadFile(params.Template)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("name", params.Name); err != nil {
		return nil, err
	}
	part, err := mw.CreateFormFile("template", filepath.Base(params.Template))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var wc models.WorkingCopy
	if err := c.do(ctx, http.MethodPost, "/api/v1/working-copies/import", mw.FormDataContentType(), &body, &wc); err != nil {
		return nil, err
	}
	return newSession(c, wc), nil
}

// Job fetches the state of a server job.
func (c *Client) Job(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/jobs/"+url.PathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.authorize(req.Header)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model service: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("model service: %s %s: decode response: %w", method, path, err)
	}
	return nil
}

func (c *Client) authorize(h http.Header) {
	h.Set(HeaderUser, c.username)
	h.Set(HeaderKey, c.apiKey)
}

func decodeAPIError(method, path string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(data))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: msg}
}
