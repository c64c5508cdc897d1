// Package docclient is a thin HTTP client for the document API, used by docctl.
package docclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const apiPrefix = "/api/v1"

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to a running API server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a client for baseURL with a default timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Upload sends a file as multipart field "file".
func (c *Client) Upload(ctx context.Context, fileName, contentType string, data []byte) (map[string]any, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(fileName)))
	if contentType == "" {
		contentType = ContentTypeFor(fileName)
	}
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/documents/upload", w.FormDataContentType(), body)
}

// Analyze runs analysis synchronously, or queues it when async is set.
func (c *Client) Analyze(ctx context.Context, id string, async bool) (map[string]any, error) {
	path := "/documents/" + url.PathEscape(id) + "/analyze"
	if async {
		path += "?async=true"
	}
	return c.do(ctx, http.MethodPost, path, "", nil)
}

func (c *Client) Get(ctx context.Context, id string) (map[string]any, error) {
	return c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(id), "", nil)
}

func (c *Client) DownloadURL(ctx context.Context, id string) (map[string]any, error) {
	return c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(id)+"/url", "", nil)
}

func (c *Client) List(ctx context.Context, limit, offset int) (map[string]any, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return c.do(ctx, http.MethodGet, "/documents?"+q.Encode(), "", nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id), "", nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+apiPrefix+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp.StatusCode, raw)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func decodeError(status int, raw []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Details any    `json:"details"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.Details = envelope.Error.Details
	}
	return apiErr
}

// ContentTypeFor guesses the upload MIME type from the file extension.
func ContentTypeFor(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
