// Package blogapi is the single client for the blog backend REST API.
//
// Every admin operation goes through one Client and one canonical endpoint
// per operation. Array-valued fields travel as JSON arrays, never as
// bracket-suffixed form keys, and failures come back as tagged *Error
// values instead of fabricated placeholder data.
package blogapi

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
	"strings"
	"time"
)

const (
	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 4 << 20
)

// Client calls the blog backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests, custom timeouts).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient constructs a backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get issues an idempotent GET and retries exactly once on transport
// failures. Mutating requests never retry to avoid duplicate side effects.
func (c *Client) get(ctx context.Context, path, token string, out any) error {
	err := c.do(ctx, http.MethodGet, path, token, nil, out)
	var apiErr *Error
	if errors.As(err, &apiErr) && (apiErr.Kind == KindNetwork || apiErr.Kind == KindTimeout) && ctx.Err() == nil {
		return c.do(ctx, http.MethodGet, path, token, nil, out)
	}
	return err
}

// send issues a mutating request with a JSON body (or none).
func (c *Client) send(ctx context.Context, method, path, token string, payload, out any) error {
	return c.do(ctx, method, path, token, payload, out)
}

func (c *Client) do(ctx context.Context, method, path, token string, payload, out any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &Error{Kind: KindValidation, Message: "encode request body: " + err.Error(), cause: err}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Kind: KindValidation, Message: "build request: " + err.Error(), cause: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	setAuthHeader(req, token)
	return c.execute(req, out)
}

// upload issues a multipart request carrying one file plus optional fields.
// Multipart is chosen by the caller attaching a file, never by the client.
func (c *Client) upload(ctx context.Context, path, token, field, filename string, r io.Reader, extra map[string]string, out any) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return &Error{Kind: KindValidation, Message: "build multipart body: " + err.Error(), cause: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return &Error{Kind: KindValidation, Message: "read upload content: " + err.Error(), cause: err}
	}
	for key, value := range extra {
		if err := writer.WriteField(key, value); err != nil {
			return &Error{Kind: KindValidation, Message: "build multipart body: " + err.Error(), cause: err}
		}
	}
	if err := writer.Close(); err != nil {
		return &Error{Kind: KindValidation, Message: "build multipart body: " + err.Error(), cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return &Error{Kind: KindValidation, Message: "build request: " + err.Error(), cause: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	setAuthHeader(req, token)
	return c.execute(req, out)
}

func (c *Client) execute(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "read response: " + err.Error(), cause: err}
	}
	if resp.StatusCode >= 400 {
		return &Error{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: errorMessage(data, resp),
		}
	}
	return decodeEnvelope(data, out)
}

// UploadRecipeImage pushes an image to the dedicated upload endpoint and
// returns the backend-assigned filename.
func (c *Client) UploadRecipeImage(ctx context.Context, token, filename string, r io.Reader) (string, error) {
	var out struct {
		Filename string `json:"filename"`
	}
	if err := c.upload(ctx, "/upload/recipe-image", token, "image", filename, r, nil, &out); err != nil {
		return "", err
	}
	if out.Filename == "" {
		return "", &Error{Kind: KindServer, Message: "upload response missing filename"}
	}
	return out.Filename, nil
}

func setAuthHeader(req *http.Request, token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		// An empty Authorization header confuses some backends; omit it.
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// decodeEnvelope unwraps the backend's {success, data?|error?} envelope.
// Responses that skip the data wrapper (login, upload) decode directly.
func decodeEnvelope(data []byte, out any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var env struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return &Error{Kind: KindServer, Message: "decode response: " + err.Error(), cause: err}
	}
	if env.Success != nil && !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = "request rejected by backend"
		}
		return &Error{Kind: KindServer, Message: msg}
	}
	if out == nil {
		return nil
	}
	raw := data
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		raw = env.Data
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindServer, Message: "decode response: " + err.Error(), cause: err}
	}
	return nil
}

func errorMessage(data []byte, resp *http.Response) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	text := strings.TrimSpace(string(data))
	if text != "" && len(text) <= 200 {
		return fmt.Sprintf("%s: %s", resp.Status, text)
	}
	return resp.Status
}

func transportError(err error) *Error {
	if isTimeout(err) {
		return &Error{Kind: KindTimeout, Message: "backend did not respond in time", cause: err}
	}
	return &Error{Kind: KindNetwork, Message: "backend unreachable: " + err.Error(), cause: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Timeout()
	}
	return false
}
