package baas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPClient talks to a remote backend over its REST API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	auth    *AuthStore
}

// HTTPOption customises an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request. Zero keeps the transport default.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			clone := *c.http
			clone.Timeout = d
			c.http = &clone
		}
	}
}

// NewHTTPClient creates a client for baseURL. A nil auth store gets a fresh one.
func NewHTTPClient(baseURL string, auth *AuthStore, opts ...HTTPOption) *HTTPClient {
	if auth == nil {
		auth = NewAuthStore()
	}
	c := &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{},
		auth:    auth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClientFactory returns a ClientFactory for baseURL.
func NewHTTPClientFactory(baseURL string, opts ...HTTPOption) ClientFactory {
	return func(auth *AuthStore) Client {
		return NewHTTPClient(baseURL, auth, opts...)
	}
}

// AuthStore returns the store used for the Authorization header.
func (c *HTTPClient) AuthStore() *AuthStore {
	return c.auth
}

// List fetches one page of records.
func (c *HTTPClient) List(ctx context.Context, collection string, page, perPage int, opts ListOptions) (*ListResult, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("perPage", strconv.Itoa(perPage))
	if opts.Sort != "" {
		query.Set("sort", opts.Sort)
	}
	if opts.Filter != "" {
		query.Set("filter", opts.Filter)
	}
	if opts.Expand != "" {
		query.Set("expand", opts.Expand)
	}

	var out ListResult
	if err := c.send(ctx, http.MethodGet, c.recordsPath(collection), query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a record by id.
func (c *HTTPClient) Get(ctx context.Context, collection, id string, opts GetOptions) (*Record, error) {
	query := url.Values{}
	if opts.Expand != "" {
		query.Set("expand", opts.Expand)
	}
	var out Record
	if err := c.send(ctx, http.MethodGet, c.recordPath(collection, id), query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create inserts a record. Forms with attachments are sent as multipart.
func (c *HTTPClient) Create(ctx context.Context, collection string, form *Form) (*Record, error) {
	var out Record
	if err := c.send(ctx, http.MethodPost, c.recordsPath(collection), nil, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update patches a record.
func (c *HTTPClient) Update(ctx context.Context, collection, id string, form *Form) (*Record, error) {
	var out Record
	if err := c.send(ctx, http.MethodPatch, c.recordPath(collection, id), nil, form, &out); err != nil {
		return nil, err
	}
	c.auth.Refresh(collection, id, &out)
	return &out, nil
}

// Delete removes a record.
func (c *HTTPClient) Delete(ctx context.Context, collection, id string) error {
	if err := c.send(ctx, http.MethodDelete, c.recordPath(collection, id), nil, nil, nil); err != nil {
		return err
	}
	c.auth.Refresh(collection, id, nil)
	return nil
}

// AuthWithPassword authenticates against an auth collection and saves the
// resulting token in the auth store.
func (c *HTTPClient) AuthWithPassword(ctx context.Context, collection, identity, password string) (*AuthResult, error) {
	form := NewForm().Set("identity", identity).Set("password", password)
	var out AuthResult
	path := "/api/collections/" + url.PathEscape(collection) + "/auth-with-password"
	if err := c.send(ctx, http.MethodPost, path, nil, form, &out); err != nil {
		return nil, err
	}
	c.auth.Save(out.Token, out.Record)
	return &out, nil
}

// FileURL builds the public download URL of a stored file.
func (c *HTTPClient) FileURL(record *Record, filename string) string {
	return BuildFileURL(c.baseURL, record, filename)
}

// BuildFileURL joins the file path layout shared by every backend.
func BuildFileURL(baseURL string, record *Record, filename string) string {
	if record == nil || record.ID == "" || strings.TrimSpace(filename) == "" {
		return ""
	}
	collection := record.CollectionID
	if collection == "" {
		collection = record.CollectionName
	}
	return strings.TrimRight(baseURL, "/") + "/api/files/" +
		url.PathEscape(collection) + "/" +
		url.PathEscape(record.ID) + "/" +
		url.PathEscape(filename)
}

func (c *HTTPClient) recordsPath(collection string) string {
	return "/api/collections/" + url.PathEscape(collection) + "/records"
}

func (c *HTTPClient) recordPath(collection, id string) string {
	return c.recordsPath(collection) + "/" + url.PathEscape(id)
}

func (c *HTTPClient) send(ctx context.Context, method, path string, query url.Values, form *Form, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	if form != nil {
		buf := &bytes.Buffer{}
		if form.HasFiles() {
			ct, err := form.WriteMultipart(buf)
			if err != nil {
				return NewClientError(0, "failed to encode request", err)
			}
			contentType = ct
		} else {
			if err := json.NewEncoder(buf).Encode(form.Values()); err != nil {
				return NewClientError(0, "failed to encode request", err)
			}
			contentType = "application/json"
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return NewClientError(0, "failed to build request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.auth.Token(); token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return NewClientError(0, err.Error(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewClientError(resp.StatusCode, "failed to read response", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeClientError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return NewClientError(resp.StatusCode, "failed to decode response", err)
	}
	return nil
}

func decodeClientError(status int, raw []byte) error {
	var payload struct {
		Code    int                        `json:"code"`
		Message string                     `json:"message"`
		Data    map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return NewClientError(status, strings.TrimSpace(string(raw)), nil)
	}

	ce := &ClientError{Status: status, Message: payload.Message}
	if ce.Message == "" {
		ce.Message = http.StatusText(status)
	}
	for field, value := range payload.Data {
		var fe FieldError
		if err := json.Unmarshal(value, &fe); err != nil || fe.Message == "" {
			var text string
			if json.Unmarshal(value, &text) != nil {
				text = string(value)
			}
			fe = FieldError{Code: "invalid", Message: text}
		}
		if ce.Data == nil {
			ce.Data = map[string]FieldError{}
		}
		ce.Data[field] = fe
	}
	if ce.Data == nil && status >= http.StatusInternalServerError {
		ce.Err = fmt.Errorf("backend responded %d", status)
	}
	return ce
}
