package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alfredjeanlab/varhub/internal/model"
)

// HTTPClient implements VariablesClient using the varhub HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ VariablesClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Variables ---

func (c *HTTPClient) ListVariables(ctx context.Context) ([]*model.Variable, error) {
	var vars []*model.Variable
	if err := c.doJSON(ctx, http.MethodGet, "/variables", nil, &vars); err != nil {
		return nil, err
	}
	if vars == nil {
		vars = []*model.Variable{}
	}
	return vars, nil
}

func (c *HTTPClient) GetVariable(ctx context.Context, id string) (*model.Variable, error) {
	var v model.Variable
	if err := c.doJSON(ctx, http.MethodGet, "/variables/"+url.PathEscape(id), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *HTTPClient) GetVariableByIdentifier(ctx context.Context, identifier string) (*model.Variable, error) {
	var v model.Variable
	if err := c.doJSON(ctx, http.MethodGet, "/variables/by-identifier/"+url.PathEscape(identifier), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *HTTPClient) CreateVariable(ctx context.Context, req *CreateVariableRequest) (*model.Variable, error) {
	var v model.Variable
	if err := c.doJSON(ctx, http.MethodPost, "/variables", req, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// UpdateVariable replaces the value of the variable with the given id.
func (c *HTTPClient) UpdateVariable(ctx context.Context, id, value string) error {
	return c.doJSON(ctx, http.MethodPut, "/variables/"+url.PathEscape(id), value, nil)
}

func (c *HTTPClient) DeleteVariable(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/variables/"+url.PathEscape(id), nil, nil)
}

// --- Real-time ---

func (c *HTTPClient) Subscribers(ctx context.Context) ([]Subscriber, error) {
	var resp struct {
		Subscribers []Subscriber `json:"subscribers"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/subscribers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Subscribers, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
