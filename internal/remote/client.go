package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout  = 10 * time.Second
	maxErrorBody    = 64 << 10
	fallbackDetail  = "請求失敗"
	bearerPrefix    = "Bearer "
	jsonContentType = "application/json"
)

// TokenSource yields the bearer token of the current session, if any.
type TokenSource interface {
	Token(ctx context.Context) (string, bool, error)
}

// Client issues single JSON requests against the remote content API.
// It never retries; classification of the result is left to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// New creates a client for the versioned API rooted at baseURL
// (e.g. http://localhost:8000/api/v1). A zero timeout uses 10s.
// tokens may be nil, in which case no Authorization header is sent.
func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
	}
}

// NewWithHTTPClient creates a client using a caller-supplied http.Client (for testing).
func NewWithHTTPClient(baseURL string, httpClient *http.Client, tokens TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Call sends method to endpoint (a path under the API root) with an optional
// JSON body and classifies the result.
func (c *Client) Call(ctx context.Context, method, endpoint string, body any) Outcome {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Outcome{Kind: Failed, Err: fmt.Errorf("marshalling request: %w", err)}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bodyReader)
	if err != nil {
		return Outcome{Kind: Unreachable, Err: err}
	}
	if err := c.setHeaders(ctx, req); err != nil {
		return Outcome{Kind: Failed, Err: fmt.Errorf("reading session token: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The caller gave up; that says nothing about the backend.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{Kind: Failed, Err: ctxErr}
		}
		return Outcome{Kind: Unreachable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Outcome{Kind: Rejected, Status: resp.StatusCode, Detail: errorDetail(raw)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		// Headers arrived but the body was cut off; the backend did answer.
		return Outcome{Kind: Rejected, Status: resp.StatusCode, Detail: fallbackDetail, Err: err}
	}
	return Outcome{Kind: Success, Status: resp.StatusCode, Body: raw}
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request) error {
	req.Header.Set("Content-Type", jsonContentType)
	req.Header.Set("Accept", jsonContentType)
	if c.tokens == nil {
		return nil
	}
	token, ok, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if ok && token != "" {
		req.Header.Set("Authorization", bearerPrefix+token)
	}
	return nil
}

// errorDetail extracts a user-facing message from an error response body.
// It understands {"detail": "..."} and {"error": {"message": "..."}}.
func errorDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fallbackDetail
	}
	var detail string
	if len(body.Detail) > 0 && json.Unmarshal(body.Detail, &detail) == nil && detail != "" {
		return detail
	}
	if body.Error.Message != "" {
		return body.Error.Message
	}
	return fallbackDetail
}
