// Package supabase talks to the hosted backend: PostgREST for the tables and
// GoTrue for authentication.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/logging"
)

const (
	restPrefix = "/rest/v1/"
	authPrefix = "/auth/v1/"

	// maxResponseSize bounds any single backend response body.
	maxResponseSize = 16 * 1024 * 1024
)

// APIError is a non-2xx answer from PostgREST or GoTrue.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient returns a client for the project at baseURL. timeout bounds every
// request; zero leaves requests bounded only by their context.
func NewClient(baseURL, anonKey string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid supabase url %q", baseURL)
	}
	if anonKey == "" {
		return nil, errors.New("supabase anon key is required")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConnsPerHost:   16,
			},
		},
		logger: slog.Default().With(slog.String("component", "supabase_client")),
	}, nil
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// token overrides the bearer token taken from the context.
	token  string
	prefer string
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	token := r.token
	if token == "" {
		token = gateway.AccessToken(ctx)
	}
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.prefer != "" {
		req.Header.Set("Prefer", r.prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, c.logger, "http_response_body")

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return fmt.Errorf("read %s response: %w", r.path, err)
	}
	if len(data) > maxResponseSize {
		return fmt.Errorf("%s response exceeds size limit of %d bytes", r.path, maxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", r.path, err)
	}
	return nil
}

// decodeError understands both the PostgREST {code, message} and the GoTrue
// {error, error_description} / {error_code, msg} shapes.
func decodeError(status int, data []byte) error {
	var raw struct {
		Code             any    `json:"code"`
		ErrorCode        string `json:"error_code"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(data, &raw)

	apiErr := &APIError{StatusCode: status}
	switch {
	case raw.ErrorCode != "":
		apiErr.Code = raw.ErrorCode
	case raw.Error != "":
		apiErr.Code = raw.Error
	default:
		if s, ok := raw.Code.(string); ok {
			apiErr.Code = s
		}
	}
	for _, m := range []string{raw.Message, raw.Msg, raw.ErrorDescription} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}

	// 23505 is the Postgres unique_violation code.
	if status == http.StatusConflict || apiErr.Code == "23505" {
		return fmt.Errorf("%w: %w", gateway.ErrConflict, apiErr)
	}
	return apiErr
}
