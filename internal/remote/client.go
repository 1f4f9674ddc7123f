// Package remote is the HTTP client of the travel spot REST API. It
// implements the persistence collaborators used by the editor: location
// options, travel spot create/update/read and per-image operations.
package remote

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

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. https://api.example.com/api/v1.
	BaseURL string
	// Token is sent as a bearer token when set.
	Token   string
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing requests; 0 disables throttling.
	RequestsPerSecond float64
	// Transport overrides http.DefaultTransport.
	Transport http.RoundTripper
}

// Client talks to the remote API. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
	log  *slog.Logger
}

// New builds a Client from cfg.
func New(cfg Config, log *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("remote.New: invalid base url %q", cfg.BaseURL)
	}
	if log == nil {
		log = slog.Default()
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		transport = &rateLimitedTransport{
			base:    transport,
			limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		}
	}
	if cfg.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
			Base:   transport,
		}
	}

	return &Client{
		base: base,
		http: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		log:  log,
	}, nil
}

// rateLimitedTransport waits for the limiter before every request.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// errNoData is returned by send when a 2xx body carries no data member.
var errNoData = errors.New("response has no data")

// envelope is the success body: { message, data? }.
type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// errorEnvelope is the failure body:
// { errors: { field_errors?: {field: [msg]}, non_field_errors?: [msg] } }.
type errorEnvelope struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Errors  struct {
		FieldErrors    map[string]messages `json:"field_errors"`
		NonFieldErrors messages            `json:"non_field_errors"`
	} `json:"errors"`
}

// messages accepts a single string where a list is expected.
type messages []string

func (m *messages) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*m = messages{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*m = many
	return nil
}

func (c *Client) url(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// sendJSON encodes in (when non-nil) as the request body and decodes the
// data member of the response into out (when non-nil).
func (c *Client) sendJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, query, body, contentType)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WarnContext(req.Context(), "remote request failed",
			"method", req.Method, "path", req.URL.Path, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	c.log.DebugContext(req.Context(), "remote request",
		"method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", domain.ErrUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return errNoData
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func decodeError(status int, body []byte) *domain.APIError {
	apiErr := &domain.APIError{Status: status}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		apiErr.Message = http.StatusText(status)
		return apiErr
	}

	apiErr.Message = env.Message
	if apiErr.Message == "" {
		apiErr.Message = env.Detail
	}
	if len(env.Errors.FieldErrors) > 0 {
		apiErr.FieldErrors = domain.FieldErrors{}
		for field, msgs := range env.Errors.FieldErrors {
			for _, m := range msgs {
				apiErr.FieldErrors.Add(field, m)
			}
		}
	}
	apiErr.NonFieldErrors = []string(env.Errors.NonFieldErrors)
	return apiErr
}
