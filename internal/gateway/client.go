package gateway

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

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/five82/smashtrack/internal/logging"
	"github.com/five82/smashtrack/internal/metrics"
)

// TokenSource is the gateway's view of the credential store.
type TokenSource interface {
	Get() (string, bool)
	Clear() error
}

// Doer executes gateway requests. It is implemented by *Client and is what
// the stages depend on.
type Doer interface {
	Do(ctx context.Context, req Request, dest any) error
}

// Ensure Client implements Doer at compile time.
var _ Doer = (*Client)(nil)

// Request describes one outbound call.
type Request struct {
	Method string
	// Path is relative to the API base, e.g. "/auth/login".
	Path string
	// URL, when set, is an absolute target outside the backend API (the
	// generative provider). Such requests never carry the bearer credential
	// and never invalidate the session.
	URL   string
	Query url.Values
	// JSON is encoded as the request body when Body is nil.
	JSON          any
	Body          io.Reader
	ContentType   string
	ContentLength int64
	Header        http.Header
}

// Client decorates and executes every call to the backend API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	tokens    TokenSource
	protected []string
	limiter   *rate.Limiter
	logger    *slog.Logger
	metrics   *metrics.Manager
	newID     func() string
}

const (
	defaultAPIBase   = "http://127.0.0.1:8000/api"
	defaultUserAgent = "smashtrack/0.1"
	requestTimeout   = 2 * time.Minute
	maxErrorBody     = 64 * 1024
)

// DefaultProtectedPrefixes is the protected API surface.
var DefaultProtectedPrefixes = []string{"/auth/profile", "/video", "/analysis", "/history"}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// WithProtectedPrefixes replaces the protected path prefixes.
func WithProtectedPrefixes(prefixes ...string) Option {
	return func(c *Client) {
		c.protected = append([]string(nil), prefixes...)
	}
}

// WithRateLimit throttles outbound calls to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records request outcomes on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRequestIDs overrides the X-Request-ID generator.
func WithRequestIDs(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New builds a Client rooted at apiBase, e.g. "https://host/api".
func New(apiBase string, tokens TokenSource, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("gateway requires a token source")
	}
	base, err := parseBaseURL(apiBase)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		tokens:    tokens,
		protected: append([]string(nil), DefaultProtectedPrefixes...),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client resolves paths against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// IsProtected reports whether path belongs to the protected API surface.
// Matching is by path prefix on segment boundaries.
func (c *Client) IsProtected(path string) bool {
	for _, p := range c.protected {
		p = strings.TrimRight(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") || strings.HasPrefix(path, p+"?") {
			return true
		}
	}
	return false
}

// Do executes req and decodes a successful JSON response into dest (which
// may be nil). Failures are always *Error, except caller cancellation, which
// is returned as the context error.
func (c *Client) Do(ctx context.Context, req Request, dest any) error {
	if c == nil {
		return fmt.Errorf("gateway client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	external := req.URL != ""
	target, endpoint, err := c.resolve(req)
	if err != nil {
		return err
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	body, contentType, err := requestBody(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.ContentLength > 0 {
		httpReq.ContentLength = req.ContentLength
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	requestID := logging.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = c.newID()
	}
	httpReq.Header.Set("X-Request-ID", requestID)

	if !external && c.IsProtected(req.Path) {
		if token, ok := c.tokens.Get(); ok {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	logger := c.loggerFor(ctx).With("method", method, "endpoint", endpoint, "request_id", requestID)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return &Error{Kind: KindNetwork, Method: method, Endpoint: endpoint, Err: err}
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			logger.Debug("request canceled")
			return ctxErr
		}
		gwErr := &Error{Kind: KindNetwork, Method: method, Endpoint: endpoint, Err: err}
		c.record(endpoint, gwErr.Kind.String(), start)
		logger.Warn("request failed", "error", err)
		return gwErr
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		detail := extractDetail(raw)
		kind := classifyStatus(resp.StatusCode, detail, string(raw))
		if kind == KindAuth && external {
			kind = KindValidation
		}
		gwErr := &Error{Kind: kind, Status: resp.StatusCode, Method: method, Endpoint: endpoint, Detail: detail}
		c.record(endpoint, kind.String(), start)

		if kind == KindAuth {
			c.invalidate(logger)
		}
		logger.Warn("request rejected", "status", resp.StatusCode, "kind", kind.String(), "detail", detail)
		return gwErr
	}

	c.record(endpoint, "ok", start)
	logger.Debug("request complete", "status", resp.StatusCode, "elapsed", time.Since(start))

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &Error{Kind: KindServer, Status: resp.StatusCode, Method: method, Endpoint: endpoint, Detail: "malformed response", Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// invalidate clears the credential once for the 401 being handled.
func (c *Client) invalidate(logger *slog.Logger) {
	if err := c.tokens.Clear(); err != nil {
		logger.Error("clear credential after 401", "error", err)
	}
	c.metrics.SessionInvalidated()
	logger.Info("session invalidated")
}

func (c *Client) record(endpoint, outcome string, start time.Time) {
	c.metrics.ObserveRequest(endpoint, outcome, time.Since(start))
}

func (c *Client) loggerFor(ctx context.Context) *slog.Logger {
	if l := logging.FromContext(ctx); l != slog.Default() || c.logger == nil {
		return l
	}
	return c.logger
}

func (c *Client) resolve(req Request) (target, endpoint string, err error) {
	if req.URL != "" {
		u, err := url.Parse(req.URL)
		if err != nil {
			return "", "", fmt.Errorf("parse url %q: %w", req.URL, err)
		}
		if len(req.Query) > 0 {
			q := u.Query()
			for k, vs := range req.Query {
				for _, v := range vs {
					q.Add(k, v)
				}
			}
			u.RawQuery = q.Encode()
		}
		return u.String(), u.Host + u.Path, nil
	}

	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + path
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}
	return u.String(), path, nil
}

func requestBody(req Request) (io.Reader, string, error) {
	if req.Body != nil {
		return req.Body, req.ContentType, nil
	}
	if req.JSON == nil {
		return nil, req.ContentType, nil
	}
	buf, err := json.Marshal(req.JSON)
	if err != nil {
		return nil, "", fmt.Errorf("encode request: %w", err)
	}
	return bytes.NewReader(buf), "application/json", nil
}

// extractDetail pulls a human message out of an error payload: FastAPI's
// "detail", a generic "message", or a provider's {"error":{"message"}}.
func extractDetail(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return string(trimmed)
	}
	if s := stringField(payload, "detail"); s != "" {
		return s
	}
	if s := stringField(payload, "message"); s != "" {
		return s
	}
	if inner, ok := payload["error"].(map[string]any); ok {
		msg := stringField(inner, "message")
		status := stringField(inner, "status")
		switch {
		case msg != "" && status != "":
			return status + ": " + msg
		case msg != "":
			return msg
		case status != "":
			return status
		}
	}
	if s := stringField(payload, "error"); s != "" {
		return s
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	case map[string]any, []any:
		// FastAPI validation errors put a list under "detail".
		buf, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(buf)
	default:
		return fmt.Sprint(v)
	}
}

func parseBaseURL(apiBase string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBase)
	if trimmed == "" {
		trimmed = defaultAPIBase
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api base %q: %w", apiBase, err)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
