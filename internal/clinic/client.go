package clinic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ClinicFlow2/frontend/internal/credstore"
)

const (
	defaultUserAgent      = "clinicflow/0.1"
	defaultAuthBasePath   = "/api/auth"
	defaultRequestTimeout = 15 * time.Second
	defaultRefreshTimeout = 30 * time.Second
	maxResponseBytes      = 64 << 20
)

// Client talks to the clinic backend on behalf of one signed-in user.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	userAgent      string
	language       string
	store          credstore.Store
	auth           authPaths
	requestTimeout time.Duration
	refreshTimeout time.Duration
	log            zerolog.Logger
	metrics        *metrics

	refresh refreshState

	listenersMu  sync.Mutex
	listeners    []listener
	nextListener int
}

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

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLanguage sets the Accept-Language header, which selects the language
// of server-rendered messages and documents.
func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = strings.TrimSpace(lang) }
}

// WithAuthBasePath sets the path prefix of the login and token endpoints.
func WithAuthBasePath(path string) Option {
	return func(c *Client) { c.auth = newAuthPaths(path) }
}

// WithRequestTimeout bounds each send of a request, the original and its
// replay separately. The refresh call is bounded by WithRefreshTimeout only.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithRefreshTimeout bounds the token refresh call.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

// WithRegisterer registers the client's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) { c.metrics = newMetrics(reg) }
}

// NewClient builds a Client for baseURL that reads and writes tokens
// through store.
func NewClient(baseURL string, store credstore.Store, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, fmt.Errorf("credential store is nil")
	}
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:        base,
		http:           &http.Client{},
		userAgent:      defaultUserAgent,
		store:          store,
		auth:           newAuthPaths(defaultAuthBasePath),
		requestTimeout: defaultRequestTimeout,
		refreshTimeout: defaultRefreshTimeout,
		log:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = newMetrics(nil)
	}
	return c, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Do sends req. A 401 on anything but the auth endpoints triggers one token
// refresh shared by all concurrent callers, after which req is sent once
// more with the new token.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	call := &call{req: req, id: uuid.NewString(), timeout: c.requestTimeout}
	resp, sent, err := c.send(ctx, call, "")
	if err == nil {
		return resp, nil
	}
	if !c.needsRefresh(call, err) {
		return nil, err
	}
	return c.handleUnauthorized(ctx, call, sent, err)
}

// call is one logical request across its original send and its replay.
type call struct {
	req     *Request
	id      string
	timeout time.Duration // per send; zero leaves ctx as the only bound
	retried bool
}

func (c *Client) needsRefresh(call *call, err error) bool {
	return !call.retried && IsUnauthorized(err) && !c.auth.exempt(call.req.Path)
}

// send performs a single HTTP exchange. An empty token means "use whatever
// the store holds now". It returns the token it actually attached.
func (c *Client) send(ctx context.Context, call *call, token string) (*Response, string, error) {
	req := call.req
	if token == "" {
		token = c.currentAccess()
	}
	if call.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, call.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.resolve(req), bodyReader(req.Body))
	if err != nil {
		return nil, token, fmt.Errorf("create request: %w", err)
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	if c.language != "" && httpReq.Header.Get("Accept-Language") == "" {
		httpReq.Header.Set("Accept-Language", c.language)
	}
	httpReq.Header.Set("X-Request-ID", call.id)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.observeStatus(0)
		c.log.Debug().Err(err).
			Str("method", req.Method).
			Str("path", req.Path).
			Str("request_id", call.id).
			Msg("request failed")
		return nil, token, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.metrics.observeStatus(resp.StatusCode)
	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Bool("retried", call.retried).
		Dur("elapsed", time.Since(started)).
		Str("request_id", call.id).
		Msg("request")
	if err != nil {
		return nil, token, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, token, &APIError{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, token, nil
}

// currentAccess returns the stored access token. A store that cannot be read
// is treated as holding no token.
func (c *Client) currentAccess() string {
	tokens, err := c.store.Read()
	if err != nil {
		c.log.Warn().Err(err).Msg("read credentials")
		return ""
	}
	return tokens.Access
}

func (c *Client) resolve(req *Request) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + ensureLeadingSlash(req.Path)
	u.RawPath = ""
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}
	return u.String()
}

func bodyReader(body []byte) io.Reader {
	if body == nil {
		return nil
	}
	return bytes.NewReader(body)
}

func ensureLeadingSlash(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("base url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// authPaths holds the login and token endpoints derived from the auth base
// path, plus the substrings that exempt a request from refresh handling.
type authPaths struct {
	login   string
	refresh string
	exempts []string
}

func newAuthPaths(base string) authPaths {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = defaultAuthBasePath
	}
	base = ensureLeadingSlash(base)
	return authPaths{
		login:   base + "/login/",
		refresh: base + "/token/refresh/",
		exempts: []string{base + "/login", base + "/token/"},
	}
}

func (a authPaths) exempt(path string) bool {
	for _, s := range a.exempts {
		if strings.Contains(path, s) {
			return true
		}
	}
	return false
}
