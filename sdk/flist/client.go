// Package flist is a client for the F-List JSON API.
//
// A Client logs in lazily: the first call that needs a ticket triggers getApiTicket.php, the
// ticket is reused for TicketTTL and then refreshed. Concurrent callers that need a login share
// a single in-flight login call and its result. Every response is normalized so that fields
// whose key contains "datetime_" carry a time.Time instead of F-List's relative-time string.
//
// See https://wiki.f-list.net/Json_endpoints#API_Version_1 for the endpoint catalogue.
package flist

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/flistgo/flistapi/internal/config"
	"github.com/flistgo/flistapi/internal/logging"
	"github.com/flistgo/flistapi/internal/normalize"
	"github.com/flistgo/flistapi/internal/transport"
	"github.com/flistgo/flistapi/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/singleflight"
)

const (
	// LoginEndpoint issues tickets. It lives outside the api/ prefix.
	LoginEndpoint = "getApiTicket"

	apiPrefix      = "api/"
	endpointSuffix = ".php"
	loginFlightKey = "login"
)

// RequestOptions tunes a single Request call.
type RequestOptions struct {
	// Params are sent as form fields. The caller's map is never modified.
	Params url.Values
	// SkipAuth sends the call without logging in first, even when no valid ticket is held.
	SkipAuth bool
	// ForceAuth logs in before the call even when a valid ticket is held.
	ForceAuth bool
	// DoNotUseAPI drops the api/ path segment, for endpoints living at the JSON root.
	DoNotUseAPI bool
}

// Session is a snapshot of the client's credential state.
type Session struct {
	Ticket     string
	ValidUntil time.Time
}

// Client talks to the F-List JSON API on behalf of one account. It is safe for concurrent use.
type Client struct {
	username string
	password string

	baseURL   string
	ticketTTL time.Duration
	now       func() time.Time
	transport *transport.Transport

	mu           sync.RWMutex
	ticket       string
	validUntil   time.Time
	authResponse map[string]any

	logins singleflight.Group
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	cfg        *config.Config
	baseURL    string
	httpClient transport.Doer
	userAgent  string
	now        func() time.Time
	ticketTTL  time.Duration
}

// WithConfig applies base URL, proxy, timeout, ticket TTL and user agent from cfg. Options given
// after it still win.
func WithConfig(cfg *config.Config) Option {
	return func(o *clientOptions) { o.cfg = cfg }
}

// WithBaseURL points the client at a different API root.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) { o.baseURL = baseURL }
}

// WithHTTPClient replaces the HTTP client used for every call.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithClock replaces time.Now, for ticket expiry and for resolving relative times.
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) { o.now = now }
}

// WithTicketTTL overrides how long a ticket is trusted after login.
func WithTicketTTL(ttl time.Duration) Option {
	return func(o *clientOptions) { o.ticketTTL = ttl }
}

// New creates a client for the given account. An empty username makes every call anonymous
// unless RequestOptions.ForceAuth is set.
func New(username, password string, opts ...Option) *Client {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.cfg
	if cfg == nil {
		cfg = config.Default()
	}

	baseURL := cfg.BaseURL
	if o.baseURL != "" {
		baseURL = o.baseURL
	}
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	ttl := cfg.TicketLifetime()
	if o.ticketTTL > 0 {
		ttl = o.ticketTTL
	}

	now := o.now
	if now == nil {
		now = time.Now
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = transport.NewHTTPClient(cfg)
	}

	return &Client{
		username:  username,
		password:  password,
		baseURL:   baseURL,
		ticketTTL: ttl,
		now:       now,
		transport: transport.New(httpClient, cfg.UserAgent),
	}
}

// IsAuthenticated reports whether a ticket obtained by a successful login is still within its
// validity window.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.validUntil.IsZero() && c.validUntil.After(c.now())
}

// Session returns the current ticket and its expiry. Both are zero before the first login.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Session{Ticket: c.ticket, ValidUntil: c.validUntil}
}

// AuthResponse returns the body of the last successful login, or nil.
func (c *Client) AuthResponse() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authResponse
}

// Authenticate logs in and stores the returned ticket. While a login is in flight, further
// callers wait for it and receive the same response or error instead of logging in again. Once
// it settles the next call starts a fresh login, so a failure can be retried.
//
// A caller whose ctx ends stops waiting with ctx.Err(); the login itself keeps running for the
// other waiters and is bounded by the HTTP client timeout.
func (c *Client) Authenticate(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, _ = logging.EnsureRequestID(ctx)
	loginCtx := context.WithoutCancel(ctx)

	ch := c.logins.DoChan(loginFlightKey, func() (any, error) {
		return c.login(loginCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.WithField("request_id", logging.GetRequestID(ctx)).Debug("joined in-flight login")
		}
		return res.Val.(map[string]any), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Request calls endpoint with opts and returns the normalized JSON body.
//
// The form always carries account (possibly empty). A login runs first when the client has a
// username, holds no valid ticket and SkipAuth is unset, or whenever ForceAuth is set. The
// ticket attached to the call is read after that login settles.
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions) (any, error) {
	ctx, _ = logging.EnsureRequestID(ctx)

	form := make(url.Values, len(opts.Params)+2)
	for k, v := range opts.Params {
		form[k] = append([]string(nil), v...)
	}
	form.Set("account", c.username)

	if c.shouldAuth(opts) {
		if _, err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	if ticket := c.Session().Ticket; ticket != "" {
		form.Set("ticket", ticket)
	}

	body, err := c.post(ctx, endpoint, opts.DoNotUseAPI, form)
	if err != nil {
		return nil, err
	}
	tree, err := normalize.Decode(body)
	if err != nil {
		return nil, &TransportError{URL: c.endpointURL(endpoint, opts.DoNotUseAPI), Err: err}
	}
	return normalize.Normalize(tree, c.now()), nil
}

func (c *Client) shouldAuth(opts RequestOptions) bool {
	if opts.ForceAuth {
		return true
	}
	return c.username != "" && !opts.SkipAuth && !c.IsAuthenticated()
}

// login performs the ticket call. It runs at most once at a time, inside the singleflight group.
func (c *Client) login(ctx context.Context) (map[string]any, error) {
	entry := log.WithFields(log.Fields{
		"request_id": logging.GetRequestID(ctx),
		"account":    c.username,
	})
	entry.Debug("requesting api ticket")

	raw, err := c.Request(ctx, LoginEndpoint, RequestOptions{
		Params:      url.Values{"password": {c.password}},
		SkipAuth:    true,
		DoNotUseAPI: true,
	})
	if err != nil {
		entry.WithError(err).Warn("login failed")
		return nil, err
	}

	resp, ok := raw.(map[string]any)
	if !ok {
		return nil, &APIError{Endpoint: LoginEndpoint, Message: "login response is not an object"}
	}
	ticket, _ := resp["ticket"].(string)
	if strings.TrimSpace(ticket) == "" {
		return nil, &APIError{Endpoint: LoginEndpoint, Message: "missing ticket in login response"}
	}

	validUntil := c.now().Add(c.ticketTTL)
	c.mu.Lock()
	c.ticket = ticket
	c.validUntil = validUntil
	c.authResponse = resp
	c.mu.Unlock()

	entry.WithFields(log.Fields{
		"ticket":      util.HideAPIKey(ticket),
		"valid_until": validUntil.Format(time.RFC3339),
	}).Info("api ticket acquired")
	return resp, nil
}

// post sends the form and turns an "error" field in the body into an *APIError.
func (c *Client) post(ctx context.Context, endpoint string, doNotUseAPI bool, form url.Values) ([]byte, error) {
	target := c.endpointURL(endpoint, doNotUseAPI)
	body, err := c.transport.Post(ctx, target, form)
	if err != nil {
		return nil, err
	}

	entry := log.WithFields(log.Fields{
		"request_id": logging.GetRequestID(ctx),
		"endpoint":   endpoint,
	})
	if msg := apiErrorMessage(body); msg != "" {
		entry.WithField("error", msg).Debug("api returned error")
		return nil, &APIError{Endpoint: endpoint, Message: msg}
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		entry.Debugf("response body: %s", redactTicket(body))
	}
	return body, nil
}

func (c *Client) endpointURL(endpoint string, doNotUseAPI bool) string {
	var sb strings.Builder
	sb.WriteString(c.baseURL)
	if !doNotUseAPI {
		sb.WriteString(apiPrefix)
	}
	sb.WriteString(strings.TrimPrefix(endpoint, "/"))
	sb.WriteString(endpointSuffix)
	return sb.String()
}

// apiErrorMessage returns the API's error text, or "" when the body does not signal an error.
// F-List sends "error": "" on success.
func apiErrorMessage(body []byte) string {
	res := gjson.GetBytes(body, "error")
	if !res.Exists() {
		return ""
	}
	switch res.Type {
	case gjson.Null, gjson.False:
		return ""
	case gjson.String:
		return strings.TrimSpace(res.String())
	case gjson.Number:
		if res.Num == 0 {
			return ""
		}
	}
	return strings.TrimSpace(res.Raw)
}

// redactTicket masks a top-level ticket so response bodies can be logged.
func redactTicket(body []byte) []byte {
	ticket := gjson.GetBytes(body, "ticket")
	if ticket.Type != gjson.String || ticket.String() == "" {
		return body
	}
	out, err := sjson.SetBytes(body, "ticket", util.HideAPIKey(ticket.String()))
	if err != nil {
		return body
	}
	return out
}
