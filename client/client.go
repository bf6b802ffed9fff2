// Package client calls the platform REST API on behalf of one installation.
// Access tokens come from the OAuth2 client-credentials grant and are cached
// until they expire; concurrent callers share a single acquisition.
package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-chat-addons/core"
	"github.com/goliatone/go-chat-addons/transport"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

type Option func(*Client)

// WithHTTPClient sets the client used for both token and API requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithScopes(scopes ...string) Option {
	return func(c *Client) {
		c.scopes = append([]string(nil), scopes...)
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func WithMaxResponseBodyBytes(limit int64) Option {
	return func(c *Client) {
		c.maxBodyBytes = limit
	}
}

func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(c *Client) {
		c.observer.Logger = logger
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(c *Client) {
		c.observer.Metrics = recorder
	}
}

type Client struct {
	cred         core.Credential
	baseURL      *url.URL
	httpClient   *http.Client
	rest         *transport.RESTAdapter
	scopes       []string
	timeout      time.Duration
	maxBodyBytes int64
	now          func() time.Time
	observer     core.Observer

	mu    sync.Mutex
	token *oauth2.Token
}

func New(cred core.Credential, opts ...Option) (*Client, error) {
	cred = cred.Normalize()
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	baseURL, err := url.Parse(cred.APIBaseURL)
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, core.WrapBadInput(err, "client: api base url is invalid", map[string]any{
			"installation_id": cred.InstallationID,
		})
	}

	c := &Client{
		cred:       cred,
		baseURL:    baseURL,
		httpClient: &http.Client{},
		scopes:     append([]string(nil), core.DefaultScopes...),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	c.rest = transport.NewRESTAdapter(c.httpClient)
	if c.maxBodyBytes > 0 {
		c.rest.MaxResponseBodyBytes = c.maxBodyBytes
	}
	return c, nil
}

// Credential returns a copy of the credential the client acts for.
func (c *Client) Credential() core.Credential {
	return c.cred.Clone()
}

// AccessToken returns the cached token while now is before its expiry and
// acquires a new one otherwise.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && c.tokenValid(c.token) {
		return c.token.AccessToken, nil
	}

	startedAt := time.Now()
	token, err := c.fetchToken(ctx)
	c.observer.Observe(ctx, startedAt, "client.token", err, map[string]any{
		"installation_id": c.cred.InstallationID,
	})
	if err != nil {
		return "", err
	}
	c.token = token
	return token.AccessToken, nil
}

func (c *Client) fetchToken(ctx context.Context) (*oauth2.Token, error) {
	config := clientcredentials.Config{
		ClientID:     c.cred.ClientID,
		ClientSecret: c.cred.ClientSecret,
		TokenURL:     c.cred.TokenURL,
		Scopes:       c.scopes,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		tokenCtx, cancel = context.WithTimeout(tokenCtx, c.timeout)
		defer cancel()
	}

	metadata := map[string]any{"installation_id": c.cred.InstallationID}
	token, err := config.Token(tokenCtx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			metadata["status_code"] = retrieveErr.Response.StatusCode
		}
		return nil, core.AuthenticationFailed(err, metadata)
	}
	if token == nil || strings.TrimSpace(token.AccessToken) == "" {
		return nil, core.AuthenticationFailed(nil, metadata)
	}
	return token, nil
}

func (c *Client) tokenValid(token *oauth2.Token) bool {
	if token.Expiry.IsZero() {
		return true
	}
	return c.now().Before(token.Expiry)
}
