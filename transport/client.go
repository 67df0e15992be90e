package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/chxio/chgo/errs"
)

// AuthMode selects how outgoing requests authenticate. Exactly one
// non-none mode may be configured; the root package's chgo.NewClient
// enforces this at build time, never from a call (see errs.ConfigError).
type AuthMode uint8

const (
	AuthNone AuthMode = iota
	AuthBasic
	AuthBearer
	AuthSSL
)

// Config is the full HTTP Request Engine configuration surface.
type Config struct {
	Endpoints []string

	Auth     AuthMode
	Username string
	Password string
	Token    string
	TLS      *tls.Config

	Pool        PoolConfig
	Retry       RetryPolicy
	Compression BodyCompressor
	Balance     time.Duration // endpoint cool-down after a transport failure

	ClientName      string
	DefaultHeaders  map[string]string
	DefaultSettings map[string]string
}

// Client is the HTTP Request Engine: a balancer over endpoints, one
// connection pool per endpoint, and the retry/compression/header
// machinery that turns a query into a streaming Response.
type Client struct {
	cfg      Config
	balancer *Balancer

	pools map[string]*Pool
}

// NewClient returns a ready Client; it does not validate cfg. Callers needing
// exclusive-auth enforcement (the builder-level ConfigError) should do so
// before calling this; Client itself trusts cfg.Auth has already been
// resolved to a single mode.
func NewClient(cfg Config) *Client {
	pools := make(map[string]*Pool, len(cfg.Endpoints))

	for _, ep := range cfg.Endpoints {
		poolCfg := cfg.Pool
		poolCfg.Dial = dialerFor(ep, cfg.TLS)
		pools[ep] = NewPool(ep, poolCfg)
	}

	return &Client{
		cfg:      cfg,
		balancer: NewBalancer(cfg.Endpoints, cfg.Balance),
		pools:    pools,
	}
}

func dialerFor(endpoint string, tlsCfg *tls.Config) DialFunc {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" {
		return func(ctx context.Context, ep string) (net.Conn, error) {
			var d net.Dialer

			return d.DialContext(ctx, "tcp", ep)
		}
	}

	host := u.Host
	if u.Scheme == "https" {
		return func(ctx context.Context, _ string) (net.Conn, error) {
			var d net.Dialer

			return tls.DialWithDialer(&d, "tcp", host, tlsCfg)
		}
	}

	return func(ctx context.Context, _ string) (net.Conn, error) {
		var d net.Dialer

		return d.DialContext(ctx, "tcp", host)
	}
}

// Call issues one query through the pooled, retried, compressed request
// pipeline and returns a streaming Response. The caller MUST Close it to
// return the connection to its pool.
//
// settings and headers are per-call overrides; per-call keys win over
// cfg.DefaultSettings / cfg.DefaultHeaders on conflict.
func (c *Client) Call(ctx context.Context, query string, body []byte, settings, headers map[string]string) (*Response, error) {
	var (
		resp *Response
		ep   string
	)

	err := c.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		ep = c.balancer.Next()

		r, err := c.callOnce(ctx, ep, query, body, settings, headers)
		if err != nil {
			if te, ok := err.(*errs.TransportError); ok && te.Retryable(c.cfg.Retry.RetrySet) { //nolint:errorlint
				c.balancer.MarkUnhealthy(ep)
			}

			return err
		}

		resp = r

		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) callOnce(ctx context.Context, endpoint, query string, body []byte, settings, headers map[string]string) (*Response, error) {
	pool, ok := c.pools[endpoint]
	if !ok {
		return nil, &errs.ConfigError{Reason: "unknown_option", Option: "endpoint " + endpoint}
	}

	conn, err := pool.Checkout(ctx)
	if err != nil {
		return nil, err
	}

	encoded, contentEncoding, err := c.cfg.Compression.EncodeRequestBody(body)
	if err != nil {
		pool.Discard(conn)

		return nil, &errs.EncodeError{Reason: "compression_failed"}
	}

	req, err := c.buildRequest(ctx, endpoint, query, encoded, contentEncoding, settings, headers)
	if err != nil {
		pool.Discard(conn)

		return nil, err
	}

	_ = conn.SetDeadline(time.Now().Add(c.socketTimeout()))

	if err := req.Write(conn); err != nil {
		pool.Discard(conn)

		return nil, classifyIOError(err)
	}

	httpResp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		pool.Discard(conn)

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &errs.TransportError{Cause: errs.FaultNoResponse, Msg: "server closed connection with no response"}
		}

		return nil, classifyIOError(err)
	}

	meta, err := ParseHeaders(httpResp.Header)
	if err != nil {
		pool.Discard(conn)

		return nil, err
	}

	if meta.HasException {
		raw, _ := io.ReadAll(httpResp.Body)
		_ = httpResp.Body.Close()
		pool.Return(conn)

		msg := strings.ReplaceAll(string(raw), "\n", " ")

		if meta.ExceptionCode == errs.CodeAuthFailed {
			return nil, &errs.AuthError{Message: msg}
		}

		return nil, &errs.ServerError{Code: meta.ExceptionCode, Message: msg}
	}

	return &Response{
		httpResp:    httpResp,
		meta:        meta,
		pool:        pool,
		conn:        conn,
		compression: c.cfg.Compression,
	}, nil
}

// classifyIOError maps a socket-level failure onto the ClientFaultCause
// taxonomy the retry mask is expressed in.
func classifyIOError(err error) *errs.TransportError {
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return &errs.TransportError{Cause: errs.FaultConnectionReset, Msg: err.Error()}
	}

	return &errs.TransportError{Cause: errs.FaultSocketTimeout, Msg: err.Error()}
}

func (c *Client) socketTimeout() time.Duration {
	if c.cfg.Retry.SocketTimeout > 0 {
		return c.cfg.Retry.SocketTimeout
	}

	return 30 * time.Second
}

// maxQueryInURL bounds how much SQL travels as a query-string parameter;
// longer statements move into the request body instead, where no URL
// length limit applies.
const maxQueryInURL = 8 * 1024

func (c *Client) buildRequest(ctx context.Context, endpoint, query string, body []byte, contentEncoding string, settings, headers map[string]string) (*http.Request, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &errs.ConfigError{Reason: "unknown_option", Option: "endpoint"}
	}

	merged := mergeStrMap(c.cfg.DefaultSettings, settings)

	q := u.Query()

	if len(body) == 0 && len(query) > maxQueryInURL {
		body = []byte(query)
	} else {
		q.Set("query", query)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		q.Set(k, merged[k])
	}

	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), newByteReadCloser(body))
	if err != nil {
		return nil, &errs.ConfigError{Reason: "unknown_option", Option: err.Error()}
	}

	req.ContentLength = int64(len(body))
	req.Host = u.Host

	if contentEncoding != "" {
		req.Header.Set("Content-Encoding", contentEncoding)
	}

	req.Header.Set("User-Agent", UserAgent(c.cfg.ClientName))

	switch c.cfg.Auth {
	case AuthBasic:
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	case AuthSSL, AuthNone:
		// SSL client-auth identifies via the TLS handshake itself; no
		// Authorization header is sent.
	}

	for k, v := range mergeStrMap(c.cfg.DefaultHeaders, headers) {
		req.Header.Set(k, v)
	}

	return req, nil
}

// mergeStrMap merges override into base, with override winning on
// conflicting keys.
func mergeStrMap(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))

	for k, v := range base {
		out[k] = v
	}

	for k, v := range override {
		out[k] = v
	}

	return out
}

// Close shuts down every endpoint's connection pool.
func (c *Client) Close() {
	for _, p := range c.pools {
		p.Close()
	}
}
