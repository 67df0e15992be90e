package chgo

import (
	"time"

	"github.com/chxio/chgo/errs"
	"github.com/chxio/chgo/format"
	"github.com/chxio/chgo/transport"
)

type options struct {
	endpoints []string

	username    string
	password    string
	accessToken string
	sslAuth     bool

	rootCert   string
	clientCert string
	clientKey  string

	maxConnections           int
	connectionTTL            time.Duration
	keepAlive                time.Duration
	connectionRequestTimeout time.Duration
	socketTimeout            time.Duration
	maxRetries               int
	retryOnFailures          errs.ClientFaultCause
	reuseStrategy            transport.ReuseStrategy

	compressClientRequest  bool
	compressServerResponse bool
	useHTTPCompression     bool
	compressionAlgo        format.CompressionType

	clientName     string
	httpHeaders    map[string]string
	serverSettings map[string]string

	logger Logger
}

func defaultOptions() *options {
	return &options{
		maxConnections:           10,
		connectionTTL:            0,
		keepAlive:                0,
		connectionRequestTimeout: 10 * time.Second,
		socketTimeout:            30 * time.Second,
		maxRetries:               0,
		retryOnFailures:          errs.DefaultRetrySet,
		reuseStrategy:            transport.ReuseLIFO,
		compressClientRequest:    false,
		compressServerResponse:   false,
		useHTTPCompression:       false,
		compressionAlgo:          format.CompressionNone,
		httpHeaders:              map[string]string{},
		serverSettings:           map[string]string{},
		logger:                   noopLogger{},
	}
}

// ClientOption configures a Client at build time via NewClient.
type ClientOption func(*options)

// WithEndpoints sets the ordered list of base URIs the client round-robins
// across.
func WithEndpoints(endpoints ...string) ClientOption {
	return func(o *options) { o.endpoints = endpoints }
}

// WithBasicAuth configures password authentication. Exclusive with
// WithAccessToken and WithSSLAuth.
func WithBasicAuth(username, password string) ClientOption {
	return func(o *options) { o.username, o.password = username, password }
}

// WithAccessToken configures bearer-token authentication. Exclusive with
// WithBasicAuth and WithSSLAuth.
func WithAccessToken(token string) ClientOption {
	return func(o *options) { o.accessToken = token }
}

// WithSSLAuth configures client-certificate identity. Exclusive with
// WithBasicAuth and WithAccessToken.
func WithSSLAuth(clientCert, clientKey string) ClientOption {
	return func(o *options) { o.sslAuth = true; o.clientCert = clientCert; o.clientKey = clientKey }
}

// WithRootCert sets the CA bundle used to verify the server's certificate.
func WithRootCert(path string) ClientOption {
	return func(o *options) { o.rootCert = path }
}

// WithMaxConnections caps simultaneous open sockets per endpoint.
func WithMaxConnections(n int) ClientOption {
	return func(o *options) { o.maxConnections = n }
}

// WithConnectionTTL sets the hard cap on total connection age.
func WithConnectionTTL(d time.Duration) ClientOption {
	return func(o *options) { o.connectionTTL = d }
}

// WithKeepAlive sets the idle-age cap enforced on checkout.
func WithKeepAlive(d time.Duration) ClientOption {
	return func(o *options) { o.keepAlive = d }
}

// WithConnectionRequestTimeout sets the maximum wait for a free pool slot.
func WithConnectionRequestTimeout(d time.Duration) ClientOption {
	return func(o *options) { o.connectionRequestTimeout = d }
}

// WithSocketTimeout sets the per-read/write deadline on a checked-out
// connection.
func WithSocketTimeout(d time.Duration) ClientOption {
	return func(o *options) { o.socketTimeout = d }
}

// WithMaxRetries sets the non-negative retry budget for a failed request.
func WithMaxRetries(n int) ClientOption {
	return func(o *options) { o.maxRetries = n }
}

// WithRetryOnFailures overrides the default ClientFaultCause retry set.
func WithRetryOnFailures(mask errs.ClientFaultCause) ClientOption {
	return func(o *options) { o.retryOnFailures = mask }
}

// WithReuseStrategy selects FIFO or LIFO idle-connection reuse.
func WithReuseStrategy(s transport.ReuseStrategy) ClientOption {
	return func(o *options) { o.reuseStrategy = s }
}

// WithCompression enables the given algorithm for request/response
// bodies. Use WithHTTPCompression to choose HTTP Content-Encoding framing
// over the server's native per-algorithm framing.
func WithCompression(algo format.CompressionType) ClientOption {
	return func(o *options) {
		o.compressionAlgo = algo
		o.compressClientRequest = true
		o.compressServerResponse = true
	}
}

// WithHTTPCompression selects HTTP-standard Content-Encoding framing
// instead of the server's native compression framing.
func WithHTTPCompression(use bool) ClientOption {
	return func(o *options) { o.useHTTPCompression = use }
}

// WithClientName sets the caller-identifying prefix of the User-Agent
// header.
func WithClientName(name string) ClientOption {
	return func(o *options) { o.clientName = name }
}

// WithHTTPHeader adds a default header sent on every call, overridable
// per-call.
func WithHTTPHeader(key, value string) ClientOption {
	return func(o *options) { o.httpHeaders[key] = value }
}

// WithServerSetting adds a default query-string setting sent on every
// call, overridable per-call.
func WithServerSetting(key, value string) ClientOption {
	return func(o *options) { o.serverSettings[key] = value }
}

// WithLogger sets the sink for schema-drift warnings (connection-lifecycle
// and retry events are not logged).
func WithLogger(l Logger) ClientOption {
	return func(o *options) { o.logger = l }
}

func (o *options) authModeCount() int {
	n := 0
	if o.username != "" || o.password != "" {
		n++
	}

	if o.accessToken != "" {
		n++
	}

	if o.sslAuth {
		n++
	}

	return n
}
