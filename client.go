// Package chgo is an HTTP client for a ClickHouse-compatible analytical
// database, speaking the RowBinary wire format directly: a type registry
// parses server-reported column types, a codec encodes and decodes rows
// against them, and a pooled, retrying HTTP request engine carries the
// bytes.
package chgo

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"os"

	"github.com/chxio/chgo/errs"
	"github.com/chxio/chgo/internal/pool"
	"github.com/chxio/chgo/registry"
	"github.com/chxio/chgo/rowbinary"
	"github.com/chxio/chgo/schema"
	"github.com/chxio/chgo/transport"
)

// Client is a value whose lifetime bounds its connection pools and schema
// cache. It holds no other process-global state.
type Client struct {
	opts      *options
	transport *transport.Client
	cache     *schema.Cache
	logger    Logger
}

// NewClient builds a Client from the given options. Mutually exclusive
// auth modes (password, access token, SSL client certificate) fail
// synchronously with ConfigError{exclusive_auth}; this check never
// happens mid-call.
func NewClient(opts ...ClientOption) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.authModeCount() > 1 {
		return nil, &errs.ConfigError{Reason: "exclusive_auth", Option: "password/access_token/ssl_auth"}
	}

	if len(o.endpoints) == 0 {
		return nil, &errs.ConfigError{Reason: "unknown_option", Option: "endpoints"}
	}

	tlsCfg, err := buildTLSConfig(o)
	if err != nil {
		return nil, err
	}

	auth := transport.AuthNone

	switch {
	case o.username != "" || o.password != "":
		auth = transport.AuthBasic
	case o.accessToken != "":
		auth = transport.AuthBearer
	case o.sslAuth:
		auth = transport.AuthSSL
	}

	tc := transport.NewClient(transport.Config{
		Endpoints: o.endpoints,
		Auth:      auth,
		Username:  o.username,
		Password:  o.password,
		Token:     o.accessToken,
		TLS:       tlsCfg,
		Pool: transport.PoolConfig{
			MaxConnections:           o.maxConnections,
			TTL:                      o.connectionTTL,
			KeepAlive:                o.keepAlive,
			ConnectionRequestTimeout: o.connectionRequestTimeout,
			Reuse:                    o.reuseStrategy,
		},
		Retry: transport.RetryPolicy{
			MaxRetries:               o.maxRetries,
			RetrySet:                 o.retryOnFailures,
			SocketTimeout:            o.socketTimeout,
			ConnectionRequestTimeout: o.connectionRequestTimeout,
		},
		Compression: transport.BodyCompressor{
			Algorithm:          o.compressionAlgo,
			UseHTTPCompression: o.useHTTPCompression,
		},
		Balance:         o.connectionRequestTimeout,
		ClientName:      o.clientName,
		DefaultHeaders:  o.httpHeaders,
		DefaultSettings: o.serverSettings,
	})

	c := &Client{opts: o, transport: tc, logger: o.logger}
	c.cache = schema.NewCache(c.describeTable)

	return c, nil
}

func buildTLSConfig(o *options) (*tls.Config, error) {
	if !o.sslAuth && o.rootCert == "" {
		return nil, nil
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if o.rootCert != "" {
		pem, err := os.ReadFile(o.rootCert)
		if err != nil {
			return nil, &errs.ConfigError{Reason: "unknown_option", Option: "root_cert: " + err.Error()}
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, &errs.ConfigError{Reason: "unknown_option", Option: "root_cert: invalid PEM"}
		}

		cfg.RootCAs = pool
	}

	if o.sslAuth {
		cert, err := tls.LoadX509KeyPair(o.clientCert, o.clientKey)
		if err != nil {
			return nil, &errs.ConfigError{Reason: "unknown_option", Option: "ssl_auth: " + err.Error()}
		}

		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

// Close releases every endpoint's connection pool.
func (c *Client) Close() error {
	c.transport.Close()

	return nil
}

// Exec runs a statement that returns no rows (DDL, INSERT without staged
// rows, etc.) and returns the server-reported summary.
func (c *Client) Exec(ctx context.Context, query string, settings map[string]string) (transport.Summary, error) {
	resp, err := c.transport.Call(ctx, query, nil, settings, nil)
	if err != nil {
		return transport.Summary{}, err
	}
	defer resp.Close()

	if _, err := io.Copy(io.Discard, resp); err != nil {
		return transport.Summary{}, &errs.TransportError{Cause: errs.FaultSocketTimeout, Msg: err.Error()}
	}

	return resp.Meta().Summary, nil
}

// Query issues query (expected to carry "FORMAT RowBinary" or to have it
// appended by the caller's settings) and decodes every row against cols.
// The returned Values are not safe for use after the query completes.
func (c *Client) Query(ctx context.Context, query string, cols []registry.ColumnDescriptor, settings map[string]string) (*QueryResult, error) {
	resp, err := c.transport.Call(ctx, query, nil, settings, nil)
	if err != nil {
		return nil, err
	}

	return &QueryResult{resp: resp, dec: rowbinary.NewDecoder(resp), cols: cols}, nil
}

// TableSchema resolves and caches a table's column descriptors via
// DESCRIBE TABLE, at most one in-flight resolution per (endpoint, table).
func (c *Client) TableSchema(ctx context.Context, endpoint, table string) (schema.TableSchema, error) {
	return c.cache.Resolve(ctx, endpoint, table)
}

// InvalidateSchema drops the cached schema for (endpoint, table), forcing
// the next TableSchema call to re-resolve it.
func (c *Client) InvalidateSchema(endpoint, table string) {
	c.cache.Invalidate(endpoint, table)
}

// InsertRows encodes the staged rows (see schema.RowStagingBuffer) as
// a single RowBinaryWithDefaults batch and inserts them into table.
func (c *Client) InsertRows(ctx context.Context, table string, rows []*schema.RowStagingBuffer) (transport.Summary, error) {
	if len(rows) == 0 {
		return transport.Summary{}, nil
	}

	buf := pool.GetBodyBuffer()
	defer pool.PutBodyBuffer(buf)

	enc := rowbinary.NewEncoder(buf)

	for _, row := range rows {
		cols, vals, set, err := row.Commit()
		if err != nil {
			return transport.Summary{}, err
		}

		if err := enc.EncodeRowWithDefaults(cols, vals, set); err != nil {
			return transport.Summary{}, err
		}
	}

	if err := enc.Flush(); err != nil {
		return transport.Summary{}, err
	}

	query := fmt.Sprintf("INSERT INTO %s FORMAT RowBinaryWithDefaults", table)

	resp, err := c.transport.Call(ctx, query, buf.Bytes(), nil, nil)
	if err != nil {
		if c.cache.InvalidateOnError(c.opts.endpoints[0], table, err) {
			c.logger.Warnf("schema drift detected for table %s, cache invalidated", table)
		}

		return transport.Summary{}, err
	}
	defer resp.Close()

	if _, err := io.Copy(io.Discard, resp); err != nil {
		return transport.Summary{}, &errs.TransportError{Cause: errs.FaultSocketTimeout, Msg: err.Error()}
	}

	return resp.Meta().Summary, nil
}

func (c *Client) describeTable(ctx context.Context, endpoint, table string) ([]registry.ColumnDescriptor, error) {
	query := fmt.Sprintf("DESCRIBE TABLE %s FORMAT RowBinary", table)

	resp, err := c.transport.Call(ctx, query, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	dec := rowbinary.NewDecoder(resp)

	var cols []registry.ColumnDescriptor

	for {
		eof, err := dec.AtEOF()
		if err != nil {
			return nil, err
		}

		if eof {
			break
		}

		row, err := dec.DecodeRow(describeTableRowSchema)
		if err != nil {
			return nil, err
		}

		name, err := row[0].AsString()
		if err != nil {
			return nil, err
		}

		typeStr, err := row[1].AsString()
		if err != nil {
			return nil, err
		}

		defaultType, err := row[2].AsString()
		if err != nil {
			return nil, err
		}

		desc, err := registry.Parse(typeStr)
		if err != nil {
			return nil, err
		}

		desc.Name = name
		desc.DefaultKind = defaultKindFromString(defaultType)

		cols = append(cols, desc)
	}

	return cols, nil
}

// describeTableRowSchema mirrors the fixed columns a DESCRIBE TABLE
// query returns: name, type, default_type, default_expression, comment,
// codec_expression, ttl_expression — all plain String columns.
var describeTableRowSchema = func() []registry.ColumnDescriptor {
	cols := make([]registry.ColumnDescriptor, 7)
	for i := range cols {
		cols[i] = registry.ColumnDescriptor{Category: registry.CategoryString}
	}

	return cols
}()

func defaultKindFromString(s string) registry.DefaultKind {
	switch s {
	case "DEFAULT":
		return registry.DefaultValue
	case "MATERIALIZED":
		return registry.DefaultMaterialized
	case "ALIAS":
		return registry.DefaultAlias
	case "EPHEMERAL":
		return registry.DefaultEphemeral
	default:
		return registry.DefaultNone
	}
}
