package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chxio/chgo/errs"
)

// startCountingServer wraps httptest.Server with a socket-open counter so
// tests can observe connection reuse and TTL-driven re-dials.
func startCountingServer(t *testing.T, handler http.Handler) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var opens atomic.Int32

	srv := httptest.NewUnstartedServer(handler)
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			opens.Add(1)
		}
	}
	srv.Start()
	t.Cleanup(srv.Close)

	return srv, &opens
}

func engineConfig(endpoint string) Config {
	return Config{
		Endpoints: []string{endpoint},
		Pool: PoolConfig{
			MaxConnections:           4,
			ConnectionRequestTimeout: time.Second,
		},
		Retry: RetryPolicy{
			SocketTimeout:            time.Second,
			ConnectionRequestTimeout: time.Second,
		},
	}
}

func callAndClose(t *testing.T, c *Client, query string) *Response {
	t.Helper()

	resp, err := c.Call(context.Background(), query, nil, nil, nil)
	require.NoError(t, err)

	_, err = io.ReadAll(resp)
	require.NoError(t, err)
	require.NoError(t, resp.Close())

	return resp
}

// A connection past its TTL is re-dialed; within TTL it is reused.
func TestConnectionTTLControlsSocketOpens(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("1\n"))
	})

	t.Run("short ttl opens twice", func(t *testing.T) {
		srv, opens := startCountingServer(t, handler)

		cfg := engineConfig(srv.URL)
		cfg.Pool.TTL = 100 * time.Millisecond
		c := NewClient(cfg)
		defer c.Close()

		callAndClose(t, c, "SELECT 1")
		time.Sleep(150 * time.Millisecond)
		callAndClose(t, c, "SELECT 1")

		assert.Equal(t, int32(2), opens.Load())
	})

	t.Run("long ttl reuses", func(t *testing.T) {
		srv, opens := startCountingServer(t, handler)

		cfg := engineConfig(srv.URL)
		cfg.Pool.TTL = 10 * time.Second
		c := NewClient(cfg)
		defer c.Close()

		callAndClose(t, c, "SELECT 1")
		callAndClose(t, c, "SELECT 1")

		assert.Equal(t, int32(1), opens.Load())
	})
}

func TestResponseBodyAndQueryID(t *testing.T) {
	srv, _ := startCountingServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ClickHouse-Query-Id", "q-42")
		w.Header().Set("X-ClickHouse-Summary", `{"read_rows":"1","read_bytes":"2"}`)
		_, _ = w.Write([]byte("1\n"))
	}))

	c := NewClient(engineConfig(srv.URL))
	defer c.Close()

	resp, err := c.Call(context.Background(), "SELECT 1", nil, nil, nil)
	require.NoError(t, err)

	body, err := io.ReadAll(resp)
	require.NoError(t, err)
	assert.Equal(t, "1\n", string(body))
	assert.Equal(t, "q-42", resp.Meta().QueryID)
	assert.Equal(t, uint64(1), resp.Meta().Summary.ReadRows)
	require.NoError(t, resp.Close())
}

// An empty response from the server is retried when the budget and the
// fault mask allow it, and surfaces as no_response otherwise.
func TestRetryAfterEmptyResponse(t *testing.T) {
	newFlakyServer := func(t *testing.T) *httptest.Server {
		var requests atomic.Int32

		srv, _ := startCountingServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requests.Add(1) == 1 {
				hj, ok := w.(http.Hijacker)
				require.True(t, ok)

				conn, _, err := hj.Hijack()
				require.NoError(t, err)
				_ = conn.Close()

				return
			}

			w.Header().Set("X-ClickHouse-Summary", `{"written_rows":"3","written_bytes":"24"}`)
			w.WriteHeader(http.StatusOK)
		}))

		return srv
	}

	t.Run("with retry budget", func(t *testing.T) {
		srv := newFlakyServer(t)

		cfg := engineConfig(srv.URL)
		cfg.Retry.MaxRetries = 1
		cfg.Retry.RetrySet = errs.FaultNoResponse
		c := NewClient(cfg)
		defer c.Close()

		resp, err := c.Call(context.Background(), "INSERT INTO t FORMAT RowBinary", []byte{1}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), resp.Meta().Summary.WrittenRows)
		require.NoError(t, resp.Close())
	})

	t.Run("without retry budget", func(t *testing.T) {
		srv := newFlakyServer(t)

		cfg := engineConfig(srv.URL)
		c := NewClient(cfg)
		defer c.Close()

		_, err := c.Call(context.Background(), "INSERT INTO t FORMAT RowBinary", []byte{1}, nil, nil)
		require.Error(t, err)

		var te *errs.TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, errs.FaultNoResponse, te.Cause)
	})
}

// A 200 response carrying an exception code header is a server error,
// with the body as the message, newline-folded.
func TestServerErrorOnStatus200(t *testing.T) {
	srv, _ := startCountingServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ClickHouse-Exception-Code", "241")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Code: 241. DB::Exception: Memory limit (total) exceeded\nwhile processing query"))
	}))

	c := NewClient(engineConfig(srv.URL))
	defer c.Close()

	_, err := c.Call(context.Background(), "SELECT 1", nil, nil, nil)
	require.Error(t, err)

	var se *errs.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 241, se.Code)
	assert.Contains(t, se.Message, "Memory limit")
	assert.NotContains(t, se.Message, "\n")
}

func TestAuthFailureCode(t *testing.T) {
	srv, _ := startCountingServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ClickHouse-Exception-Code", "516")
		_, _ = w.Write([]byte("Code: 516. DB::Exception: default: Authentication failed"))
	}))

	c := NewClient(engineConfig(srv.URL))
	defer c.Close()

	_, err := c.Call(context.Background(), "SELECT 1", nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrAuth)
}

// Per-call settings win over client defaults; the merged set travels as
// query-string parameters next to the query text.
func TestSettingsMergePerCallWins(t *testing.T) {
	var gotQuery atomic.Pointer[string]

	srv, _ := startCountingServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Encode()
		gotQuery.Store(&raw)
		w.WriteHeader(http.StatusOK)
	}))

	cfg := engineConfig(srv.URL)
	cfg.DefaultSettings = map[string]string{"async_insert": "1", "wait_for_async_insert": "1"}
	c := NewClient(cfg)
	defer c.Close()

	resp, err := c.Call(context.Background(), "SELECT 1", nil,
		map[string]string{"async_insert": "3", "roles": "r3,r2"}, nil)
	require.NoError(t, err)
	require.NoError(t, resp.Close())

	q := *gotQuery.Load()
	assert.Contains(t, q, "query=SELECT+1")
	assert.Contains(t, q, "async_insert=3")
	assert.Contains(t, q, "roles=r3%2Cr2")
	assert.Contains(t, q, "wait_for_async_insert=1")
	assert.NotContains(t, "&"+q, "&async_insert=1")
}

func TestLongQueryMovesToBody(t *testing.T) {
	type seen struct {
		queryParam string
		body       []byte
	}

	var got atomic.Pointer[seen]

	srv, _ := startCountingServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.Store(&seen{queryParam: r.URL.Query().Get("query"), body: body})
		w.WriteHeader(http.StatusOK)
	}))

	c := NewClient(engineConfig(srv.URL))
	defer c.Close()

	long := "SELECT 1 /* " + strings.Repeat("x", 9000) + " */"

	resp, err := c.Call(context.Background(), long, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, resp.Close())

	s := got.Load()
	assert.Empty(t, s.queryParam, "oversized SQL must not travel in the URL")
	assert.Equal(t, long, string(s.body))
}

func TestHeadersMergeAndUserAgent(t *testing.T) {
	type seen struct {
		env, ua, auth string
	}

	var got atomic.Pointer[seen]

	srv, _ := startCountingServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(&seen{
			env:  r.Header.Get("X-Env"),
			ua:   r.Header.Get("User-Agent"),
			auth: r.Header.Get("Authorization"),
		})
		w.WriteHeader(http.StatusOK)
	}))

	cfg := engineConfig(srv.URL)
	cfg.Auth = AuthBasic
	cfg.Username = "default"
	cfg.Password = "secret"
	cfg.ClientName = "billing-svc"
	cfg.DefaultHeaders = map[string]string{"X-Env": "dev"}
	c := NewClient(cfg)
	defer c.Close()

	resp, err := c.Call(context.Background(), "SELECT 1", nil, nil,
		map[string]string{"X-Env": "prod"})
	require.NoError(t, err)
	require.NoError(t, resp.Close())

	s := got.Load()
	assert.Equal(t, "prod", s.env, "per-call header wins")
	assert.Contains(t, s.ua, "billing-svc chgo/")
	assert.Contains(t, s.auth, "Basic ")
}

func TestBearerAuthHeader(t *testing.T) {
	var auth atomic.Pointer[string]

	srv, _ := startCountingServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := r.Header.Get("Authorization")
		auth.Store(&a)
		w.WriteHeader(http.StatusOK)
	}))

	cfg := engineConfig(srv.URL)
	cfg.Auth = AuthBearer
	cfg.Token = "jwt-token"
	c := NewClient(cfg)
	defer c.Close()

	resp, err := c.Call(context.Background(), "SELECT 1", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, resp.Close())

	assert.Equal(t, "Bearer jwt-token", *auth.Load())
}

func TestSSLAuthSendsNoAuthorizationHeader(t *testing.T) {
	var auth atomic.Pointer[string]

	srv, _ := startCountingServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := r.Header.Get("Authorization")
		auth.Store(&a)
		w.WriteHeader(http.StatusOK)
	}))

	cfg := engineConfig(srv.URL)
	cfg.Auth = AuthSSL
	c := NewClient(cfg)
	defer c.Close()

	resp, err := c.Call(context.Background(), "SELECT 1", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, resp.Close())

	assert.Empty(t, *auth.Load())
}
