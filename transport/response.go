package transport

import (
	"bytes"
	"io"
	"net/http"

	"github.com/chxio/chgo/errs"
)

// byteReadCloser adapts a byte slice to io.ReadCloser for use as a
// retryable (re-creatable) request body.
type byteReadCloser struct {
	*bytes.Reader
}

func (byteReadCloser) Close() error { return nil }

func newByteReadCloser(b []byte) io.ReadCloser {
	return byteReadCloser{bytes.NewReader(b)}
}

// Response is a streaming query result. Reading from it yields the
// (possibly decompressed) response body; Close returns the underlying
// connection to its pool, draining any unread bytes first so the
// connection remains valid for reuse. A Response and any Records/Values
// decoded from it are not safe for use after Close.
type Response struct {
	httpResp    *http.Response
	meta        ResponseMeta
	pool        *Pool
	conn        *Connection
	compression BodyCompressor

	body   io.Reader
	closed bool
}

// Meta returns the parsed protocol headers (query id, summary, exception
// status) for this response.
func (r *Response) Meta() ResponseMeta { return r.meta }

// Read implements io.Reader over the (decompressed) response body.
func (r *Response) Read(p []byte) (int, error) {
	if r.body == nil {
		if r.meta.ContentEncoding != "" && r.meta.ContentEncoding != "identity" {
			raw, err := io.ReadAll(r.httpResp.Body)
			if err != nil {
				return 0, &errs.TransportError{Cause: errs.FaultSocketTimeout, Msg: err.Error()}
			}

			decoded, err := r.compression.DecodeResponseBody(raw, r.meta.ContentEncoding)
			if err != nil {
				return 0, err
			}

			r.body = bytes.NewReader(decoded)
		} else {
			r.body = r.httpResp.Body
		}
	}

	return r.body.Read(p)
}

// Close drains any unread body and returns the connection to its pool.
// On a drain failure the connection is discarded instead of returned, so
// a half-read stream never corrupts a future request on the same socket.
func (r *Response) Close() error {
	if r.closed {
		return nil
	}

	r.closed = true

	_, drainErr := io.Copy(io.Discard, r.httpResp.Body)
	closeErr := r.httpResp.Body.Close()

	if drainErr != nil || closeErr != nil || r.httpResp.Close {
		r.pool.Discard(r.conn)

		return closeErr
	}

	r.pool.Return(r.conn)

	return nil
}
