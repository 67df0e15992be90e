package transport

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/chxio/chgo/compress"
	"github.com/chxio/chgo/format"
)

// BodyCompressor compresses request bodies and decompresses response
// bodies, choosing between HTTP-standard Content-Encoding framing and the
// server's native per-algorithm framing (compress.Codec) depending on the
// UseHTTPCompression setting.
type BodyCompressor struct {
	Algorithm          format.CompressionType
	UseHTTPCompression bool
}

// EncodeRequestBody compresses body for the wire and returns the bytes to
// send plus the Content-Encoding header value to set (empty when
// UseHTTPCompression is false, since native framing carries no such
// header).
func (c BodyCompressor) EncodeRequestBody(body []byte) ([]byte, string, error) {
	if c.Algorithm == format.CompressionNone || c.Algorithm == 0 {
		return body, "", nil
	}

	if c.UseHTTPCompression {
		return encodeHTTPGzip(body)
	}

	codec, err := compress.GetCodec(c.Algorithm)
	if err != nil {
		return nil, "", err
	}

	out, err := codec.Compress(body)

	return out, "", err
}

// DecodeResponseBody reverses EncodeRequestBody given the response's
// reported Content-Encoding (preferred) or the client's configured
// native algorithm when no Content-Encoding header was sent.
func (c BodyCompressor) DecodeResponseBody(body []byte, contentEncoding string) ([]byte, error) {
	switch contentEncoding {
	case "":
		if c.Algorithm == format.CompressionNone || c.Algorithm == 0 || c.UseHTTPCompression {
			return body, nil
		}

		codec, err := compress.GetCodec(c.Algorithm)
		if err != nil {
			return nil, err
		}

		return codec.Decompress(body)
	case "gzip":
		return decodeHTTPGzip(body)
	default:
		return body, nil
	}
}

func encodeHTTPGzip(body []byte) ([]byte, string, error) {
	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)
	if _, err := w.Write(body); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), "gzip", nil
}

func decodeHTTPGzip(body []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
