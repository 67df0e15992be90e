package transport

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/chxio/chgo/errs"
)

// Summary is the parsed JSON trailer the server reports in the
// X-ClickHouse-Summary header, optionally accumulated from streamed
// X-ClickHouse-Progress-* headers when send_progress_in_http_headers=1.
type Summary struct {
	ReadRows        uint64
	ReadBytes       uint64
	WrittenRows     uint64
	WrittenBytes    uint64
	TotalRowsToRead uint64
}

// ResponseMeta is everything the engine extracts from response headers
// before deciding how to hand the body to the caller.
type ResponseMeta struct {
	QueryID         string
	Summary         Summary
	ExceptionCode   int
	HasException    bool
	ContentEncoding string
}

var summaryParserPool fastjson.ParserPool

// ParseHeaders extracts the protocol-specific headers from an HTTP
// response: X-ClickHouse-Query-Id, X-ClickHouse-Summary (parsed eagerly
// as JSON), X-ClickHouse-Exception-Code, and X-ClickHouse-Progress-*
// (accumulated into the same Summary fields the final trailer would
// carry).
func ParseHeaders(h http.Header) (ResponseMeta, error) {
	meta := ResponseMeta{
		QueryID:         h.Get("X-ClickHouse-Query-Id"),
		ContentEncoding: h.Get("Content-Encoding"),
	}

	if code := h.Get("X-ClickHouse-Exception-Code"); code != "" {
		n, err := strconv.Atoi(code)
		if err != nil {
			return meta, &errs.DecodeError{Reason: "unexpected_tag", Detail: "non-numeric exception code: " + code}
		}

		meta.HasException = true
		meta.ExceptionCode = n
	}

	if raw := h.Get("X-ClickHouse-Summary"); raw != "" {
		s, err := parseSummary(raw)
		if err != nil {
			return meta, err
		}

		meta.Summary = s
	}

	for key, vals := range h {
		if !strings.HasPrefix(key, "X-Clickhouse-Progress-") && !strings.HasPrefix(key, "X-ClickHouse-Progress-") {
			continue
		}

		if len(vals) == 0 {
			continue
		}

		s, err := parseSummary(vals[len(vals)-1])
		if err != nil {
			continue
		}

		meta.Summary = accumulateSummary(meta.Summary, s)
	}

	return meta, nil
}

func parseSummary(raw string) (Summary, error) {
	p := summaryParserPool.Get()
	defer summaryParserPool.Put(p)

	v, err := p.Parse(raw)
	if err != nil {
		return Summary{}, &errs.DecodeError{Reason: "unexpected_tag", Detail: "malformed summary JSON: " + err.Error()}
	}

	return Summary{
		ReadRows:        summaryCounter(v, "read_rows"),
		ReadBytes:       summaryCounter(v, "read_bytes"),
		WrittenRows:     summaryCounter(v, "written_rows"),
		WrittenBytes:    summaryCounter(v, "written_bytes"),
		TotalRowsToRead: summaryCounter(v, "total_rows_to_read"),
	}, nil
}

// summaryCounter reads one counter field. The server quotes the values
// ("read_rows":"100"), but bare numbers are accepted too.
func summaryCounter(v *fastjson.Value, key string) uint64 {
	if s := v.GetStringBytes(key); s != nil {
		n, err := strconv.ParseUint(string(s), 10, 64)
		if err != nil {
			return 0
		}

		return n
	}

	return v.GetUint64(key)
}

func accumulateSummary(a, b Summary) Summary {
	return Summary{
		ReadRows:        a.ReadRows + b.ReadRows,
		ReadBytes:       a.ReadBytes + b.ReadBytes,
		WrittenRows:     a.WrittenRows + b.WrittenRows,
		WrittenBytes:    a.WrittenBytes + b.WrittenBytes,
		TotalRowsToRead: maxUint64(a.TotalRowsToRead, b.TotalRowsToRead),
	}
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}

	return b
}
