// Package errs defines the sentinel errors and typed error kinds shared
// across chgo's packages.
//
// Every exported error type wraps one of the sentinels below via
// fmt.Errorf("...: %w", ...), so callers can either match on the specific
// kind (a type assertion, to get at structured fields like a column name
// or a server error code) or on the coarser sentinel via errors.Is.
package errs

import "errors"

// Sentinels, one per taxonomy entry in the error handling design.
var (
	ErrConfig    = errors.New("config error")
	ErrSchema    = errors.New("schema error")
	ErrEncode    = errors.New("encode error")
	ErrDecode    = errors.New("decode error")
	ErrValue     = errors.New("value error")
	ErrTransport = errors.New("transport error")
	ErrServer    = errors.New("server error")
	ErrAuth      = errors.New("auth error")
)

// ConfigError is raised from a Client builder, never from a call in flight.
type ConfigError struct {
	Reason string // e.g. "exclusive_auth", "unknown_option"
	Option string
}

func (e *ConfigError) Error() string {
	if e.Option == "" {
		return "config error: " + e.Reason
	}

	return "config error: " + e.Reason + " (" + e.Option + ")"
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// SchemaError covers type-string parse failures and unknown columns.
type SchemaError struct {
	Reason string // e.g. "unknown_type", "illegal_nullable", "unknown_column"
	Detail string
}

func (e *SchemaError) Error() string {
	if e.Detail == "" {
		return "schema error: " + e.Reason
	}

	return "schema error: " + e.Reason + ": " + e.Detail
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// EncodeError covers RowBinary encode-time failures.
type EncodeError struct {
	Reason string // e.g. "unexpected_null", "fixed_string_overflow", "missing_required"
	Column string
}

func (e *EncodeError) Error() string {
	if e.Column == "" {
		return "encode error: " + e.Reason
	}

	return "encode error: " + e.Reason + ": column " + e.Column
}

func (e *EncodeError) Unwrap() error { return ErrEncode }

// DecodeError covers RowBinary decode-time failures; it ends decoding of
// the current stream. The socket is not closed because of it: closing the
// response drains the body and returns the connection to the pool when
// the drain succeeds.
type DecodeError struct {
	Reason string // e.g. "truncated_stream", "unexpected_tag"
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return "decode error: " + e.Reason
	}

	return "decode error: " + e.Reason + ": " + e.Detail
}

func (e *DecodeError) Unwrap() error { return ErrDecode }

// ValueError covers Value accessor failures: overflow, null, type mismatch.
type ValueError struct {
	Reason string // e.g. "overflow", "null", "type_mismatch"
	Detail string
}

func (e *ValueError) Error() string {
	if e.Detail == "" {
		return "value error: " + e.Reason
	}

	return "value error: " + e.Reason + ": " + e.Detail
}

func (e *ValueError) Unwrap() error { return ErrValue }

// ClientFaultCause classifies a TransportError for retry-set membership.
type ClientFaultCause uint8

const (
	// FaultConnectionRequestTimeout is set when no pool slot freed up in time.
	FaultConnectionRequestTimeout ClientFaultCause = 1 << iota
	// FaultSocketTimeout is set on a read/write deadline expiry.
	FaultSocketTimeout
	// FaultNoResponse is set when the server closed the connection with no bytes.
	FaultNoResponse
	// FaultConnectionReset is set on ECONNRESET or equivalent.
	FaultConnectionReset
)

// DefaultRetrySet is the ClientFaultCause mask retried by default.
const DefaultRetrySet = FaultNoResponse | FaultConnectionReset

// TransportError covers connection lifecycle and I/O failures.
type TransportError struct {
	Cause ClientFaultCause
	Msg   string
}

func (e *TransportError) Error() string { return "transport error: " + e.Msg }

func (e *TransportError) Unwrap() error { return ErrTransport }

// Retryable reports whether Cause is a member of the given retry set mask.
func (e *TransportError) Retryable(retrySet ClientFaultCause) bool {
	return e.Cause&retrySet != 0
}

// ServerError is extracted from the X-ClickHouse-Exception-Code header (or
// equivalent body text) even when the HTTP status itself was 200.
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string { return e.Message }

func (e *ServerError) Unwrap() error { return ErrServer }

// SchemaDrift reports whether this server error code signals that a cached
// TableSchema is stale and must be invalidated (e.g. UNKNOWN_IDENTIFIER).
func (e *ServerError) SchemaDrift() bool {
	switch e.Code {
	case CodeUnknownIdentifier, CodeUnknownTable, CodeTableIsDropped:
		return true
	default:
		return false
	}
}

// Well-known server error codes relevant to schema invalidation and auth.
const (
	CodeUnknownIdentifier = 47
	CodeUnknownTable      = 60
	CodeTableIsDropped    = 389
	CodeAuthFailed        = 516
)

// AuthError is surfaced when the server reports code 516 (or equivalent).
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return "auth error: " + e.Message }

func (e *AuthError) Unwrap() error { return ErrAuth }
