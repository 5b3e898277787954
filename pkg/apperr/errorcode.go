package apperr

import "net/http"

// Predefined error codes for outbound request failures (can be extended)
var (
	ErrorCodeTransport     = NewErrorCode("transport_error", "Request could not be delivered", 10, http.StatusBadGateway)
	ErrorCodeTimeout       = NewErrorCode("timeout", "Request timed out", 20, http.StatusGatewayTimeout)
	ErrorCodeCanceled      = NewErrorCode("canceled", "Request canceled", 30, 499)
	ErrorCodeEncode        = NewErrorCode("encode_error", "Request body could not be encoded", 40, http.StatusBadRequest)
	ErrorCodeDecode        = NewErrorCode("decode_error", "Response body could not be decoded", 50, http.StatusBadGateway)
	ErrorCodeInvalidConfig = NewErrorCode("invalid_config", "Invalid client configuration", 60, http.StatusBadRequest)
	ErrorCodeBadRequest    = NewErrorCode("bad_request", "Bad request", 70, http.StatusBadRequest)
	ErrorCodeUnauthorized  = NewErrorCode("unauthorized", "Unauthorized", 80, http.StatusUnauthorized)
	ErrorCodeForbidden     = NewErrorCode("forbidden", "Forbidden", 90, http.StatusForbidden)
	ErrorCodeNotFound      = NewErrorCode("not_found", "Not found", 100, http.StatusNotFound)
	ErrorCodeUpstream      = NewErrorCode("upstream_error", "Upstream returned an error status", 110, http.StatusBadGateway)
	ErrorCodeEnvelope      = NewErrorCode("envelope_error", "Response envelope reported failure", 120, http.StatusBadGateway)
	ErrorCodeInternal      = NewErrorCode("internal_error", "Internal error", 200, http.StatusInternalServerError)
)

// ErrorCode describes a canonical error code.
// It carries a numeric severity/priority (Value) and an HTTP status.
type ErrorCode struct {
	code       string
	message    string
	value      int
	httpStatus int
}

func NewErrorCode(code, message string, value, httpStatus int) *ErrorCode {
	return &ErrorCode{code: code, message: message, value: value, httpStatus: httpStatus}
}

func (ec *ErrorCode) Code() string    { return ec.code }
func (ec *ErrorCode) Message() string { return ec.message }
func (ec *ErrorCode) Value() int      { return ec.value }
func (ec *ErrorCode) HTTPStatus() int { return ec.httpStatus }

// CodeForStatus maps a non-2xx upstream status onto an ErrorCode.
func CodeForStatus(status int) *ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return ErrorCodeBadRequest
	case http.StatusUnauthorized:
		return ErrorCodeUnauthorized
	case http.StatusForbidden:
		return ErrorCodeForbidden
	case http.StatusNotFound:
		return ErrorCodeNotFound
	default:
		return ErrorCodeUpstream
	}
}
