package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Sentinel pseudo-codes used by GetCode.
const (
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Common error codes.
const (
	ErrCodeInternal    ErrorCode = "COMMON_001"
	ErrCodeBadRequest  ErrorCode = "COMMON_002"
	ErrCodeNotFound    ErrorCode = "COMMON_003"
	ErrCodeTimeout     ErrorCode = "COMMON_004"
	ErrCodeUnavailable ErrorCode = "COMMON_005"
	ErrCodeRateLimited ErrorCode = "COMMON_006"
)

// Upstream data source error codes (places API, similarity API, config
// documents).
const (
	ErrCodeUpstreamRequest   ErrorCode = "SRC_001"
	ErrCodeUpstreamMalformed ErrorCode = "SRC_002"
	ErrCodeUpstreamStatus    ErrorCode = "SRC_003"
)

// Insight rule compilation error codes.  These classify logged degradations;
// rule compilation itself never fails hard.
const (
	ErrCodeRulePredicate ErrorCode = "RULE_001"
	ErrCodeRuleHeat      ErrorCode = "RULE_002"
	ErrCodeRuleDocument  ErrorCode = "RULE_003"
)

// Dataset error codes.
const (
	ErrCodeDatasetUnavailable ErrorCode = "DATA_001"
	ErrCodeRecordRejected     ErrorCode = "DATA_002"
)

// Similarity session error codes.
const (
	ErrCodeSimilarityRequest ErrorCode = "SIM_001"
	ErrCodeAnchorUnknown     ErrorCode = "SIM_002"
	ErrCodeSimilarityOff     ErrorCode = "SIM_003"
	ErrCodeSimilarityBusy    ErrorCode = "SIM_004"
)

// Freshness cache error codes.
const (
	ErrCodeCache     ErrorCode = "CACHE_001"
	ErrCodeCacheMiss ErrorCode = "CACHE_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeNotFound:    http.StatusNotFound,
	ErrCodeTimeout:     http.StatusGatewayTimeout,
	ErrCodeUnavailable: http.StatusServiceUnavailable,
	ErrCodeRateLimited: http.StatusTooManyRequests,

	ErrCodeUpstreamRequest:   http.StatusBadGateway,
	ErrCodeUpstreamMalformed: http.StatusBadGateway,
	ErrCodeUpstreamStatus:    http.StatusBadGateway,

	ErrCodeRulePredicate: http.StatusInternalServerError,
	ErrCodeRuleHeat:      http.StatusInternalServerError,
	ErrCodeRuleDocument:  http.StatusInternalServerError,

	ErrCodeDatasetUnavailable: http.StatusServiceUnavailable,
	ErrCodeRecordRejected:     http.StatusUnprocessableEntity,

	ErrCodeSimilarityRequest: http.StatusBadGateway,
	ErrCodeAnchorUnknown:     http.StatusNotFound,
	ErrCodeSimilarityOff:     http.StatusConflict,
	ErrCodeSimilarityBusy:    http.StatusConflict,

	ErrCodeCache:     http.StatusInternalServerError,
	ErrCodeCacheMiss: http.StatusNotFound,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:    "internal server error",
	ErrCodeBadRequest:  "bad request",
	ErrCodeNotFound:    "resource not found",
	ErrCodeTimeout:     "request timeout",
	ErrCodeUnavailable: "service unavailable",
	ErrCodeRateLimited: "rate limit exceeded",

	ErrCodeUpstreamRequest:   "upstream request failed",
	ErrCodeUpstreamMalformed: "malformed upstream payload",
	ErrCodeUpstreamStatus:    "upstream returned non-success status",

	ErrCodeRulePredicate: "unrecognized predicate rule shape",
	ErrCodeRuleHeat:      "unrecognized heat rule shape",
	ErrCodeRuleDocument:  "invalid insight configuration document",

	ErrCodeDatasetUnavailable: "dataset not loaded",
	ErrCodeRecordRejected:     "record failed validation",

	ErrCodeSimilarityRequest: "similarity request failed",
	ErrCodeAnchorUnknown:     "anchor place not found in dataset",
	ErrCodeSimilarityOff:     "similarity source not configured",
	ErrCodeSimilarityBusy:    "similarity request already in progress",

	ErrCodeCache:     "freshness cache error",
	ErrCodeCacheMiss: "cache entry not found",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError reports whether the ErrorCode maps to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError reports whether the ErrorCode maps to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode, e.g. "SRC" for
// SRC_002.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
