// Package handlers exposes the explorer service over the versioned JSON API.
//
// Successful responses share the envelope {"code":0,"message":"success",
// "data":...}; failures carry the typed error code, its message and an
// optional detail. The HTTP status always follows the error code mapping in
// pkg/errors.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/placescope/placescope/pkg/errors"
)

// Response is the success envelope.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the error envelope. Code carries the typed error code
// string rather than the numeric zero of the success envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeJSON writes the success envelope with the given payload.
func writeJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Code: 0, Message: "success", Data: data})
}

// writeError maps err onto the error envelope and aborts the chain. Errors
// without a typed code are reported as COMMON_001 with the original text in
// the detail field.
func writeError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown || code == errors.CodeOK {
		code = errors.ErrCodeInternal
	}

	resp := ErrorResponse{
		Code:    code.String(),
		Message: errors.DefaultMessageForCode(code),
	}
	if ae, ok := errors.AsAppError(err); ok {
		resp.Message = ae.Message
		resp.Detail = ae.Detail
	} else if err != nil {
		resp.Detail = err.Error()
	}

	c.AbortWithStatusJSON(errors.HTTPStatusForCode(code), resp)
}

// NotFound serves the 404 envelope for unmatched routes.
func NotFound(c *gin.Context) {
	writeError(c, errors.Newf(errors.ErrCodeNotFound, "no route for %s %s", c.Request.Method, c.Request.URL.Path))
}

// MethodNotAllowed serves the envelope for known routes hit with the wrong
// method. The code stays COMMON_002 so clients see a client-side problem.
func MethodNotAllowed(c *gin.Context) {
	err := errors.Newf(errors.ErrCodeBadRequest, "method %s not allowed for %s", c.Request.Method, c.Request.URL.Path)
	resp := ErrorResponse{Code: errors.ErrCodeBadRequest.String(), Message: err.Message}
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, resp)
}
