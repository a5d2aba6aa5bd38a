// Package handlers serves the resource kinds over HTTP. One generic
// ResourceHandlers value per kind implements list, get and create; every
// success is wrapped as {"data": ...} and every failure is an ErrorResponse
// with a stable code.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/ruser/internal/http/middleware"
)

// ErrorResponse is the body of every non-2xx answer.
//
//	HTTP/1.1 404 Not Found
//	{"request_id": "123e...", "code": "not_found", "message": "people 7 not found"}
//
// Details holds the violated fields for validation_failed and is omitted
// otherwise.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"not_found"`
	Message   string `json:"message" example:"people 7 not found"`
	Details   any    `json:"details,omitempty"`
}

// Envelope is the uniform success body: `{"data": ...}`. Pagination is only
// present when the client asked for a page.
type Envelope struct {
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// fail aborts with an ErrorResponse; 5xx are also logged on the request logger.
func fail(c *gin.Context, status int, code, msg string) {
	failWithDetails(c, status, code, msg, nil)
}

func failWithDetails(c *gin.Context, status int, code, msg string, details any) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
		Details:   details,
	})
}

// Fail lets the router answer fallbacks and probes with the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// data writes v wrapped in the success envelope.
func data(c *gin.Context, status int, v any) {
	ok(c, status, Envelope{Data: v})
}
