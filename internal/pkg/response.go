package pkg

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/innoval-tech/puntual-api/internal/domain"
)

// ErrorResponse is the JSON body of every non-validation error.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// MessageResponse carries a plain confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// FieldError lists the failed constraints of one request field, keyed by
// constraint name.
type FieldError struct {
	Property string            `json:"property"`
	Errors   map[string]string `json:"errors"`
}

// ValidationErrorResponse is the JSON body of a 400 produced by schema validation.
type ValidationErrorResponse struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

// Fail aborts the request with status and an ErrorResponse. The error detail
// comes from domain.Detail, so driver messages never reach the client.
func Fail(c *gin.Context, status int, message string, err error) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Message: message,
		Error:   domain.Detail(err),
	})
}

// NotFound aborts the request with a 404 ErrorResponse.
func NotFound(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Message: message})
}

// ValidationFailed aborts the request with a 400 listing per-field violations.
func ValidationFailed(c *gin.Context, errs []FieldError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ValidationErrorResponse{
		Message: "Validation failed",
		Errors:  errs,
	})
}

// BindObject decodes the request body as a JSON object.
// On failure it sends a 400 ErrorResponse and returns false.
// Usage in handlers:
//
//	body, ok := pkg.BindObject(c)
//	if !ok { return }
func BindObject(c *gin.Context) (map[string]any, bool) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		Fail(c, http.StatusBadRequest, "Invalid request body",
			domain.NewValidationError("body must be a JSON object"))
		return nil, false
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, true
}
