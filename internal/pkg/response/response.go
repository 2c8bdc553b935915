package response

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/trustnet/core/internal/pkg/apierror"
)

// Pagination metadata returned with paginated responses.
type Pagination struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	TotalPage   int   `json:"total_page"`
	Size        int   `json:"size"`
	HasNextPage bool  `json:"has_next_page"`
}

// OK sends a 200 response. Arrays/slices are wrapped in {data: [...]}.
func OK(c *gin.Context, data interface{}) {
	if data != nil {
		v := reflect.ValueOf(data)
		if v.Kind() == reflect.Slice {
			c.JSON(http.StatusOK, gin.H{"data": data})
			return
		}
	}
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	abortJSON(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 error response. The message is stable so
// callers can distinguish "not authenticated" from other failures.
func Unauthorized(c *gin.Context) {
	abortJSON(c, http.StatusUnauthorized, "not authenticated")
}

// Forbidden sends a 403 error response.
func Forbidden(c *gin.Context) {
	abortJSON(c, http.StatusForbidden, "forbidden")
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context) {
	abortJSON(c, http.StatusNotFound, "not found")
}

// NotFoundMsg sends a 404 error with a custom message.
func NotFoundMsg(c *gin.Context, message string) {
	abortJSON(c, http.StatusNotFound, message)
}

// Conflict sends a 409 error response.
func Conflict(c *gin.Context, message string) {
	abortJSON(c, http.StatusConflict, message)
}

// MethodNotAllowed sends a 405 error response.
func MethodNotAllowed(c *gin.Context) {
	abortJSON(c, http.StatusMethodNotAllowed, "method not allowed")
}

// InternalError sends a 500 error response with a generic message.
// The cause is never leaked to the caller; log it server-side.
func InternalError(c *gin.Context) {
	abortJSON(c, http.StatusInternalServerError, "internal server error")
}

// FromError translates a kind-tagged error into the HTTP taxonomy:
// authentication 401, validation 400, not-found 404, missing
// subscription 404, everything else 500 with a generic message.
func FromError(c *gin.Context, err error) {
	switch apierror.KindOf(err) {
	case apierror.KindAuthentication:
		Unauthorized(c)
	case apierror.KindValidation:
		BadRequest(c, apierror.Message(err))
	case apierror.KindNotFound, apierror.KindNotSubscribed:
		NotFoundMsg(c, apierror.Message(err))
	default:
		InternalError(c)
	}
}

func abortJSON(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"ok": 0, "code": code, "message": message})
}
