package respond

import (
	"errors"
	"io"
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/catppuccinifier/internal/model"
)

// Success represents a standard structure for successful responses.
type Success struct {
	Result interface{} `json:"result"`
}

// Error represents a standard structure for error responses.
type Error struct {
	Message string          `json:"message"`
	Kind    model.ErrorKind `json:"kind,omitempty"`
}

// Image streams an encoded image from reader with the given content type.
// size may be -1 when unknown.
func Image(c *ginext.Context, status int, contentType string, size int64, reader io.Reader) {
	c.DataFromReader(status, size, contentType, reader, nil)
}

// JSON sends a JSON response with the specified HTTP status code and data.
func JSON(c *ginext.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// OK sends a 200 OK JSON response, wrapping the given result in a Success struct.
func OK(c *ginext.Context, result interface{}) {
	JSON(c, http.StatusOK, Success{Result: result})
}

// Accepted sends a 202 Accepted JSON response for work that finishes later.
func Accepted(c *ginext.Context, result interface{}) {
	JSON(c, http.StatusAccepted, Success{Result: result})
}

// Fail sends an error JSON response with the specified HTTP status code.
// Internal failures get an opaque message, the detail belongs in the log.
func Fail(c *ginext.Context, status int, err error) {
	JSON(c, status, Error{Message: model.UserMessage(err), Kind: model.KindOf(err)})
}

// Status maps an error to the HTTP status code a client should see.
func Status(err error) int {
	switch model.KindOf(err) {
	case model.KindInvalidParameter, model.KindDecode:
		return http.StatusBadRequest
	case model.KindAlreadyRunning:
		return http.StatusConflict
	case model.KindLimitExceeded:
		if errors.Is(err, model.ErrQueueFull) {
			return http.StatusServiceUnavailable
		}
		return http.StatusRequestEntityTooLarge
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindCancelled:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
