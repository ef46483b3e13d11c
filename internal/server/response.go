package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ppiankov/instaweb/internal/model"
)

// RetryAfterMillis is sent with every 429
const RetryAfterMillis = 2000

// Envelope is the JSON body of every API response
type Envelope struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"` // milliseconds
}

func success(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

func failure(c echo.Context, status int, msg string) error {
	env := Envelope{Error: msg}
	if status == http.StatusTooManyRequests {
		env.RetryAfter = RetryAfterMillis
	}
	return c.JSON(status, env)
}

// StatusFor maps an extraction error to its HTTP status
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, model.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, model.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, model.ErrMissingCredentials):
		return http.StatusInternalServerError
	case errors.Is(err, model.ErrParseFailure),
		errors.Is(err, model.ErrSchemaViolation),
		errors.Is(err, model.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrUpstream), errors.Is(err, model.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the user-facing message sent with status
func messageFor(status int, err error) string {
	switch status {
	case http.StatusUnprocessableEntity:
		return model.UserMessage(err)
	case http.StatusTooManyRequests:
		return model.MsgServerBusy
	case http.StatusGatewayTimeout:
		return model.MsgServerSlow
	default:
		return model.MsgExtractFailed
	}
}
