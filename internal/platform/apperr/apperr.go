// Package apperr holds the error taxonomy shared by the domain services and
// the HTTP error handler that translates it into status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPersistence wraps relational store failures, unique violations included.
	ErrPersistence = errors.New("persistence failure")
	// ErrStorageIO wraps blob store upload and download failures.
	ErrStorageIO = errors.New("storage i/o failure")
)

// ValidationError reports bad input shape or value.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation returns a *ValidationError with a formatted message.
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Persistence wraps a store error so it classifies as ErrPersistence while
// keeping the cause for logging.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// StorageIO wraps a blob store error so it classifies as ErrStorageIO.
func StorageIO(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageIO, err)
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// StatusCode maps an error onto an HTTP status.
func StatusCode(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HTTPErrorHandler returns an echo.HTTPErrorHandler that renders the
// taxonomy. Server errors get a static message; the cause is only logged.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := StatusCode(err)
		rid, _ := c.Get("request_id").(string)
		body := errorBody{RequestID: rid}

		var he *echo.HTTPError
		switch {
		case code >= http.StatusInternalServerError:
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
			body.Error = http.StatusText(code)
		case errors.As(err, &he):
			body.Error = fmt.Sprintf("%v", he.Message)
		default:
			body.Error = err.Error()
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			logger.Error().Err(err).Str("request_id", rid).Msg("write error response")
		}
	}
}
