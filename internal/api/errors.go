package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/npezzotti/go-scoreboard/internal/types"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func NewBadRequestError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusBadRequest,
		Message:    lower(http.StatusText(http.StatusBadRequest)),
	}
}

func NewNotFoundError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusNotFound,
		Message:    lower(http.StatusText(http.StatusNotFound)),
	}
}

func NewConflictError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusConflict,
		Message:    lower(http.StatusText(http.StatusConflict)),
	}
}

func NewInternalServerError(err error) *ApiError {
	return &ApiError{
		StatusCode: http.StatusInternalServerError,
		Message:    lower(http.StatusText(http.StatusInternalServerError)),
		Err:        err,
	}
}

func NewUnauthorizedError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusUnauthorized,
		Message:    lower(http.StatusText(http.StatusUnauthorized)),
	}
}

// apiErrorFrom maps domain errors to responses. Client errors carry the
// wrapped message as detail; anything unrecognized is an internal error.
func apiErrorFrom(err error) *ApiError {
	var errResp *ApiError
	switch {
	case errors.As(err, &errResp):
		return errResp
	case errors.Is(err, types.ErrUnauthorized):
		// never explain why authentication failed
		return NewUnauthorizedError()
	case errors.Is(err, types.ErrInvalidInput):
		errResp = NewBadRequestError()
	case errors.Is(err, types.ErrConflict):
		errResp = NewConflictError()
	case errors.Is(err, types.ErrNotFound):
		errResp = NewNotFoundError()
	default:
		return NewInternalServerError(err)
	}

	errResp.Detail = err.Error()
	errResp.Err = err
	return errResp
}
