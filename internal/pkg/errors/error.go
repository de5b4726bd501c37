package errors

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AppError carries a business code through the layers up to the HTTP
// envelope. Message always comes from the code table.
type AppError struct {
	Code    int
	Message string
	Err     error
	Details string
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString("[" + strconv.Itoa(e.Code) + "] " + e.Message)
	switch {
	case e.Err != nil:
		b.WriteString(": " + e.Err.Error())
	case e.Details != "":
		b.WriteString(": " + e.Details)
	}
	return b.String()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status mapped to the error code
func (e *AppError) HTTPStatus() int {
	return GetHTTPStatus(e.Code)
}

// New creates an AppError of code. Only the first detail is kept.
func New(code int, details ...string) *AppError {
	return &AppError{
		Code:    code,
		Message: GetMessage(code),
		Details: first(details),
	}
}

// Wrap attaches code to err. An err that already carries an AppError keeps
// its code; a non-empty detail replaces the details on a copy.
func Wrap(err error, code int, details ...string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if d := first(details); d != "" {
			clone := *appErr
			clone.Details = d
			return &clone
		}
		return appErr
	}

	return &AppError{
		Code:    code,
		Message: GetMessage(code),
		Err:     err,
		Details: first(details),
	}
}

// Is reports whether err carries an AppError with code
func Is(err error, code int) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// ExtractCode returns the code carried by err, ErrInternalServer otherwise
func ExtractCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternalServer
}

// GetDetails returns the details shown to clients for err
func GetDetails(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Details != "" {
			return appErr.Details
		}
		if appErr.Err != nil {
			return appErr.Err.Error()
		}
		return ""
	}
	return err.Error()
}

// NewValidationError reports an invalid request field
func NewValidationError(field, reason string) *AppError {
	return New(ErrInvalidParams, fmt.Sprintf("%s: %s", field, reason))
}

// NewProviderNotFound reports an unknown search provider id
func NewProviderNotFound(id string) *AppError {
	return New(ErrSearchProviderNotFound, id)
}

// NewResearchNotFound reports an unknown research session id
func NewResearchNotFound(id string) *AppError {
	return New(ErrResearchNotFound, id)
}

func first(details []string) string {
	if len(details) == 0 {
		return ""
	}
	return details[0]
}
