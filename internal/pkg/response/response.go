// Package response writes the JSON envelope every API endpoint returns.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/lk2023060901/market-research-backend/internal/pkg/errors"
	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
)

// Response is the envelope of every API reply
type Response struct {
	Code      int         `json:"code"` // business code, 0 on success
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// Success writes a 200 envelope around data
func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, apperrors.Success, "", data)
}

// HandleError maps err onto its business code and HTTP status. Errors that
// are not AppErrors become internal errors.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code := apperrors.ExtractCode(err)
	status := apperrors.GetHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error(err.Error())
	}
	write(c, status, code, apperrors.FormatError(code, apperrors.GetDetails(err)), nil)
}

// ErrorWithCode writes the envelope of code with optional details
func ErrorWithCode(c *gin.Context, code int, details ...string) {
	write(c, apperrors.GetHTTPStatus(code), code, apperrors.FormatError(code, details...), nil)
}

// BadRequest writes an invalid-parameters envelope
func BadRequest(c *gin.Context, details string) {
	ErrorWithCode(c, apperrors.ErrInvalidParams, details)
}

func write(c *gin.Context, status, code int, message string, data interface{}) {
	if data == nil {
		data = struct{}{}
	}
	c.JSON(status, Response{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: logger.GetRequestID(c.Request.Context()),
	})
}
