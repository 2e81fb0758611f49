package response

import (
	"net/http"

	appErrors "github.com/charlesng35/agencydesk/pkg/errors"
	"github.com/gin-gonic/gin"
)

// Response defines the base API payload.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo holds error details to send to clients.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta describes list metadata.
type Meta struct {
	Total  int `json:"total,omitempty"`
	Unread int `json:"unread,omitempty"`
}

// Success writes a JSON success response.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMeta writes a JSON success response including metadata.
func SuccessWithMeta(c *gin.Context, statusCode int, data interface{}, meta *Meta) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// Error writes a JSON error response derived from an AppError.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
		},
	})
}

// MessageResponse is the flat payload used by the site-facing trigger and email endpoints.
type MessageResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"messageId,omitempty"`
}

// FailureResponse is the flat error payload used by the site-facing endpoints.
type FailureResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Message writes a flat {success, message} payload.
func Message(c *gin.Context, statusCode int, success bool, message string) {
	c.JSON(statusCode, MessageResponse{Success: success, Message: message})
}

// Sent writes a flat success payload that carries the delivered email's message id.
func Sent(c *gin.Context, message, messageID string) {
	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: message, MessageID: messageID})
}

// Failure writes a flat {error, details} payload.
func Failure(c *gin.Context, statusCode int, message string, details error) {
	payload := FailureResponse{Error: message}
	if details != nil {
		payload.Details = details.Error()
	}
	c.JSON(statusCode, payload)
}
