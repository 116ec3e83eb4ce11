package handlers

import "github.com/gin-gonic/gin"

// Error codes carried in failure envelopes.
const (
	CodeAuthFailed         = "AUTH_FAILED"
	CodeDBConnectionFailed = "DB_CONNECTION_FAILED"
	CodeExecutionFailed    = "EXECUTION_FAILED"
	CodeJobAlreadyRunning  = "JOB_ALREADY_RUNNING"
)

// SuccessResponse wraps a job report.
type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ErrorBody describes a failure.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, SuccessResponse{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}
