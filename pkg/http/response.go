package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// StatusSuccess is the status value of every successful pipeline response.
const StatusSuccess = "success"

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Error          string      `json:"error"`
	Details        interface{} `json:"details,omitempty"`
	UpstreamStatus int         `json:"upstream_status,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"max_records"`
	Message string                 `json:"message,omitempty" example:"max_records is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// SuccessResponse writes a 200 response with data as the body.
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

// ErrorResponse writes an error body with the given status.
func ErrorResponse(c echo.Context, status int, message string, details interface{}) error {
	return c.JSON(status, ErrorBody{Error: message, Details: details})
}

// BadRequestResponse writes a 400 with validation details.
func BadRequestResponse(c echo.Context, details interface{}) error {
	return ErrorResponse(c, http.StatusBadRequest, "Invalid request", details)
}

// AppErrorResponse writes application error response.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.JSON(appErr.Status, ErrorBody{
			Error:          appErr.Message,
			Details:        appErr.Details,
			UpstreamStatus: appErr.UpstreamStatus,
		})
	}
	return ErrorResponse(c, http.StatusInternalServerError, err.Error(), nil)
}
