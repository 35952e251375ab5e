// internal/api/response_helpers.go
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Joseph-SWE/korean-webnovel-generator-sub000/internal/errors"
)

// APIError is the error payload of a failed response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// APIResponse is the uniform envelope of every endpoint.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ResponseHelper writes uniform API responses.
type ResponseHelper struct{}

// NewResponseHelper creates a response helper.
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success writes a 200 response.
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(http.StatusOK, response)
}

// Created writes a 201 response.
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}
	if len(message) > 0 {
		response.Message = message[0]
	} else {
		response.Message = "resource created"
	}
	c.JSON(http.StatusCreated, response)
}

// Error writes a failed response with an explicit status code.
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: message,
	}
	if len(details) > 0 {
		apiError.Details = details[0]
	}

	c.JSON(statusCode, &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
	})
}

// BadRequest writes a 400 response.
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusBadRequest, "BAD_REQUEST", message, details...)
}

// NotFound writes a 404 response.
func (rh *ResponseHelper) NotFound(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusNotFound, "NOT_FOUND", message, details...)
}

// Conflict writes a 409 response.
func (rh *ResponseHelper) Conflict(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusConflict, "CONFLICT", message, details...)
}

// InternalError writes a 500 response.
func (rh *ResponseHelper) InternalError(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, details...)
}

// FromError maps an engine error onto the matching HTTP status.
func (rh *ResponseHelper) FromError(c *gin.Context, err error) {
	var appError *apperrors.AppError
	if !errors.As(err, &appError) {
		rh.InternalError(c, err.Error())
		return
	}

	switch appError.Type {
	case apperrors.ErrorTypeValidation:
		rh.Error(c, http.StatusBadRequest, appError.Code, appError.Message)
	case apperrors.ErrorTypeNotFound:
		rh.Error(c, http.StatusNotFound, appError.Code, appError.Message)
	case apperrors.ErrorTypeConflict:
		rh.Error(c, http.StatusConflict, appError.Code, appError.Message)
	case apperrors.ErrorTypeExtraction:
		rh.Error(c, http.StatusUnprocessableEntity, appError.Code, appError.Message)
	case apperrors.ErrorTypeAnalyzerUnavailable:
		rh.Error(c, http.StatusServiceUnavailable, appError.Code, appError.Message)
	case apperrors.ErrorTypeTimeout:
		rh.Error(c, http.StatusGatewayTimeout, appError.Code, appError.Message)
	default:
		rh.Error(c, http.StatusInternalServerError, appError.Code, appError.Message)
	}
}
