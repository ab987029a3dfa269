// internal/utils/response.go
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ecobazar/marketplace-backend/internal/errs"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func BadRequestResponse(c *gin.Context, message string, details interface{}) {
	if message == "" {
		message = "invalid request"
	}
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message, details)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "authentication required"
	}
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func ValidationErrorResponse(c *gin.Context, errors []ValidationError) {
	ErrorResponse(c, http.StatusUnprocessableEntity, errs.KindValidation.String(), "validation failed", errors)
}

// HandleServiceError maps the domain error taxonomy to HTTP statuses.
// Unknown errors are treated as store faults: logged, surfaced as a
// generic 500 without detail.
func HandleServiceError(c *gin.Context, err error) {
	switch errs.KindOf(err) {
	case errs.KindNotFound:
		ErrorResponse(c, http.StatusNotFound, errs.KindNotFound.String(), err.Error(), nil)
	case errs.KindForbidden:
		ErrorResponse(c, http.StatusForbidden, errs.KindForbidden.String(), err.Error(), nil)
	case errs.KindInvalidTransition:
		ErrorResponse(c, http.StatusConflict, errs.KindInvalidTransition.String(), err.Error(), nil)
	case errs.KindPreconditionFailed:
		ErrorResponse(c, http.StatusPreconditionFailed, errs.KindPreconditionFailed.String(), err.Error(), nil)
	case errs.KindValidation:
		ErrorResponse(c, http.StatusUnprocessableEntity, errs.KindValidation.String(), err.Error(), nil)
	case errs.KindConflict:
		ErrorResponse(c, http.StatusConflict, errs.KindConflict.String(), err.Error(), nil)
	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Unexpected service error")
		ErrorResponse(c, http.StatusInternalServerError, errs.KindInternal.String(), "internal server error", nil)
	}
}

func PaginatedResponse(c *gin.Context, result PaginationResult) {
	SetPaginationHeaders(c, result)
	SuccessResponseWithMeta(c, result.Data, gin.H{
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

func GetLangFromContext(c *gin.Context) string {
	if lang, exists := c.Get("lang"); exists {
		if langStr, ok := lang.(string); ok {
			return langStr
		}
	}
	return "en"
}

func GetUserIDFromContext(c *gin.Context) (string, bool) {
	if userID, exists := c.Get("user_id"); exists {
		if userIDStr, ok := userID.(string); ok {
			return userIDStr, true
		}
	}
	return "", false
}

func GetUserRoleFromContext(c *gin.Context) (string, bool) {
	if role, exists := c.Get("user_role"); exists {
		if roleStr, ok := role.(string); ok {
			return roleStr, true
		}
	}
	return "", false
}
