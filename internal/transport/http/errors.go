package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"classroom-quiz-service/internal/domain"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string                  `json:"message"`
	Code    string                  `json:"code"`
	Details domain.ValidationErrors `json:"details,omitempty"`
}

func statusFor(err error) (int, string) {
	switch domain.Category(err) {
	case domain.ErrValidation:
		return http.StatusBadRequest, "validation_error"
	case domain.ErrForbidden:
		return http.StatusForbidden, "forbidden"
	case domain.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case domain.ErrConflict:
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func errorResponse(err error) (int, ErrorResponse) {
	status, code := statusFor(err)
	resp := ErrorResponse{Message: err.Error(), Code: code}
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Details = verrs
	}
	if status == http.StatusInternalServerError {
		resp.Message = "internal server error"
	}
	return status, resp
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, resp := errorResponse(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

func badBody(err error) error {
	return fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err)
}
