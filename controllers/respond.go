// File: /controllers/respond.go
package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"spotrunner-api/services"
	"spotrunner-api/utils"
)

// respondError maps a service error onto a status code and the error
// envelope. Unknown errors are logged and hidden from the client.
func respondError(c *gin.Context, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		slog.Error("unhandled error", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		utils.SendError(c, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	utils.SendError(c, statusFor(se.Kind), se.Message)
}

func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// bind reads a JSON or form body into req and answers 400 on failure.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBind(req); err != nil {
		utils.SendValidationError(c, utils.ValidationMessage(err))
		return false
	}
	return true
}
