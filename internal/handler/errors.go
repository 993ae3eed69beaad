package handler

import (
	"errors"
	"net/http"
	"strconv"

	"docapproval/internal/apperror"
	"docapproval/internal/middleware"
	"docapproval/pkg/response"

	"github.com/gin-gonic/gin"
)

func statusFor(code apperror.Code) int {
	switch code {
	case apperror.CodeInvalidInput:
		return http.StatusBadRequest
	case apperror.CodeUnauthorized:
		return http.StatusForbidden
	case apperror.CodeInvalidState:
		return http.StatusConflict
	case apperror.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err using the code it carries. Untyped errors are reported as 500.
func respondError(c *gin.Context, err error) {
	code := apperror.CodeOf(err)
	status := statusFor(code)

	msg := err.Error()
	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Code != apperror.CodeDatabaseError {
		msg = appErr.Message
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, response.ErrorWithCode(status, string(code), msg))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.ErrorWithCode(http.StatusBadRequest, string(apperror.CodeInvalidInput), msg))
}

// idParam parses a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}

func currentUser(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
		return 0, false
	}
	return id, true
}
