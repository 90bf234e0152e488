package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/hostbay/sitehost-api/pkg/errors"
)

// statusFor maps taxonomy codes onto HTTP statuses. Authentication
// failures share one message so responses never reveal whether an
// email is registered.
func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrInvalidFormat:
		return http.StatusBadRequest
	case apperrors.ErrRateLimited, apperrors.ErrLocked:
		return http.StatusTooManyRequests
	case apperrors.ErrInvalidCredentials, apperrors.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrBlockedUnverified, apperrors.ErrBlockedExpired:
		return http.StatusForbidden
	case apperrors.ErrAlreadyResolved, apperrors.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes the taxonomy-mapped error response.
func AbortWithError(c *gin.Context, err error) {
	code := apperrors.Code(err)
	message := "internal server error"
	if code != apperrors.ErrInternal && code != apperrors.ErrPartialRenewal {
		message = err.Error()
	}
	c.AbortWithStatusJSON(statusFor(code), NewErrorResponse(message))
}
