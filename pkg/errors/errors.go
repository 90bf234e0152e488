package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrInvalidFormat
	ErrRateLimited
	ErrLocked
	ErrInvalidCredentials
	ErrBlockedUnverified
	ErrBlockedExpired
	ErrAlreadyResolved
	ErrConflict
	ErrPartialRenewal
	ErrUnauthorized
	ErrInternal
)

// Code extracts the ErrorCode from err, or ErrInternal when err is not an AppError.
func Code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return Code(err) == code
}

// Error constructors
func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func InvalidFormat(message string) *AppError {
	return &AppError{
		Code:    ErrInvalidFormat,
		Message: message,
	}
}

func RateLimited(message string) *AppError {
	return &AppError{
		Code:    ErrRateLimited,
		Message: message,
	}
}

func Locked(message string) *AppError {
	return &AppError{
		Code:    ErrLocked,
		Message: message,
	}
}

// InvalidCredentials never reveals whether the account exists.
func InvalidCredentials() *AppError {
	return &AppError{
		Code:    ErrInvalidCredentials,
		Message: "invalid credentials",
	}
}

func BlockedUnverified(message string) *AppError {
	return &AppError{
		Code:    ErrBlockedUnverified,
		Message: message,
	}
}

func BlockedExpired(message string) *AppError {
	return &AppError{
		Code:    ErrBlockedExpired,
		Message: message,
	}
}

func AlreadyResolved(resource string) *AppError {
	return &AppError{
		Code:    ErrAlreadyResolved,
		Message: fmt.Sprintf("%s has already been resolved", resource),
	}
}

func Conflict(message string, err error) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
		Err:     err,
	}
}

func PartialRenewal(message string, err error) *AppError {
	return &AppError{
		Code:    ErrPartialRenewal,
		Message: message,
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}
