package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned to API clients.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeSelfRequest       = "SELF_REQUEST"
	CodeReputationTooLow  = "REPUTATION_TOO_LOW"
	CodeConflict          = "CONFLICT"
	CodeDuplicateRequest  = "DUPLICATE_REQUEST"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInsufficientFunds = "INSUFFICIENT_POINTS"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternal          = "INTERNAL_ERROR"
	CodeDependency        = "DEPENDENCY_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
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

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewInvalidAmountError reports a malformed point or reputation amount.
func NewInvalidAmountError(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidAmount,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewSelfRequestError() *AppError {
	return &AppError{
		Code:    CodeSelfRequest,
		Message: "You cannot request your own book",
	}
}

// NewReputationError reports a gated action attempted below its threshold.
func NewReputationError(action string, required, current int) *AppError {
	return &AppError{
		Code: CodeReputationTooLow,
		Message: fmt.Sprintf("Reputation %d is below the %d required for %s (deficit %d)",
			current, required, action, required-current),
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

func NewDuplicateRequestError() *AppError {
	return &AppError{
		Code:    CodeDuplicateRequest,
		Message: "You already have a pending request for this book",
	}
}

func NewInvalidTransitionError(from ExchangeStatus) *AppError {
	return &AppError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("Request is already %s", from),
	}
}

// NewInsufficientPointsError reports a balance that cannot cover the amount.
func NewInsufficientPointsError(balance, required int) *AppError {
	return &AppError{
		Code:    CodeInsufficientFunds,
		Message: fmt.Sprintf("Insufficient points: have %d, need %d", balance, required),
	}
}

func NewRateLimitedError(action string) *AppError {
	return &AppError{
		Code:    CodeRateLimited,
		Message: "Too many " + action + " attempts, try again later",
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// NewDependencyError wraps a failure of an external collaborator.
func NewDependencyError(service string, err error) *AppError {
	return &AppError{
		Code:    CodeDependency,
		Message: service + " unavailable",
		Err:     err,
	}
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// StatusFor maps an error to the HTTP status used to report it.
func StatusFor(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeValidation, CodeInvalidAmount:
		return fiber.StatusBadRequest
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeForbidden, CodeSelfRequest, CodeReputationTooLow:
		return fiber.StatusForbidden
	case CodeConflict, CodeDuplicateRequest, CodeInvalidTransition:
		return fiber.StatusConflict
	case CodeInsufficientFunds:
		return fiber.StatusUnprocessableEntity
	case CodeRateLimited:
		return fiber.StatusTooManyRequests
	case CodeDependency:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil && appErr.Code != CodeInternal {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
