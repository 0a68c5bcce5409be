// Package handlers translates HTTP requests into service calls.
package handlers

import (
	"net/http"

	"coursegraph-backend/internal/errors"
	"coursegraph-backend/pkg/common"
)

// statusFor maps error categories to HTTP status codes.
func statusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeConflict:
		return http.StatusConflict
	case errors.ErrorTypeDepthExceeded:
		return http.StatusUnprocessableEntity
	case errors.ErrorTypeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError writes the error with its domain code. Internal causes
// are not leaked; the message comes from the domain error itself.
func respondDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	code := errors.CodeInternalError
	message := "internal server error"

	var gerr *errors.GraphError
	if errors.As(err, &gerr) {
		code = gerr.Code
		message = gerr.Message
		if gerr.Details != "" {
			message = message + ": " + gerr.Details
		}
	}
	common.RespondError(w, status, code, message)
}
