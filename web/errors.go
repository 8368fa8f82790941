package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nasermirzaei89/vidtube/authentication"
	"github.com/nasermirzaei89/vidtube/authorization"
	"github.com/nasermirzaei89/vidtube/failure"
)

const (
	statusFail  = "fail"
	statusError = "error"
)

type errorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError writes a JSON error body. Client errors carry status "fail",
// server errors carry "error".
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, kind, message string) {
	status := statusFail
	if statusCode >= http.StatusInternalServerError {
		status = statusError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	err := json.NewEncoder(w).Encode(errorResponse{
		Status:  status,
		Error:   kind,
		Message: message,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to encode error response", "error", err)
	}
}

// handleServiceError maps a service error to its response. Only server-class
// failures are logged.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr     *failure.ValidationError
		relationErr       *failure.RelationError
		notFoundErr       *failure.NotFoundError
		conflictErr       *failure.ConflictError
		authorizationErr  *failure.AuthorizationError
		accessDeniedErr   *authorization.AccessDeniedError
		invalidOTPErr     *authentication.InvalidOTPError
		otpExpiredErr     *authentication.OTPExpiredError
		notVerifiedErr    *authentication.AccountNotVerifiedError
		invalidTokenErr   *authentication.InvalidTokenError
		maxBytesReaderErr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &validationErr):
		writeError(w, r, http.StatusBadRequest, "ValidationError", validationErr.Error())
	case errors.As(err, &relationErr):
		writeError(w, r, http.StatusBadRequest, "RelationError", relationErr.Error())
	case errors.As(err, &invalidOTPErr):
		writeError(w, r, http.StatusBadRequest, "InvalidOTP", "otp is invalid")
	case errors.As(err, &otpExpiredErr):
		writeError(w, r, http.StatusBadRequest, "OTPExpired", "otp has expired")
	case errors.As(err, &maxBytesReaderErr):
		writeError(w, r, http.StatusRequestEntityTooLarge, "PayloadTooLarge", "request body is too large")
	case errors.Is(err, authentication.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "InvalidCredentials", err.Error())
	case errors.As(err, &invalidTokenErr), errors.Is(err, authentication.ErrCurrentUserNotFound):
		writeError(w, r, http.StatusUnauthorized, "Unauthorized", "authentication required")
	case errors.As(err, &notVerifiedErr):
		writeError(w, r, http.StatusForbidden, "AccountNotVerified", "please verify your account first")
	case errors.As(err, &authorizationErr):
		writeError(w, r, http.StatusForbidden, "Forbidden", authorizationErr.Error())
	case errors.As(err, &accessDeniedErr):
		writeError(w, r, http.StatusForbidden, "Forbidden", "access denied")
	case errors.As(err, &notFoundErr):
		writeError(w, r, http.StatusNotFound, "NotFound", notFoundErr.Error())
	case errors.As(err, &conflictErr):
		writeError(w, r, http.StatusConflict, "Conflict", conflictErr.Error())
	default:
		slog.ErrorContext(r.Context(), "failed to handle request", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, "InternalServerError", "an internal error occurred")
	}
}
