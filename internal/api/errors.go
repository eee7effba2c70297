package api

import (
	"encoding/json"
	"net/http"

	"wardrobe/internal/domain"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	codeUnauthenticated = "unauthenticated"
	codeRateLimited     = "rate_limited"
	codeMethod          = "method_not_allowed"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeDomainError renders err with the status of its kind. Internal errors
// keep their detail out of the response.
func writeDomainError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	statusCode := httpStatus(kind)
	message := err.Error()
	if kind == domain.KindInternal {
		message = "internal error"
	}
	writeError(w, statusCode, kind, message)
}

func httpStatus(kind string) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindInvalidState, domain.KindUnavailable, domain.KindDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func grpcCode(kind string) codes.Code {
	switch kind {
	case domain.KindValidation:
		return codes.InvalidArgument
	case domain.KindNotFound:
		return codes.NotFound
	case domain.KindForbidden:
		return codes.PermissionDenied
	case domain.KindInvalidState:
		return codes.FailedPrecondition
	case domain.KindUnavailable:
		return codes.Aborted
	case domain.KindDuplicate:
		return codes.AlreadyExists
	default:
		return codes.Internal
	}
}

// grpcError converts a service error into a status error.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	kind := domain.KindOf(err)
	message := err.Error()
	if kind == domain.KindInternal {
		message = "internal error"
	}
	return status.Error(grpcCode(kind), message)
}
