package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/rerankd/internal/domain"
)

// Additional codes for failures that happen before a request reaches a
// service.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeBodyTooLarge     = "BODY_TOO_LARGE"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

type SuccessResponse struct {
	Data any `json:"data"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// JSON writes data with the given status. A nil data writes headers only.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes message under a code derived from status.
func Error(w http.ResponseWriter, status int, message string) {
	ErrorWithCode(w, status, codeForStatus(status), message)
}

func ErrorWithCode(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrCodeBadRequest
	case http.StatusNotFound:
		return domain.ErrCodeNotFound
	case http.StatusMethodNotAllowed:
		return ErrCodeMethodNotAllowed
	case http.StatusRequestEntityTooLarge:
		return ErrCodeBodyTooLarge
	case http.StatusServiceUnavailable:
		return domain.ErrCodeStorageUnavailable
	default:
		return domain.ErrCodeInternalError
	}
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes err with its domain code. Storage and internal failures
// are reported without their cause.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)
	switch status {
	case http.StatusServiceUnavailable:
		ErrorWithCode(w, status, domain.ErrCodeStorageUnavailable, "storage unavailable")
	case http.StatusInternalServerError:
		ErrorWithCode(w, status, domain.ErrCodeInternalError, "internal server error")
	default:
		var domainErr *domain.DomainError
		errors.As(err, &domainErr)
		ErrorWithCode(w, status, domainErr.Code, err.Error())
	}
}
