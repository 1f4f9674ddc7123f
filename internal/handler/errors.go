package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
	"github.com/pkordes/travelspot-editor/backend/internal/images"
	"github.com/pkordes/travelspot-editor/backend/internal/location"
)

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// requestBody returns an ErrorResponse for a bad request rejected before
// reaching the service layer (e.g. missing or malformed body).
func requestBody(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: message}}
}

// badRequest writes a 400 for a request rejected before reaching the service
// layer, or a 413 when the body ran past the size limit.
func badRequest(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: ErrorDetail{
			Code:    "payload_too_large",
			Message: "request body is too large",
		}})
		return
	}
	writeJSON(w, http.StatusBadRequest, requestBody(err.Error()))
}

// writeError maps a service error onto a status code and error body.
// Messages of unexpected errors are never sent to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status   int
		detail   ErrorDetail
		fetchErr *location.FetchError
		valErr   *domain.ValidationError
		apiErr   *domain.APIError
	)

	switch {
	case errors.As(err, &fetchErr):
		status = http.StatusBadGateway
		detail = ErrorDetail{Code: "remote_unavailable", Message: fetchErr.Level.String() + " options could not be loaded, retry the level"}
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		detail = ErrorDetail{Code: "not_found", Message: unwrapMessage(err)}
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusUnprocessableEntity
		detail = ErrorDetail{Code: "validation_error", Message: unwrapMessage(err)}
		switch {
		case errors.As(err, &valErr):
			detail.Message = "validation failed"
			detail.Fields = valErr.Fields
		case errors.As(err, &apiErr):
			detail.Message = "the travel spot service rejected the data"
			detail.Fields = apiErr.FieldErrors
		}
	case errors.Is(err, domain.ErrBusy):
		status = http.StatusConflict
		detail = ErrorDetail{Code: "busy", Message: "another image operation is in progress"}
	case errors.Is(err, domain.ErrInvalidStep):
		status = http.StatusConflict
		detail = ErrorDetail{Code: "invalid_step", Message: unwrapMessage(err)}
	case errors.Is(err, domain.ErrNotPersisted):
		status = http.StatusConflict
		detail = ErrorDetail{Code: "not_persisted", Message: "the travel spot has not been saved yet"}
	case errors.Is(err, domain.ErrUnavailable), errors.Is(err, images.ErrInvariant):
		status = http.StatusBadGateway
		detail = ErrorDetail{Code: "remote_unavailable", Message: "the travel spot service could not be reached, retry the operation"}
	case errors.As(err, &apiErr):
		status = http.StatusBadGateway
		detail = ErrorDetail{Code: "remote_rejected", Message: apiErr.Message}
	default:
		status = http.StatusInternalServerError
		detail = ErrorDetail{Code: "internal_error", Message: "internal server error"}
	}

	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: detail})
}

// opPrefix matches the "pkg.Type.Method: " prefixes added while an error
// travels up the stack.
var opPrefix = regexp.MustCompile(`^[a-z]+(\.[A-Za-z]+)+: `)

// unwrapMessage extracts the human-readable part from a wrapped sentinel error.
// e.g. "service.EditorService.JumpTo: wizard.Wizard.JumpTo: operation not
// allowed in current step: jumping is only possible from review" becomes
// "jumping is only possible from review".
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for {
		loc := opPrefix.FindStringIndex(msg)
		if loc == nil {
			break
		}
		msg = msg[loc[1]:]
	}
	for _, sentinel := range []error{domain.ErrValidation, domain.ErrInvalidStep, domain.ErrNotFound} {
		if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
			return rest
		}
	}
	return msg
}
