package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/alimasry/lumina/editor"
	"github.com/alimasry/lumina/store"
	"github.com/alimasry/lumina/suggest"
	"github.com/alimasry/lumina/workspace"
)

// RespondJSON writes a JSON response with the given status code. The
// payload is marshaled first so an encoding failure never leaves a partial
// response behind.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// ProblemDetail is an RFC 7807 problem details body.
type ProblemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// RespondError writes an RFC 7807 problem details response.
func RespondError(w http.ResponseWriter, status int, detail string) {
	payload, err := json.Marshal(ProblemDetail{
		Type:   errorTypeFromStatus(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	w.Write(payload)
}

func errorTypeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.1"
	case http.StatusNotFound:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.4"
	case http.StatusConflict:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.8"
	case http.StatusInternalServerError:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.6.1"
	default:
		return "about:blank"
	}
}

// handleError maps domain errors to problem responses.
func handleError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, workspace.ErrValidation):
		RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, suggest.ErrUnknown),
		errors.Is(err, workspace.ErrNoActiveDocument):
		RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrExists),
		errors.Is(err, editor.ErrBusy),
		errors.Is(err, workspace.ErrSuperseded),
		errors.Is(err, errSessionClosed):
		RespondError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
