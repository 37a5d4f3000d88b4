package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

type errorBody struct {
	Detail string `json:"detail"`
}

// writeJSON marshals before writing the header so an encoding failure becomes a 500
func writeJSON(w http.ResponseWriter, status int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		logging.Default().Error("failed to marshal response", "error", err)
		status = http.StatusInternalServerError
		raw, _ = json.Marshal(errorBody{Detail: "internal server error"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(raw, '\n'))
}

// statusOf maps an error kind to an HTTP status. Collaborator failures are reported as 400.
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrClaimNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrInputMissing):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrCollaborator):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		logging.From(r.Context()).Error("request failed", "error", err, "path", r.URL.Path)
		detail = "internal server error"
	} else {
		logging.From(r.Context()).Info("request rejected", "error", err, "status", status, "path", r.URL.Path)
	}
	writeJSON(w, status, errorBody{Detail: detail})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(model.ErrValidation, "malformed JSON body", goerr.V("error", err.Error()))
	}
	return nil
}
