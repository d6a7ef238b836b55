package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dharsanguruparan/AgentDesk/internal/autosave"
	"github.com/dharsanguruparan/AgentDesk/internal/connection"
	"github.com/dharsanguruparan/AgentDesk/internal/model"
	"github.com/dharsanguruparan/AgentDesk/internal/report"
	"github.com/dharsanguruparan/AgentDesk/internal/session"
	"github.com/dharsanguruparan/AgentDesk/internal/signing"
)

type errorBody struct {
	Error        string              `json:"error"`
	Errors       map[string][]string `json:"errors,omitempty"`
	FirstInvalid string              `json:"firstInvalid,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError maps domain errors onto HTTP statuses.
func respondError(w http.ResponseWriter, err error) {
	var verr *report.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:        "missing required information",
			Errors:       verr.Errors,
			FirstInvalid: verr.FirstInvalid,
		})
	case errors.Is(err, model.ErrUnknownField), errors.Is(err, model.ErrInvalidValue),
		errors.Is(err, connection.ErrMissingFields), errors.Is(err, connection.ErrInvalidEmail),
		errors.Is(err, errBadRequest):
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, report.ErrMinimumClients), errors.Is(err, connection.ErrDuplicateConnection):
		respondJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, report.ErrClientNotFound), errors.Is(err, session.ErrNoSession):
		respondJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, signing.ErrExpired):
		respondJSON(w, http.StatusGone, errorBody{Error: err.Error()})
	case errors.Is(err, signing.ErrBadSignature):
		respondJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.Is(err, autosave.ErrClosed):
		respondJSON(w, http.StatusConflict, errorBody{Error: "report session closed"})
	case errors.Is(err, errUnavailable):
		respondJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		respondJSON(w, http.StatusBadGateway, errorBody{Error: "storage unavailable"})
	}
}

var (
	errBadRequest  = errors.New("malformed request body")
	errUnavailable = errors.New("service not configured")
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}
