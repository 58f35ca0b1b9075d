// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/bouquetmaker/internal/jobs"
	"github.com/ManuGH/bouquetmaker/internal/picons"
	"github.com/ManuGH/bouquetmaker/internal/playlists"
	"github.com/ManuGH/bouquetmaker/internal/validate"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, code int, kind string, err error) {
	body := errorBody{Error: kind}
	if err != nil {
		body.Detail = err.Error()
	}
	writeJSON(w, code, body)
}

// writeJobError maps job start failures onto HTTP statuses.
func writeJobError(w http.ResponseWriter, err error) {
	var verr validate.ValidationError
	switch {
	case errors.Is(err, jobs.ErrRunning), errors.Is(err, playlists.ErrBusy):
		writeError(w, http.StatusConflict, "busy", err)
	case errors.Is(err, playlists.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, "invalid_playlist", err)
	case errors.Is(err, picons.ErrOutputDir), errors.Is(err, jobs.ErrNoPlaylists):
		writeError(w, http.StatusInternalServerError, "unavailable", err)
	default:
		writeError(w, http.StatusBadGateway, "upstream", err)
	}
}
