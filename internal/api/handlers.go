// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ManuGH/bouquetmaker/internal/jobs"
	xglog "github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/ManuGH/bouquetmaker/internal/picons"
)

const maxBodyBytes = 64 << 10

type healthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version,omitempty"`
	BuildRunning bool   `json:"build_running"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		Version:      s.cfg.Version,
		BuildRunning: s.cfg.Jobs.Running(),
	})
}

type piconProgress struct {
	Done  bool         `json:"done"`
	Stats picons.Stats `json:"stats"`
}

type progressResponse struct {
	Build  jobs.Progress  `json:"build"`
	Picons *piconProgress `json:"picons,omitempty"`
}

func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	resp := progressResponse{Build: s.cfg.Jobs.Progress()}
	if b := s.cfg.Jobs.Picons(); b != nil {
		pp := &piconProgress{Stats: b.Stats()}
		select {
		case <-b.Done():
			pp.Done = true
		default:
		}
		resp.Picons = pp
	}
	writeJSON(w, http.StatusOK, resp)
}

type buildRequest struct {
	Playlists []string `json:"playlists"`
}

type buildResponse struct {
	RunID string `json:"run_id"`
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	id, err := s.cfg.Jobs.Start(s.cfg.BuildOptions(req.Playlists))
	if err != nil {
		writeJobError(w, err)
		return
	}
	xglog.WithComponentFromContext(r.Context(), "api").Info().
		Str(xglog.FieldEvent, "build.requested").
		Str(xglog.FieldRunID, id).
		Strs("playlists", req.Playlists).
		Msg("build started via API")
	writeJSON(w, http.StatusAccepted, buildResponse{RunID: id})
}

func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	if !s.cfg.Jobs.Cancel() {
		writeError(w, http.StatusConflict, "not_running", nil)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"cancelled": true})
}

type piconsRequest struct {
	Playlist string `json:"playlist"`
}

type piconsResponse struct {
	Total int `json:"total"`
}

func (s *Server) handlePicons(w http.ResponseWriter, r *http.Request) {
	var req piconsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.Playlist) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("playlist is required"))
		return
	}
	cfg, localDir := s.cfg.Picons()
	batch, err := s.cfg.Jobs.StartPicons(r.Context(), req.Playlist, cfg, localDir)
	if err != nil {
		writeJobError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, piconsResponse{Total: batch.Stats().Total})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Runs == nil {
		writeError(w, http.StatusServiceUnavailable, "history_unavailable", nil)
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("limit must be 1..500"))
			return
		}
		limit = n
	}
	runs, err := s.cfg.Runs.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// decodeBody decodes an optional JSON body strictly.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
