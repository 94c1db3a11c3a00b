package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sweeney/temp-controller/internal/logic"
)

// ThresholdSetter accepts threshold updates for the control loop.
type ThresholdSetter interface {
	// SetThresholds queues th. It must not block on the control loop.
	SetThresholds(th logic.Thresholds) error
}

// ThresholdsJSON is the body of GET and PUT /thresholds.
// Fields left out of a PUT keep their current value.
type ThresholdsJSON struct {
	Low   *int   `json:"low,omitempty"`
	High  *int   `json:"high,omitempty"`
	Focus string `json:"focus,omitempty"`
}

// errorJSON is the body of a rejected request.
type errorJSON struct {
	Error string `json:"error"`
}

const maxBody = 1 << 10

func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getThresholds(w)
	case http.MethodPut, http.MethodPost:
		s.putThresholds(w, r)
	default:
		w.Header().Set("Allow", "GET, PUT, POST")
		writeJSON(w, http.StatusMethodNotAllowed, errorJSON{Error: "method not allowed"})
	}
}

func (s *Server) getThresholds(w http.ResponseWriter) {
	snap := s.tracker.Snapshot()
	low, high := snap.Thresholds.Low, snap.Thresholds.High
	focus := string(snap.Focus)
	if focus == "" {
		focus = string(logic.SetpointHigh)
	}
	writeJSON(w, http.StatusOK, ThresholdsJSON{Low: &low, High: &high, Focus: focus})
}

func (s *Server) putThresholds(w http.ResponseWriter, r *http.Request) {
	if s.setter == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorJSON{Error: "threshold updates disabled"})
		return
	}

	th, err := decodeThresholds(r.Body, s.tracker.Snapshot().Thresholds)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error()})
		return
	}
	if err := s.setter.SetThresholds(th); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorJSON{Error: err.Error()})
		return
	}

	low, high := th.Low, th.High
	writeJSON(w, http.StatusAccepted, ThresholdsJSON{Low: &low, High: &high})
}

// decodeThresholds parses a PUT body over current and validates the result.
func decodeThresholds(body io.Reader, current logic.Thresholds) (logic.Thresholds, error) {
	var req ThresholdsJSON
	dec := json.NewDecoder(io.LimitReader(body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return logic.Thresholds{}, fmt.Errorf("decode body: %w", err)
	}
	if req.Low == nil && req.High == nil {
		return logic.Thresholds{}, errors.New("body must set low or high")
	}

	th := current
	if req.Low != nil {
		th.Low = *req.Low
	}
	if req.High != nil {
		th.High = *req.High
	}
	if !th.Valid() {
		return logic.Thresholds{}, fmt.Errorf("thresholds must be within %d..%d°F", logic.MinThreshold, logic.MaxThreshold)
	}
	return th, nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}
