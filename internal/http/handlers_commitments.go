package http

import (
	"fmt"
	"net/http"
	"strings"

	"budgeting/internal/core"
)

func (s *Server) handleListCommitments(w http.ResponseWriter, r *http.Request) {
	list, err := s.backend.Commitments.List(r.Context(), ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]commitmentResponse, 0, len(list))
	for _, sum := range list {
		resp := newCommitmentResponse(sum.Commitment)
		resp.Remaining = amountString(sum.Remaining)
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateCommitment answers 202 when the schedule is generated by the
// worker, 201 when it was generated inline.
func (s *Server) handleCreateCommitment(w http.ResponseWriter, r *http.Request) {
	var req commitmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := req.toCore(ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.backend.Commitments.Create(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if s.backend.AMQP != nil {
		status = http.StatusAccepted
	}
	w.Header().Set("Location", "/api/v1/commitments/"+created.ID)
	writeJSON(w, status, newCommitmentResponse(created))
}

func (s *Server) handleGetCommitment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, ok, err := s.backend.Commitments.Get(r.Context(), ownerFrom(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, fmt.Errorf("commitment %s: %w", id, core.ErrNotFound))
		return
	}
	resp := newCommitmentResponse(c)
	remaining, err := s.backend.Engine.RemainingPrincipal(r.Context(), c.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp.Remaining = amountString(remaining)
	writeJSON(w, http.StatusOK, resp)
}

// handleUpdateCommitment edits the terms. The schedule is left alone until a
// regeneration is requested.
func (s *Server) handleUpdateCommitment(w http.ResponseWriter, r *http.Request) {
	var req commitmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := req.toCore(ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.ID = r.PathValue("id")
	updated, err := s.backend.Commitments.Update(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCommitmentResponse(updated))
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok, err := s.backend.Commitments.Get(r.Context(), ownerFrom(r), id); err != nil {
		writeError(w, r, err)
		return
	} else if !ok {
		writeError(w, r, fmt.Errorf("commitment %s: %w", id, core.ErrNotFound))
		return
	}
	lines, err := s.backend.Engine.ListScheduleLines(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]lineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, newLineResponse(l))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	queued, err := s.backend.Commitments.RequestRegeneration(r.Context(), ownerFrom(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if queued {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "regenerated"})
}

func (s *Server) handleLineStatus(w http.ResponseWriter, r *http.Request) {
	var req lineStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	status := core.LineStatus(strings.TrimSpace(req.Status))
	line, err := s.backend.Engine.SetLineStatus(r.Context(), ownerFrom(r), r.PathValue("id"), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLineResponse(line))
}

// handleDueInMonth sums every schedule line of the owner due in the month.
func (s *Server) handleDueInMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathYearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	due, err := s.backend.Engine.DueInMonth(r.Context(), ownerFrom(r), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "month": month, "due": amountString(due)})
}

func (s *Server) handleListStandings(w http.ResponseWriter, r *http.Request) {
	list, err := s.backend.Commitments.ListStandings(r.Context(), ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]standingResponse, 0, len(list))
	for _, f := range list {
		out = append(out, newStandingResponse(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateStanding(w http.ResponseWriter, r *http.Request) {
	var req standingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	f, err := req.toCore(ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.backend.Commitments.CreateStanding(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newStandingResponse(created))
}
