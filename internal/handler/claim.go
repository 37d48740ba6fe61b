package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tidemann/chorewheel/internal/assign"
	"github.com/tidemann/chorewheel/internal/auth"
	"github.com/tidemann/chorewheel/internal/websocket"
)

// ClaimHandler exposes the claim workflow for single-claim tasks.
type ClaimHandler struct {
	arbitrator *assign.Arbitrator
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewClaimHandler(a *assign.Arbitrator, hub *websocket.Hub, logger *slog.Logger) *ClaimHandler {
	return &ClaimHandler{arbitrator: a, hub: hub, logger: logger}
}

// claimError maps arbitrator sentinels to HTTP responses. Returns false for
// unrecognized errors so the caller can log and 500.
func claimError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, assign.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, assign.ErrChildNotFound):
		writeError(w, http.StatusNotFound, "child not found")
	case errors.Is(err, assign.ErrNotSingle):
		writeError(w, http.StatusBadRequest, "task is not up for grabs")
	case errors.Is(err, assign.ErrNotCandidate):
		writeError(w, http.StatusForbidden, "child is not a candidate for this task")
	case errors.Is(err, assign.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, "task has already been claimed")
	default:
		return false
	}
	return true
}

func childIDFromBody(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var req struct {
		ChildID int64 `json:"child_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return 0, false
	}
	if req.ChildID == 0 {
		writeError(w, http.StatusBadRequest, "child_id is required")
		return 0, false
	}
	return req.ChildID, true
}

// Accept claims the task for the child. The first accept wins; later ones
// get 409.
func (h *ClaimHandler) Accept(w http.ResponseWriter, r *http.Request) {
	templateID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	childID, ok := childIDFromBody(w, r)
	if !ok {
		return
	}

	assignment, err := h.arbitrator.Accept(auth.HouseholdID(r.Context()), templateID, childID)
	if err != nil {
		if !claimError(w, err) {
			h.logger.Error("accept task", "template_id", templateID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to accept task")
		}
		return
	}

	h.hub.Broadcast(websocket.NewMessage("task", "claimed", templateID, map[string]any{
		"child_id": childID,
	}))
	writeJSON(w, http.StatusCreated, assignment)
}

func (h *ClaimHandler) Decline(w http.ResponseWriter, r *http.Request) {
	templateID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	childID, ok := childIDFromBody(w, r)
	if !ok {
		return
	}

	if err := h.arbitrator.Decline(auth.HouseholdID(r.Context()), templateID, childID); err != nil {
		if !claimError(w, err) {
			h.logger.Error("decline task", "template_id", templateID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to decline task")
		}
		return
	}

	h.hub.Broadcast(websocket.NewMessage("task", "declined", templateID, map[string]any{
		"child_id": childID,
	}))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClaimHandler) UndoDecline(w http.ResponseWriter, r *http.Request) {
	templateID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	childID, ok := childIDFromBody(w, r)
	if !ok {
		return
	}

	removed, err := h.arbitrator.UndoDecline(auth.HouseholdID(r.Context()), templateID, childID)
	if err != nil {
		if !claimError(w, err) {
			h.logger.Error("undo decline", "template_id", templateID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to undo decline")
		}
		return
	}
	if !removed {
		writeError(w, http.StatusConflict, "nothing to undo")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("task", "decline_undone", templateID, map[string]any{
		"child_id": childID,
	}))
	w.WriteHeader(http.StatusNoContent)
}

// Available lists tasks the child could still claim.
func (h *ClaimHandler) Available(w http.ResponseWriter, r *http.Request) {
	childID, err := strconv.ParseInt(r.URL.Query().Get("child_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "child_id query parameter is required")
		return
	}

	templates, err := h.arbitrator.ListAvailable(auth.HouseholdID(r.Context()), childID)
	if err != nil {
		if !claimError(w, err) {
			h.logger.Error("list available tasks", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list available tasks")
		}
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// Failed lists tasks every candidate has declined.
func (h *ClaimHandler) Failed(w http.ResponseWriter, r *http.Request) {
	templates, err := h.arbitrator.ListFailed(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("list failed tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list failed tasks")
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// Expired lists unclaimed tasks whose deadline has passed.
func (h *ClaimHandler) Expired(w http.ResponseWriter, r *http.Request) {
	templates, err := h.arbitrator.ListExpired(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("list expired tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list expired tasks")
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// Candidates lists the task's candidate pool with each child's response.
func (h *ClaimHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	templateID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	statuses, err := h.arbitrator.ListCandidates(auth.HouseholdID(r.Context()), templateID)
	if err != nil {
		if !claimError(w, err) {
			h.logger.Error("list candidates", "template_id", templateID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list candidates")
		}
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}
