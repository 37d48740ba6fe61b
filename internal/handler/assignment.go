package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidemann/chorewheel/internal/assign"
	"github.com/tidemann/chorewheel/internal/auth"
	"github.com/tidemann/chorewheel/internal/model"
	"github.com/tidemann/chorewheel/internal/store"
	"github.com/tidemann/chorewheel/internal/websocket"
)

// maxGenerationDays caps how far ahead a single generate request may reach.
const maxGenerationDays = 30

const dateLayout = "2006-01-02"

type AssignmentHandler struct {
	assignments *store.AssignmentStore
	generator   *assign.Generator
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewAssignmentHandler(as *store.AssignmentStore, g *assign.Generator, hub *websocket.Hub, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{assignments: as, generator: g, hub: hub, logger: logger}
}

// Generate materializes assignments for a window of days starting at
// start_date. Re-running the same window is safe; existing rows are skipped.
func (h *AssignmentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDate string `json:"start_date"`
		Days      int    `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	start := time.Now()
	if req.StartDate != "" {
		var err error
		start, err = time.Parse(dateLayout, req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
			return
		}
	}
	if req.Days == 0 {
		req.Days = 7
	}
	if req.Days < 1 || req.Days > maxGenerationDays {
		writeError(w, http.StatusBadRequest, "days must be between 1 and 30")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	summary, err := h.generator.Generate(householdID, start, req.Days)
	if err != nil {
		h.logger.Error("generate assignments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate assignments")
		return
	}

	if summary.Created > 0 {
		h.hub.Broadcast(websocket.NewMessage("assignments", "generated", 0, map[string]any{
			"created": summary.Created,
		}))
	}
	writeJSON(w, http.StatusOK, summary)
}

// List returns the household's assignments with due dates in [start, end].
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start := time.Now()
	if s := q.Get("start"); s != "" {
		var err error
		start, err = time.Parse(dateLayout, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
			return
		}
	}
	end := start.AddDate(0, 0, 6)
	if e := q.Get("end"); e != "" {
		var err error
		end, err = time.Parse(dateLayout, e)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
			return
		}
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end must not be before start")
		return
	}

	assignments, err := h.assignments.ListByHouseholdRange(auth.HouseholdID(r.Context()), start, end)
	if err != nil {
		h.logger.Error("list assignments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list assignments")
		return
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	writeJSON(w, http.StatusOK, assignments)
}

// Complete marks an assignment done. Completing an assignment twice returns
// 409 so the second tap on a shared dashboard is visibly rejected.
func (h *AssignmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		ChildID *int64 `json:"child_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	existing, err := h.assignments.GetByID(id)
	if err != nil {
		h.logger.Error("get assignment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get assignment")
		return
	}
	if existing == nil || existing.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "assignment not found")
		return
	}

	updated, err := h.assignments.Complete(id, req.ChildID)
	if err != nil {
		h.logger.Error("complete assignment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete assignment")
		return
	}
	if updated == nil {
		writeError(w, http.StatusConflict, "assignment is already completed")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("assignment", "completed", updated.ID, nil))
	writeJSON(w, http.StatusOK, updated)
}

// SweepOverdue flips pending assignments with past due dates to overdue.
func (h *AssignmentHandler) SweepOverdue(w http.ResponseWriter, r *http.Request) {
	n, err := h.assignments.MarkOverdue(auth.HouseholdID(r.Context()), time.Now())
	if err != nil {
		h.logger.Error("sweep overdue", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sweep overdue assignments")
		return
	}

	if n > 0 {
		h.hub.Broadcast(websocket.NewMessage("assignments", "overdue", 0, map[string]any{
			"count": n,
		}))
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked_overdue": n})
}
