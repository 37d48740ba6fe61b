package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidemann/chorewheel/internal/auth"
	"github.com/tidemann/chorewheel/internal/model"
	"github.com/tidemann/chorewheel/internal/rule"
	"github.com/tidemann/chorewheel/internal/store"
	"github.com/tidemann/chorewheel/internal/websocket"
)

type TemplateHandler struct {
	store      *store.TemplateStore
	childStore *store.ChildStore
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewTemplateHandler(ts *store.TemplateStore, cs *store.ChildStore, hub *websocket.Hub, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{store: ts, childStore: cs, hub: hub, logger: logger}
}

// templateResponse augments a template with the human-readable form of its
// rule.
type templateResponse struct {
	model.TaskTemplate
	RuleText string `json:"rule_text"`
}

func toResponse(t model.TaskTemplate) templateResponse {
	resp := templateResponse{TaskTemplate: t}
	if r, err := rule.Parse(t.RuleSpec); err == nil {
		resp.RuleText = r.Describe()
	}
	return resp
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListByHousehold(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("list templates", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}

	resp := make([]templateResponse, 0, len(templates))
	for _, t := range templates {
		resp = append(resp, toResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	tpl, ok := h.fetch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toResponse(*tpl))
}

type templateRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Points      int     `json:"points"`
	RuleSpec    string  `json:"rule_spec"`
	Deadline    *string `json:"deadline"`
}

// validate normalizes the request and parses its rule, checking that every
// referenced child belongs to the household. Returns an error message for the
// client, or "".
func (h *TemplateHandler) validate(req *templateRequest, householdID int64) (*time.Time, string) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, "name is required"
	}
	if req.Points < 0 {
		return nil, "points must not be negative"
	}

	parsed, err := rule.Parse(req.RuleSpec)
	if err != nil {
		return nil, "invalid rule: " + err.Error()
	}
	if err := parsed.Validate(); err != nil {
		return nil, "invalid rule: " + err.Error()
	}

	children, err := h.childStore.ListByHousehold(householdID)
	if err != nil {
		h.logger.Error("list children for rule check", "error", err)
		return nil, "internal error"
	}
	known := map[int64]bool{}
	for _, c := range children {
		known[c.ID] = true
	}
	for _, id := range parsed.Children {
		if !known[id] {
			return nil, "rule references a child not in this household"
		}
	}

	var deadline *time.Time
	if req.Deadline != nil && *req.Deadline != "" {
		d, err := time.Parse(dateLayout, *req.Deadline)
		if err != nil {
			return nil, "deadline must be YYYY-MM-DD"
		}
		deadline = &d
	}
	return deadline, ""
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	deadline, errMsg := h.validate(&req, householdID)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	tpl, err := h.store.Create(householdID, req.Name, req.Description, req.Points, req.RuleSpec, deadline)
	if err != nil {
		h.logger.Error("create template", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create template")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("template", "created", tpl.ID, nil))
	writeJSON(w, http.StatusCreated, toResponse(*tpl))
}

func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.fetch(w, r)
	if !ok {
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	deadline, errMsg := h.validate(&req, existing.HouseholdID)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	tpl, err := h.store.Update(existing.ID, req.Name, req.Description, req.Points, req.RuleSpec, deadline)
	if err != nil {
		h.logger.Error("update template", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update template")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("template", "updated", tpl.ID, nil))
	writeJSON(w, http.StatusOK, toResponse(*tpl))
}

// Deactivate retires a template. Existing assignments stay; the generator and
// the claim arbitrator skip inactive templates.
func (h *TemplateHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.fetch(w, r)
	if !ok {
		return
	}

	tpl, err := h.store.SetActive(existing.ID, false)
	if err != nil {
		h.logger.Error("deactivate template", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to deactivate template")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("template", "deactivated", tpl.ID, nil))
	writeJSON(w, http.StatusOK, toResponse(*tpl))
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.fetch(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(existing.ID); err != nil {
		h.logger.Error("delete template", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete template")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("template", "deleted", existing.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// fetch resolves the {id} path parameter to a template in the request's
// household, writing the error response itself when that fails.
func (h *TemplateHandler) fetch(w http.ResponseWriter, r *http.Request) (*model.TaskTemplate, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	tpl, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get template", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get template")
		return nil, false
	}
	if tpl == nil || tpl.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "template not found")
		return nil, false
	}
	return tpl, true
}
