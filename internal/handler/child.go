package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/tidemann/chorewheel/internal/auth"
	"github.com/tidemann/chorewheel/internal/model"
	"github.com/tidemann/chorewheel/internal/store"
	"github.com/tidemann/chorewheel/internal/websocket"
)

var hexColorRegexp = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type ChildHandler struct {
	store  *store.ChildStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewChildHandler(s *store.ChildStore, hub *websocket.Hub, logger *slog.Logger) *ChildHandler {
	return &ChildHandler{store: s, hub: hub, logger: logger}
}

func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	children, err := h.store.ListByHousehold(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("list children", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list children")
		return
	}
	if children == nil {
		children = []model.Child{}
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Color       string `json:"color"`
		AvatarEmoji string `json:"avatar_emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Color == "" {
		req.Color = "#3B82F6"
	}
	if !hexColorRegexp.MatchString(req.Color) {
		writeError(w, http.StatusBadRequest, "color must be a hex color (e.g. #FF0000)")
		return
	}
	if req.AvatarEmoji == "" {
		req.AvatarEmoji = "😀"
	}

	child, err := h.store.Create(auth.HouseholdID(r.Context()), req.Name, req.Color, req.AvatarEmoji)
	if err != nil {
		h.logger.Error("create child", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create child")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("child", "created", child.ID, nil))
	writeJSON(w, http.StatusCreated, child)
}

func (h *ChildHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.getOwned(r, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get child")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "child not found")
		return
	}

	var req struct {
		Name        string `json:"name"`
		Color       string `json:"color"`
		AvatarEmoji string `json:"avatar_emoji"`
		SortOrder   *int   `json:"sort_order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = existing.Name
	}
	if req.Color == "" {
		req.Color = existing.Color
	}
	if !hexColorRegexp.MatchString(req.Color) {
		writeError(w, http.StatusBadRequest, "color must be a hex color (e.g. #FF0000)")
		return
	}
	if req.AvatarEmoji == "" {
		req.AvatarEmoji = existing.AvatarEmoji
	}
	sortOrder := existing.SortOrder
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	}

	child, err := h.store.Update(id, req.Name, req.Color, req.AvatarEmoji, sortOrder)
	if err != nil {
		h.logger.Error("update child", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update child")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("child", "updated", child.ID, nil))
	writeJSON(w, http.StatusOK, child)
}

func (h *ChildHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.getOwned(r, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get child")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "child not found")
		return
	}

	if err := h.store.Delete(id); err != nil {
		h.logger.Error("delete child", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete child")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("child", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// getOwned loads the child only if it belongs to the request's household.
func (h *ChildHandler) getOwned(r *http.Request, id int64) (*model.Child, error) {
	child, err := h.store.GetByID(id)
	if err != nil {
		return nil, err
	}
	if child == nil || child.HouseholdID != auth.HouseholdID(r.Context()) {
		return nil, nil
	}
	return child, nil
}
