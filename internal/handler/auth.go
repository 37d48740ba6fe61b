package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tidemann/chorewheel/internal/store"
)

const (
	sessionCookieName = "chorewheel_session"
	sessionTTL        = 90 * 24 * time.Hour
	minPasswordLen    = 8
)

type AuthHandler struct {
	userStore      *store.UserStore
	householdStore *store.HouseholdStore
	sessionStore   *store.SessionStore
	logger         *slog.Logger
}

func NewAuthHandler(us *store.UserStore, hs *store.HouseholdStore, ss *store.SessionStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:      us,
		householdStore: hs,
		sessionStore:   ss,
		logger:         logger,
	}
}

// Register creates a user, their household, and an admin membership, then
// logs them in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email         string `json:"email"`
		Name          string `json:"name"`
		Password      string `json:"password"`
		HouseholdName string `json:"household_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.HouseholdName = strings.TrimSpace(req.HouseholdName)

	if req.Email == "" || req.HouseholdName == "" {
		writeError(w, http.StatusBadRequest, "email and household name are required")
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("register lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "an account with that email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	household, err := h.householdStore.Create(req.HouseholdName)
	if err != nil {
		h.logger.Error("create household", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := h.userStore.Create(req.Email, req.Name, string(hash))
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if _, err := h.householdStore.AddMember(household.ID, user.ID, "admin"); err != nil {
		h.logger.Error("add member", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.startSession(w, r, user.ID, household.ID); err != nil {
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":      user,
		"household": household,
	})
}

// Login verifies credentials and issues a session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	households, err := h.householdStore.ListHouseholdsForUser(user.ID)
	if err != nil || len(households) == 0 {
		h.logger.Error("login households", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.startSession(w, r, user.ID, households[0].ID); err != nil {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":      user,
		"household": households[0],
	})
}

// Logout deletes the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if sess, err := h.sessionStore.GetByToken(cookie.Value); err == nil && sess != nil {
			h.sessionStore.Delete(sess.ID)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, userID, householdID int64) error {
	sess, err := h.sessionStore.Create(userID, householdID, sessionTTL)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(sessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	return nil
}
