package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidemann/chorewheel/internal/assign"
	"github.com/tidemann/chorewheel/internal/handler"
	"github.com/tidemann/chorewheel/internal/middleware"
	"github.com/tidemann/chorewheel/internal/store"
	ws "github.com/tidemann/chorewheel/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	authH          *handler.AuthHandler
	childH         *handler.ChildHandler
	templateH      *handler.TemplateHandler
	assignmentH    *handler.AssignmentHandler
	claimH         *handler.ClaimHandler
	sessionStore   *store.SessionStore
	householdStore *store.HouseholdStore
	rateLimiter    *middleware.RateLimiter
	logger         *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	sessionStore := store.NewSessionStore(db)
	childStore := store.NewChildStore(db)
	templateStore := store.NewTemplateStore(db)
	assignmentStore := store.NewAssignmentStore(db)

	generator := assign.NewGenerator(templateStore, assignmentStore, logger.With("component", "generator"))
	arbitrator := assign.NewArbitrator(templateStore, childStore, assignmentStore, logger.With("component", "arbitrator"))

	return &Server{
		db:             db,
		hub:            hub,
		authH:          handler.NewAuthHandler(userStore, householdStore, sessionStore, logger.With("component", "auth")),
		childH:         handler.NewChildHandler(childStore, hub, logger.With("component", "child")),
		templateH:      handler.NewTemplateHandler(templateStore, childStore, hub, logger.With("component", "template")),
		assignmentH:    handler.NewAssignmentHandler(assignmentStore, generator, hub, logger.With("component", "assignment")),
		claimH:         handler.NewClaimHandler(arbitrator, hub, logger.With("component", "claim")),
		sessionStore:   sessionStore,
		householdStore: householdStore,
		rateLimiter:    middleware.NewRateLimiter(),
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.householdStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)

	// Children API routes
	mux.HandleFunc("GET /api/children", s.childH.List)
	mux.HandleFunc("POST /api/children", s.childH.Create)
	mux.HandleFunc("PUT /api/children/{id}", s.childH.Update)
	mux.Handle("DELETE /api/children/{id}", middleware.RequireAdmin(http.HandlerFunc(s.childH.Delete)))

	// Template API routes
	mux.HandleFunc("GET /api/templates", s.templateH.List)
	mux.HandleFunc("POST /api/templates", s.templateH.Create)
	mux.HandleFunc("GET /api/templates/{id}", s.templateH.Get)
	mux.HandleFunc("PUT /api/templates/{id}", s.templateH.Update)
	mux.Handle("DELETE /api/templates/{id}", middleware.RequireAdmin(http.HandlerFunc(s.templateH.Delete)))
	mux.HandleFunc("POST /api/templates/{id}/deactivate", s.templateH.Deactivate)

	// Assignment API routes
	mux.HandleFunc("POST /api/assignments/generate", s.assignmentH.Generate)
	mux.HandleFunc("GET /api/assignments", s.assignmentH.List)
	mux.HandleFunc("POST /api/assignments/{id}/complete", s.assignmentH.Complete)
	mux.HandleFunc("POST /api/assignments/sweep-overdue", s.assignmentH.SweepOverdue)

	// Claim API routes
	mux.HandleFunc("POST /api/tasks/{id}/accept", s.claimH.Accept)
	mux.HandleFunc("POST /api/tasks/{id}/decline", s.claimH.Decline)
	mux.HandleFunc("POST /api/tasks/{id}/undo-decline", s.claimH.UndoDecline)
	mux.HandleFunc("GET /api/tasks/available", s.claimH.Available)
	mux.HandleFunc("GET /api/tasks/failed", s.claimH.Failed)
	mux.HandleFunc("GET /api/tasks/expired", s.claimH.Expired)
	mux.HandleFunc("GET /api/tasks/{id}/candidates", s.claimH.Candidates)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
