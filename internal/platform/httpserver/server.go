package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger"

	profileservice "zerosum/contexts/community/profile-service"
	loginservice "zerosum/contexts/identity-access/login-service"
	gameengine "zerosum/contexts/wagering/game-engine"
	"zerosum/internal/platform/auth"
	_ "zerosum/internal/platform/httpserver/docs"
)

// TokenVerifier authenticates bearer tokens on protected routes.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	auth     TokenVerifier
	wagering gameengine.Module
	profiles profileservice.Module
	identity loginservice.Module
}

func New(
	wagering gameengine.Module,
	profiles profileservice.Module,
	identity loginservice.Module,
	verifier TokenVerifier,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		auth:     verifier,
		wagering: wagering,
		profiles: profiles,
		identity: identity,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.Handler())
}

// Handler exposes the routing table for httptest-based tests.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.mux)
}

// withRequestID tags every request with an X-Request-Id, minting one when the
// caller did not send it, and echoes it on the response for log correlation.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set("X-Request-Id", requestID)
		}
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	s.mux.HandleFunc("POST /api/v1/games", s.handleCreateGame)
	s.mux.HandleFunc("GET /api/v1/games/{game_id}", s.handleGetGame)
	s.mux.HandleFunc("POST /api/v1/games/{game_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /api/v1/games/{game_id}/votes/me", s.handleGetOwnVote)
	s.mux.HandleFunc("POST /api/v1/games/{game_id}/settle", s.handleSettleGame)

	s.mux.HandleFunc("GET /api/v1/profiles/me", s.handleGetOwnProfile)
	s.mux.HandleFunc("GET /api/v1/profiles/{user_id}", s.handleGetProfile)
	s.mux.HandleFunc("GET /api/v1/leaderboard", s.handleLeaderboard)
}

// authenticate resolves the calling user. With a verifier wired the route
// requires a bearer token; without one (unit-test wiring) the X-User-Id
// header stands in.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.auth == nil {
		userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
			return "", false
		}
		return userID, true
	}
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		writeError(w, http.StatusUnauthorized, "missing_token", "bearer token is required")
		return "", false
	}
	userID, err := s.auth.Verify(strings.TrimSpace(token))
	if err != nil {
		code := "token_invalid"
		if errors.Is(err, auth.ErrTokenExpired) {
			code = "token_expired"
		}
		writeError(w, http.StatusUnauthorized, code, "token rejected")
		return "", false
	}
	return userID, true
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
