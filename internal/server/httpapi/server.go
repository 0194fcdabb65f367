// Package httpapi exposes the server over HTTP: JSON endpoints for
// registration and login plus a websocket sync endpoint that streams
// snapshots and accepts single-document operations.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mkorchagin/quicknotes/internal/common"
	"github.com/mkorchagin/quicknotes/internal/logging"
	"github.com/mkorchagin/quicknotes/internal/server/notes"
	"github.com/mkorchagin/quicknotes/internal/server/users"
)

type Server struct {
	addr   string
	logger logging.Logger
	users  *users.Service
	notes  *notes.Store
	http   *http.Server
}

func NewServer(addr string, logger logging.Logger, us *users.Service, ns *notes.Store) *Server {
	s := &Server{addr: addr, logger: logger, users: us, notes: ns}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/sync", s.handleSync)

	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Handler exposes the mux for httptest-based tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info(ctx, "http server listening", "addr", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// credentials is the request body of both /api/register and /api/login.
type credentials struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.UserName == "" || creds.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username and password are required"})
		return
	}

	if _, err := s.users.Register(r.Context(), creds.UserName, creds.Password); err != nil {
		if errors.Is(err, common.ErrUserExists) {
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
			return
		}
		s.logger.Error(r.Context(), "register failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	// Log the user straight in so the client gets a token from one call.
	s.issueToken(w, r, creds)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	s.issueToken(w, r, creds)
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request, creds credentials) {
	token, err := s.users.Login(r.Context(), creds.UserName, creds.Password)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid username or password"})
			return
		}
		s.logger.Error(r.Context(), "login failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	userID, err := s.users.Authenticate(token)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{UserID: userID, AccessToken: token})
}

// bearerToken extracts the access token from the Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get(common.AuthHeaderName)
	prefix := common.AuthScheme + " "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}
