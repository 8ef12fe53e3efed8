package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/digkill/TGEconomyBot/internal/ledger"
	"github.com/digkill/TGEconomyBot/internal/models"
)

// Server exposes a small operational surface over the ledger: health,
// leaderboard, per-user inspection, and manual token adjustments.
type Server struct {
	addr     string
	username string
	password string
	log      *slog.Logger
	economy  *ledger.Service
	router   *chi.Mux
}

func NewServer(addr, username, password string, log *slog.Logger, economy *ledger.Service) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:     addr,
		username: username,
		password: password,
		log:      log,
		economy:  economy,
		router:   r,
	}

	r.Get("/health", s.handleHealth)
	r.Group(func(protected chi.Router) {
		protected.Use(s.basicAuthMiddleware())
		protected.Get("/leaderboard", s.handleLeaderboard)
		protected.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetUser)
			r.Get("/transactions", s.handleTransactions)
			r.Post("/tokens", s.handleAdjustTokens)
		})
	})
	return s
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("admin shutdown error", "err", err)
		}
	}()

	s.log.Info("admin server listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin listen: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.economy.TestConnection(r.Context())
	code := http.StatusOK
	if !status.Success {
		code = http.StatusServiceUnavailable
	}
	s.respondJSON(w, code, status)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.economy.TopUsers(r.Context(), r.URL.Query().Get("sort"), limit)
	if err != nil {
		s.log.Error("leaderboard", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	s.respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	user, err := s.economy.GetUser(r.Context(), userID)
	if err != nil {
		s.log.Error("get user", "user", userID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"userId":    user.UserID,
		"tokens":    user.Tokens,
		"xp":        user.XP,
		"level":     user.Level,
		"lastDaily": user.LastDaily,
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	txs, err := s.economy.Transactions(r.Context(), userID, limit)
	if err != nil {
		s.log.Error("transactions", "user", userID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	type txRow struct {
		ID        int64     `json:"id"`
		Amount    int64     `json:"amount"`
		Type      string    `json:"type"`
		Timestamp time.Time `json:"timestamp"`
	}
	rows := make([]txRow, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, txRow{ID: t.ID, Amount: t.Amount, Type: string(t.Type), Timestamp: t.Timestamp})
	}
	s.respondJSON(w, http.StatusOK, rows)
}

type adjustTokensRequest struct {
	Amount int64  `json:"amount"`
	Type   string `json:"type"`
}

func (s *Server) handleAdjustTokens(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	var req adjustTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Type) == "" {
		http.Error(w, "type required", http.StatusBadRequest)
		return
	}
	user, err := s.economy.UpdateTokens(r.Context(), userID, req.Amount, models.TxType(req.Type))
	if err != nil {
		s.log.Error("adjust tokens", "user", userID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"userId": user.UserID,
		"tokens": user.Tokens,
	})
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(s.username)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(s.password)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("encode response", "err", err)
	}
}
