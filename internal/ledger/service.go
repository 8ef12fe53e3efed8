// Package ledger is the uniform economy API the rest of the bot talks to.
// It validates input, shapes user-facing failure messages, and hides backend
// failover: a connectivity fault mid-operation switches the active backend to
// the embedded store and retries the same logical operation once before
// returning, so callers never see the switch.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/digkill/TGEconomyBot/internal/database"
	"github.com/digkill/TGEconomyBot/internal/models"
	"github.com/digkill/TGEconomyBot/internal/repository"
)

// Fallback opens the embedded store during failover. It is expected to
// create the schema and run the lastDaily migration before returning.
type Fallback func(ctx context.Context) (repository.Store, error)

// defaultOpTimeout bounds every store call. A hung connection or exhausted
// pool surfaces as context.DeadlineExceeded, which is a connectivity-class
// error and feeds the failover path instead of blocking the caller forever.
const defaultOpTimeout = 10 * time.Second

type Service struct {
	log       *slog.Logger
	fallback  Fallback
	now       func() time.Time
	opTimeout time.Duration

	mu    sync.Mutex // guards store during failover
	store repository.Store
}

type Option func(*Service)

// WithFallback installs the store constructor used when the networked
// backend faults. Without one, connectivity errors propagate to callers.
func WithFallback(fb Fallback) Option {
	return func(s *Service) { s.fallback = fb }
}

// WithOperationTimeout overrides the per-operation deadline.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Service) { s.opTimeout = d }
}

func New(store repository.Store, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		log:       log,
		now:       time.Now,
		opTimeout: defaultOpTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) activeStore() repository.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// failover swaps the active backend for the embedded one. Only one caller
// performs the switch; the rest block on the mutex and find the new store
// already installed. The embedded backend is terminal: a fault there has no
// further fallback.
func (s *Service) failover(ctx context.Context, failed repository.Store, cause error) (repository.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != failed {
		// Another caller already switched; retry against the current store.
		return s.store, nil
	}
	if s.store.Kind() == database.KindSQLite || s.fallback == nil {
		return nil, cause
	}

	s.log.Warn("backend connectivity fault, switching to sqlite", "err", cause)
	replacement, err := s.fallback(ctx)
	if err != nil {
		return nil, fmt.Errorf("failover to sqlite: %w", err)
	}
	old := s.store
	s.store = replacement
	if err := old.Close(); err != nil {
		s.log.Warn("close faulted backend", "err", err)
	}
	return replacement, nil
}

// withFailover runs one logical operation under the per-operation deadline,
// retrying it exactly once against the embedded backend when a
// connectivity-class fault (including a timeout) is detected.
func withFailover[T any](ctx context.Context, s *Service, op string, fn func(context.Context, repository.Store) (T, error)) (T, error) {
	store := s.activeStore()
	result, err := runBounded(ctx, s.opTimeout, store, fn)
	if err == nil || !database.IsConnectivityError(err) {
		return result, err
	}

	s.log.Error("operation hit connectivity fault", "op", op, "backend", store.Kind(), "err", err)
	replacement, ferr := s.failover(ctx, store, err)
	if ferr != nil {
		return result, ferr
	}
	return runBounded(ctx, s.opTimeout, replacement, fn)
}

func runBounded[T any](ctx context.Context, timeout time.Duration, store repository.Store, fn func(context.Context, repository.Store) (T, error)) (T, error) {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(opCtx, store)
}

// GetUser returns the account row, creating a zero-balance one if absent.
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return withFailover(ctx, s, "getUser", func(ctx context.Context, st repository.Store) (*models.User, error) {
		return st.GetUser(ctx, userID)
	})
}

// UpdateTokens applies a signed token delta with a caller-supplied reason.
func (s *Service) UpdateTokens(ctx context.Context, userID string, amount int64, txType models.TxType) (*models.User, error) {
	if txType == "" {
		return nil, fmt.Errorf("transaction type required")
	}
	return withFailover(ctx, s, "updateTokens", func(ctx context.Context, st repository.Store) (*models.User, error) {
		return st.UpdateTokens(ctx, userID, amount, txType)
	})
}

// ClaimDaily grants the daily reward at most once per rolling 24h window.
func (s *Service) ClaimDaily(ctx context.Context, userID string) (*models.ClaimResult, error) {
	nowMs := s.now().UnixMilli()
	outcome, err := withFailover(ctx, s, "claimDaily", func(ctx context.Context, st repository.Store) (*repository.ClaimOutcome, error) {
		return st.ClaimDaily(ctx, userID, nowMs)
	})
	if err != nil {
		return nil, err
	}
	if !outcome.Claimed {
		return &models.ClaimResult{
			Success: false,
			Message: fmt.Sprintf("You can claim your daily tokens again in %s.", timeLeft(outcome.LastDaily, nowMs)),
		}, nil
	}
	return &models.ClaimResult{Success: true, Tokens: outcome.Tokens}, nil
}

// timeLeft formats the remaining cooldown as HH:MM, defaulting to a full
// window when the stored timestamp cannot produce a sensible remainder.
func timeLeft(lastDailyMs, nowMs int64) string {
	left := lastDailyMs + models.DailyCooldownMs - nowMs
	if lastDailyMs <= 0 || left < 0 || left > models.DailyCooldownMs {
		return "24:00"
	}
	hours := left / (1000 * 60 * 60)
	minutes := (left % (1000 * 60 * 60)) / (1000 * 60)
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}

// ConvertXPToTokens exchanges XP for tokens at 50 XP per token.
func (s *Service) ConvertXPToTokens(ctx context.Context, userID string, xpAmount int64) (*models.ConvertResult, error) {
	outcome, err := withFailover(ctx, s, "convertXpToTokens", func(ctx context.Context, st repository.Store) (*repository.ConvertOutcome, error) {
		return st.ConvertXP(ctx, userID, xpAmount)
	})
	if err != nil {
		return nil, err
	}
	switch outcome.Status {
	case repository.ConvertInsufficientXP:
		return &models.ConvertResult{Success: false, Message: "Not enough XP available."}, nil
	case repository.ConvertBelowMinimum:
		return &models.ConvertResult{Success: false, Message: "You must convert at least 50 XP."}, nil
	}
	return &models.ConvertResult{
		Success:      true,
		XPSpent:      outcome.XPSpent,
		TokensGained: outcome.TokensGained,
		NewTokens:    outcome.NewTokens,
	}, nil
}

// AddXP grants XP, recomputes the level, and on a level-up pays the bonus as
// its own transaction.
func (s *Service) AddXP(ctx context.Context, userID string, amount int64) (*models.AddXPResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("xp amount must be positive")
	}
	outcome, err := withFailover(ctx, s, "addXp", func(ctx context.Context, st repository.Store) (*repository.AddXPOutcome, error) {
		return st.AddXP(ctx, userID, amount)
	})
	if err != nil {
		return nil, err
	}
	if outcome.LevelUp {
		if _, err := s.UpdateTokens(ctx, userID, models.LevelUpBonus, models.TxLevelUpBonus); err != nil {
			return nil, fmt.Errorf("level up bonus: %w", err)
		}
	}
	return &models.AddXPResult{
		XPGained: amount,
		NewXP:    outcome.NewXP,
		LevelUp:  outcome.LevelUp,
		NewLevel: outcome.NewLevel,
	}, nil
}

// SpendTokensForGame charges the game cost for the given mode.
func (s *Service) SpendTokensForGame(ctx context.Context, userID string, difficulty models.Difficulty) (*models.SpendResult, error) {
	if !difficulty.Valid() {
		return &models.SpendResult{
			Success: false,
			Message: "Invalid game mode.\nPlease choose 'easy', 'medium' or 'hard' mode.",
		}, nil
	}
	cost := difficulty.TokenCost()
	outcome, err := withFailover(ctx, s, "spendTokensForGame", func(ctx context.Context, st repository.Store) (*repository.SpendOutcome, error) {
		return st.SpendTokens(ctx, userID, cost, difficulty.TxType())
	})
	if err != nil {
		return nil, err
	}
	if !outcome.Spent {
		return &models.SpendResult{
			Success:         false,
			TokensRemaining: outcome.Tokens,
			Message:         fmt.Sprintf("Not enough tokens.\nYou need %d Tokens, but you only have %d.", cost, outcome.Tokens),
		}, nil
	}
	return &models.SpendResult{Success: true, TokensCost: cost, TokensRemaining: outcome.Tokens}, nil
}

// TopUsers returns the leaderboard. Unknown sort keys default to xp and a
// non-positive limit falls back to the classic top three.
func (s *Service) TopUsers(ctx context.Context, sortBy string, limit int) ([]models.LeaderboardEntry, error) {
	key := models.NormalizeSortKey(sortBy)
	if limit <= 0 {
		limit = 3
	}
	return withFailover(ctx, s, "getTopUsers", func(ctx context.Context, st repository.Store) ([]models.LeaderboardEntry, error) {
		return st.TopUsers(ctx, key, limit)
	})
}

// Transactions returns the newest audit entries for one user.
func (s *Service) Transactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	return withFailover(ctx, s, "transactions", func(ctx context.Context, st repository.Store) ([]models.Transaction, error) {
		return st.Transactions(ctx, userID, limit)
	})
}

// TestConnection probes the active backend. It never returns an error;
// failures are reported in the result.
func (s *Service) TestConnection(ctx context.Context) *models.ConnStatus {
	store := s.activeStore()
	pingCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		return &models.ConnStatus{Success: false, Message: fmt.Sprintf("Connection test failed: %v", err)}
	}
	return &models.ConnStatus{Success: true, Message: store.Label()}
}

// ActiveBackend reports which backend is currently serving operations.
func (s *Service) ActiveBackend() database.Kind {
	return s.activeStore().Kind()
}
