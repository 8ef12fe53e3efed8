package models

import "time"

// Economy constants shared by the ledger and the gateway.
const (
	DailyReward     int64 = 3
	DailyCooldownMs int64 = 24 * 60 * 60 * 1000
	XPPerToken      int64 = 50
	LevelUpBonus    int64 = 5
)

// TxType categorizes a transaction record. The vocabulary is closed except
// for caller-supplied reasons on generic token updates.
type TxType string

const (
	TxDaily           TxType = "daily"
	TxXPConvert       TxType = "xp_convert"
	TxLevelUpBonus    TxType = "level_up_bonus"
	TxGameEasy        TxType = "game_easy"
	TxGameMedium      TxType = "game_medium"
	TxGameHard        TxType = "game_hard"
	TxLegacyMigration TxType = "legacy_migration"
)

// Difficulty selects the game mode and its economy parameters.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// TokenCost returns the number of tokens a game in this mode costs.
// Easier modes cost more since they are easier to win.
func (d Difficulty) TokenCost() int64 {
	switch d {
	case DifficultyEasy:
		return 3
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 1
	}
	return 0
}

// WinXP returns the XP awarded for winning a game in this mode.
func (d Difficulty) WinXP() int64 {
	switch d {
	case DifficultyEasy:
		return 10
	case DifficultyMedium:
		return 25
	case DifficultyHard:
		return 50
	}
	return 0
}

// GuessRange returns the upper bound of the guessing range for this mode.
func (d Difficulty) GuessRange() int {
	switch d {
	case DifficultyEasy:
		return 12
	case DifficultyMedium:
		return 40
	case DifficultyHard:
		return 88
	}
	return 0
}

// TxType returns the transaction category used for a game spend in this mode.
func (d Difficulty) TxType() TxType {
	return TxType("game_" + string(d))
}

// SortKey identifies a leaderboard ordering column.
type SortKey string

const (
	SortXP     SortKey = "xp"
	SortTokens SortKey = "tokens"
	SortLevel  SortKey = "level"
)

// NormalizeSortKey maps any string onto a valid sort key, defaulting to xp.
func NormalizeSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortXP, SortTokens, SortLevel:
		return SortKey(s)
	}
	return SortXP
}

// User is one chat participant's account row.
type User struct {
	UserID    string
	Tokens    int64
	XP        int64
	LastDaily *int64 // epoch milliseconds of the last daily claim, nil if never
	Level     int
}

// Transaction is one append-only audit entry for a balance mutation.
type Transaction struct {
	ID        int64
	UserID    string
	Amount    int64
	Type      TxType
	Timestamp time.Time
}

// LeaderboardEntry is one row of a leaderboard query.
type LeaderboardEntry struct {
	UserID string `json:"userId"`
	Tokens int64  `json:"tokens"`
	XP     int64  `json:"xp"`
	Level  int    `json:"level"`
}

// ClaimResult reports the outcome of a daily claim.
type ClaimResult struct {
	Success bool   `json:"success"`
	Tokens  int64  `json:"tokens,omitempty"`
	Message string `json:"message,omitempty"`
}

// ConvertResult reports the outcome of an XP-to-tokens conversion.
type ConvertResult struct {
	Success      bool   `json:"success"`
	XPSpent      int64  `json:"xpSpent,omitempty"`
	TokensGained int64  `json:"tokensGained,omitempty"`
	NewTokens    int64  `json:"newTokens,omitempty"`
	Message      string `json:"message,omitempty"`
}

// AddXPResult reports an XP grant and any resulting level change.
type AddXPResult struct {
	XPGained int64 `json:"xpGained"`
	NewXP    int64 `json:"newXp"`
	LevelUp  bool  `json:"levelUp"`
	NewLevel int   `json:"newLevel"`
}

// SpendResult reports the outcome of spending tokens on a game.
type SpendResult struct {
	Success         bool   `json:"success"`
	TokensCost      int64  `json:"tokensCost,omitempty"`
	TokensRemaining int64  `json:"tokensRemaining"`
	Message         string `json:"message,omitempty"`
}

// ConnStatus describes the health of the active backend.
type ConnStatus struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
