package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/TGEconomyBot/internal/config"
	"github.com/digkill/TGEconomyBot/internal/ledger"
	"github.com/digkill/TGEconomyBot/internal/models"
	"github.com/digkill/TGEconomyBot/internal/session"
)

// Bot is a thin chat gateway over the ledger. It holds no economy logic of
// its own; every balance decision happens in the ledger service.
type Bot struct {
	cfg      config.Config
	api      *tgbotapi.BotAPI
	log      *slog.Logger
	economy  *ledger.Service
	sessions *session.Manager
}

func NewBot(cfg config.Config, api *tgbotapi.BotAPI, log *slog.Logger, economy *ledger.Service, sessions *session.Manager) *Bot {
	return &Bot{
		cfg:      cfg,
		api:      api,
		log:      log,
		economy:  economy,
		sessions: sessions,
	}
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram bot started")

	for {
		select {
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			}
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := strconv.FormatInt(msg.From.ID, 10)

	if !msg.IsCommand() {
		// Passive XP for plain chat activity.
		if strings.TrimSpace(msg.Text) == "" {
			return
		}
		result, err := b.economy.AddXP(ctx, userID, b.cfg.XPPerMessage)
		if err != nil {
			b.log.Error("award message xp", "user", userID, "err", err)
			return
		}
		if result.LevelUp {
			b.sendText(msg.Chat.ID, fmt.Sprintf("🎊 Level up! You're now level %d! [+%d tokens bonus]", result.NewLevel, models.LevelUpBonus))
		}
		return
	}

	switch msg.Command() {
	case "start", "help":
		b.sendText(msg.Chat.ID,
			"Economy commands:\n"+
				"/balance - Show your tokens, XP and level\n"+
				"/daily - Claim your daily tokens\n"+
				"/convert <xp> - Convert XP into tokens (50 XP = 1 token)\n"+
				"/top [xp|tokens|level] - Show the leaderboard\n"+
				"/mode <easy|medium|hard> - Select game difficulty\n"+
				"/game <number> - Guess the number for XP")
	case "balance":
		b.handleBalance(ctx, msg, userID)
	case "daily":
		b.handleDaily(ctx, msg, userID)
	case "convert":
		b.handleConvert(ctx, msg, userID)
	case "top":
		b.handleTop(ctx, msg)
	case "mode":
		b.handleMode(msg)
	case "game":
		b.handleGame(ctx, msg, userID)
	default:
		b.sendText(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleBalance(ctx context.Context, msg *tgbotapi.Message, userID string) {
	user, err := b.economy.GetUser(ctx, userID)
	if err != nil {
		b.fail(msg.Chat.ID, "get user", err)
		return
	}
	b.sendText(msg.Chat.ID, fmt.Sprintf("You have %d tokens and %d XP (Level %d).", user.Tokens, user.XP, user.Level))
}

func (b *Bot) handleDaily(ctx context.Context, msg *tgbotapi.Message, userID string) {
	result, err := b.economy.ClaimDaily(ctx, userID)
	if err != nil {
		b.fail(msg.Chat.ID, "claim daily", err)
		return
	}
	if !result.Success {
		b.sendText(msg.Chat.ID, result.Message)
		return
	}
	b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Daily tokens claimed! You now have %d tokens.", result.Tokens))
}

func (b *Bot) handleConvert(ctx context.Context, msg *tgbotapi.Message, userID string) {
	amount, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil || amount <= 0 {
		b.sendText(msg.Chat.ID, "Usage: /convert <xp>, e.g. /convert 150")
		return
	}
	result, err := b.economy.ConvertXPToTokens(ctx, userID, amount)
	if err != nil {
		b.fail(msg.Chat.ID, "convert xp", err)
		return
	}
	if !result.Success {
		b.sendText(msg.Chat.ID, result.Message)
		return
	}
	b.sendText(msg.Chat.ID, fmt.Sprintf("✅ You've converted %d XP into %d tokens. You now have %d tokens.", result.XPSpent, result.TokensGained, result.NewTokens))
}

func (b *Bot) handleTop(ctx context.Context, msg *tgbotapi.Message) {
	sortBy := strings.TrimSpace(msg.CommandArguments())
	entries, err := b.economy.TopUsers(ctx, sortBy, 5)
	if err != nil {
		b.fail(msg.Chat.ID, "leaderboard", err)
		return
	}
	if len(entries) == 0 {
		b.sendText(msg.Chat.ID, "No users on the leaderboard yet.")
		return
	}
	var sb strings.Builder
	sb.WriteString("🏆 Leaderboard:\n")
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %s — %d XP, %d tokens, level %d\n", i+1, e.UserID, e.XP, e.Tokens, e.Level)
	}
	b.sendText(msg.Chat.ID, sb.String())
}

func (b *Bot) handleMode(msg *tgbotapi.Message) {
	mode := models.Difficulty(strings.ToLower(strings.TrimSpace(msg.CommandArguments())))
	if !mode.Valid() {
		b.sendText(msg.Chat.ID, "Usage: /mode <easy|medium|hard>")
		return
	}
	b.sessions.SetDifficulty(msg.Chat.ID, mode)
	switch mode {
	case models.DifficultyEasy:
		b.sendText(msg.Chat.ID, "Easy mode selected 😊")
	case models.DifficultyMedium:
		b.sendText(msg.Chat.ID, "Medium mode selected 😎")
	case models.DifficultyHard:
		b.sendText(msg.Chat.ID, "Hard mode selected 😈")
	}
}

func (b *Bot) handleGame(ctx context.Context, msg *tgbotapi.Message, userID string) {
	sess := b.sessions.Get(msg.Chat.ID)
	difficulty := sess.Difficulty
	if difficulty == "" {
		b.sendText(msg.Chat.ID, "❌ No mode selected. Use the /mode command to select a mode.")
		return
	}

	guess, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil {
		b.sendText(msg.Chat.ID, "❌ Please enter a number!")
		return
	}

	spend, err := b.economy.SpendTokensForGame(ctx, userID, difficulty)
	if err != nil {
		b.fail(msg.Chat.ID, "spend tokens", err)
		return
	}
	if !spend.Success {
		b.sendText(msg.Chat.ID, fmt.Sprintf("%s Playing %s mode costs %d tokens.", spend.Message, difficulty, difficulty.TokenCost()))
		return
	}

	drawn := rand.Intn(difficulty.GuessRange()) + 1
	if guess != drawn {
		b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Wrong! The number was %d. Try again!\n\nThis %s game cost you %d tokens. You have %d tokens left.",
			drawn, difficulty, spend.TokensCost, spend.TokensRemaining))
		return
	}

	xpResult, err := b.economy.AddXP(ctx, userID, difficulty.WinXP())
	if err != nil {
		b.fail(msg.Chat.ID, "award game xp", err)
		return
	}
	reply := fmt.Sprintf("🎉 You won! The number was %d! [+%d XP]", drawn, difficulty.WinXP())
	if xpResult.LevelUp {
		reply += fmt.Sprintf("\n🎊 Level up! You're now level %d! [+%d tokens bonus]", xpResult.NewLevel, models.LevelUpBonus)
	}
	reply += fmt.Sprintf("\n\nThis %s game cost you %d tokens. You have %d tokens left.", difficulty, spend.TokensCost, spend.TokensRemaining)
	b.sendText(msg.Chat.ID, reply)
}

// fail logs the internal error and shows the user a generic retry message.
func (b *Bot) fail(chatID int64, op string, err error) {
	b.log.Error(op, "err", err)
	b.sendText(chatID, "Something went wrong, please try again.")
}

func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat", chatID, "err", err)
	}
}
