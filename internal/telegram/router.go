package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/bekzodm/videoquota-bot/internal/ledger"
)

// Router wires Telegram updates to handlers. All accounting decisions live
// in the ledger; this layer parses, checks admin capability against the chat
// platform, and formats.
type Router struct {
	bot *tgbotapi.BotAPI
	log *zap.Logger
	led *ledger.Ledger
	tz  *ledger.Timezones
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, led *ledger.Ledger, tz *ledger.Timezones) *Router {
	return &Router{bot: bot, log: log, led: led, tz: tz}
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil {
		return
	}
	// Channel posts and anonymous group admins carry no sender; every handler
	// attributes work to a user id, so there is nothing to do for them.
	if msg.From == nil {
		return
	}

	if msg.Video != nil {
		r.handleVideo(ctx, msg)
		return
	}

	switch msg.Command() {
	case "start":
		r.handleStart(ctx, msg)
	case "myhours":
		r.handleMyHours(ctx, msg)
	case "mydeficit":
		r.handleMyDeficit(ctx, msg)
	case "mystreak":
		r.handleMyStreak(ctx, msg)
	case "today":
		r.handleLeaderboard(ctx, msg, ledger.PeriodDay)
	case "week":
		r.handleLeaderboard(ctx, msg, ledger.PeriodWeek)
	case "month":
		r.handleLeaderboard(ctx, msg, ledger.PeriodMonth)
	case "alltime":
		r.handleLeaderboard(ctx, msg, ledger.PeriodAll)
	case "subscribers":
		r.handleSubscribers(ctx, msg)
	case "alldeficits":
		r.handleAllDeficits(ctx, msg)
	case "addtime":
		r.handleAdjustDebt(ctx, msg, 1)
	case "removetime":
		r.handleAdjustDebt(ctx, msg, -1)
	case "resetme":
		r.handleResetMe(ctx, msg)
	case "resetuser":
		r.handleResetUser(ctx, msg)
	case "settimezone":
		r.handleSetTimezone(ctx, msg)
	case "enablereminders":
		r.handleEnableReminders(ctx, msg)
	default:
		// Plain text and unknown commands are ignored.
	}
}

// sendText sends a plain text message to the given chat.
func (r *Router) sendText(chatID int64, text string) {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		r.log.Error("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

// sendMarkdown sends a Markdown-formatted message to the given chat.
func (r *Router) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Error("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

// isAdmin asks the chat platform whether the user is a group administrator.
// Admin-only events must pass this gate before reaching the ledger; the core
// never re-implements platform role semantics.
func (r *Router) isAdmin(chatID, userID int64) bool {
	member, err := r.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		r.log.Error("admin check failed", zap.Int64("chat", chatID), zap.Int64("user", userID), zap.Error(err))
		return false
	}
	return member.Status == "creator" || member.Status == "administrator"
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "unknown"
}
