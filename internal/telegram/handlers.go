package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/bekzodm/videoquota-bot/internal/domain"
	"github.com/bekzodm/videoquota-bot/internal/ledger"
)

// --- Video submissions ---

func (r *Router) handleVideo(ctx context.Context, msg *tgbotapi.Message) {
	video := msg.Video
	user := msg.From
	if video == nil || user == nil {
		return
	}

	name := displayName(user)
	now := time.Now()

	res := r.led.RegisterSubmission(ctx, &domain.SubmissionRecord{
		UniqueID:        video.FileUniqueID,
		FileID:          video.FileID,
		UserID:          user.ID,
		DisplayName:     name,
		DurationSeconds: int64(video.Duration),
		FirstSeenAt:     now,
	})
	if !res.Accepted {
		r.sendText(msg.Chat.ID, fmt.Sprintf(
			"⚠️ This video has already been submitted!\n\n"+
				"Originally submitted by @%s.\n"+
				"Duplicate videos are not counted.", res.Original.DisplayName))
		r.deleteMessage(msg)
		r.log.Info("duplicate video rejected",
			zap.String("unique_id", video.FileUniqueID),
			zap.Int64("user", user.ID),
			zap.Int64("original_user", res.Original.UserID),
		)
		return
	}

	out := r.led.ApplySubmission(ctx, user.ID, name, int64(video.Duration), now)

	r.sendText(msg.Chat.ID, submissionReply(name, int64(video.Duration), out))

	// A private submission is announced in the group so the work still counts
	// publicly.
	if msg.Chat.IsPrivate() {
		if groupID, ok := r.led.BroadcastChat(); ok {
			r.sendText(groupID, groupAnnouncement(name, int64(video.Duration), out))
		}
	}

	r.deleteMessage(msg)
}

func submissionReply(name string, duration int64, out ledger.SubmissionOutcome) string {
	var b strings.Builder
	if out.RemainingToday > 0 {
		b.WriteString("📹 Video received!\n\n")
		fmt.Fprintf(&b, "🎬 This video: %s\n", domain.FormatDuration(duration))
		fmt.Fprintf(&b, "📊 Today's total: %s\n", domain.FormatDuration(out.TodaySeconds))
		fmt.Fprintf(&b, "⏳ Still needed today: %s\n", domain.FormatDuration(out.RemainingToday))
		if out.DebtSeconds > 0 {
			fmt.Fprintf(&b, "⚠️ Still owed: %s\n", domain.FormatDuration(out.DebtSeconds))
		}
		fmt.Fprintf(&b, "📈 All-time hours: %s\n", domain.FormatDuration(out.LifetimeSeconds))
		fmt.Fprintf(&b, "🔥 Streak: %s\n", streakSuffix(out.StreakDays))
		b.WriteString("💡 Keep sending videos before midnight!\n🗑️ Video deleted for privacy.")
		return b.String()
	}

	b.WriteString("✅ All done for today!\n\n")
	fmt.Fprintf(&b, "🎬 This video: %s\n", domain.FormatDuration(duration))
	fmt.Fprintf(&b, "📊 Today's total: %s\n", domain.FormatDuration(out.TodaySeconds))
	if out.DebtSeconds > 0 {
		fmt.Fprintf(&b, "⚠️ Still owed: %s\n", domain.FormatDuration(out.DebtSeconds))
	} else {
		b.WriteString("✅ Nothing owed!\n")
	}
	fmt.Fprintf(&b, "📈 All-time hours: %s\n", domain.FormatDuration(out.LifetimeSeconds))
	fmt.Fprintf(&b, "🔥 Streak: %s\n", streakSuffix(out.StreakDays))
	b.WriteString("🎉 Great work! Today's 2h done!\n🗑️ Video deleted for privacy.")
	return b.String()
}

func groupAnnouncement(name string, duration int64, out ledger.SubmissionOutcome) string {
	if out.RemainingToday > 0 {
		return fmt.Sprintf(
			"📹 @%s submitted a video!\n\n🎬 This video: %s\n📊 Today's total: %s\n⏳ Still needed today: %s\n🔥 Streak: %s",
			name, domain.FormatDuration(duration), domain.FormatDuration(out.TodaySeconds),
			domain.FormatDuration(out.RemainingToday), streakSuffix(out.StreakDays))
	}
	return fmt.Sprintf(
		"✅ @%s completed today's 2 hours!\n\n📊 Today's total: %s\n📈 All-time hours: %s\n🔥 Streak: %s",
		name, domain.FormatDuration(out.TodaySeconds),
		domain.FormatDuration(out.LifetimeSeconds), streakSuffix(out.StreakDays))
}

// deleteMessage removes the inbound video for privacy. Deletion can fail on
// missing permissions; that only costs privacy, not accounting.
func (r *Router) deleteMessage(msg *tgbotapi.Message) {
	if _, err := r.bot.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		r.log.Warn("delete message failed", zap.Int64("chat", msg.Chat.ID), zap.Error(err))
	}
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.IsPrivate() {
		r.led.MarkStartedChat(ctx, msg.From.ID, displayName(msg.From), time.Now())
		r.sendMarkdown(msg.Chat.ID, startPrivateText)
		return
	}
	r.sendMarkdown(msg.Chat.ID, startGroupText)
}

func (r *Router) handleMyHours(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.Chat.IsPrivate() {
		r.sendText(msg.Chat.ID, privacyRedirectText)
		return
	}
	stats, ok := r.led.Stats(msg.From.ID, time.Now())
	if !ok || (stats.LifetimeSeconds == 0 && stats.DebtSeconds == 0) {
		r.sendText(msg.Chat.ID, "📹 You haven't submitted any videos yet!")
		return
	}
	text := fmt.Sprintf("📊 Your video hours\n\n✅ Total completed: %s\n", domain.FormatDuration(stats.LifetimeSeconds))
	if stats.DebtSeconds > 0 {
		text += fmt.Sprintf("⚠️ Time still owed: %s\n\n💡 Complete this deficit to stay on track!", domain.FormatDuration(stats.DebtSeconds))
	} else {
		text += "\n🎉 No deficit! You're all caught up!"
	}
	r.sendText(msg.Chat.ID, text)
}

func (r *Router) handleMyDeficit(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.Chat.IsPrivate() {
		r.sendText(msg.Chat.ID, privacyRedirectText)
		return
	}
	stats, ok := r.led.Stats(msg.From.ID, time.Now())
	if !ok || stats.DebtSeconds == 0 {
		r.sendText(msg.Chat.ID, "✅ You have no deficit! Great job! 🎉")
		return
	}
	r.sendText(msg.Chat.ID, fmt.Sprintf(
		"📊 Your current deficit: %s\nYou need to make up this time in tomorrow's videos.",
		domain.FormatDuration(stats.DebtSeconds)))
}

func (r *Router) handleMyStreak(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.Chat.IsPrivate() {
		r.sendText(msg.Chat.ID, privacyRedirectText)
		return
	}
	stats, ok := r.led.Stats(msg.From.ID, time.Now())
	if !ok || stats.StreakDays == 0 {
		r.sendText(msg.Chat.ID, "📹 You don't have a streak yet!\nSubmit a video today to start your streak!")
		return
	}
	flames := strings.Repeat("🔥", int(min(stats.StreakDays, 10)))
	r.sendText(msg.Chat.ID, fmt.Sprintf(
		"🔥 Your current streak: %s! %s\nKeep submitting videos daily to maintain your streak!",
		streakSuffix(stats.StreakDays), flames))
}

// --- Leaderboards ---

var periodTitles = map[ledger.Period]string{
	ledger.PeriodDay:   "Today",
	ledger.PeriodWeek:  "This Week",
	ledger.PeriodMonth: "This Month",
	ledger.PeriodAll:   "All-Time",
}

var medals = []string{"🥇", "🥈", "🥉"}

func (r *Router) handleLeaderboard(ctx context.Context, msg *tgbotapi.Message, period ledger.Period) {
	entries := r.led.Leaderboard(period, time.Now())
	if len(entries) == 0 {
		r.sendText(msg.Chat.ID, "📊 No videos submitted for this period yet!")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 %s Rankings 🏆\n\n", periodTitles[period])
	for i, e := range entries {
		if i >= 20 {
			break
		}
		prefix := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			prefix = medals[i]
		}
		fmt.Fprintf(&b, "%s #%d @%s\n    ⏱️ %s", prefix, e.SequenceID, e.DisplayName, domain.FormatDuration(e.Seconds))
		if e.StreakDays > 0 {
			fmt.Fprintf(&b, " | 🔥 %s", streakSuffix(e.StreakDays))
		}
		b.WriteString("\n\n")
	}
	r.sendText(msg.Chat.ID, b.String())
}

// --- Rosters ---

func (r *Router) handleSubscribers(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.Chat.IsPrivate() && !r.isAdmin(msg.Chat.ID, msg.From.ID) {
		r.sendText(msg.Chat.ID, "❌ This command is only available to group administrators.")
		return
	}

	subs := r.led.Subscribers()
	if len(subs) == 0 {
		r.sendText(msg.Chat.ID, "📋 No subscribers yet!")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "👥 Bot subscribers: %d\n\n", len(subs))
	for _, s := range subs {
		fmt.Fprintf(&b, "#%d @%s\n", s.SequenceID, s.DisplayName)
	}
	r.sendText(msg.Chat.ID, b.String())
}

func (r *Router) handleAllDeficits(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.IsPrivate() {
		r.sendText(msg.Chat.ID, "⚠️ This command only works in the group!")
		return
	}
	if !r.isAdmin(msg.Chat.ID, msg.From.ID) {
		r.sendText(msg.Chat.ID, "❌ This command is only available to group administrators.")
		return
	}

	debts := r.led.Debts()
	if len(debts) == 0 {
		r.sendText(msg.Chat.ID, "✅ No users have deficits!")
		return
	}
	var b strings.Builder
	b.WriteString("📊 All user deficits:\n\n")
	for _, d := range debts {
		fmt.Fprintf(&b, "• @%s: %s\n", d.DisplayName, domain.FormatDuration(d.DebtSeconds))
	}
	r.sendText(msg.Chat.ID, b.String())
}

// --- Administrative debt adjustment ---

// handleAdjustDebt serves /addtime (sign=1) and /removetime (sign=-1).
func (r *Router) handleAdjustDebt(ctx context.Context, msg *tgbotapi.Message, sign int64) {
	verb := "add"
	if sign < 0 {
		verb = "remove"
	}

	if msg.Chat.IsPrivate() {
		r.sendText(msg.Chat.ID, "⚠️ This command only works in the group!")
		return
	}
	if !r.isAdmin(msg.Chat.ID, msg.From.ID) {
		r.sendText(msg.Chat.ID, "❌ This command is only available to group administrators.")
		return
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		r.sendText(msg.Chat.ID, fmt.Sprintf("❌ Usage: /%stime <user_id> <minutes>", verb))
		return
	}
	targetID, err1 := strconv.ParseInt(args[0], 10, 64)
	minutes, err2 := strconv.ParseInt(args[1], 10, 64)
	if err1 != nil || err2 != nil {
		r.sendText(msg.Chat.ID, "❌ Invalid input. Use numbers only.")
		return
	}
	if minutes <= 0 {
		r.sendText(msg.Chat.ID, "❌ Minutes must be positive!")
		return
	}

	newDebt, err := r.led.AdjustDebt(ctx, targetID, sign*minutes*60)
	if errors.Is(err, domain.ErrNotFound) {
		r.sendText(msg.Chat.ID, fmt.Sprintf("❌ User ID %d not found in system.", targetID))
		return
	}
	if err != nil {
		r.log.Error("adjust debt failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "❌ Could not update the deficit.")
		return
	}

	debtText := domain.FormatDuration(newDebt)
	if newDebt == 0 {
		debtText = "none"
	}
	if sign > 0 {
		r.sendText(msg.Chat.ID, fmt.Sprintf("✅ Added %d minutes to the deficit.\nNew total deficit: %s", minutes, debtText))
	} else {
		r.sendText(msg.Chat.ID, fmt.Sprintf("✅ Removed %d minutes from the deficit.\nNew total deficit: %s", minutes, debtText))
	}
}

// --- Resets ---

func (r *Router) handleResetMe(ctx context.Context, msg *tgbotapi.Message) {
	err := r.led.ResetAccount(ctx, msg.From.ID)
	if errors.Is(err, domain.ErrNotFound) {
		r.sendText(msg.Chat.ID, "ℹ️ You don't have any record to reset.")
		return
	}
	if err != nil {
		r.sendText(msg.Chat.ID, "❌ Could not reset your record.")
		return
	}
	r.sendText(msg.Chat.ID, "✅ Your record has been reset!")
}

func (r *Router) handleResetUser(ctx context.Context, msg *tgbotapi.Message) {
	if !r.isAdmin(msg.Chat.ID, msg.From.ID) {
		r.sendText(msg.Chat.ID, "❌ This command is only available to group administrators.")
		return
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 1 {
		r.sendText(msg.Chat.ID, "❌ Please provide a user ID.\nUsage: /resetuser <user_id>")
		return
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		r.sendText(msg.Chat.ID, "❌ Invalid user ID. Please provide a numeric user ID.")
		return
	}
	switch err := r.led.ResetAccount(ctx, targetID); {
	case errors.Is(err, domain.ErrNotFound):
		r.sendText(msg.Chat.ID, fmt.Sprintf("ℹ️ User ID %d has no record.", targetID))
	case err != nil:
		r.sendText(msg.Chat.ID, "❌ Could not reset the record.")
	default:
		r.sendText(msg.Chat.ID, fmt.Sprintf("✅ Record reset for user ID %d", targetID))
	}
}

// --- Timezones ---

func (r *Router) handleSetTimezone(ctx context.Context, msg *tgbotapi.Message) {
	isPrivate := msg.Chat.IsPrivate()
	if !isPrivate && !r.isAdmin(msg.Chat.ID, msg.From.ID) {
		r.sendText(msg.Chat.ID, "❌ Only admins can set the group timezone.")
		return
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) < 1 {
		current := r.tz.Group()
		if isPrivate {
			if tz, ok := r.tz.UserOverride(msg.From.ID); ok {
				current = tz
			}
		}
		r.sendText(msg.Chat.ID, timezoneHelp(current))
		return
	}

	key := strings.ToLower(args[0])
	tz, ok := availableTimezones[key]
	if !ok {
		r.sendText(msg.Chat.ID, fmt.Sprintf(
			"❌ Unknown timezone: %s\nUse /settimezone without arguments to see available timezones.", key))
		return
	}

	var (
		outcome ledger.TimezoneOutcome
		err     error
		scope   string
	)
	if isPrivate {
		outcome, err = r.tz.SetUser(ctx, msg.From.ID, tz)
		scope = "Your"
	} else {
		outcome, err = r.tz.SetGroup(ctx, tz)
		scope = "The group"
	}
	if err != nil {
		r.log.Error("set timezone failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "❌ Could not save the timezone.")
		return
	}
	if outcome.Locked {
		r.sendText(msg.Chat.ID, fmt.Sprintf(
			"🔒 %s timezone is already set and cannot be changed!\n\n🌍 Timezone: %s\nTimezone can only be set once for consistency.",
			scope, outcome.Timezone))
		return
	}
	r.sendText(msg.Chat.ID, fmt.Sprintf(
		"✅ Timezone set successfully!\n\n🌍 %s timezone is %s\n\n⚠️ Note: this timezone is now permanent and cannot be changed.",
		scope, outcome.Timezone))
}

func timezoneHelp(current string) string {
	var b strings.Builder
	b.WriteString("🌍 Available timezones:\n\n")
	b.WriteString("• uzbekistan - Tashkent (UTC+5)\n")
	b.WriteString("• korea / south_korea - Seoul (UTC+9)\n")
	b.WriteString("• usa_east - New York\n")
	b.WriteString("• usa_central - Chicago\n")
	b.WriteString("• usa_mountain - Denver\n")
	b.WriteString("• usa_pacific - Los Angeles\n")
	b.WriteString("• usa_alaska - Anchorage\n")
	b.WriteString("• usa_hawaii - Honolulu\n\n")
	fmt.Fprintf(&b, "Your current timezone: %s\n\n", current)
	b.WriteString("Usage: /settimezone <timezone>\nExample: /settimezone korea")
	return b.String()
}

// --- Broadcast target ---

func (r *Router) handleEnableReminders(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.IsPrivate() {
		r.sendText(msg.Chat.ID, "⚠️ This command only works in the group!")
		return
	}
	if !r.isAdmin(msg.Chat.ID, msg.From.ID) {
		r.sendText(msg.Chat.ID, "❌ This command is only available to group administrators.")
		return
	}
	if err := r.led.SetBroadcastChat(ctx, msg.Chat.ID); err != nil {
		r.log.Error("set broadcast chat failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "❌ Could not enable reminders.")
		return
	}
	r.sendText(msg.Chat.ID,
		"✅ Daily reminders enabled for this chat!\n\n"+
			"📅 Daily schedule ("+r.tz.Group()+"):\n"+
			"• 08:00 - Motivation 💪\n"+
			"• 10:30 - Joke 😄\n"+
			"• 12:00 - Motivation ⭐\n"+
			"• 14:45 - Joke 😂\n"+
			"• 15:30 - Motivation 🔥\n"+
			"• 16:00 - Video reminder ⏰\n"+
			"• 17:00 - Second reminder ⏰\n"+
			"• 19:20 - Joke 😆\n"+
			"• 21:00 - Motivation 🌟\n"+
			"• 00:00 - Daily summary 🌙")
	r.log.Info("reminders enabled", zap.Int64("chat", msg.Chat.ID))
}
