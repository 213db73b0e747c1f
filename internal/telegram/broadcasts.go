package telegram

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/bekzodm/videoquota-bot/internal/domain"
	"github.com/bekzodm/videoquota-bot/internal/ledger"
)

// RunSettlement executes the daily settlement pass and carries out the
// directives it produces: group removals, private warnings and the midnight
// summary. One user's delivery failure never stops the rest.
func (r *Router) RunSettlement(ctx context.Context) {
	res := r.led.Settle(ctx, time.Now())

	groupID, haveGroup := r.led.BroadcastChat()

	for _, rem := range res.Removals {
		if !haveGroup {
			r.log.Warn("no broadcast chat set, skipping removal", zap.Int64("user", rem.UserID))
			continue
		}
		if _, err := r.bot.Request(tgbotapi.BanChatMemberConfig{
			ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: groupID, UserID: rem.UserID},
		}); err != nil {
			// Already removed externally or insufficient rights; log and move on.
			r.log.Error("remove user failed", zap.Int64("user", rem.UserID), zap.Error(err))
			continue
		}
		r.sendText(groupID, kickedText(rem.DisplayName))
		r.log.Info("user removed", zap.Int64("user", rem.UserID), zap.Int64("debt", rem.DebtSeconds))
	}

	for _, w := range res.Warnings {
		// Private delivery fails for users who never started the bot; fine.
		if _, err := r.bot.Send(tgbotapi.NewMessage(w.UserID, warningText(w.Tag))); err != nil {
			r.log.Warn("warning delivery failed", zap.Int64("user", w.UserID), zap.Error(err))
		}
	}

	if !haveGroup || len(res.Rankings) == 0 {
		return
	}
	r.sendText(groupID, midnightSummary(res))
}

func midnightSummary(res ledger.SettleResult) string {
	var b strings.Builder
	b.WriteString("🌙 Midnight Summary 🌙\n")
	fmt.Fprintf(&b, "📅 Date: %s\n\n", res.DayKey)

	b.WriteString("🏆 Today's best performers:\n")
	for i, rank := range res.Rankings {
		if i >= 5 {
			break
		}
		prefix := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			prefix = medals[i]
		}
		fmt.Fprintf(&b, "%s @%s: %s", prefix, rank.DisplayName, domain.FormatDuration(rank.TodaySeconds))
		if rank.StreakDays > 0 {
			fmt.Fprintf(&b, " | 🔥 %s", streakSuffix(rank.StreakDays))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n📊 New day requirements:\n")
	for _, rank := range res.Rankings {
		fmt.Fprintf(&b, "• @%s: %s needed", rank.DisplayName, domain.FormatDuration(rank.RequiredSeconds))
		if rank.DebtSeconds > 0 {
			fmt.Fprintf(&b, " (includes %s deficit)", domain.FormatDuration(rank.DebtSeconds))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n🔄 Clock has reset! New day begins now!")
	return b.String()
}

// SendReminder lists users without a submission today and what each owes.
func (r *Router) SendReminder(ctx context.Context) {
	groupID, ok := r.led.BroadcastChat()
	if !ok {
		r.log.Warn("no broadcast chat set for reminders")
		return
	}

	need := r.led.UsersNeedingToday(time.Now())
	if len(need) == 0 {
		r.log.Info("all users have submitted today, no reminder needed")
		return
	}

	var b strings.Builder
	b.WriteString("⏰ Daily Video Reminder ⏰\n\nThe following users need to submit their videos today:\n\n")
	for _, e := range need {
		fmt.Fprintf(&b, "• @%s: %.1f hours needed\n", e.DisplayName, float64(e.RequiredSeconds)/3600)
	}
	b.WriteString("\n📹 Don't forget to submit your video before midnight!")
	r.sendText(groupID, b.String())
}

// SendJoke nudges debtors with a random joke; silent when nobody owes time.
func (r *Router) SendJoke(ctx context.Context) {
	groupID, ok := r.led.BroadcastChat()
	if !ok {
		return
	}
	if len(r.led.Debts()) == 0 {
		r.log.Info("no users with deficits, skipping joke")
		return
	}
	joke := slackerJokes[rand.Intn(len(slackerJokes))]
	r.sendText(groupID, "😄 Daily Humor Break 😄\n\n"+joke)
}

// SendMotivation broadcasts a random motivational message.
func (r *Router) SendMotivation(ctx context.Context) {
	groupID, ok := r.led.BroadcastChat()
	if !ok {
		return
	}
	r.sendText(groupID, motivationalMessages[rand.Intn(len(motivationalMessages))])
}
