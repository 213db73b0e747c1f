package telegram

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func TestHandleUpdate_IgnoresMessagesWithoutSender(t *testing.T) {
	// bot and ledger are nil; reaching either would panic.
	r := &Router{log: zap.NewNop()}
	ctx := context.Background()

	r.HandleUpdate(ctx, tgbotapi.Update{})

	cmd := tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     "/myhours",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 8}},
		Chat:     &tgbotapi.Chat{ID: 1, Type: "private"},
	}}
	r.HandleUpdate(ctx, cmd)

	video := tgbotapi.Update{Message: &tgbotapi.Message{
		Video: &tgbotapi.Video{FileUniqueID: "u1", Duration: 60},
		Chat:  &tgbotapi.Chat{ID: 1, Type: "group"},
	}}
	r.HandleUpdate(ctx, video)
}
