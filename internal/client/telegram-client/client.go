package telegram_client

import (
	"context"
	"strings"

	tgBotApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"twitch_stream_monitor/internal/models"
	formater "twitch_stream_monitor/internal/utils/formater"
)

type TelegramClient struct {
	bot *tgBotApi.BotAPI
}

func NewTelegramClient(token string) (*TelegramClient, error) {
	if token == "" {
		return nil, errors.New("telegram bot token not configured")
	}

	bot, err := tgBotApi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "NewBotAPI")
	}

	return &TelegramClient{
		bot: bot,
	}, nil
}

func (tc *TelegramClient) BotUserName() string {
	return tc.bot.Self.UserName
}

// SendMessageUnit transmits one pre-built notification to the chat.
// A missing chat and a kicked/unauthorized bot get distinct sentinels so the
// dispatcher can report them; neither is retried.
func (tc *TelegramClient) SendMessageUnit(ctx context.Context, chatID int64, unit formater.MessageUnit) error {
	msg := tgBotApi.NewMessage(chatID, unit.Text())
	msg.ParseMode = tgBotApi.ModeMarkdown
	msg.DisableWebPagePreview = true

	_, err := tc.bot.Send(msg)

	return classifySendError(err)
}

// ReplyToMessage answers an incoming command in its chat.
func (tc *TelegramClient) ReplyToMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	msg := tgBotApi.NewMessage(chatID, text)
	msg.ReplyToMessageID = messageID

	_, err := tc.bot.Send(msg)

	return classifySendError(err)
}

// UpdatesChan opens the long-poll update stream for incoming commands.
func (tc *TelegramClient) UpdatesChan() tgBotApi.UpdatesChannel {
	reader := tgBotApi.NewUpdate(0)
	reader.Timeout = 60

	return tc.bot.GetUpdatesChan(reader)
}

func (tc *TelegramClient) StopReceivingUpdates() {
	tc.bot.StopReceivingUpdates()
}

func classifySendError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *tgBotApi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 403 {
			return errors.Wrap(models.ErrForbidden, apiErr.Message)
		}
		if strings.Contains(strings.ToLower(apiErr.Message), "chat not found") {
			return errors.Wrap(models.ErrChatNotFound, apiErr.Message)
		}
	}

	return err
}
