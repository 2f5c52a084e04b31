package telegram_updates_check

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	telegram_client "twitch_stream_monitor/internal/client/telegram-client"
	"twitch_stream_monitor/internal/config"
)

const (
	telegramUpdatesCheckBGSync = "telegramUpdatesCheck_BGSync"

	ignoreCommand = "/ignore"

	somethingWrong = "Something went wrong, please try again later"
)

// TelegramUpdatesCheckService consumes incoming bot commands. The only
// supported command is /ignore <channel>, which adds a Twitch channel to the
// ignored list; the change is picked up at the next poll cycle.
type TelegramUpdatesCheckService struct {
	telegramClient *telegram_client.TelegramClient
	configService  *config.Service
}

func NewTelegramUpdatesCheckService(
	telegramClient *telegram_client.TelegramClient,
	configService *config.Service,
) *TelegramUpdatesCheckService {
	return &TelegramUpdatesCheckService{
		telegramClient: telegramClient,
		configService:  configService,
	}
}

// SyncBg reads the update stream until the context is cancelled.
func (tmcs *TelegramUpdatesCheckService) SyncBg(ctx context.Context) {
	logrus.Infof("authorized on account %s", tmcs.telegramClient.BotUserName())

	updates := tmcs.telegramClient.UpdatesChan()

	go func() {
		<-ctx.Done()
		tmcs.telegramClient.StopReceivingUpdates()
	}()

	for updateInfo := range updates {
		if updateInfo.Message == nil {
			continue
		}

		logrus.Debugf("[%s] %s", updateInfo.Message.From.UserName, updateInfo.Message.Text)

		switch {
		case strings.HasPrefix(updateInfo.Message.Text, ignoreCommand):
			tmcs.ignoreChannel(ctx, updateInfo)
		}
	}

	logrus.Infof("stoping bg %s process", telegramUpdatesCheckBGSync)
}

func (tmcs *TelegramUpdatesCheckService) ignoreChannel(ctx context.Context, updateInfo tgbotapi.Update) {
	chatID := updateInfo.Message.Chat.ID
	messageID := updateInfo.Message.MessageID

	channel := strings.TrimSpace(strings.TrimPrefix(updateInfo.Message.Text, ignoreCommand))
	if channel == "" || strings.ContainsAny(channel, " \t") {
		tmcs.reply(ctx, chatID, messageID, fmt.Sprintf("Usage: %s <channel>", ignoreCommand))
		return
	}

	added, err := tmcs.configService.AddIgnoredChannel(channel)
	if err != nil {
		logrus.Errorf("could not persist ignored channel %q: %v", channel, err)
		tmcs.reply(ctx, chatID, messageID, somethingWrong)
		return
	}

	if !added {
		tmcs.reply(ctx, chatID, messageID, fmt.Sprintf("Channel %q is already in the ignored list", channel))
		return
	}

	logrus.Infof("channel %q added to ignored list via command by %s", channel, updateInfo.Message.From.UserName)
	tmcs.reply(ctx, chatID, messageID, fmt.Sprintf("Added %q to the ignored channels list", channel))
}

func (tmcs *TelegramUpdatesCheckService) reply(ctx context.Context, chatID int64, messageID int, text string) {
	if err := tmcs.telegramClient.ReplyToMessage(ctx, chatID, messageID, text); err != nil {
		logrus.Errorf("could not reply to chat %d: %v", chatID, err)
	}
}
