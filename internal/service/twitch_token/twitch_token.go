package twitch_token

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	twitch_client "twitch_stream_monitor/internal/client/twitch-client"
	"twitch_stream_monitor/internal/models"
)

const twitchTokenCheckBGSync = "twitchTokenCheck_BGSync"

// TwitchTokenService keeps the app access token in memory. The token is
// ephemeral state: it is re-acquired on startup and whenever validation
// reports it expired, never persisted.
type TwitchTokenService struct {
	twitchClient *twitch_client.TwitchClient

	mu    sync.RWMutex
	token string
}

func NewTwitchTokenService(twitchClient *twitch_client.TwitchClient) *TwitchTokenService {
	return &TwitchTokenService{
		twitchClient: twitchClient,
	}
}

func (tts *TwitchTokenService) GetCurrentToken(ctx context.Context) string {
	tts.mu.RLock()
	defer tts.mu.RUnlock()
	return tts.token
}

// Token returns the current token, acquiring one first if none is held yet.
func (tts *TwitchTokenService) Token(ctx context.Context) (string, error) {
	tts.mu.RLock()
	token := tts.token
	tts.mu.RUnlock()

	if token != "" {
		return token, nil
	}

	if err := tts.updateToken(ctx); err != nil {
		return "", errors.Wrap(err, "updateToken")
	}

	return tts.GetCurrentToken(ctx), nil
}

// Sync checks the held token against the validation endpoint and re-acquires
// it when the check reports 401. Called on a 401 from any API request and
// periodically by SyncBg.
func (tts *TwitchTokenService) Sync(ctx context.Context) error {
	tts.mu.RLock()
	token := tts.token
	tts.mu.RUnlock()

	if token == "" {
		return errors.Wrap(tts.updateToken(ctx), "updateToken")
	}

	_, err := tts.twitchClient.TwitchOAuthValidateToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			logrus.Info("twitch token expired or invalid, acquiring a new one")
			return errors.Wrap(tts.updateToken(ctx), "updateToken")
		}

		return errors.Wrap(err, "TwitchOAuthValidateToken")
	}

	return nil
}

func (tts *TwitchTokenService) updateToken(ctx context.Context) error {
	tokenInfo, err := tts.twitchClient.TwitchOAuthGetToken(ctx)
	if err != nil {
		return errors.Wrap(err, "TwitchOAuthGetToken")
	}

	if tokenInfo == nil {
		return errors.Wrap(errors.New("empty client resp"), "TwitchOAuthGetToken")
	}

	tts.mu.Lock()
	tts.token = tokenInfo.AccessToken
	tts.mu.Unlock()

	return nil
}

// SyncBg revalidates the token on an interval so long idle stretches between
// poll cycles do not start with a dead token.
func (tts *TwitchTokenService) SyncBg(ctx context.Context, updateInterval time.Duration) {
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Infof("stoping bg %s process", twitchTokenCheckBGSync)
			return
		case <-ticker.C:
			logrus.Debugf("started bg %s process", twitchTokenCheckBGSync)
			err := tts.Sync(ctx)
			if err != nil {
				logrus.Infof("could not check twitch token: %v", err)
				continue
			}
			logrus.Debug("twitch token check was complited")
		}
	}
}
