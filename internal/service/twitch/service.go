package twitch_service

import (
	"context"

	"github.com/pkg/errors"

	twitch_client "twitch_stream_monitor/internal/client/twitch-client"
	"twitch_stream_monitor/internal/models"
	twitch_token "twitch_stream_monitor/internal/service/twitch_token"
)

type TwitchService struct {
	twitchClient *twitch_client.TwitchClient
	tokenService *twitch_token.TwitchTokenService
}

func NewService(twitchClient *twitch_client.TwitchClient, tokenService *twitch_token.TwitchTokenService) *TwitchService {
	return &TwitchService{
		twitchClient: twitchClient,
		tokenService: tokenService,
	}
}

// withAuthRetry runs an authenticated call. On a 401 the token is
// re-validated (and re-acquired when expired), then the call is retried
// exactly once; a second failure is surfaced to the caller.
func (tws *TwitchService) withAuthRetry(ctx context.Context, do func(token string) error) error {
	token, err := tws.tokenService.Token(ctx)
	if err != nil {
		return errors.Wrap(err, "Token")
	}

	err = do(token)
	if err == nil || !errors.Is(err, models.ErrUnauthorized) {
		return err
	}

	if syncErr := tws.tokenService.Sync(ctx); syncErr != nil {
		return errors.Wrap(syncErr, "Sync")
	}

	return do(tws.tokenService.GetCurrentToken(ctx))
}
