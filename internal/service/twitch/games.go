package twitch_service

import (
	"context"
	"twitch_stream_monitor/internal/models"

	"github.com/pkg/errors"
)

// SearchGames looks up games matching a name, used by the interactive menu.
func (tws *TwitchService) SearchGames(ctx context.Context, query string) ([]models.Game, error) {
	var gamesInfo *models.GetGamesResponse
	err := tws.withAuthRetry(ctx, func(token string) error {
		var searchErr error
		gamesInfo, searchErr = tws.twitchClient.SearchGames(ctx, token, query)
		return searchErr
	})
	if err != nil {
		return nil, errors.Wrap(err, "SearchGames")
	}

	return gamesInfo.Data, nil
}

// GetGame resolves a game id to its summary, nil when the id is unknown.
func (tws *TwitchService) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	var gamesInfo *models.GetGamesResponse
	err := tws.withAuthRetry(ctx, func(token string) error {
		var lookupErr error
		gamesInfo, lookupErr = tws.twitchClient.GetGameByID(ctx, token, gameID)
		return lookupErr
	})
	if err != nil {
		return nil, errors.Wrap(err, "GetGameByID")
	}

	if len(gamesInfo.Data) == 0 {
		return nil, nil
	}

	return &gamesInfo.Data[0], nil
}
