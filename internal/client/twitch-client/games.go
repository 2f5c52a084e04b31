package twitch_client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"twitch_stream_monitor/internal/models"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// SearchGames looks up games by exact name.
func (twc *TwitchClient) SearchGames(ctx context.Context, token, name string) (*models.GetGamesResponse, error) {
	return twc.getGames(ctx, token, "name", name)
}

// GetGameByID looks up a single game by its id.
func (twc *TwitchClient) GetGameByID(ctx context.Context, token, gameID string) (*models.GetGamesResponse, error) {
	return twc.getGames(ctx, token, "id", gameID)
}

func (twc *TwitchClient) getGames(ctx context.Context, token, param, value string) (data *models.GetGamesResponse, err error) {

	client := http.Client{
		Timeout: httpClientTimeout,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", twc.apiSchemeHost+"/helix/games", nil)
	if err != nil {
		return
	}

	query := req.URL.Query()
	query.Add(param, value)
	req.URL.RawQuery = query.Encode()

	req.Header.Add("Client-Id", twc.creds.TwitchClientID())
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))

	resp, err := client.Do(req)
	if err != nil {
		return
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			readedResp, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, err
			}

			var unauthorizedResp models.GetUserUnauthorized
			err = jsoniter.Unmarshal(readedResp, &unauthorizedResp)
			if err != nil {
				return nil, err
			}

			return nil, errors.Wrap(models.ErrUnauthorized, unauthorizedResp.Message)
		}

		return nil, errors.Errorf("get twitch games failed with status code: %d", resp.StatusCode)
	}

	readedResp, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}

	var gamesInfo models.GetGamesResponse
	err = jsoniter.Unmarshal(readedResp, &gamesInfo)
	if err != nil {
		return
	}

	data = &gamesInfo

	return
}
