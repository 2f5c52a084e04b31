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

// GetChannelFollowers returns the follower total for one broadcaster.
// Only the total is needed, so a single result is requested.
func (twc *TwitchClient) GetChannelFollowers(ctx context.Context, token, broadcasterID string) (data *models.GetChannelFollowersResponse, err error) {

	client := http.Client{
		Timeout: httpClientTimeout,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", twc.apiSchemeHost+"/helix/channels/followers", nil)
	if err != nil {
		return
	}

	query := req.URL.Query()
	query.Add("broadcaster_id", broadcasterID)
	query.Add("first", "1")
	req.URL.RawQuery = query.Encode()

	req.Header.Add("Client-Id", twc.creds.TwitchClientID())
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))

	resp, err := client.Do(req)
	if err != nil {
		return
	}

	defer resp.Body.Close()

	readedResp, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			var unauthorizedResp models.GetUserUnauthorized
			err = jsoniter.Unmarshal(readedResp, &unauthorizedResp)
			if err != nil {
				return nil, err
			}

			return nil, errors.Wrap(models.ErrUnauthorized, unauthorizedResp.Message)
		}

		return nil, errors.Errorf("get channel followers failed with status code: %d", resp.StatusCode)
	}

	var followersInfo models.GetChannelFollowersResponse
	err = jsoniter.Unmarshal(readedResp, &followersInfo)
	if err != nil {
		return
	}

	data = &followersInfo

	return
}
