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

// GetStreamsPage fetches one page of live streams for the given game ids.
// At most MaxIDsPerRequest game ids may be passed; language filtering happens
// here at the request level, not as a post-filter. Pass the previous page's
// cursor to continue, an empty cursor for the first page.
func (twc *TwitchClient) GetStreamsPage(
	ctx context.Context,
	token string,
	gameIDs []string,
	languages []string,
	cursor string,
) (data *models.Streams, err error) {

	client := http.Client{
		Timeout: httpClientTimeout,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", twc.apiSchemeHost+"/helix/streams", nil)
	if err != nil {
		return
	}

	query := req.URL.Query()
	for _, id := range gameIDs {
		query.Add("game_id", id)
	}
	for _, lang := range languages {
		query.Add("language", lang)
	}
	query.Add("first", "100")
	if cursor != "" {
		query.Add("after", cursor)
	}
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

		return nil, errors.Errorf("get twitch streams failed with status code: %d", resp.StatusCode)
	}

	readedResp, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}

	var streamsInfo models.Streams
	err = jsoniter.Unmarshal(readedResp, &streamsInfo)
	if err != nil {
		return
	}

	data = &streamsInfo

	return
}
