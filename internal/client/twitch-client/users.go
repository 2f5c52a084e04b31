package twitch_client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"twitch_stream_monitor/internal/models"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var digitCheck = regexp.MustCompile(`^[0-9]+$`) // check if have only digits

// GetUserInfo looks up users by id or login. Ids that do not resolve are
// simply absent from the response; the API does not error on them.
// At most MaxIDsPerRequest ids may be passed.
func (twc *TwitchClient) GetUserInfo(ctx context.Context, token string, ids []string) (data *models.GetUserInfoResponse, err error) {

	client := http.Client{
		Timeout: httpClientTimeout,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", twc.apiSchemeHost+"/helix/users", nil)
	if err != nil {
		return
	}

	query := req.URL.Query()
	for _, id := range ids {
		if digitCheck.MatchString(id) {
			query.Add("id", id)
			continue
		}
		query.Add("login", id)
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

		return nil, errors.Errorf("get twitch users failed with status code: %d", resp.StatusCode)
	}

	readedResp, err := io.ReadAll(resp.Body)
	if err != nil {
		return
	}

	var usersInfo models.GetUserInfoResponse
	err = jsoniter.Unmarshal(readedResp, &usersInfo)
	if err != nil {
		return
	}

	data = &usersInfo

	return
}
