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

// TwitchOAuthGetToken exchanges the client id/secret for an app access token
// via the client-credentials flow.
func (twc *TwitchClient) TwitchOAuthGetToken(ctx context.Context) (data *models.TwitchOautGetTokenResponse, err error) {

	clientID, clientSecret := twc.creds.TwitchClientID(), twc.creds.TwitchClientSecret()
	if clientID == "" || clientSecret == "" {
		return nil, models.ErrAuthNotConfigured
	}

	client := http.Client{
		Timeout: httpClientTimeout,
	}

	req, err := http.NewRequestWithContext(ctx, "POST", twc.idSchemeHost+"/oauth2/token", nil)
	if err != nil {
		return nil, err
	}

	query := req.URL.Query()
	query.Add("client_id", clientID)
	query.Add("client_secret", clientSecret)
	query.Add("grant_type", "client_credentials")
	req.URL.RawQuery = query.Encode()

	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

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
		if resp.StatusCode == http.StatusBadRequest {
			return nil, errors.New("invalid credentials")
		}

		return nil, errors.Errorf("get twitch token failed with status code: %d", resp.StatusCode)
	}

	var tokenInfo models.TwitchOautGetTokenResponse
	err = jsoniter.Unmarshal(readedResp, &tokenInfo)
	if err != nil {
		return
	}

	if tokenInfo.AccessToken == "" {
		return nil, errors.New("no access token in response")
	}

	data = &tokenInfo

	return
}

// TwitchOAuthValidateToken performs the lightweight token validation call.
// An invalid or expired token surfaces as models.ErrUnauthorized.
func (twc *TwitchClient) TwitchOAuthValidateToken(ctx context.Context, token string) (data *models.TwitchOautValidateTokenResponse, err error) {

	client := http.Client{
		Timeout: httpClientTimeout,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", twc.idSchemeHost+"/oauth2/validate", nil)
	if err != nil {
		return nil, err
	}

	req.Header.Add("Authorization", fmt.Sprintf("OAuth %s", token))

	resp, err := client.Do(req)
	if err != nil {
		return
	}

	defer resp.Body.Close()

	readedResp, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			var invalidResp models.ValidateTokenInvalid
			err = jsoniter.Unmarshal(readedResp, &invalidResp)
			if err != nil {
				return nil, err
			}

			return nil, errors.Wrap(models.ErrUnauthorized, invalidResp.Message)
		}

		return nil, errors.Errorf("validate token failed with status code: %d", resp.StatusCode)
	}

	var validateTokenInfo models.TwitchOautValidateTokenResponse
	err = jsoniter.Unmarshal(readedResp, &validateTokenInfo)
	if err != nil {
		return
	}

	data = &validateTokenInfo

	return
}
