package twitch_service

import (
	"context"
	"twitch_stream_monitor/internal/models"

	"github.com/sirupsen/logrus"

	twitch_client "twitch_stream_monitor/internal/client/twitch-client"
)

// BroadcasterTypes resolves account tiers for the given user ids in batches.
// Ids that fail to resolve are absent from the result; callers must treat
// absence as unknown, not as an error.
func (tws *TwitchService) BroadcasterTypes(ctx context.Context, userIDs []string) map[string]models.BroadcasterType {
	types := make(map[string]models.BroadcasterType, len(userIDs))

	for start := 0; start < len(userIDs); start += twitch_client.MaxIDsPerRequest {
		end := start + twitch_client.MaxIDsPerRequest
		if end > len(userIDs) {
			end = len(userIDs)
		}
		batch := userIDs[start:end]

		var usersInfo *models.GetUserInfoResponse
		err := tws.withAuthRetry(ctx, func(token string) error {
			var batchErr error
			usersInfo, batchErr = tws.twitchClient.GetUserInfo(ctx, token, batch)
			return batchErr
		})
		if err != nil {
			logrus.Warnf("could not fetch broadcaster types for batch of %d user(s): %v", len(batch), err)
			continue
		}

		for _, user := range usersInfo.Data {
			types[user.UserID] = user.BroadcasterType
		}
	}

	return types
}
