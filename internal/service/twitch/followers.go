package twitch_service

import (
	"context"

	"github.com/sirupsen/logrus"
)

// FollowerCount returns one broadcaster's follower total. A request that
// still fails after the token retry is not an error: the count is simply
// unknown and the second return is false.
func (tws *TwitchService) FollowerCount(ctx context.Context, userID string) (uint64, bool) {
	if userID == "" {
		return 0, false
	}

	var total uint64
	err := tws.withAuthRetry(ctx, func(token string) error {
		followersInfo, err := tws.twitchClient.GetChannelFollowers(ctx, token, userID)
		if err != nil {
			return err
		}

		total = followersInfo.Total
		return nil
	})
	if err != nil {
		logrus.Debugf("could not fetch follower count for user %s: %v", userID, err)
		return 0, false
	}

	return total, true
}
