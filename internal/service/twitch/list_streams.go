package twitch_service

import (
	"context"
	"twitch_stream_monitor/internal/models"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	twitch_client "twitch_stream_monitor/internal/client/twitch-client"
)

// ListStreams fetches every live stream for the watched game ids. Game ids
// are batched at the API limit, each batch is walked page by page until the
// cursor runs out, and the combined result is deduplicated by identity key
// because the API sometimes returns the same stream on two pages.
//
// A failed page degrades to whatever was collected so far; only missing
// credentials surface as an error.
func (tws *TwitchService) ListStreams(ctx context.Context, gameIDs, languages []string) ([]models.Stream, error) {
	if len(gameIDs) == 0 {
		logrus.Debug("no game ids to fetch streams for")
		return nil, nil
	}

	seen := make(map[string]struct{})
	var all []models.Stream

	for start := 0; start < len(gameIDs); start += twitch_client.MaxIDsPerRequest {
		end := start + twitch_client.MaxIDsPerRequest
		if end > len(gameIDs) {
			end = len(gameIDs)
		}
		batch := gameIDs[start:end]

		cursor := ""
		page := 1

		for {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}

			var streamsInfo *models.Streams
			err := tws.withAuthRetry(ctx, func(token string) error {
				var pageErr error
				streamsInfo, pageErr = tws.twitchClient.GetStreamsPage(ctx, token, batch, languages, cursor)
				return pageErr
			})
			if err != nil {
				if errors.Is(err, models.ErrAuthNotConfigured) {
					return nil, err
				}

				logrus.Warnf("could not fetch streams page %d for batch of %d game(s): %v", page, len(batch), err)
				break
			}

			logrus.Debugf("streams page %d returned %d stream(s)", page, len(streamsInfo.StreamInfo))

			for _, stream := range streamsInfo.StreamInfo {
				key := stream.IdentityKey()
				if _, ok := seen[key]; ok {
					logrus.Debugf("duplicate stream detected: %s (key %s)", stream.UserName, key)
					continue
				}
				seen[key] = struct{}{}
				all = append(all, stream)
			}

			cursor = streamsInfo.Pagination.Cursor
			if cursor == "" {
				logrus.Debugf("no more pages for this batch (total %d page(s))", page)
				break
			}

			page++
		}
	}

	logrus.Debugf("total streams fetched: %d", len(all))

	return all, nil
}
