package stream_filter

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"twitch_stream_monitor/internal/config"
	"twitch_stream_monitor/internal/models"
)

// maxParallelLookups bounds the follower-count fan-out of one filtering pass.
const maxParallelLookups = 8

// BroadcasterAPI covers the expensive per-broadcaster lookups of phase 2.
type BroadcasterAPI interface {
	FollowerCount(ctx context.Context, userID string) (uint64, bool)
	BroadcasterTypes(ctx context.Context, userIDs []string) map[string]models.BroadcasterType
}

type StreamFilterService struct {
	api BroadcasterAPI
}

func NewStreamFilterService(api BroadcasterAPI) *StreamFilterService {
	return &StreamFilterService{
		api: api,
	}
}

// Filter applies the criteria in two phases: cheap metadata checks first,
// then per-broadcaster lookups over the survivors only. Follower counts are
// always resolved for the survivors so they can be shown in notifications;
// the resulting map is returned so the formatter does not re-fetch.
//
// Tag policy: required tags match case-sensitively and a stream without a
// tag list fails them; excluded tags match case-insensitively and a stream
// without a tag list has nothing to exclude, so it passes.
func (sfs *StreamFilterService) Filter(
	ctx context.Context,
	streams []models.Stream,
	criteria config.Criteria,
) ([]models.Stream, map[string]uint64) {

	logrus.Debugf("filtering %d stream(s), criteria: viewers [%d, %s], followers [%d, %s], required tags %v, exclude tags %v, ignored channels %v, affiliate/partner only %t",
		len(streams),
		criteria.MinViewers, boundString(criteria.MaxViewers),
		criteria.MinFollowers, boundString(criteria.MaxFollowers),
		criteria.RequiredTags, criteria.ExcludeTags, criteria.IgnoredChannels,
		criteria.AffiliateOrPartnerOnly)

	survivors := sfs.phaseOne(streams, criteria)

	return sfs.phaseTwo(ctx, survivors, criteria)
}

func (sfs *StreamFilterService) phaseOne(streams []models.Stream, criteria config.Criteria) []models.Stream {
	var (
		survivors []models.Stream

		outByIgnoredChannel uint
		outByViewersMin     uint
		outByViewersMax     uint
		outByRequiredTags   uint
		outByExcludeTags    uint
	)

	for _, stream := range streams {
		if channelIgnored(stream, criteria.IgnoredChannels) {
			outByIgnoredChannel++
			logrus.Debugf("stream %q filtered out: channel is in ignored list", stream.UserName)
			continue
		}

		if stream.ViewerCount < criteria.MinViewers {
			outByViewersMin++
			logrus.Debugf("stream %q filtered out: %d viewers < %d min", stream.UserName, stream.ViewerCount, criteria.MinViewers)
			continue
		}
		if criteria.MaxViewers != nil && stream.ViewerCount > *criteria.MaxViewers {
			outByViewersMax++
			logrus.Debugf("stream %q filtered out: %d viewers > %d max", stream.UserName, stream.ViewerCount, *criteria.MaxViewers)
			continue
		}

		if len(criteria.RequiredTags) > 0 && !hasAllTags(stream.Tags, criteria.RequiredTags) {
			outByRequiredTags++
			logrus.Debugf("stream %q filtered out: missing required tags (stream tags %v, required %v)",
				stream.UserName, stream.Tags, criteria.RequiredTags)
			continue
		}

		if len(criteria.ExcludeTags) > 0 && hasAnyTagFold(stream.Tags, criteria.ExcludeTags) {
			outByExcludeTags++
			logrus.Debugf("stream %q filtered out: has excluded tags (stream tags %v, excluded %v)",
				stream.UserName, stream.Tags, criteria.ExcludeTags)
			continue
		}

		survivors = append(survivors, stream)
	}

	logrus.Debugf("phase 1 results: %d total, %d out (ignored channels), %d out (min viewers), %d out (max viewers), %d out (required tags), %d out (excluded tags), %d passed",
		len(streams), outByIgnoredChannel, outByViewersMin, outByViewersMax, outByRequiredTags, outByExcludeTags, len(survivors))

	return survivors
}

func (sfs *StreamFilterService) phaseTwo(
	ctx context.Context,
	survivors []models.Stream,
	criteria config.Criteria,
) ([]models.Stream, map[string]uint64) {

	followerCounts := sfs.fetchFollowerCounts(ctx, survivors)

	var types map[string]models.BroadcasterType
	if criteria.AffiliateOrPartnerOnly {
		types = sfs.api.BroadcasterTypes(ctx, uniqueUserIDs(survivors))
	}

	followerBounded := criteria.MinFollowers > 0 || criteria.MaxFollowers != nil

	var (
		qualifying []models.Stream

		outByBroadcasterType uint
		outByFollowersMin    uint
		outByFollowersMax    uint
	)

	for _, stream := range survivors {
		if criteria.AffiliateOrPartnerOnly {
			streamerType, ok := types[stream.UserId]
			if !ok || (streamerType != models.BroadcasterAffiliate && streamerType != models.BroadcasterPartner) {
				outByBroadcasterType++
				logrus.Debugf("stream %q filtered out: broadcaster type %q is not affiliate or partner", stream.UserName, streamerType)
				continue
			}
		}

		if followerBounded {
			count, ok := followerCounts[stream.UserId]
			if !ok {
				// An unknown count never rejects, the bound is skipped.
				logrus.Debugf("stream %q: could not determine follower count, skipping follower filter", stream.UserName)
			} else {
				if count < criteria.MinFollowers {
					outByFollowersMin++
					logrus.Debugf("stream %q filtered out: %d followers < %d min", stream.UserName, count, criteria.MinFollowers)
					continue
				}
				if criteria.MaxFollowers != nil && count > *criteria.MaxFollowers {
					outByFollowersMax++
					logrus.Debugf("stream %q filtered out: %d followers > %d max", stream.UserName, count, *criteria.MaxFollowers)
					continue
				}
			}
		}

		qualifying = append(qualifying, stream)
	}

	logrus.Debugf("phase 2 results: %d survivor(s), %d out (broadcaster type), %d out (min followers), %d out (max followers), %d passed",
		len(survivors), outByBroadcasterType, outByFollowersMin, outByFollowersMax, len(qualifying))

	return qualifying, followerCounts
}

// fetchFollowerCounts resolves follower totals for every unique broadcaster
// concurrently, bounded by maxParallelLookups, and joins before returning.
func (sfs *StreamFilterService) fetchFollowerCounts(ctx context.Context, survivors []models.Stream) map[string]uint64 {
	userIDs := uniqueUserIDs(survivors)

	counts := make(map[string]uint64, len(userIDs))
	if len(userIDs) == 0 {
		return counts
	}

	logrus.Debugf("fetching follower counts for %d unique user(s)", len(userIDs))

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxParallelLookups)

	for _, userID := range userIDs {
		userID := userID
		group.Go(func() error {
			count, ok := sfs.api.FollowerCount(groupCtx, userID)
			if !ok {
				return nil
			}

			mu.Lock()
			counts[userID] = count
			mu.Unlock()
			return nil
		})
	}

	// Lookups report unknown instead of failing, so Wait is a pure join.
	_ = group.Wait()

	return counts
}

func channelIgnored(stream models.Stream, ignoredChannels []string) bool {
	for _, ignored := range ignoredChannels {
		if strings.EqualFold(stream.UserName, ignored) || strings.EqualFold(stream.UserLogin, ignored) || stream.UserId == ignored {
			return true
		}
	}
	return false
}

func hasAllTags(streamTags, required []string) bool {
	for _, want := range required {
		found := false
		for _, tag := range streamTags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func hasAnyTagFold(streamTags, excluded []string) bool {
	for _, unwanted := range excluded {
		for _, tag := range streamTags {
			if strings.EqualFold(tag, unwanted) {
				return true
			}
		}
	}
	return false
}

func uniqueUserIDs(streams []models.Stream) []string {
	seen := make(map[string]struct{}, len(streams))
	var userIDs []string

	for _, stream := range streams {
		if stream.UserId == "" {
			continue
		}
		if _, ok := seen[stream.UserId]; ok {
			continue
		}
		seen[stream.UserId] = struct{}{}
		userIDs = append(userIDs, stream.UserId)
	}

	return userIDs
}

func boundString(bound *uint64) string {
	if bound == nil {
		return "no limit"
	}
	return strconv.FormatUint(*bound, 10)
}
