package stream_monitor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"twitch_stream_monitor/internal/config"
	"twitch_stream_monitor/internal/models"
	notification_ledger "twitch_stream_monitor/internal/service/notification_ledger"
	stream_filter "twitch_stream_monitor/internal/service/stream_filter"
	"twitch_stream_monitor/internal/telemetry"
	formater "twitch_stream_monitor/internal/utils/formater"
)

const streamMonitorBGSync = "streamMonitor_BGSync"

// Chat rate limit: after every rateLimitBatch message units, pause for
// rateLimitPause before sending the next one.
const rateLimitBatch = 5

var rateLimitPause = time.Second * 5

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseFetching    Phase = "fetching"
	PhaseFiltering   Phase = "filtering"
	PhaseFormatting  Phase = "formatting"
	PhaseDispatching Phase = "dispatching"
	PhaseSleeping    Phase = "sleeping"
)

type StreamAPI interface {
	ListStreams(ctx context.Context, gameIDs, languages []string) ([]models.Stream, error)
}

type MessageSender interface {
	SendMessageUnit(ctx context.Context, chatID int64, unit formater.MessageUnit) error
}

// CycleStatus is a snapshot of the loop for the status endpoint.
type CycleStatus struct {
	Phase           Phase      `json:"phase"`
	CyclesCompleted uint64     `json:"cycles_completed"`
	LastCycleAt     *time.Time `json:"last_cycle_at,omitempty"`
	StreamsFound    int        `json:"streams_found"`
	StreamsMatched  int        `json:"streams_matched"`
	NewStreams      int        `json:"new_streams"`
	UnitsDispatched int        `json:"units_dispatched"`
	UnitsFailed     int        `json:"units_failed"`
}

// StreamMonitorService runs the poll cycle: fetch, filter, format, dispatch,
// commit the ledger, sleep. One cycle runs to completion before the next
// begins.
type StreamMonitorService struct {
	configService *config.Service
	streamAPI     StreamAPI
	filterService *stream_filter.StreamFilterService
	ledger        *notification_ledger.NotificationLedgerService
	sender        MessageSender

	mu     sync.RWMutex
	status CycleStatus
}

func NewStreamMonitorService(
	configService *config.Service,
	streamAPI StreamAPI,
	filterService *stream_filter.StreamFilterService,
	ledger *notification_ledger.NotificationLedgerService,
	sender MessageSender,
) *StreamMonitorService {
	return &StreamMonitorService{
		configService: configService,
		streamAPI:     streamAPI,
		filterService: filterService,
		ledger:        ledger,
		sender:        sender,
		status: CycleStatus{
			Phase: PhaseIdle,
		},
	}
}

func (sms *StreamMonitorService) Status() CycleStatus {
	sms.mu.RLock()
	defer sms.mu.RUnlock()
	return sms.status
}

func (sms *StreamMonitorService) setPhase(phase Phase) {
	sms.mu.Lock()
	sms.status.Phase = phase
	sms.mu.Unlock()
}

// SyncBg runs poll cycles until the context is cancelled. The sleep interval
// is re-read every cycle so config changes apply without a restart.
func (sms *StreamMonitorService) SyncBg(ctx context.Context) {
	for {
		if err := sms.CheckAndNotify(ctx); err != nil {
			if ctx.Err() != nil {
				logrus.Infof("stoping bg %s process", streamMonitorBGSync)
				sms.setPhase(PhaseIdle)
				return
			}
			logrus.Warnf("poll cycle failed: %v", err)
		}

		interval := sms.configService.Criteria().SearchInterval
		logrus.Infof("next check in %s", interval)

		sms.setPhase(PhaseSleeping)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			logrus.Infof("stoping bg %s process", streamMonitorBGSync)
			sms.setPhase(PhaseIdle)
			return
		case <-timer.C:
		}
	}
}

// CheckAndNotify runs one complete poll cycle. The ledger is marked and
// flushed only when every message unit of the cycle dispatched; a partial
// failure leaves everything unmarked so the next cycle retries, preferring a
// duplicate notification over a silently lost one.
func (sms *StreamMonitorService) CheckAndNotify(ctx context.Context) error {
	started := time.Now()

	// Criteria are snapshotted here; the remote ignore command and config
	// file edits take effect starting with the next cycle.
	criteria := sms.configService.Criteria()
	telemetry.SetWatchedGames(len(criteria.GameIDs))

	if len(criteria.GameIDs) == 0 {
		logrus.Info("no games to monitor, use the interactive menu to add games")
		return nil
	}

	logrus.Infof("checking streams for %d game(s)...", len(criteria.GameIDs))
	logrus.Debugf("game ids being monitored: %v", criteria.GameIDs)
	logrus.Debugf("currently tracking %d already-notified stream(s)", sms.ledger.Size())

	sms.setPhase(PhaseFetching)

	streams, err := sms.streamAPI.ListStreams(ctx, criteria.GameIDs, criteria.Languages)
	if err != nil {
		return errors.Wrap(err, "ListStreams")
	}

	sms.setPhase(PhaseFiltering)

	qualifying, followerCounts := sms.filterService.Filter(ctx, streams, criteria)

	var newStreams []models.Stream
	var alreadyNotified []string
	for _, stream := range qualifying {
		if sms.ledger.Contains(stream.IdentityKey()) {
			alreadyNotified = append(alreadyNotified, stream.UserName)
			continue
		}
		newStreams = append(newStreams, stream)
	}

	if len(alreadyNotified) > 0 {
		logrus.Debugf("already notified streams: %v", alreadyNotified)
	}

	sms.mu.Lock()
	now := time.Now()
	sms.status.LastCycleAt = &now
	sms.status.StreamsFound = len(streams)
	sms.status.StreamsMatched = len(qualifying)
	sms.status.NewStreams = len(newStreams)
	sms.status.UnitsDispatched = 0
	sms.status.UnitsFailed = 0
	sms.mu.Unlock()

	if len(newStreams) == 0 {
		logrus.Info("no new streams found")
		sms.finishCycle(started)
		return nil
	}

	logrus.Infof("found %d new stream(s) matching criteria", len(newStreams))

	sms.setPhase(PhaseFormatting)

	units := formater.FormatStreamMessages(newStreams, followerCounts)

	sms.setPhase(PhaseDispatching)

	sent, err := sms.dispatch(ctx, units)

	sms.mu.Lock()
	sms.status.UnitsDispatched = sent
	sms.status.UnitsFailed = len(units) - sent
	sms.mu.Unlock()

	if err != nil {
		return err
	}

	if sent < len(units) {
		logrus.Warnf("only %d of %d message unit(s) were sent successfully, streams stay unmarked for retry", sent, len(units))
		sms.finishCycle(started)
		return nil
	}

	keys := make([]string, 0, len(newStreams))
	for _, stream := range newStreams {
		keys = append(keys, stream.IdentityKey())
	}

	sms.ledger.MarkNotified(keys)
	if err := sms.ledger.Flush(); err != nil {
		logrus.Warnf("could not save notified streams: %v", err)
	}

	telemetry.AddStreamsNotified(len(newStreams))
	logrus.Infof("all %d message unit(s) sent successfully for %d stream(s)", sent, len(newStreams))

	sms.finishCycle(started)
	return nil
}

// dispatch sends units in order, pausing for the chat rate limit after every
// rateLimitBatch units. Failed units are counted, never retried. A context
// cancellation aborts mid-dispatch and is the only returned error.
func (sms *StreamMonitorService) dispatch(ctx context.Context, units []formater.MessageUnit) (int, error) {
	chatID := sms.configService.TelegramChatID()

	if len(units) > rateLimitBatch {
		logrus.Infof("sending %d message unit(s) with rate limiting...", len(units))
	}

	sent := 0
	for i, unit := range units {
		if i > 0 && i%rateLimitBatch == 0 {
			logrus.Debug("rate limiting: sleeping before next batch")

			timer := time.NewTimer(rateLimitPause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return sent, ctx.Err()
			case <-timer.C:
			}
		}

		if err := sms.sender.SendMessageUnit(ctx, chatID, unit); err != nil {
			telemetry.IncDispatchFailures()

			switch {
			case errors.Is(err, models.ErrChatNotFound):
				logrus.Errorf("chat %d not found, message unit %d of %d not sent", chatID, i+1, len(units))
			case errors.Is(err, models.ErrForbidden):
				logrus.Errorf("bot is not allowed to post to chat %d, message unit %d of %d not sent", chatID, i+1, len(units))
			default:
				logrus.Errorf("failed to send message unit %d of %d: %v", i+1, len(units), err)
			}
			continue
		}

		sent++
	}

	return sent, nil
}

func (sms *StreamMonitorService) finishCycle(started time.Time) {
	sms.mu.Lock()
	sms.status.CyclesCompleted++
	sms.mu.Unlock()

	telemetry.IncPollCycles()
	telemetry.ObserveCycleDuration(time.Since(started).Seconds())
	telemetry.SetLedgerSize(sms.ledger.Size())
}
