package stream_monitor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"twitch_stream_monitor/internal/config"
	"twitch_stream_monitor/internal/models"
	notification_ledger "twitch_stream_monitor/internal/service/notification_ledger"
	stream_filter "twitch_stream_monitor/internal/service/stream_filter"
	formater "twitch_stream_monitor/internal/utils/formater"
)

type fakeStreamAPI struct {
	streams []models.Stream
	err     error
}

func (f *fakeStreamAPI) ListStreams(ctx context.Context, gameIDs, languages []string) ([]models.Stream, error) {
	return f.streams, f.err
}

type fakeBroadcasterAPI struct{}

func (fakeBroadcasterAPI) FollowerCount(ctx context.Context, userID string) (uint64, bool) {
	return 0, false
}

func (fakeBroadcasterAPI) BroadcasterTypes(ctx context.Context, userIDs []string) map[string]models.BroadcasterType {
	return nil
}

type fakeSender struct {
	sent   []formater.MessageUnit
	failOn map[int]error // call index -> error
	calls  int
}

func (f *fakeSender) SendMessageUnit(ctx context.Context, chatID int64, unit formater.MessageUnit) error {
	callIndex := f.calls
	f.calls++

	if err, ok := f.failOn[callIndex]; ok {
		return err
	}

	f.sent = append(f.sent, unit)
	return nil
}

type testEnv struct {
	monitor *StreamMonitorService
	ledger  *notification_ledger.NotificationLedgerService
	sender  *fakeSender
}

// telemetry.Init is deliberately not called here: cycles must run safely
// with unregistered metrics.
func newTestEnv(t *testing.T, streams []models.Stream, failOn map[int]error) *testEnv {
	t.Helper()

	rateLimitPause = 0

	dir := t.TempDir()

	configPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{"game_ids": ["509658"], "telegram_chat_id": 42, "max_viewers": null}`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	configService, err := config.NewService(configPath)
	if err != nil {
		t.Fatalf("config.NewService() error = %v", err)
	}

	ledger := notification_ledger.NewNotificationLedgerService(filepath.Join(dir, "notified_streams.json"))
	sender := &fakeSender{failOn: failOn}

	monitor := NewStreamMonitorService(
		configService,
		&fakeStreamAPI{streams: streams},
		stream_filter.NewStreamFilterService(fakeBroadcasterAPI{}),
		ledger,
		sender,
	)

	return &testEnv{monitor: monitor, ledger: ledger, sender: sender}
}

func TestCheckAndNotify_MarksOnlyNewStreams(t *testing.T) {
	streams := []models.Stream{
		{StreamId: "s1", UserId: "u1", UserName: "alice", GameName: "Celeste", ViewerCount: 5},
		{StreamId: "s2", UserId: "u2", UserName: "bob", GameName: "Celeste", ViewerCount: 7},
	}

	env := newTestEnv(t, streams, nil)
	env.ledger.MarkNotified([]string{"u1_s1"})

	if err := env.monitor.CheckAndNotify(context.Background()); err != nil {
		t.Fatalf("CheckAndNotify() error = %v", err)
	}

	if len(env.sender.sent) != 1 {
		t.Fatalf("sent %d unit(s), want 1", len(env.sender.sent))
	}

	text := env.sender.sent[0].Text()
	if !strings.Contains(text, "bob") {
		t.Errorf("sent unit missing the new stream: %q", text)
	}
	if strings.Contains(text, "alice") {
		t.Errorf("sent unit contains the already-notified stream: %q", text)
	}

	if !env.ledger.Contains("u2_s2") {
		t.Error("ledger missing u2_s2 after successful dispatch")
	}
	if env.ledger.Size() != 2 {
		t.Errorf("ledger size = %d, want 2", env.ledger.Size())
	}

	status := env.monitor.Status()
	if status.NewStreams != 1 || status.UnitsDispatched != 1 || status.UnitsFailed != 0 {
		t.Errorf("status = %+v, want 1 new stream, 1 dispatched, 0 failed", status)
	}
}

func TestCheckAndNotify_PartialFailureLeavesLedgerUntouched(t *testing.T) {
	// two games produce two message units; the second send fails
	streams := []models.Stream{
		{StreamId: "s1", UserId: "u1", UserName: "alice", GameName: "Celeste", ViewerCount: 5},
		{StreamId: "s2", UserId: "u2", UserName: "bob", GameName: "Hades", ViewerCount: 7},
	}

	env := newTestEnv(t, streams, map[int]error{1: errors.New("telegram is down")})

	if err := env.monitor.CheckAndNotify(context.Background()); err != nil {
		t.Fatalf("CheckAndNotify() error = %v", err)
	}

	if env.ledger.Size() != 0 {
		t.Errorf("ledger size = %d, want 0: nothing may be marked after a partial failure", env.ledger.Size())
	}

	status := env.monitor.Status()
	if status.UnitsDispatched != 1 || status.UnitsFailed != 1 {
		t.Errorf("status = %+v, want 1 dispatched, 1 failed", status)
	}
}

func TestCheckAndNotify_SecondCycleSkipsNotified(t *testing.T) {
	streams := []models.Stream{
		{StreamId: "s1", UserId: "u1", UserName: "alice", GameName: "Celeste", ViewerCount: 5},
	}

	env := newTestEnv(t, streams, nil)

	if err := env.monitor.CheckAndNotify(context.Background()); err != nil {
		t.Fatalf("first CheckAndNotify() error = %v", err)
	}
	if err := env.monitor.CheckAndNotify(context.Background()); err != nil {
		t.Fatalf("second CheckAndNotify() error = %v", err)
	}

	if len(env.sender.sent) != 1 {
		t.Errorf("sent %d unit(s) across two cycles, want 1", len(env.sender.sent))
	}
}

func TestCheckAndNotify_NoGames(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{"game_ids": []}`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	configService, err := config.NewService(configPath)
	if err != nil {
		t.Fatalf("config.NewService() error = %v", err)
	}

	api := &fakeStreamAPI{err: errors.New("must not be called")}
	sender := &fakeSender{}

	monitor := NewStreamMonitorService(
		configService,
		api,
		stream_filter.NewStreamFilterService(fakeBroadcasterAPI{}),
		notification_ledger.NewNotificationLedgerService(filepath.Join(dir, "notified_streams.json")),
		sender,
	)

	if err := monitor.CheckAndNotify(context.Background()); err != nil {
		t.Errorf("CheckAndNotify() error = %v, want nil with no games configured", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %d unit(s), want 0", len(sender.sent))
	}
}

func TestCheckAndNotify_FetchErrorPropagates(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.monitor.streamAPI = &fakeStreamAPI{err: errors.New("api down")}

	if err := env.monitor.CheckAndNotify(context.Background()); err == nil {
		t.Error("CheckAndNotify() error = nil, want fetch error")
	}

	if env.ledger.Size() != 0 {
		t.Errorf("ledger size = %d, want 0 after fetch failure", env.ledger.Size())
	}
}
