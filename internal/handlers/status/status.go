package status

import (
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"twitch_stream_monitor/internal/config"
	notification_ledger "twitch_stream_monitor/internal/service/notification_ledger"
	stream_monitor "twitch_stream_monitor/internal/service/stream_monitor"
)

type Response struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error,omitempty"`
}

type statusData struct {
	UptimeSeconds float64                    `json:"uptime_seconds"`
	WatchedGames  []string                   `json:"watched_games"`
	LedgerSize    int                        `json:"ledger_size"`
	Cycle         stream_monitor.CycleStatus `json:"cycle"`
}

type StatusHandler struct {
	configService  *config.Service
	monitorService *stream_monitor.StreamMonitorService
	ledger         *notification_ledger.NotificationLedgerService
	startedAt      time.Time
}

func NewStatusHandler(
	configService *config.Service,
	monitorService *stream_monitor.StreamMonitorService,
	ledger *notification_ledger.NotificationLedgerService,
) *StatusHandler {
	return &StatusHandler{
		configService:  configService,
		monitorService: monitorService,
		ledger:         ledger,
		startedAt:      time.Now(),
	}
}

func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	data := statusData{
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		WatchedGames:  h.configService.Criteria().GameIDs,
		LedgerSize:    h.ledger.Size(),
		Cycle:         h.monitorService.Status(),
	}

	WriteSuccessData(w, r, data)
}

func WriteSuccessData(w http.ResponseWriter, r *http.Request, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = jsoniter.NewEncoder(w).Encode(Response{
		Data: data,
	})
}
