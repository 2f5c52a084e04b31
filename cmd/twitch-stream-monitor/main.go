package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	telegramClient "twitch_stream_monitor/internal/client/telegram-client"
	twitchClient "twitch_stream_monitor/internal/client/twitch-client"
	"twitch_stream_monitor/internal/config"
	"twitch_stream_monitor/internal/telemetry"

	statusHandler "twitch_stream_monitor/internal/handlers/status"

	menuService "twitch_stream_monitor/internal/service/menu"
	notificationLedgerService "twitch_stream_monitor/internal/service/notification_ledger"
	streamFilterService "twitch_stream_monitor/internal/service/stream_filter"
	streamMonitorService "twitch_stream_monitor/internal/service/stream_monitor"
	teleUpdatesCheckService "twitch_stream_monitor/internal/service/telegram_updates_check"
	twitchService "twitch_stream_monitor/internal/service/twitch"
	twitchTokenService "twitch_stream_monitor/internal/service/twitch_token"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	defaultConfigPath = "config.json"
	defaultLedgerPath = "notified_streams.json"
	defaultDebugAddr  = "localhost:8084"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file loaded")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	ledgerPath := os.Getenv("NOTIFIED_STREAMS_PATH")
	if ledgerPath == "" {
		ledgerPath = defaultLedgerPath
	}

	configService, err := config.NewService(configPath)
	if err != nil {
		logrus.Fatalf("cannot load config: %v", err)
	}

	if configService.Debug() {
		logrus.SetLevel(logrus.DebugLevel)
	}

	telemetry.Init()

	twitchCli := twitchClient.NewTwitchClient(configService)

	tts := twitchTokenService.NewTwitchTokenService(twitchCli)
	if err := tts.Sync(ctx); err != nil {
		// Token-dependent features stay disabled, the menu still works.
		logrus.Warnf("twitch authentication unavailable: %v", err)
	}
	go tts.SyncBg(ctx, time.Minute*5)

	twitchSvc := twitchService.NewService(twitchCli, tts)
	filterSvc := streamFilterService.NewStreamFilterService(twitchSvc)
	ledger := notificationLedgerService.NewNotificationLedgerService(ledgerPath)

	var telegramCli *telegramClient.TelegramClient
	if token := configService.TelegramBotToken(); token != "" {
		telegramCli, err = telegramClient.NewTelegramClient(token)
		if err != nil {
			logrus.Warnf("telegram bot unavailable: %v", err)
		}
	}

	monitor := streamMonitorService.NewStreamMonitorService(configService, twitchSvc, filterSvc, ledger, telegramCli)

	go configService.WatchBg(ctx)
	go serveDebug(ctx, configService, monitor, ledger)

	startMonitoring := func(ctx context.Context) error {
		criteria := configService.Criteria()
		if len(criteria.GameIDs) == 0 {
			return errors.New("no games to monitor, please add games first")
		}
		if configService.TwitchClientID() == "" || configService.TwitchClientSecret() == "" {
			return errors.New("twitch authentication not configured: set twitch_client_id and twitch_client_secret")
		}
		if telegramCli == nil || configService.TelegramChatID() == 0 {
			return errors.New("telegram bot token or chat id not configured")
		}

		printStartupBanner(criteria)

		monitorCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		updatesCheck := teleUpdatesCheckService.NewTelegramUpdatesCheckService(telegramCli, configService)
		go updatesCheck.SyncBg(monitorCtx)

		monitor.SyncBg(monitorCtx)

		return nil
	}

	menu := menuService.NewMenuService(configService, twitchSvc, startMonitoring, os.Stdin, os.Stdout)
	menu.Run(ctx)
}

func printStartupBanner(criteria config.Criteria) {
	logrus.Info("starting monitoring...")
	logrus.Infof("checking every %s", criteria.SearchInterval)

	maxViewers := "no limit"
	if criteria.MaxViewers != nil {
		maxViewers = fmt.Sprint(*criteria.MaxViewers)
	}
	logrus.Infof("viewer range: %d - %s", criteria.MinViewers, maxViewers)

	if criteria.MinFollowers > 0 || criteria.MaxFollowers != nil {
		maxFollowers := "no limit"
		if criteria.MaxFollowers != nil {
			maxFollowers = fmt.Sprint(*criteria.MaxFollowers)
		}
		logrus.Infof("follower range: %d - %s", criteria.MinFollowers, maxFollowers)
	}

	logrus.Info("press Ctrl+C to stop")
}

func serveDebug(
	ctx context.Context,
	configService *config.Service,
	monitor *streamMonitorService.StreamMonitorService,
	ledger *notificationLedgerService.NotificationLedgerService,
) {
	debugAddr := os.Getenv("DEBUG_ADDR")
	if debugAddr == "" {
		debugAddr = defaultDebugAddr
	}

	handler := statusHandler.NewStatusHandler(configService, monitor, ledger)

	router := mux.NewRouter()
	router.HandleFunc("/status", handler.GetStatus).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	srv := &http.Server{
		Handler:      router,
		Addr:         debugAddr,
		WriteTimeout: 5 * time.Second,
		ReadTimeout:  5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	logrus.Infof("debug server listening on %s", debugAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Errorf("debug server stopped: %v", err)
	}
}
