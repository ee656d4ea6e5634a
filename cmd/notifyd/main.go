package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetdesk/notify/internal/config"
	"github.com/fleetdesk/notify/internal/logging"
	"github.com/fleetdesk/notify/internal/observability"
	"github.com/fleetdesk/notify/internal/server"
	"github.com/fleetdesk/notify/internal/session"
	"github.com/fleetdesk/notify/internal/transport/wameow"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	logging.ConfigureRuntime()
	logger := logging.New("notifyd")
	observability.RegisterMetrics()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("config_load_failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transport := wameow.New(wameow.Config{
		StoreDSN:   cfg.Transport.StoreDSN,
		DeviceName: cfg.Transport.DeviceName,
		ProxyURL:   cfg.Transport.ProxyURL,
		QRTerminal: cfg.Transport.QRTerminal,
	}, logging.New("wameow"))

	client, err := session.NewClient(transport, cfg.Delivery.SessionConfig(), logging.New("session"))
	if err != nil {
		logger.Fatal().Err(err).Msg("session_client_failed")
	}

	if _, err := client.Initialize(ctx); err != nil {
		// Keep serving: operators can retry via POST /v1/session/connect
		// once the underlying cause (store, network) is fixed.
		logger.Error().Err(err).Msg("session_initialize_failed")
	}

	srv := server.New(cfg.Server, client, logging.New("http"))
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("http_listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http_server_failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown_started")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http_shutdown_failed")
	}
	client.Disconnect(shutdownCtx)
	logger.Info().Msg("shutdown_complete")
}
