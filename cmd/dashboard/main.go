package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/alert"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/api"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/cloud"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/config"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/dashboard"
	httpHandlers "github.com/ANIKETSHETTY47/home-energy-dashboard/internal/http"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := api.New(config.APIBaseURL(), config.APITimeout())
	opts := dashboard.Options{
		Interval: config.PollInterval(),
		Tariff:   config.TariffPerKWh(),
	}
	relayOpts := opts
	relayOpts.Interval = config.RelayPollInterval()

	views := &httpHandlers.Views{
		Dashboard: dashboard.NewDashboard(client, opts),
		Device:    dashboard.NewDeviceDetail(client, opts),
		Anomalies: dashboard.NewAnomalies(client, opts),
		Forecast:  dashboard.NewForecast(client, opts),
		Relays:    dashboard.NewRelayControl(client, relayOpts),
		Chat:      dashboard.NewChatSession(client),
	}

	watcher := alert.NewWatcher()
	var mqttPub *alert.MQTTPublisher
	if broker := config.MQTTBroker(); broker != "" {
		p, err := alert.NewMQTTPublisher(broker, config.MQTTAlertTopic())
		if err != nil {
			log.Error().Err(err).Msg("mqtt alerts disabled")
		} else {
			mqttPub = p
			watcher.AddSink("mqtt", p)
		}
	}
	if config.UseCloudServices() && config.SNSTopicArn() != "" {
		snsClient, err := cloud.NewSNSClient(ctx, config.AWSRegion(), config.SNSTopicArn())
		if err != nil {
			log.Error().Err(err).Msg("sns alerts disabled")
		} else {
			watcher.AddSink("sns", snsClient)
		}
	}
	views.Dashboard.OnCommit(watcher.Observe)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(logger.New())
	app.Use(recover.New())
	httpHandlers.Register(app, views)

	views.Dashboard.Activate(ctx)
	views.Relays.Activate(ctx)

	go func() {
		addr := config.DashboardAddr()
		log.Info().Str("addr", addr).Str("api_url", client.BaseURL()).Msg("dashboard listening")
		if err := app.Listen(addr); err != nil {
			log.Fatal().Err(err).Msg("server exit")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	views.Dashboard.Deactivate()
	views.Device.Deactivate()
	views.Relays.Deactivate()
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if mqttPub != nil {
		mqttPub.Close()
	}
}

func setupLogging() {
	level, err := zerolog.ParseLevel(config.LogLevel())
	if err != nil {
		log.Warn().Str("level", config.LogLevel()).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if config.LogPretty() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
