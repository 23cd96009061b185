package main

import (
	"context"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/alert"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/config"
)

// alertwatch follows the alert topic and logs every alert the dashboard
// publishes.
func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	broker := config.MQTTBroker()
	if broker == "" {
		log.Fatal().Msg("MQTT_BROKER is not set")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("home-energy-alertwatch-" + uuid.NewString()[:8])
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		a, err := alert.Decode(msg.Payload())
		if err != nil {
			log.Error().Err(err).Str("topic", msg.Topic()).Msg("bad alert payload")
			return
		}
		log.Warn().
			Str("device", a.Device).
			Float64("power_w", a.Power).
			Float64("threshold_w", a.Threshold).
			Time("at", a.At).
			Msg(a.String())
	}

	topic := config.MQTTAlertTopic()
	if token := client.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("subscribe failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log.Info().Str("topic", topic).Msg("alertwatch running; Ctrl+C to stop")
	<-ctx.Done()
}
