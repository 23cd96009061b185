package config

import (
	"errors"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	defaultAPIURL = "http://localhost:8000"
	renderSuffix  = ".onrender.com"
)

var (
	baseURLOnce sync.Once
	baseURL     string
)

func Load() error {
	// .env is optional; the process environment always wins
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env")
	}

	// Backend API
	viper.SetDefault("API_URL", defaultAPIURL)
	viper.SetDefault("API_TIMEOUT", 10*time.Second)

	// Dashboard
	viper.SetDefault("DASHBOARD_ADDR", ":3000")
	viper.SetDefault("POLL_INTERVAL", 10*time.Second)
	viper.SetDefault("RELAY_POLL_INTERVAL", 5*time.Second)
	viper.SetDefault("TARIFF_PER_KWH", 2.20)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_PRETTY", "false")

	// Alerts
	viper.SetDefault("MQTT_BROKER", "")
	viper.SetDefault("MQTT_ALERT_TOPIC", "energy/alerts")
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("AWS_SNS_TOPIC_ARN", "")
	viper.SetDefault("USE_CLOUD_SERVICES", "false") // Toggle for local vs cloud

	viper.AutomaticEnv()
	return nil
}

// APIBaseURL resolves the backend origin once per process. Later changes to
// the environment are ignored.
func APIBaseURL() string {
	baseURLOnce.Do(func() {
		baseURL = NormalizeAPIURL(viper.GetString("API_URL"))
		log.Info().Str("api_url", baseURL).Msg("api base url resolved")
	})
	return baseURL
}

// NormalizeAPIURL applies the origin rules: a bare service name gets the
// hosting domain appended, and a missing scheme becomes https.
func NormalizeAPIURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		u = defaultAPIURL
	}
	if !strings.Contains(u, ".") && !strings.Contains(u, "localhost") {
		u += renderSuffix
	}
	if !strings.HasPrefix(u, "http") {
		u = "https://" + u
	}
	return strings.TrimRight(u, "/")
}

func APITimeout() time.Duration        { return viper.GetDuration("API_TIMEOUT") }
func DashboardAddr() string            { return viper.GetString("DASHBOARD_ADDR") }
func PollInterval() time.Duration      { return viper.GetDuration("POLL_INTERVAL") }
func RelayPollInterval() time.Duration { return viper.GetDuration("RELAY_POLL_INTERVAL") }
func TariffPerKWh() float64            { return viper.GetFloat64("TARIFF_PER_KWH") }
func LogLevel() string                 { return viper.GetString("LOG_LEVEL") }
func LogPretty() bool                  { return viper.GetBool("LOG_PRETTY") }
func MQTTBroker() string               { return viper.GetString("MQTT_BROKER") }
func MQTTAlertTopic() string           { return viper.GetString("MQTT_ALERT_TOPIC") }
func AWSRegion() string                { return viper.GetString("AWS_REGION") }
func SNSTopicArn() string              { return viper.GetString("AWS_SNS_TOPIC_ARN") }
func UseCloudServices() bool           { return viper.GetBool("USE_CLOUD_SERVICES") }
