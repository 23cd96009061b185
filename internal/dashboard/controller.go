// Package dashboard holds one controller per view. A controller fetches what
// its view needs, derives display values and keeps the latest snapshot for the
// renderer. Controllers never return fetch errors to the renderer; they log
// them and keep the last good snapshot.
package dashboard

import (
	"context"
	"time"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/energy"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/poll"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseSaving
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseSaving:
		return "saving"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

const (
	DefaultInterval      = 10 * time.Second
	DefaultRelayInterval = 5 * time.Second
	DeviceHistoryLimit   = 30
)

// Options tune a controller. Zero values pick the defaults.
type Options struct {
	Interval  time.Duration
	NewTicker poll.TickerFunc

	// Now returns the current time; the dashboard uses it to pick the day
	// whose summary it shows.
	Now    func() time.Time
	Tariff float64
}

func (o Options) withDefaults(interval time.Duration) Options {
	if o.Interval <= 0 {
		o.Interval = interval
	}
	if o.NewTicker == nil {
		o.NewTicker = poll.NewTicker
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Tariff <= 0 {
		o.Tariff = energy.DefaultTariff
	}
	return o
}

// The controllers depend on these narrow views of *api.Client.

type DashboardAPI interface {
	LatestReadings(ctx context.Context) ([]domain.Reading, error)
	DailySummary(ctx context.Context, day time.Time) (*domain.DailySummary, error)
	Devices(ctx context.Context) ([]domain.Device, error)
}

type ThresholdAPI interface {
	DeviceThreshold(ctx context.Context, device string) (*domain.Device, error)
	SetDeviceThreshold(ctx context.Context, device string, threshold float64) (*domain.Device, error)
}

type DeviceAPI interface {
	ThresholdAPI
	DeviceReadings(ctx context.Context, device string, limit int) ([]domain.Reading, error)
}

type AnomalyAPI interface {
	ThresholdAPI
	Anomalies(ctx context.Context, device string) (*domain.AnomalyResponse, error)
}

type ForecastAPI interface {
	Forecast(ctx context.Context, days int) (*domain.ForecastResponse, error)
}

type RelayAPI interface {
	RelayStates(ctx context.Context) (domain.RelayStates, error)
	SetRelayState(ctx context.Context, relayID string, state bool) (*domain.RelayUpdateResult, error)
}

type ChatAPI interface {
	Chat(ctx context.Context, question, sessionID string) (*domain.ChatAnswer, error)
}
