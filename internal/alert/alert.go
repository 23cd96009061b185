// Package alert turns dashboard commits into one-shot anomaly notifications.
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/dashboard"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/energy"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/metrics"
)

const notifyTimeout = 5 * time.Second

// Alert reports that a device went above its threshold.
type Alert struct {
	Device    string    `json:"device"`
	Name      string    `json:"name"`
	Power     float64   `json:"power_w"`
	Threshold float64   `json:"threshold_w"`
	At        time.Time `json:"at"`
}

func (a Alert) String() string {
	return fmt.Sprintf("%s drawing %.1f W (threshold %.1f W)", a.Name, a.Power, a.Threshold)
}

type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

type sink struct {
	name string
	n    Notifier
}

// Watcher fires once when a device enters the anomaly state and re-arms when
// it returns to normal or drops out of the live readings.
type Watcher struct {
	mu     sync.Mutex
	sinks  []sink
	firing map[string]bool
}

func NewWatcher() *Watcher {
	return &Watcher{firing: map[string]bool{}}
}

func (w *Watcher) AddSink(name string, n Notifier) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sinks = append(w.sinks, sink{name: name, n: n})
}

// Check updates the watcher's state from cards and returns the alerts for
// devices that just crossed their threshold.
func (w *Watcher) Check(cards []dashboard.DeviceCard, at time.Time) []Alert {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]bool, len(cards))
	var alerts []Alert
	for _, c := range cards {
		seen[c.Device] = true
		anomalous := c.Status == energy.StatusAnomaly
		if anomalous && !w.firing[c.Device] {
			alerts = append(alerts, Alert{
				Device:    c.Device,
				Name:      c.Name,
				Power:     c.Power,
				Threshold: c.Threshold,
				At:        at,
			})
		}
		w.firing[c.Device] = anomalous
	}
	for dev := range w.firing {
		if !seen[dev] {
			delete(w.firing, dev)
		}
	}
	return alerts
}

// Observe is meant for Dashboard.OnCommit. Sink failures are logged and
// counted, never returned.
func (w *Watcher) Observe(v dashboard.DashboardView) {
	at := v.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}
	alerts := w.Check(v.Cards, at)
	if len(alerts) == 0 {
		return
	}

	w.mu.Lock()
	sinks := append([]sink(nil), w.sinks...)
	w.mu.Unlock()

	for _, a := range alerts {
		log.Warn().
			Str("device", a.Device).
			Float64("power_w", a.Power).
			Float64("threshold_w", a.Threshold).
			Msg("device above threshold")
		for _, s := range sinks {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			err := s.n.Notify(ctx, a)
			cancel()
			metrics.RecordAlert(s.name, err)
			if err != nil {
				log.Error().Err(err).Str("sink", s.name).Str("device", a.Device).Msg("alert delivery failed")
			}
		}
	}
}
