package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/energy"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/metrics"
)

// AnomalyDevices are the devices offered for anomaly review.
var AnomalyDevices = []string{"socket_1", "socket_2", "bulb_1", "bulb_2"}

const DefaultAnomalyDevice = "socket_1"

type AnomalyRow struct {
	Timestamp time.Time `json:"timestamp"`
	Power     float64   `json:"power_w"`
}

type AnomaliesView struct {
	Phase     Phase     `json:"phase"`
	UpdatedAt time.Time `json:"updated_at"`

	Device    string           `json:"device"`
	Devices   []string         `json:"devices"`
	Threshold float64          `json:"threshold_w"`
	Anomalies []domain.Reading `json:"anomalies"`
	Rows      []AnomalyRow     `json:"rows"`

	Editor EditorView `json:"editor"`
}

// Anomalies shows the server-flagged readings of one selected device. It
// has no timer; it fetches when the selection changes.
type Anomalies struct {
	api    AnomalyAPI
	opts   Options
	editor *ThresholdEditor

	mu     sync.Mutex
	phase  Phase
	device string
	view   AnomaliesView
}

func NewAnomalies(client AnomalyAPI, opts Options) *Anomalies {
	return &Anomalies{
		api:    client,
		opts:   opts.withDefaults(DefaultInterval),
		editor: NewThresholdEditor(energy.DefaultThreshold),
	}
}

func (a *Anomalies) Editor() *ThresholdEditor { return a.editor }

// Select makes device the current selection. A change of device discards any
// edit in progress and fetches the new device's anomalies and threshold once.
// Selecting the current device again does nothing once it has loaded.
func (a *Anomalies) Select(ctx context.Context, device string) error {
	if device == "" {
		device = DefaultAnomalyDevice
	}

	a.mu.Lock()
	if device == a.device && a.phase != PhaseIdle {
		a.mu.Unlock()
		return nil
	}
	a.device = device
	a.phase = PhaseLoading
	a.view = AnomaliesView{Device: device, Threshold: energy.DefaultThreshold}
	a.editor.Reset(energy.DefaultThreshold)
	a.mu.Unlock()

	return a.Refresh(ctx)
}

func (a *Anomalies) View() AnomaliesView {
	a.mu.Lock()
	v := a.view
	v.Phase = a.phase
	a.mu.Unlock()

	v.Devices = AnomalyDevices
	v.Editor = a.editor.View()
	if v.Editor.State == EditorSaving {
		v.Phase = PhaseSaving
	}
	return v
}

// Refresh reloads the current device. A failed threshold fetch falls back to
// the default threshold instead of failing the cycle.
func (a *Anomalies) Refresh(ctx context.Context) error {
	a.mu.Lock()
	device := a.device
	a.mu.Unlock()
	if device == "" {
		return nil
	}

	var (
		resp      *domain.AnomalyResponse
		threshold = energy.DefaultThreshold
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		resp, err = a.api.Anomalies(gctx, device)
		return err
	})
	g.Go(func() error {
		dev, err := a.api.DeviceThreshold(gctx, device)
		if err != nil {
			log.Warn().Err(err).Str("device", device).Msg("threshold unavailable, using default")
			return nil
		}
		threshold = energy.ResolveThreshold(dev)
		return nil
	})
	err := g.Wait()
	metrics.RecordPollCycle("anomalies", err)
	if err != nil {
		log.Error().Err(err).Str("view", "anomalies").Str("device", device).Msg("refresh failed")
		a.mu.Lock()
		if a.device == device && a.phase == PhaseLoading {
			a.phase = PhaseReady
		}
		a.mu.Unlock()
		return fmt.Errorf("refresh anomalies %s: %w", device, err)
	}

	v := AnomaliesView{
		UpdatedAt: a.opts.Now(),
		Device:    device,
		Threshold: threshold,
		Anomalies: resp.Anomalies,
		Rows:      make([]AnomalyRow, 0, len(resp.Anomalies)),
	}
	for _, r := range resp.Anomalies {
		v.Rows = append(v.Rows, AnomalyRow{Timestamp: r.Timestamp.Time, Power: energy.Power(r)})
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.device != device {
		return nil
	}
	a.view = v
	a.phase = PhaseReady
	a.editor.Sync(threshold)
	return nil
}

// SaveThreshold stores the editor's draft for the selected device and reloads
// the list, since the server recomputes anomalies against the new threshold.
func (a *Anomalies) SaveThreshold(ctx context.Context) error {
	a.mu.Lock()
	device := a.device
	a.mu.Unlock()

	err := a.editor.Save(ctx, func(ctx context.Context, v float64) (float64, error) {
		dev, err := a.api.SetDeviceThreshold(ctx, device, v)
		if err != nil {
			return 0, err
		}
		return dev.Threshold, nil
	})
	if errors.Is(err, ErrSaveSuperseded) {
		log.Debug().Str("device", device).Msg("threshold save finished after device switch")
		return nil
	}
	if err != nil {
		log.Error().Err(err).Str("device", device).Msg("threshold update failed")
		return err
	}
	a.Refresh(ctx)
	return nil
}
