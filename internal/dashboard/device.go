package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/api"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/energy"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/metrics"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/poll"
)

// DeviceView is the device detail snapshot. History runs oldest to newest.
type DeviceView struct {
	Phase     Phase     `json:"phase"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`

	Device         string           `json:"device"`
	Name           string           `json:"name"`
	History        []domain.Reading `json:"history"`
	Threshold      float64          `json:"threshold_w"`
	CurrentPower   float64          `json:"current_power_w"`
	Status         energy.Status    `json:"status"`
	AverageCurrent float64          `json:"average_current_a"`
	AverageVoltage float64          `json:"average_voltage_v"`

	Editor EditorView `json:"editor"`
}

// DeviceDetail follows one device's recent history and threshold.
type DeviceDetail struct {
	api    DeviceAPI
	opts   Options
	editor *ThresholdEditor

	// switchMu serializes device switches so only one schedule is installed.
	switchMu sync.Mutex

	mu     sync.Mutex
	phase  Phase
	device string
	view   DeviceView
	sched  *poll.Schedule
}

func NewDeviceDetail(client DeviceAPI, opts Options) *DeviceDetail {
	return &DeviceDetail{
		api:    client,
		opts:   opts.withDefaults(DefaultInterval),
		editor: NewThresholdEditor(energy.DefaultThreshold),
	}
}

func (d *DeviceDetail) Editor() *ThresholdEditor { return d.editor }

// SetDevice switches the view to id. The old schedule is cancelled before
// anything else, the editor goes back to Viewing, then the new device is
// fetched and polled. Selecting the current device again only activates it if
// it was inactive.
func (d *DeviceDetail) SetDevice(ctx context.Context, id string) error {
	if id == "" {
		return &api.ValidationError{Field: "device", Reason: "must not be empty"}
	}

	d.switchMu.Lock()
	d.mu.Lock()
	if id == d.device && d.sched != nil {
		d.mu.Unlock()
		d.switchMu.Unlock()
		return nil
	}
	old := d.sched
	d.sched = nil
	d.mu.Unlock()
	old.Cancel()

	d.mu.Lock()
	d.device = id
	d.phase = PhaseLoading
	d.view = DeviceView{Device: id, Name: energy.DisplayName(id), Status: energy.StatusNormal}
	d.editor.Reset(energy.DefaultThreshold)
	d.sched = poll.Every(d.opts.Interval, d.opts.NewTicker, func() {
		d.Refresh(context.Background())
	})
	d.mu.Unlock()
	d.switchMu.Unlock()

	log.Info().Str("device", id).Msg("device detail selected")
	return d.Refresh(ctx)
}

func (d *DeviceDetail) Deactivate() {
	d.mu.Lock()
	s := d.sched
	d.sched = nil
	d.mu.Unlock()
	s.Cancel()
}

func (d *DeviceDetail) View() DeviceView {
	d.mu.Lock()
	v := d.view
	v.Phase = d.phase
	v.Active = d.sched != nil
	d.mu.Unlock()

	v.Editor = d.editor.View()
	if v.Editor.State == EditorSaving {
		v.Phase = PhaseSaving
	}
	return v
}

// Refresh fetches the history and threshold of the current device together.
// A response for a device that is no longer selected is dropped.
func (d *DeviceDetail) Refresh(ctx context.Context) error {
	d.mu.Lock()
	device := d.device
	d.mu.Unlock()
	if device == "" {
		return nil
	}

	var (
		history []domain.Reading
		dev     *domain.Device
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		history, err = d.api.DeviceReadings(gctx, device, DeviceHistoryLimit)
		return err
	})
	g.Go(func() (err error) {
		dev, err = d.api.DeviceThreshold(gctx, device)
		return err
	})
	err := g.Wait()
	metrics.RecordPollCycle("device", err)
	if err != nil {
		log.Error().Err(err).Str("view", "device").Str("device", device).Msg("refresh failed")
		d.mu.Lock()
		if d.device == device && d.phase == PhaseLoading {
			d.phase = PhaseReady
		}
		d.mu.Unlock()
		return fmt.Errorf("refresh device %s: %w", device, err)
	}

	v := buildDeviceView(device, history, dev)
	v.UpdatedAt = d.opts.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device != device {
		log.Debug().Str("device", device).Msg("dropping response for deselected device")
		return nil
	}
	d.view = v
	d.phase = PhaseReady
	d.editor.Sync(v.Threshold)
	return nil
}

// SaveThreshold submits the editor's draft for the current device and
// reloads the view once it is stored.
func (d *DeviceDetail) SaveThreshold(ctx context.Context) error {
	d.mu.Lock()
	device := d.device
	d.mu.Unlock()

	err := d.editor.Save(ctx, func(ctx context.Context, v float64) (float64, error) {
		dev, err := d.api.SetDeviceThreshold(ctx, device, v)
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
	log.Info().Str("device", device).Float64("threshold_w", d.editor.View().Value).Msg("threshold updated")
	d.Refresh(ctx)
	return nil
}

func buildDeviceView(device string, newestFirst []domain.Reading, dev *domain.Device) DeviceView {
	history := slices.Clone(newestFirst)
	slices.Reverse(history)

	v := DeviceView{
		Device:         device,
		Name:           energy.DisplayName(device),
		History:        history,
		Threshold:      energy.ResolveThreshold(dev),
		Status:         energy.StatusNormal,
		AverageCurrent: energy.AverageCurrent(history),
		AverageVoltage: energy.AverageVoltage(history),
	}
	if n := len(history); n > 0 {
		latest := history[n-1]
		v.CurrentPower = energy.Power(latest)
		v.Status = energy.ReadingStatus(latest, dev)
	}
	return v
}
