package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/energy"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/metrics"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/poll"
)

type DeviceCard struct {
	Device      string        `json:"device"`
	Name        string        `json:"name"`
	Status      energy.Status `json:"status"`
	Power       float64       `json:"power_w"`
	Threshold   float64       `json:"threshold_w"`
	EnergyToday float64       `json:"energy_today_kwh"`
	LastUpdate  time.Time     `json:"last_update"`
}

type DashboardView struct {
	Phase     Phase     `json:"phase"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`

	Readings []domain.Reading     `json:"readings"`
	Summary  *domain.DailySummary `json:"summary"`
	Devices  []domain.Device      `json:"devices"`

	TotalPower    float64      `json:"total_power_w"`
	EnergyToday   float64      `json:"energy_today_kwh"`
	PowerTrend    float64      `json:"power_trend"`
	AnomalyCount  int          `json:"anomaly_count"`
	EstimatedCost float64      `json:"estimated_cost"`
	Cards         []DeviceCard `json:"cards"`
}

// Dashboard polls the latest readings, today's summary and the device list
// together and derives the overview cards from them.
type Dashboard struct {
	api  DashboardAPI
	opts Options

	mu        sync.Mutex
	phase     Phase
	active    bool
	view      DashboardView
	sched     *poll.Schedule
	observers []func(DashboardView)
}

func NewDashboard(client DashboardAPI, opts Options) *Dashboard {
	return &Dashboard{api: client, opts: opts.withDefaults(DefaultInterval)}
}

// OnCommit registers fn to run after every successful refresh.
func (d *Dashboard) OnCommit(fn func(DashboardView)) {
	d.mu.Lock()
	d.observers = append(d.observers, fn)
	d.mu.Unlock()
}

// Activate runs the first refresh and starts polling. It is a no-op while
// already active.
func (d *Dashboard) Activate(ctx context.Context) {
	d.mu.Lock()
	if d.active {
		d.mu.Unlock()
		return
	}
	d.active = true
	if d.phase == PhaseIdle {
		d.phase = PhaseLoading
	}
	d.sched = poll.Every(d.opts.Interval, d.opts.NewTicker, func() {
		d.Refresh(context.Background())
	})
	d.mu.Unlock()

	d.Refresh(ctx)
}

// Deactivate stops polling. Responses already in flight still commit.
func (d *Dashboard) Deactivate() {
	d.mu.Lock()
	s := d.sched
	d.sched = nil
	d.active = false
	d.mu.Unlock()
	s.Cancel()
}

func (d *Dashboard) View() DashboardView {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.view
	v.Phase = d.phase
	v.Active = d.active
	return v
}

// Refresh runs one cycle. The three fetches run concurrently and commit only
// if all of them succeed.
func (d *Dashboard) Refresh(ctx context.Context) error {
	var (
		readings []domain.Reading
		summary  *domain.DailySummary
		devices  []domain.Device
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		readings, err = d.api.LatestReadings(gctx)
		return err
	})
	g.Go(func() (err error) {
		// the backend keys days by UTC date
		summary, err = d.api.DailySummary(gctx, d.opts.Now().UTC())
		return err
	})
	g.Go(func() (err error) {
		devices, err = d.api.Devices(gctx)
		return err
	})
	err := g.Wait()
	metrics.RecordPollCycle("dashboard", err)
	if err != nil {
		log.Error().Err(err).Str("view", "dashboard").Msg("refresh failed")
		d.settle()
		return fmt.Errorf("refresh dashboard: %w", err)
	}

	v := buildDashboardView(readings, summary, devices, d.opts.Tariff)
	v.UpdatedAt = d.opts.Now()

	d.mu.Lock()
	d.phase = PhaseReady
	v.Phase, v.Active = d.phase, d.active
	d.view = v
	observers := append([]func(DashboardView){}, d.observers...)
	d.mu.Unlock()

	metrics.UpdateDashboardTotals(v.TotalPower, v.AnomalyCount)
	log.Debug().
		Float64("total_power_w", v.TotalPower).
		Int("anomalies", v.AnomalyCount).
		Int("devices", len(v.Cards)).
		Msg("dashboard refreshed")
	for _, fn := range observers {
		fn(v)
	}
	return nil
}

func (d *Dashboard) settle() {
	d.mu.Lock()
	if d.phase == PhaseLoading {
		d.phase = PhaseReady
	}
	d.mu.Unlock()
}

func buildDashboardView(readings []domain.Reading, summary *domain.DailySummary, devices []domain.Device, tariff float64) DashboardView {
	live := energy.LiveReadings(readings)
	v := DashboardView{
		Readings:      live,
		Summary:       summary,
		Devices:       devices,
		TotalPower:    energy.TotalPower(live),
		AnomalyCount:  energy.AnomalyCount(live, devices),
		EstimatedCost: energy.EstimatedCost(summary, tariff),
		Cards:         make([]DeviceCard, 0, len(live)),
	}
	if summary != nil {
		v.EnergyToday = summary.TotalEnergy
		v.PowerTrend = summary.PowerTrend
	}
	for _, r := range live {
		dev := energy.FindDevice(devices, r.Device)
		v.Cards = append(v.Cards, DeviceCard{
			Device:      r.Device,
			Name:        energy.DisplayName(r.Device),
			Status:      energy.ReadingStatus(r, dev),
			Power:       energy.Power(r),
			Threshold:   energy.ResolveThreshold(dev),
			EnergyToday: energy.EnergyForDevice(summary, r.Device),
			LastUpdate:  r.Timestamp.Time,
		})
	}
	return v
}
