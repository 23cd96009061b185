package dashboard

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/poll/polltest"
)

var errBackend = errors.New("backend unavailable")

// fakeBackend stands in for *api.Client. It counts calls per method and can
// fail any method on demand.
type fakeBackend struct {
	mu sync.Mutex

	readings   []domain.Reading
	summary    *domain.DailySummary
	devices    []domain.Device
	history    map[string][]domain.Reading
	thresholds map[string]float64
	anomalies  map[string][]domain.Reading
	forecast   map[int]*domain.ForecastResponse
	relays     domain.RelayStates
	answer     string

	errs       map[string]error
	calls      map[string]int
	lastLimit  int
	lastDays   int
	lastDay    time.Time
	relayGate  chan struct{}
	relayEnter chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		history:    map[string][]domain.Reading{},
		thresholds: map[string]float64{},
		anomalies:  map[string][]domain.Reading{},
		forecast:   map[int]*domain.ForecastResponse{},
		relays:     domain.RelayStates{},
		errs:       map[string]error{},
		calls:      map[string]int{},
	}
}

func (f *fakeBackend) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.errs[method]
}

func (f *fakeBackend) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeBackend) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

func (f *fakeBackend) LatestReadings(ctx context.Context) ([]domain.Reading, error) {
	if err := f.record("LatestReadings"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.readings), nil
}

func (f *fakeBackend) DailySummary(ctx context.Context, day time.Time) (*domain.DailySummary, error) {
	if err := f.record("DailySummary"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastDay = day
	if f.summary == nil {
		return &domain.DailySummary{Date: day.Format("2006-01-02")}, nil
	}
	s := *f.summary
	return &s, nil
}

func (f *fakeBackend) Devices(ctx context.Context) ([]domain.Device, error) {
	if err := f.record("Devices"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.devices), nil
}

func (f *fakeBackend) DeviceReadings(ctx context.Context, device string, limit int) ([]domain.Reading, error) {
	if err := f.record("DeviceReadings"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	return slices.Clone(f.history[device]), nil
}

func (f *fakeBackend) DeviceThreshold(ctx context.Context, device string) (*domain.Device, error) {
	if err := f.record("DeviceThreshold"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	th, ok := f.thresholds[device]
	if !ok {
		th = 2500
	}
	return &domain.Device{ID: device, Threshold: th}, nil
}

func (f *fakeBackend) SetDeviceThreshold(ctx context.Context, device string, threshold float64) (*domain.Device, error) {
	if err := f.record("SetDeviceThreshold"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thresholds[device] = threshold
	return &domain.Device{ID: device, Threshold: threshold}, nil
}

func (f *fakeBackend) Anomalies(ctx context.Context, device string) (*domain.AnomalyResponse, error) {
	if err := f.record("Anomalies"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &domain.AnomalyResponse{
		DeviceID:  device,
		Threshold: f.thresholds[device],
		Anomalies: slices.Clone(f.anomalies[device]),
	}, nil
}

func (f *fakeBackend) Forecast(ctx context.Context, days int) (*domain.ForecastResponse, error) {
	if err := f.record("Forecast"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastDays = days
	if r, ok := f.forecast[days]; ok {
		return r, nil
	}
	return &domain.ForecastResponse{}, nil
}

func (f *fakeBackend) RelayStates(ctx context.Context) (domain.RelayStates, error) {
	if err := f.record("RelayStates"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.relays), nil
}

// SetRelayState reports success without changing f.relays, like hardware
// that has not caught up yet.
func (f *fakeBackend) SetRelayState(ctx context.Context, relayID string, state bool) (*domain.RelayUpdateResult, error) {
	f.mu.Lock()
	gate, enter := f.relayGate, f.relayEnter
	f.mu.Unlock()
	if enter != nil {
		enter <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err := f.record("SetRelayState"); err != nil {
		return nil, err
	}
	return &domain.RelayUpdateResult{RelayID: relayID, State: state}, nil
}

func (f *fakeBackend) Chat(ctx context.Context, question, sessionID string) (*domain.ChatAnswer, error) {
	if err := f.record("Chat"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &domain.ChatAnswer{Answer: f.answer}, nil
}

func testOptions(f *polltest.Factory) Options {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return Options{
		NewTicker: f.New,
		Now:       func() time.Time { return fixed },
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}
