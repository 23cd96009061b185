package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/api"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/domain"
)

func TestForecast_SetHorizon(t *testing.T) {
	backend := newFakeBackend()
	backend.forecast[3] = &domain.ForecastResponse{
		Forecast: []domain.ForecastItem{
			{Date: "2025-06-02", PredictedEnergy: 1.5},
			{Date: "2025-06-03", PredictedEnergy: 2.5},
		},
		Outlook: "Usage should stay flat.",
	}
	f := NewForecast(backend, Options{})
	ctx := context.Background()

	if err := f.SetHorizon(ctx, 0); err != nil {
		t.Fatalf("SetHorizon(0) error = %v", err)
	}
	if backend.lastDays != DefaultHorizon {
		t.Errorf("requested days = %d, want %d", backend.lastDays, DefaultHorizon)
	}
	v := f.View()
	if v.Outlook != NoOutlook || v.Tip != NoTip {
		t.Errorf("placeholders = %q / %q", v.Outlook, v.Tip)
	}

	if err := f.SetHorizon(ctx, 3); err != nil {
		t.Fatalf("SetHorizon(3) error = %v", err)
	}
	v = f.View()
	if v.Days != 3 || len(v.Forecast) != 2 || v.TotalPredicted != 4 {
		t.Errorf("view = %+v", v)
	}
	if v.Outlook != "Usage should stay flat." || v.Tip != NoTip {
		t.Errorf("outlook = %q tip = %q", v.Outlook, v.Tip)
	}

	f.SetHorizon(ctx, 3)
	if got := backend.count("Forecast"); got != 2 {
		t.Errorf("forecast fetches = %d, want 2", got)
	}
}

func TestForecast_InvalidHorizon(t *testing.T) {
	backend := newFakeBackend()
	f := NewForecast(backend, Options{})

	for _, days := range []int{-1, 5, 31} {
		err := f.SetHorizon(context.Background(), days)
		if !errors.As(err, new(*api.ValidationError)) {
			t.Errorf("SetHorizon(%d) error = %v, want *api.ValidationError", days, err)
		}
	}
	if got := backend.count("Forecast"); got != 0 {
		t.Errorf("forecast fetches = %d, want 0", got)
	}
}

func TestForecast_FailureKeepsPrevious(t *testing.T) {
	backend := newFakeBackend()
	backend.forecast[7] = &domain.ForecastResponse{
		Forecast: []domain.ForecastItem{{Date: "2025-06-02", PredictedEnergy: 3}},
		Tip:      "Run the washer at night.",
	}
	f := NewForecast(backend, Options{})
	f.SetHorizon(context.Background(), 7)

	backend.fail("Forecast", errBackend)
	if err := f.SetHorizon(context.Background(), 14); !errors.Is(err, errBackend) {
		t.Fatalf("SetHorizon(14) error = %v, want %v", err, errBackend)
	}
	v := f.View()
	if v.Days != 14 || v.Phase != PhaseReady {
		t.Errorf("days = %d phase = %v", v.Days, v.Phase)
	}
	if len(v.Forecast) != 1 || v.Tip != "Run the washer at night." {
		t.Errorf("view = %+v, want last good forecast kept", v)
	}
}
