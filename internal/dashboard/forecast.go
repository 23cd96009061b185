package dashboard

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/api"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/metrics"
)

var Horizons = []int{3, 7, 14, 30}

const (
	DefaultHorizon = 7

	NoOutlook = "No specific outlook available yet."
	NoTip     = "No specific saving tips available based on current data."
)

type ForecastView struct {
	Phase     Phase     `json:"phase"`
	UpdatedAt time.Time `json:"updated_at"`

	Days           int                   `json:"days"`
	Horizons       []int                 `json:"horizons"`
	Forecast       []domain.ForecastItem `json:"forecast"`
	TotalPredicted float64               `json:"total_predicted_kwh"`
	Outlook        string                `json:"outlook"`
	Tip            string                `json:"tip"`
}

// Forecast loads the prediction for the selected horizon whenever the
// horizon changes.
type Forecast struct {
	api  ForecastAPI
	opts Options

	mu    sync.Mutex
	phase Phase
	days  int
	view  ForecastView
}

func NewForecast(client ForecastAPI, opts Options) *Forecast {
	return &Forecast{api: client, opts: opts.withDefaults(DefaultInterval)}
}

// SetHorizon selects days, which must be one of Horizons, and fetches it
// unless it is already loaded. Zero selects DefaultHorizon.
func (f *Forecast) SetHorizon(ctx context.Context, days int) error {
	if days == 0 {
		days = DefaultHorizon
	}
	if !slices.Contains(Horizons, days) {
		return &api.ValidationError{Field: "days", Reason: fmt.Sprintf("must be one of %v", Horizons)}
	}

	f.mu.Lock()
	if days == f.days && f.phase != PhaseIdle {
		f.mu.Unlock()
		return nil
	}
	f.days = days
	f.phase = PhaseLoading
	f.mu.Unlock()

	return f.Refresh(ctx)
}

func (f *Forecast) View() ForecastView {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.view
	v.Phase = f.phase
	v.Days = f.days
	v.Horizons = Horizons
	if v.Outlook == "" {
		v.Outlook = NoOutlook
	}
	if v.Tip == "" {
		v.Tip = NoTip
	}
	return v
}

func (f *Forecast) Refresh(ctx context.Context) error {
	f.mu.Lock()
	days := f.days
	f.mu.Unlock()
	if days == 0 {
		return nil
	}

	resp, err := f.api.Forecast(ctx, days)
	metrics.RecordPollCycle("forecast", err)
	if err != nil {
		log.Error().Err(err).Str("view", "forecast").Int("days", days).Msg("refresh failed")
		f.mu.Lock()
		if f.days == days && f.phase == PhaseLoading {
			f.phase = PhaseReady
		}
		f.mu.Unlock()
		return fmt.Errorf("refresh forecast %dd: %w", days, err)
	}

	v := ForecastView{
		UpdatedAt: f.opts.Now(),
		Forecast:  resp.Forecast,
		Outlook:   strings.TrimSpace(resp.Outlook),
		Tip:       strings.TrimSpace(resp.Tip),
	}
	for _, item := range resp.Forecast {
		v.TotalPredicted += item.PredictedEnergy
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.days != days {
		return nil
	}
	f.view = v
	f.phase = PhaseReady
	return nil
}
