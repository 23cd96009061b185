package dashboard

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/api"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/metrics"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/poll"
)

type Relay struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// KnownRelays are the switchable outlets in display order.
var KnownRelays = []Relay{
	{ID: "relay1", Name: "Bulb 1"},
	{ID: "relay2", Name: "Bulb 2"},
	{ID: "relay3", Name: "Socket 1"},
	{ID: "relay4", Name: "Socket 2"},
}

var ErrTogglePending = errors.New("relay toggle already in progress")

type RelayStatus struct {
	Relay
	On      bool `json:"on"`
	Pending bool `json:"pending"`
}

type RelaysView struct {
	Phase     Phase         `json:"phase"`
	Active    bool          `json:"active"`
	UpdatedAt time.Time     `json:"updated_at"`
	Relays    []RelayStatus `json:"relays"`
}

// RelayControl polls relay states and toggles them. A toggle is written
// locally first; the PATCH result, or the next poll, is authoritative.
type RelayControl struct {
	api  RelayAPI
	opts Options

	mu        sync.Mutex
	phase     Phase
	states    domain.RelayStates
	pending   map[string]bool
	updatedAt time.Time
	sched     *poll.Schedule
}

func NewRelayControl(client RelayAPI, opts Options) *RelayControl {
	return &RelayControl{
		api:     client,
		opts:    opts.withDefaults(DefaultRelayInterval),
		states:  domain.RelayStates{},
		pending: map[string]bool{},
	}
}

func (c *RelayControl) Activate(ctx context.Context) {
	c.mu.Lock()
	if c.sched != nil {
		c.mu.Unlock()
		return
	}
	if c.phase == PhaseIdle {
		c.phase = PhaseLoading
	}
	c.sched = poll.Every(c.opts.Interval, c.opts.NewTicker, func() {
		c.Refresh(context.Background())
	})
	c.mu.Unlock()

	c.Refresh(ctx)
}

func (c *RelayControl) Deactivate() {
	c.mu.Lock()
	s := c.sched
	c.sched = nil
	c.mu.Unlock()
	s.Cancel()
}

// Refresh replaces every local state with the backend's, including values
// set optimistically by a toggle.
func (c *RelayControl) Refresh(ctx context.Context) error {
	states, err := c.api.RelayStates(ctx)
	metrics.RecordPollCycle("relays", err)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseLoading {
		c.phase = PhaseReady
	}
	if err != nil {
		log.Error().Err(err).Str("view", "relays").Msg("refresh failed")
		return fmt.Errorf("refresh relays: %w", err)
	}
	c.states = maps.Clone(states)
	if c.states == nil {
		c.states = domain.RelayStates{}
	}
	c.updatedAt = c.opts.Now()
	return nil
}

// Toggle flips relayID. The new state shows immediately and is reverted if
// the backend rejects it.
func (c *RelayControl) Toggle(ctx context.Context, relayID string) error {
	c.mu.Lock()
	if !c.known(relayID) {
		c.mu.Unlock()
		return &api.ValidationError{Field: "relay", Reason: fmt.Sprintf("unknown relay %q", relayID)}
	}
	if c.pending[relayID] {
		c.mu.Unlock()
		return ErrTogglePending
	}
	prev := c.states[relayID]
	next := !prev
	c.states = maps.Clone(c.states)
	c.states[relayID] = next
	c.pending[relayID] = true
	c.mu.Unlock()

	res, err := c.api.SetRelayState(ctx, relayID, next)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, relayID)
	if err != nil {
		// a poll may already have replaced the optimistic value
		if c.states[relayID] == next {
			c.states = maps.Clone(c.states)
			c.states[relayID] = prev
		}
		log.Error().Err(err).Str("relay", relayID).Bool("state", next).Msg("relay toggle failed")
		return fmt.Errorf("toggle %s: %w", relayID, err)
	}
	c.states = maps.Clone(c.states)
	c.states[relayID] = res.State
	log.Info().Str("relay", relayID).Bool("state", res.State).Msg("relay toggled")
	return nil
}

func (c *RelayControl) known(relayID string) bool {
	if _, ok := c.states[relayID]; ok {
		return true
	}
	for _, r := range KnownRelays {
		if r.ID == relayID {
			return true
		}
	}
	return false
}

// View lists the known relays in order, then any extra relay the backend
// reported. A relay with no reported state is off.
func (c *RelayControl) View() RelaysView {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := RelaysView{
		Phase:     c.phase,
		Active:    c.sched != nil,
		UpdatedAt: c.updatedAt,
		Relays:    make([]RelayStatus, 0, len(KnownRelays)),
	}
	seen := make(map[string]bool, len(KnownRelays))
	for _, r := range KnownRelays {
		seen[r.ID] = true
		v.Relays = append(v.Relays, RelayStatus{Relay: r, On: c.states[r.ID], Pending: c.pending[r.ID]})
	}
	for _, id := range slices.Sorted(maps.Keys(c.states)) {
		if seen[id] {
			continue
		}
		v.Relays = append(v.Relays, RelayStatus{Relay: Relay{ID: id, Name: id}, On: c.states[id], Pending: c.pending[id]})
	}
	for _, p := range c.pending {
		if p {
			v.Phase = PhaseSaving
			break
		}
	}
	return v
}
