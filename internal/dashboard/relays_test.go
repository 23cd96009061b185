package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/api"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/poll/polltest"
)

func relayOn(v RelaysView, id string) (on, pending bool) {
	for _, r := range v.Relays {
		if r.ID == id {
			return r.On, r.Pending
		}
	}
	return false, false
}

func TestRelayControl_Activate(t *testing.T) {
	var tickers polltest.Factory
	backend := newFakeBackend()
	backend.relays["relay1"] = true
	c := NewRelayControl(backend, testOptions(&tickers))
	c.Activate(context.Background())
	defer c.Deactivate()

	v := c.View()
	if v.Phase != PhaseReady || !v.Active {
		t.Errorf("phase = %v active = %v", v.Phase, v.Active)
	}
	if len(v.Relays) != len(KnownRelays) {
		t.Fatalf("relays = %d, want %d", len(v.Relays), len(KnownRelays))
	}
	if v.Relays[0].Name != "Bulb 1" || !v.Relays[0].On || v.Relays[3].Name != "Socket 2" || v.Relays[3].On {
		t.Errorf("relays = %+v", v.Relays)
	}
	if tk := tickers.Last(); tk == nil || tk.Interval != DefaultRelayInterval {
		t.Errorf("relays not scheduled every %v", DefaultRelayInterval)
	}
}

func TestRelayControl_OptimisticThenReconciled(t *testing.T) {
	var tickers polltest.Factory
	backend := newFakeBackend()
	backend.relayGate = make(chan struct{})
	backend.relayEnter = make(chan struct{}, 1)
	c := NewRelayControl(backend, testOptions(&tickers))
	c.Activate(context.Background())
	defer c.Deactivate()

	done := make(chan error, 1)
	go func() { done <- c.Toggle(context.Background(), "relay2") }()
	waitSignal(t, backend.relayEnter)

	v := c.View()
	if on, pending := relayOn(v, "relay2"); !on || !pending {
		t.Errorf("during toggle on = %v pending = %v, want optimistic on", on, pending)
	}
	if v.Phase != PhaseSaving {
		t.Errorf("phase during toggle = %v, want saving", v.Phase)
	}
	if err := c.Toggle(context.Background(), "relay2"); !errors.Is(err, ErrTogglePending) {
		t.Errorf("second Toggle() error = %v, want %v", err, ErrTogglePending)
	}

	close(backend.relayGate)
	if err := <-done; err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if on, pending := relayOn(c.View(), "relay2"); !on || pending {
		t.Errorf("after toggle on = %v pending = %v", on, pending)
	}

	// The hardware never switched, so the next poll disagrees and wins.
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if on, _ := relayOn(c.View(), "relay2"); on {
		t.Error("poll did not overwrite the optimistic state")
	}
}

func TestRelayControl_ToggleFailureReverts(t *testing.T) {
	var tickers polltest.Factory
	backend := newFakeBackend()
	backend.relays["relay3"] = true
	c := NewRelayControl(backend, testOptions(&tickers))
	c.Activate(context.Background())
	defer c.Deactivate()

	backend.fail("SetRelayState", errBackend)
	if err := c.Toggle(context.Background(), "relay3"); !errors.Is(err, errBackend) {
		t.Fatalf("Toggle() error = %v, want %v", err, errBackend)
	}
	if on, pending := relayOn(c.View(), "relay3"); !on || pending {
		t.Errorf("on = %v pending = %v, want reverted to on", on, pending)
	}
}

func TestRelayControl_UnknownRelay(t *testing.T) {
	c := NewRelayControl(newFakeBackend(), Options{})
	err := c.Toggle(context.Background(), "relay9")
	if !errors.As(err, new(*api.ValidationError)) {
		t.Errorf("Toggle() error = %v, want *api.ValidationError", err)
	}
}

func TestRelayControl_ExtraRelaysListed(t *testing.T) {
	var tickers polltest.Factory
	backend := newFakeBackend()
	backend.relays["relay5"] = true
	c := NewRelayControl(backend, testOptions(&tickers))
	c.Activate(context.Background())
	defer c.Deactivate()

	v := c.View()
	if len(v.Relays) != 5 || v.Relays[4].ID != "relay5" || !v.Relays[4].On {
		t.Errorf("relays = %+v", v.Relays)
	}
	if err := c.Toggle(context.Background(), "relay5"); err != nil {
		t.Errorf("Toggle(relay5) error = %v", err)
	}
}

func TestRelayControl_NoPollAfterDeactivate(t *testing.T) {
	var tickers polltest.Factory
	backend := newFakeBackend()
	c := NewRelayControl(backend, testOptions(&tickers))
	c.Activate(context.Background())

	tk := tickers.Last()
	c.Deactivate()
	for i := 0; i < 3; i++ {
		if tk.Tick() {
			t.Fatal("tick delivered after Deactivate")
		}
	}
	if got := backend.count("RelayStates"); got != 1 {
		t.Errorf("relay polls = %d, want 1", got)
	}
}
