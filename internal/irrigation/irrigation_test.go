package irrigation

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func TestDecideThreshold(t *testing.T) {
	tests := []struct {
		soil float64
		want bool
	}{
		{39.9, true},
		{38, true},
		{25, true},
		{40, false},
		{40.1, false},
		{55, false},
	}
	for _, tc := range tests {
		got := Decide(tc.soil, State{}, t0)
		if got.NeedsWatering != tc.want {
			t.Errorf("Decide(soil=%v).NeedsWatering = %v, want %v", tc.soil, got.NeedsWatering, tc.want)
		}
	}
}

func TestDecideStartsCycle(t *testing.T) {
	got := Decide(25, State{}, t0)
	if !got.IsWatering {
		t.Fatal("dry soil must start a watering cycle")
	}
	if !got.LastWatered.Equal(t0) {
		t.Fatalf("LastWatered = %v, want %v", got.LastWatered, t0)
	}
}

func TestDecideIdempotentDuringCycle(t *testing.T) {
	state := Decide(25, State{}, t0)

	// Repeated evaluations within the 30s window must not reset LastWatered
	// or start a second cycle.
	for _, dt := range []time.Duration{time.Second, 10 * time.Second, 29 * time.Second} {
		state = Decide(25, state, t0.Add(dt))
		if !state.IsWatering {
			t.Fatalf("cycle ended early at +%v", dt)
		}
		if !state.LastWatered.Equal(t0) {
			t.Fatalf("LastWatered reset at +%v", dt)
		}
	}
}

func TestDecideCycleCompletesDespiteRecovery(t *testing.T) {
	state := Decide(25, State{}, t0)

	// Moisture recovers above threshold mid-cycle: the cycle still runs its
	// fixed duration.
	state = Decide(55, state, t0.Add(10*time.Second))
	if !state.IsWatering {
		t.Fatal("in-flight cycle must complete regardless of moisture")
	}
	if state.NeedsWatering {
		t.Fatal("NeedsWatering must track current moisture")
	}

	state = Decide(55, state, t0.Add(31*time.Second))
	if state.IsWatering {
		t.Fatal("cycle must end after its duration")
	}
}

func TestDecideNewCycleAfterExpiry(t *testing.T) {
	state := Decide(25, State{}, t0)

	state = Decide(25, state, t0.Add(31*time.Second))
	if state.IsWatering {
		t.Fatal("expired cycle must stop before a new one starts")
	}

	state = Decide(25, state, t0.Add(32*time.Second))
	if !state.IsWatering {
		t.Fatal("still-dry soil must start a new cycle")
	}
	if !state.LastWatered.Equal(t0.Add(32 * time.Second)) {
		t.Fatalf("LastWatered = %v, want new cycle start", state.LastWatered)
	}
}

func TestKeeperTracksUsersIndependently(t *testing.T) {
	k := NewKeeper()

	a := k.Evaluate(1, 25, t0)
	b := k.Evaluate(2, 55, t0)
	if !a.IsWatering || b.IsWatering {
		t.Fatalf("states mixed up: a=%+v b=%+v", a, b)
	}

	a2 := k.Evaluate(1, 25, t0.Add(5*time.Second))
	if !a2.LastWatered.Equal(t0) {
		t.Fatal("keeper must carry cycle state between evaluations")
	}
}
