// Package irrigation derives the watering state from soil moisture. The
// policy is fixed: water when soil moisture drops below 40%, one 30-second
// cycle at a time.
package irrigation

import (
	"sync"
	"time"
)

const (
	// MoistureThreshold is the soil moisture (%) below which watering is
	// needed.
	MoistureThreshold = 40.0
	// WateringDuration is the fixed length of one watering cycle.
	WateringDuration = 30 * time.Second
)

// State is the derived watering state. It is transient: recomputed on every
// poll, never persisted.
type State struct {
	NeedsWatering bool      `json:"needsWatering"`
	IsWatering    bool      `json:"isWatering"`
	LastWatered   time.Time `json:"lastWatered"`
}

// Decide applies the watering policy to the latest soil moisture reading.
//
// An active cycle always runs its full duration, even if moisture recovers
// above the threshold mid-cycle, and re-evaluation during the cycle never
// resets LastWatered or starts an overlapping cycle. A new cycle starts on
// the first evaluation after the previous one has elapsed, if moisture is
// still below the threshold.
func Decide(soilMoisture float64, prev State, now time.Time) State {
	next := prev
	next.NeedsWatering = soilMoisture < MoistureThreshold

	if prev.IsWatering {
		if now.Sub(prev.LastWatered) >= WateringDuration {
			next.IsWatering = false
		}
		return next
	}

	if next.NeedsWatering {
		next.IsWatering = true
		next.LastWatered = now
	}
	return next
}

// Keeper holds the per-user watering state between polls so the server can
// answer irrigation queries from the latest stored reading.
type Keeper struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewKeeper() *Keeper {
	return &Keeper{states: make(map[int64]State)}
}

// Evaluate advances and returns the watering state for one user.
func (k *Keeper) Evaluate(userID int64, soilMoisture float64, now time.Time) State {
	k.mu.Lock()
	defer k.mu.Unlock()

	next := Decide(soilMoisture, k.states[userID], now)
	k.states[userID] = next
	return next
}
