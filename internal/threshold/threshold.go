// Package threshold tracks the reference price of a rule across runs and
// reports when a listing drifted far enough from it.
package threshold

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"marketwatch/internal/components/osutil"
	"os"

	"github.com/shopspring/decimal"
)

// State is the only thing persisted per rule.
type State struct {
	Price     float64 `json:"price"`
	Threshold float64 `json:"threshold"`
}

// Update is the outcome of MaybeUpdate.
type Update struct {
	// Updated is true when there was no reference or the drift exceeded the threshold.
	Updated bool
	// Written is true when this call rewrote the reference.
	Written bool
	// Seeded is true when there was no reference before.
	Seeded bool
	// Drift from the previous reference, only meaningful when HasDrift is set.
	Drift    float64
	HasDrift bool
	Previous State
}

// ComputeDrift is the percent change from reference to current rounded half
// away from zero to 2 decimals, false when the reference is 0.
func ComputeDrift(current, reference float64) (float64, bool) {
	if reference == 0 {
		return 0, false
	}
	ref := decimal.NewFromFloat(reference)
	drift := decimal.NewFromFloat(current).
		Sub(ref).
		Div(ref).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	return drift.InexactFloat64(), true
}

// AddPercent is value raised by `percent`% rounded to 2 decimals.
func AddPercent(value, percent float64) float64 {
	return decimal.NewFromFloat(value).Add(percentOf(value, percent)).Round(2).InexactFloat64()
}

// SubPercent is value lowered by `percent`% rounded to 2 decimals.
func SubPercent(value, percent float64) float64 {
	return decimal.NewFromFloat(value).Sub(percentOf(value, percent)).Round(2).InexactFloat64()
}

// percentOf is `percent`% of value rounded to 2 decimals.
func percentOf(value, percent float64) decimal.Decimal {
	return decimal.NewFromFloat(value).
		Mul(decimal.NewFromFloat(percent)).
		Div(decimal.NewFromInt(100)).
		Round(2)
}

// Tracker holds the reference of one rule for one scan. The state file is
// read once by Open and written at most once, by the first listing that
// seeds or moves the reference. Later listings are judged against that
// reference and never rewrite it.
type Tracker struct {
	path    string
	state   State
	has     bool
	written bool
}

// Open loads the state at path, a missing file means there is no reference
// yet. An empty path keeps the reference in memory only.
func Open(path string) (*Tracker, error) {
	t := &Tracker{path: path}
	if path == "" {
		return t, nil
	}

	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(contents, &t.state)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	t.has = t.state.Price != 0
	return t, nil
}

// SetDefault sets the reference when nothing was loaded, it is not persisted.
func (t *Tracker) SetDefault(price, threshold float64) {
	if t.has || price == 0 {
		return
	}
	t.state = State{Price: price, Threshold: threshold}
	t.has = true
}

// Reference returns the current reference, false when there is none.
func (t *Tracker) Reference() (State, bool) {
	return t.state, t.has
}

// MaybeUpdate compares current against the reference. Without a reference
// current becomes the reference. When the absolute drift exceeds threshold
// the reference is rewritten, unless it was already rewritten by this tracker.
func (t *Tracker) MaybeUpdate(current, threshold float64) (Update, error) {
	previous := t.state
	if !t.has {
		if t.written {
			return Update{Updated: true, Seeded: true}, nil
		}
		err := t.write(State{Price: current, Threshold: threshold})
		if err != nil {
			return Update{}, err
		}
		return Update{Updated: true, Written: true, Seeded: true}, nil
	}

	drift, ok := ComputeDrift(current, previous.Price)
	update := Update{Drift: drift, HasDrift: ok, Previous: previous}
	if !ok || decimal.NewFromFloat(drift).Abs().LessThanOrEqual(decimal.NewFromFloat(threshold)) {
		return update, nil
	}
	update.Updated = true
	if t.written {
		return update, nil
	}

	err := t.write(State{Price: current, Threshold: threshold})
	if err != nil {
		return Update{}, err
	}
	update.Written = true
	return update, nil
}

// Encode renders the state the way it is stored on disk.
func Encode(state State) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	err := enc.Encode(state)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Tracker) write(state State) error {
	if t.path != "" {
		contents, err := Encode(state)
		if err != nil {
			return err
		}
		err = osutil.WriteFileAtomic(t.path, contents, osutil.StateFile)
		if err != nil {
			return fmt.Errorf("write %s: %w", t.path, err)
		}
	}
	t.state = state
	t.has = state.Price != 0
	t.written = true
	return nil
}
