// Package game holds the wood empire state record and the rules that move it forward.
//
// Every rule is a pure function over State values: it receives the current snapshot and returns the
// next one together with an Outcome describing what happened and which transient feedback the UI
// should show. Rules never fail; an unmet precondition returns the input state unchanged.
package game

import (
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-errors"
)

// HitThreshold is the number of hits needed to fell one unit of wood.
const HitThreshold = 10

type Tool string

const (
	ToolHands     Tool = "hands"
	ToolWoodenAxe Tool = "wooden_axe"
)

func (t Tool) Valid() bool {
	switch t {
	case ToolHands, ToolWoodenAxe:
		return true
	default:
		return false
	}
}

// State is the canonical game record. It is persisted as a JSON object with exactly these six fields.
type State struct {
	Wood         int  `json:"wood"`
	WoodHit      int  `json:"woodHit"`
	Planks       int  `json:"planks"`
	Sticks       int  `json:"sticks"`
	Coins        int  `json:"coins"`
	EquippedTool Tool `json:"equippedTool"`
}

// Default returns the record a new or restarted game starts from.
func Default() State {
	return State{EquippedTool: ToolHands}
}

func (s State) Validate() error {
	el := errors.NewErrorList()

	for _, f := range []struct {
		name string
		val  int
	}{
		{"wood", s.Wood},
		{"woodHit", s.WoodHit},
		{"planks", s.Planks},
		{"sticks", s.Sticks},
		{"coins", s.Coins},
	} {
		if f.val < 0 {
			el.Add(fmt.Errorf("%s must not be negative, got %d", f.name, f.val))
		}
	}

	// A bonus hit can leave at most one hit of carry past a completed cycle.
	if s.WoodHit > HitThreshold+1 {
		el.Add(fmt.Errorf("woodHit %d exceeds threshold %d", s.WoodHit, HitThreshold))
	}

	if !s.EquippedTool.Valid() {
		el.Add(fmt.Errorf("unknown equippedTool %q", s.EquippedTool))
	}

	return el.Err()
}

// Progress reports how far the current hit cycle is, as a percentage.
func (s State) Progress() int {
	p := s.WoodHit * 100 / HitThreshold
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

// Encode serializes the state in its persisted layout.
func Encode(s State) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshalling state: %w", err)
	}
	return b, nil
}

// Decode parses a persisted state and rejects values that break the record's invariants.
func Decode(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("unmarshalling state: %w", err)
	}
	if err := s.Validate(); err != nil {
		return State{}, fmt.Errorf("validating state: %w", err)
	}
	return s, nil
}
