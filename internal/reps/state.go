package reps

import (
	"encoding/json"
	"fmt"
)

// State is the phase of one exercise.
type State uint8

const (
	StateUnset State = iota // no qualifying pose seen yet
	StateUp                 // arms or legs extended
	StateDown               // bottom of the movement
)

func (s State) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StateUp:
		return "up"
	case StateDown:
		return "down"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// MarshalJSON encodes the state by name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, error) {
	switch name {
	case "unset":
		return StateUnset, nil
	case "up":
		return StateUp, nil
	case "down":
		return StateDown, nil
	}
	return 0, fmt.Errorf("unknown rep state %q", name)
}

// Exercise names a tracked exercise.
type Exercise string

const (
	ExercisePushup Exercise = "pushup"
	ExerciseSquat  Exercise = "squat"
)

// Transition records one state change of a machine.
type Transition struct {
	Frame    int      `json:"frame"`
	Exercise Exercise `json:"exercise"`
	From     State    `json:"from"`
	To       State    `json:"to"`
	Angle    float64  `json:"angle"`   // smoothed angle that triggered it
	Counted  bool     `json:"counted"` // true when the counter advanced
	Count    int      `json:"count"`   // counter value after the transition
}

func (t Transition) String() string {
	s := fmt.Sprintf("frame %d %s %s->%s at %.1f°", t.Frame, t.Exercise, t.From, t.To, t.Angle)
	if t.Counted {
		s += fmt.Sprintf(" (rep %d)", t.Count)
	}
	return s
}

// UnmarshalJSON decodes a state name.
func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	v, err := ParseState(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
