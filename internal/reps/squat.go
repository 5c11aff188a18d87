package reps

import (
	"github.com/banshee-data/rep.report/internal/config"
)

// SquatThresholds are in degrees. KneeDown must be below KneeUp.
type SquatThresholds struct {
	KneeUp   float64 // smoothed knee above this enters Up
	KneeDown float64 // smoothed knee below this, from Up, enters Down and counts
}

// DefaultSquatThresholds returns the production defaults.
func DefaultSquatThresholds() SquatThresholds {
	return SquatThresholdsFromTuning(config.EmptyTuningConfig())
}

// SquatThresholdsFromTuning reads squat thresholds from a TuningConfig.
func SquatThresholdsFromTuning(cfg *config.TuningConfig) SquatThresholds {
	return SquatThresholds{
		KneeUp:   cfg.GetKneeUpThreshold(),
		KneeDown: cfg.GetKneeDownThreshold(),
	}
}

// SquatMachine counts squats from the smoothed knee angle. Unlike the
// push-up machine it has no gate, and a rep is counted at the bottom.
type SquatMachine struct {
	th    SquatThresholds
	state State
	count int
}

// NewSquatMachine returns a machine in StateUnset with a zero count.
func NewSquatMachine(th SquatThresholds) *SquatMachine {
	return &SquatMachine{th: th}
}

// Update feeds one detected frame and returns the transition taken, if any.
func (m *SquatMachine) Update(frame int, knee float64) (Transition, bool) {
	switch {
	case knee > m.th.KneeUp:
		if m.state == StateUp {
			return Transition{}, false
		}
		return m.move(frame, StateUp, knee, false), true
	case knee < m.th.KneeDown && m.state == StateUp:
		m.count++
		return m.move(frame, StateDown, knee, true), true
	}
	return Transition{}, false
}

func (m *SquatMachine) move(frame int, to State, angle float64, counted bool) Transition {
	tr := Transition{
		Frame:    frame,
		Exercise: ExerciseSquat,
		From:     m.state,
		To:       to,
		Angle:    angle,
		Counted:  counted,
		Count:    m.count,
	}
	m.state = to
	return tr
}

// State returns the current phase.
func (m *SquatMachine) State() State { return m.state }

// Count returns the number of completed squats.
func (m *SquatMachine) Count() int { return m.count }

// Thresholds returns the machine's thresholds.
func (m *SquatMachine) Thresholds() SquatThresholds { return m.th }
