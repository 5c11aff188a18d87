package reps

import (
	"github.com/banshee-data/rep.report/internal/config"
)

// PushupThresholds are in degrees. ElbowDown must be below ElbowUp.
type PushupThresholds struct {
	ElbowDown     float64 // smoothed elbow below this enters Down
	ElbowUp       float64 // smoothed elbow above this leaves Down and counts
	TorsoStraight float64 // raw body angle must exceed this for any transition
}

// DefaultPushupThresholds returns the production defaults.
func DefaultPushupThresholds() PushupThresholds {
	return PushupThresholdsFromTuning(config.EmptyTuningConfig())
}

// PushupThresholdsFromTuning reads push-up thresholds from a TuningConfig.
func PushupThresholdsFromTuning(cfg *config.TuningConfig) PushupThresholds {
	return PushupThresholds{
		ElbowDown:     cfg.GetElbowDownThreshold(),
		ElbowUp:       cfg.GetElbowUpThreshold(),
		TorsoStraight: cfg.GetTorsoStraightThreshold(),
	}
}

// PushupMachine counts push-ups from the smoothed elbow angle, gated on
// a straight torso. A rep is counted on the way back up.
type PushupMachine struct {
	th    PushupThresholds
	state State
	count int
}

// NewPushupMachine returns a machine in StateUnset with a zero count.
func NewPushupMachine(th PushupThresholds) *PushupMachine {
	return &PushupMachine{th: th}
}

// Update feeds one detected frame. The torso gate is evaluated first:
// when the body angle is not above TorsoStraight the machine is frozen.
// It returns the transition taken, if any.
func (m *PushupMachine) Update(frame int, elbow, body float64) (Transition, bool) {
	// NaN compares false everywhere, so a degenerate body angle closes
	// the gate and a degenerate elbow angle matches neither rule.
	if !(body > m.th.TorsoStraight) {
		return Transition{}, false
	}

	switch {
	case elbow < m.th.ElbowDown:
		if m.state == StateDown {
			return Transition{}, false
		}
		return m.move(frame, StateDown, elbow, false), true
	case elbow > m.th.ElbowUp && m.state == StateDown:
		m.count++
		return m.move(frame, StateUp, elbow, true), true
	}
	return Transition{}, false
}

func (m *PushupMachine) move(frame int, to State, angle float64, counted bool) Transition {
	tr := Transition{
		Frame:    frame,
		Exercise: ExercisePushup,
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
func (m *PushupMachine) State() State { return m.state }

// Count returns the number of completed push-ups.
func (m *PushupMachine) Count() int { return m.count }

// Thresholds returns the machine's thresholds.
func (m *PushupMachine) Thresholds() PushupThresholds { return m.th }
