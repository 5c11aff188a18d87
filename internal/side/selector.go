// Package side chooses which body side the angles are measured on.
//
// The default policy compares shoulder visibility frame by frame and has
// no memory, so the chosen side can flip between consecutive frames. A
// Policy with a margin or dwell time makes the selector sticky; that is a
// deliberate behavior change from the frame-by-frame rule and is off by
// default.
package side

import (
	"github.com/banshee-data/rep.report/internal/monitoring"
	"github.com/banshee-data/rep.report/internal/pose"
)

// Choose returns the side whose shoulder is strictly more visible. Ties
// go to the right side.
func Choose(leftVisibility, rightVisibility float64) pose.Side {
	if leftVisibility > rightVisibility {
		return pose.Left
	}
	return pose.Right
}

// Policy controls side-switch hysteresis.
type Policy struct {
	// Margin is how much more visible the other shoulder must be before
	// it counts as a switch candidate.
	Margin float64
	// DwellFrames is how many consecutive candidate frames are needed
	// before switching.
	DwellFrames int
}

// Sticky reports whether the policy adds any hysteresis.
func (p Policy) Sticky() bool {
	return p.Margin > 0 || p.DwellFrames > 0
}

// Selector applies a Policy across frames.
//
// Every frame passed to Select counts toward DwellFrames, including frames
// the caller then treats as a miss because the selected side is
// incomplete. Those frames are what let a sticky selector leave a side
// that can no longer be measured.
type Selector struct {
	policy      Policy
	current     pose.Side
	initialized bool
	pending     int
	switches    int
}

// NewSelector returns a selector for the given policy.
func NewSelector(p Policy) *Selector {
	if p.Margin < 0 {
		p.Margin = 0
	}
	if p.DwellFrames < 0 {
		p.DwellFrames = 0
	}
	return &Selector{policy: p}
}

// Select picks the side for one frame from the two shoulder visibilities.
func (s *Selector) Select(leftVisibility, rightVisibility float64) pose.Side {
	if !s.policy.Sticky() || !s.initialized {
		side := Choose(leftVisibility, rightVisibility)
		if s.initialized && side != s.current {
			s.switches++
		}
		s.current = side
		s.initialized = true
		return side
	}

	cur, other := leftVisibility, rightVisibility
	if s.current == pose.Right {
		cur, other = rightVisibility, leftVisibility
	}
	if other-cur > s.policy.Margin {
		s.pending++
	} else {
		s.pending = 0
	}

	need := s.policy.DwellFrames
	if need < 1 {
		need = 1
	}
	if s.pending >= need {
		monitoring.Debugf("[side] switching %s -> %s after %d frames", s.current, s.current.Opposite(), s.pending)
		s.current = s.current.Opposite()
		s.pending = 0
		s.switches++
	}
	return s.current
}

// Current returns the last selected side; ok is false before the first
// Select call.
func (s *Selector) Current() (side pose.Side, ok bool) {
	return s.current, s.initialized
}

// Switches returns how many times the selected side changed.
func (s *Selector) Switches() int {
	return s.switches
}
