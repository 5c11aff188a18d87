package session

import (
	"math"

	"github.com/banshee-data/rep.report/internal/reps"
	"github.com/google/uuid"
)

// Summary is the render-ready record for one frame. Angle fields are nil
// until the first successful measurement and keep their last value
// across detection misses.
type Summary struct {
	Frame           int      `json:"frame"`
	PushupCount     int      `json:"pushup_count"`
	SquatCount      int      `json:"squat_count"`
	ProgressPct     int      `json:"progress_pct"`
	ElbowAngle      *float64 `json:"elbow_angle"` // smoothed
	BodyAngle       *float64 `json:"body_angle"`  // raw
	KneeAngle       *float64 `json:"knee_angle"`  // smoothed
	SkeletonPresent bool     `json:"skeleton_present"`
	Side            string   `json:"side,omitempty"`
	PushupState     string   `json:"pushup_state"`
	SquatState      string   `json:"squat_state"`
}

// Result is the session's answer once the stream ends.
type Result struct {
	RunID          uuid.UUID         `json:"run_id"`
	Frames         int               `json:"frames"`
	DetectedFrames int               `json:"detected_frames"`
	Pushups        int               `json:"pushups"`
	Squats         int               `json:"squats"`
	SideSwitches   int               `json:"side_switches"`
	Transitions    []reps.Transition `json:"transitions"`
}

// Progress returns floor(100*index/total) clamped to [0, 100]. An
// unknown (zero or negative) total reports 0.
func Progress(index, total int) int {
	if total <= 0 || index <= 0 {
		return 0
	}
	p := 100 * index / total
	if p > 100 {
		return 100
	}
	return p
}

// displayAngle returns nil for undefined readings, which JSON and the
// renderer treat as "none".
func displayAngle(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
