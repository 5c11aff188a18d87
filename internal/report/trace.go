package report

import (
	"context"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/rep.report/internal/reps"
	"github.com/banshee-data/rep.report/internal/session"
)

// Point is one frame of a trace. Angles are nil before the first
// detection; on a miss they repeat the last known values and Present
// is false.
type Point struct {
	Frame   int
	Elbow   *float64
	Body    *float64
	Knee    *float64
	Pushups int
	Squats  int
	Present bool
}

// Trace accumulates the per-frame angles and counts of a run.
type Trace struct {
	cfg    session.Config
	points []Point
	result *session.Result
}

// NewTrace returns an empty trace. cfg supplies the threshold lines.
func NewTrace(cfg session.Config) *Trace {
	return &Trace{cfg: cfg}
}

// Consume appends one frame.
func (t *Trace) Consume(_ context.Context, sum session.Summary) error {
	t.points = append(t.points, Point{
		Frame:   sum.Frame,
		Elbow:   sum.ElbowAngle,
		Body:    sum.BodyAngle,
		Knee:    sum.KneeAngle,
		Pushups: sum.PushupCount,
		Squats:  sum.SquatCount,
		Present: sum.SkeletonPresent,
	})
	return nil
}

// Finish records the run result.
func (t *Trace) Finish(_ context.Context, res session.Result) error {
	t.result = &res
	return nil
}

// Points returns the collected frames.
func (t *Trace) Points() []Point {
	return t.points
}

// Len returns the number of frames collected.
func (t *Trace) Len() int {
	return len(t.points)
}

// Counted returns the transitions that advanced a counter, or nil when
// the run has not finished.
func (t *Trace) Counted() []reps.Transition {
	if t.result == nil {
		return nil
	}
	var out []reps.Transition
	for _, tr := range t.result.Transitions {
		if tr.Counted {
			out = append(out, tr)
		}
	}
	return out
}

// totals returns the final counters, falling back to the last frame.
func (t *Trace) totals() (pushups, squats int) {
	if t.result != nil {
		return t.result.Pushups, t.result.Squats
	}
	if n := len(t.points); n > 0 {
		return t.points[n-1].Pushups, t.points[n-1].Squats
	}
	return 0, 0
}

// angleRange returns the smallest and largest measured angle over every
// trace. ok is false when nothing was measured.
func (t *Trace) angleRange() (lo, hi float64, ok bool) {
	var vals []float64
	for _, p := range t.points {
		if !p.Present {
			continue
		}
		for _, v := range []*float64{p.Elbow, p.Body, p.Knee} {
			if v != nil {
				vals = append(vals, *v)
			}
		}
	}
	if len(vals) == 0 {
		return 0, 0, false
	}
	return floats.Min(vals), floats.Max(vals), true
}

// threshold is a labelled horizontal line on the angle charts.
type threshold struct {
	name  string
	value float64
}

func (t *Trace) thresholds() []threshold {
	return []threshold{
		{"elbow down", t.cfg.Pushup.ElbowDown},
		{"elbow up", t.cfg.Pushup.ElbowUp},
		{"torso straight", t.cfg.Pushup.TorsoStraight},
		{"knee up", t.cfg.Squat.KneeUp},
		{"knee down", t.cfg.Squat.KneeDown},
	}
}
