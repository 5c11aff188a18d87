package session

import (
	"github.com/banshee-data/rep.report/internal/geometry"
	"github.com/banshee-data/rep.report/internal/monitoring"
	"github.com/banshee-data/rep.report/internal/pose"
	"github.com/banshee-data/rep.report/internal/reps"
	"github.com/banshee-data/rep.report/internal/side"
	"github.com/banshee-data/rep.report/internal/smoothing"
	"github.com/google/uuid"
)

// RepCounterSession turns an ordered stream of observations into rep
// counts. It is not safe for concurrent use.
type RepCounterSession struct {
	cfg   Config
	runID uuid.UUID
	total int

	selector *side.Selector
	elbow    *smoothing.MovingAverage
	knee     *smoothing.MovingAverage
	pushups  *reps.PushupMachine
	squats   *reps.SquatMachine

	frames   int
	detected int

	// Last displayable values, kept across misses.
	lastElbow *float64
	lastBody  *float64
	lastKnee  *float64
	lastSide  string

	transitions []reps.Transition
}

// New builds a session for a stream of totalFrames frames (0 if unknown).
func New(cfg Config, totalFrames int) *RepCounterSession {
	return &RepCounterSession{
		cfg:      cfg,
		runID:    uuid.New(),
		total:    totalFrames,
		selector: side.NewSelector(cfg.SidePolicy),
		elbow:    smoothing.NewMovingAverage(cfg.SmoothingWindow),
		knee:     smoothing.NewMovingAverage(cfg.SmoothingWindow),
		pushups:  reps.NewPushupMachine(cfg.Pushup),
		squats:   reps.NewSquatMachine(cfg.Squat),
	}
}

// RunID identifies this session in logs and storage.
func (s *RepCounterSession) RunID() uuid.UUID {
	return s.runID
}

// Config returns the session's configuration.
func (s *RepCounterSession) Config() Config {
	return s.cfg
}

// Process consumes one frame and returns its summary. Every call counts
// toward progress, including detection misses. On a miss, or when the
// selected side is incomplete, no buffer is pushed and no machine runs.
func (s *RepCounterSession) Process(obs pose.Observation) Summary {
	s.frames++
	if obs.Detected() {
		s.measure(obs)
	}
	return s.summary(obs)
}

func (s *RepCounterSession) measure(obs pose.Observation) {
	set := obs.Landmarks
	// Selection runs before the completeness check, so frames rejected
	// below still count toward the side-switch dwell.
	sd := s.selector.Select(
		set.Visibility(pose.Shoulder, pose.Left),
		set.Visibility(pose.Shoulder, pose.Right),
	)
	angles, ok := geometry.MeasureSide(set, sd, s.cfg.MinVisibility)
	if !ok {
		monitoring.Debugf("[session] frame %d: %s side incomplete, treated as a miss", obs.Index, sd)
		return
	}
	s.detected++
	s.lastSide = sd.String()

	if b := displayAngle(angles.Body); b != nil {
		s.lastBody = b
	}

	if s.push(s.elbow, angles.Elbow, obs.Index, "elbow") {
		elbow, _ := s.elbow.Mean()
		s.lastElbow = displayAngle(elbow)
		if tr, ok := s.pushups.Update(obs.Index, elbow, angles.Body); ok {
			s.record(tr)
		}
	}

	if s.push(s.knee, angles.Knee, obs.Index, "knee") {
		knee, _ := s.knee.Mean()
		s.lastKnee = displayAngle(knee)
		if tr, ok := s.squats.Update(obs.Index, knee); ok {
			s.record(tr)
		}
	}
}

// push adds a raw angle to buf unless it is degenerate and the session
// discards those. It reports whether the sample was taken.
func (s *RepCounterSession) push(buf *smoothing.MovingAverage, v float64, frame int, name string) bool {
	if s.cfg.DiscardDegenerate && geometry.IsDegenerate(v) {
		monitoring.Debugf("[session] frame %d: degenerate %s angle discarded", frame, name)
		return false
	}
	buf.Push(v)
	return true
}

func (s *RepCounterSession) record(tr reps.Transition) {
	s.transitions = append(s.transitions, tr)
	if tr.Counted {
		monitoring.Logf("[session] %s", tr)
		return
	}
	monitoring.Debugf("[session] %s", tr)
}

func (s *RepCounterSession) summary(obs pose.Observation) Summary {
	return Summary{
		Frame:           obs.Index,
		PushupCount:     s.pushups.Count(),
		SquatCount:      s.squats.Count(),
		ProgressPct:     Progress(s.frames, s.total),
		ElbowAngle:      s.lastElbow,
		BodyAngle:       s.lastBody,
		KneeAngle:       s.lastKnee,
		SkeletonPresent: obs.Detected(),
		Side:            s.lastSide,
		PushupState:     s.pushups.State().String(),
		SquatState:      s.squats.State().String(),
	}
}

// Counts returns the current push-up and squat counters.
func (s *RepCounterSession) Counts() (pushups, squats int) {
	return s.pushups.Count(), s.squats.Count()
}

// States returns the current push-up and squat phases.
func (s *RepCounterSession) States() (pushup, squat reps.State) {
	return s.pushups.State(), s.squats.State()
}

// Transitions returns a copy of the transition history.
func (s *RepCounterSession) Transitions() []reps.Transition {
	out := make([]reps.Transition, len(s.transitions))
	copy(out, s.transitions)
	return out
}

// Result reports the totals accumulated so far. Stopping early is a
// valid end state: the counters are whatever was reached.
func (s *RepCounterSession) Result() Result {
	return Result{
		RunID:          s.runID,
		Frames:         s.frames,
		DetectedFrames: s.detected,
		Pushups:        s.pushups.Count(),
		Squats:         s.squats.Count(),
		SideSwitches:   s.selector.Switches(),
		Transitions:    s.Transitions(),
	}
}
