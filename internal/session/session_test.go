package session

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/banshee-data/rep.report/internal/pose"
	"github.com/banshee-data/rep.report/internal/reps"
	"github.com/banshee-data/rep.report/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsmoothed() Config {
	cfg := DefaultConfig()
	cfg.SmoothingWindow = 1
	return cfg
}

func feed(s *RepCounterSession, sets []*pose.LandmarkSet) []Summary {
	out := make([]Summary, 0, len(sets))
	for _, obs := range testutil.Observations(sets...) {
		out = append(out, s.Process(obs))
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, 5, cfg.SmoothingWindow)
	assert.True(t, cfg.DiscardDegenerate)
	assert.False(t, cfg.SidePolicy.Sticky())
	assert.Equal(t, reps.DefaultPushupThresholds(), cfg.Pushup)
	assert.Equal(t, reps.DefaultSquatThresholds(), cfg.Squat)
	assert.Zero(t, cfg.MinVisibility)
}

func TestConfigTuningRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Squat.KneeDown = 90
	cfg.SmoothingWindow = 3
	cfg.SidePolicy.DwellFrames = 4

	data, err := json.Marshal(cfg.Tuning())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"knee_down_threshold":90`)
	assert.Contains(t, string(data), `"side_switch_dwell_frames":4`)

	require.NoError(t, cfg.Tuning().Validate())
	assert.Equal(t, cfg, ConfigFromTuning(cfg.Tuning()))
}

func TestSquatScenarioUnsmoothed(t *testing.T) {
	t.Parallel()

	s := New(unsmoothed(), 8)
	sums := feed(s, testutil.KneeSequence(170, 170, 170, 100, 100, 170, 170, 100))

	p, q := s.Counts()
	assert.Equal(t, 0, p)
	assert.Equal(t, 2, q)
	assert.Equal(t, 100, sums[7].ProgressPct)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1, 1, 2}, squatCounts(sums))
}

func TestPushupScenarioUnsmoothed(t *testing.T) {
	t.Parallel()

	s := New(unsmoothed(), 0)
	feed(s, testutil.ElbowSequence(160, 170, 170, 120, 120, 170, 170))
	p, q := s.Counts()
	assert.Equal(t, 1, p)
	assert.Equal(t, 0, q)

	bent := New(unsmoothed(), 0)
	feed(bent, testutil.ElbowSequence(100, 170, 170, 120, 120, 170, 170))
	p, _ = bent.Counts()
	assert.Equal(t, 0, p)
	ps, _ := bent.States()
	assert.Equal(t, reps.StateUnset, ps)
}

// With the default window, the short scenarios above are absorbed by the
// moving average; held poses still count.
func TestSquatsHeldPosesDefaultWindow(t *testing.T) {
	t.Parallel()

	var knees []float64
	for _, k := range []float64{170, 100, 170, 100} {
		for i := 0; i < 5; i++ {
			knees = append(knees, k)
		}
	}
	s := New(DefaultConfig(), len(knees))
	sums := feed(s, testutil.KneeSequence(knees...))

	_, q := s.Counts()
	assert.Equal(t, 2, q)
	// Mean first drops below 115 on the fourth 100-degree frame.
	assert.Equal(t, 0, sums[7].SquatCount)
	assert.Equal(t, 1, sums[8].SquatCount)

	short := New(DefaultConfig(), 8)
	feed(short, testutil.KneeSequence(170, 170, 170, 100, 100, 170, 170, 100))
	_, q = short.Counts()
	assert.Equal(t, 0, q)
}

func TestDetectionMissPreservesState(t *testing.T) {
	t.Parallel()

	knees := []float64{170, 170, 150, 130, 110, 100}
	withMiss := testutil.KneeSequence(knees...)
	// Insert two misses between the 150 and 130 frames.
	withMiss = append(withMiss[:3], append([]*pose.LandmarkSet{nil, nil}, withMiss[3:]...)...)

	a := New(DefaultConfig(), len(withMiss))
	sums := feed(a, withMiss)

	b := New(DefaultConfig(), len(knees))
	feed(b, testutil.KneeSequence(knees...))

	assert.Equal(t, b.knee.Values(), a.knee.Values())
	assert.Equal(t, b.elbow.Values(), a.elbow.Values())
	_, qa := a.Counts()
	_, qb := b.Counts()
	assert.Equal(t, qb, qa)

	// Miss frames keep last-known-good values but report no skeleton.
	miss := sums[3]
	assert.False(t, miss.SkeletonPresent)
	require.NotNil(t, miss.KneeAngle)
	assert.Equal(t, *sums[2].KneeAngle, *miss.KneeAngle)
	assert.Equal(t, sums[2].Side, miss.Side)
	assert.Equal(t, 4*100/len(withMiss), miss.ProgressPct)

	res := a.Result()
	assert.Equal(t, len(withMiss), res.Frames)
	assert.Equal(t, len(knees), res.DetectedFrames)
}

func TestSummaryBeforeFirstDetection(t *testing.T) {
	t.Parallel()

	s := New(DefaultConfig(), 2)
	sum := s.Process(pose.Observation{Index: 0})
	assert.Nil(t, sum.ElbowAngle)
	assert.Nil(t, sum.BodyAngle)
	assert.Nil(t, sum.KneeAngle)
	assert.Empty(t, sum.Side)
	assert.Equal(t, "unset", sum.PushupState)
	assert.Equal(t, 50, sum.ProgressPct)

	b, err := json.Marshal(sum)
	require.NoError(t, err)
	assert.JSONEq(t, `{"frame":0,"pushup_count":0,"squat_count":0,"progress_pct":50,
		"elbow_angle":null,"body_angle":null,"knee_angle":null,"skeleton_present":false,
		"pushup_state":"unset","squat_state":"unset"}`, string(b))
}

func TestDeterministicReplay(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	var sets []*pose.LandmarkSet
	for i := 0; i < 600; i++ {
		if rng.Intn(10) == 0 {
			sets = append(sets, nil)
			continue
		}
		sd := pose.Right
		if rng.Intn(2) == 0 {
			sd = pose.Left
		}
		sets = append(sets, testutil.Pose(testutil.Angles{
			Elbow: 60 + rng.Float64()*120,
			Body:  130 + rng.Float64()*50,
			Knee:  80 + rng.Float64()*100,
		}, sd, 0.5+rng.Float64()/2))
	}

	a := New(DefaultConfig(), len(sets))
	b := New(DefaultConfig(), len(sets))
	sumA := feed(a, sets)
	sumB := feed(b, sets)

	if diff := cmp.Diff(a.Transitions(), b.Transitions()); diff != "" {
		t.Errorf("transitions differ (-a +b):\n%s", diff)
	}
	if diff := cmp.Diff(sumA, sumB); diff != "" {
		t.Errorf("summaries differ (-a +b):\n%s", diff)
	}
	assert.NotEqual(t, a.RunID(), b.RunID())

	// Counters never decrease.
	for i := 1; i < len(sumA); i++ {
		require.GreaterOrEqual(t, sumA[i].PushupCount, sumA[i-1].PushupCount)
		require.GreaterOrEqual(t, sumA[i].SquatCount, sumA[i-1].SquatCount)
	}
}

func TestSideSelection(t *testing.T) {
	t.Parallel()

	set := testutil.Pose(testutil.Angles{Elbow: 90, Body: 170, Knee: 100}, pose.Left, 0.9)
	testutil.AddSide(set, testutil.Angles{Elbow: 170, Body: 170, Knee: 170}, pose.Right, 0.4)

	s := New(unsmoothed(), 0)
	sum := s.Process(pose.Observation{Landmarks: set})
	assert.Equal(t, "left", sum.Side)
	require.NotNil(t, sum.ElbowAngle)
	assert.InDelta(t, 90, *sum.ElbowAngle, 1e-6)
	require.NotNil(t, sum.KneeAngle)
	assert.InDelta(t, 100, *sum.KneeAngle, 1e-6)
}

func TestMissingSelectedSideIsAMiss(t *testing.T) {
	t.Parallel()

	set := testutil.Pose(testutil.Angles{Elbow: 90, Body: 170, Knee: 100}, pose.Left, 0.9)
	// Right shoulder is more visible but the rest of the right side is absent.
	set.Set(pose.Shoulder, pose.Right, pose.Landmark{X: 0.3, Y: 0.3, Visibility: 0.95})

	s := New(DefaultConfig(), 0)
	s.Process(pose.Observation{Landmarks: set})
	assert.Zero(t, s.knee.Len())
	assert.Zero(t, s.Result().DetectedFrames)
}

func TestStickySideLeavesUnmeasurableSide(t *testing.T) {
	t.Parallel()

	cfg := unsmoothed()
	cfg.SidePolicy.DwellFrames = 2
	s := New(cfg, 0)

	first := testutil.Pose(testutil.Angles{Elbow: 170, Body: 170, Knee: 170}, pose.Right, 0.9)
	assert.Equal(t, "right", s.Process(pose.Observation{Index: 0, Landmarks: first}).Side)

	// The subject turns: the left side is fully visible, only the right
	// shoulder remains.
	turned := func() *pose.LandmarkSet {
		set := testutil.Pose(testutil.Angles{Elbow: 170, Body: 170, Knee: 170}, pose.Left, 0.9)
		set.Set(pose.Shoulder, pose.Right, pose.Landmark{X: 0.5, Y: 0.3, Visibility: 0.4})
		return set
	}

	miss := s.Process(pose.Observation{Index: 1, Landmarks: turned()})
	assert.Equal(t, "right", miss.Side, "still on right during the dwell")
	assert.Equal(t, 1, s.Result().DetectedFrames)

	sum := s.Process(pose.Observation{Index: 2, Landmarks: turned()})
	assert.Equal(t, "left", sum.Side, "the rejected frame counted toward the dwell")

	res := s.Result()
	assert.Equal(t, 2, res.DetectedFrames)
	assert.Equal(t, 1, res.SideSwitches)
}

func TestMinVisibility(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MinVisibility = 0.5
	s := New(cfg, 0)
	s.Process(pose.Observation{Landmarks: testutil.Pose(testutil.Angles{Elbow: 90, Body: 170, Knee: 170}, pose.Right, 0.3)})
	assert.Zero(t, s.knee.Len())

	s.Process(pose.Observation{Index: 1, Landmarks: testutil.Pose(testutil.Angles{Elbow: 90, Body: 170, Knee: 170}, pose.Right, 0.6)})
	assert.Equal(t, 1, s.knee.Len())
}

func degenerateElbow() *pose.LandmarkSet {
	set := testutil.Pose(testutil.Angles{Elbow: 90, Body: 170, Knee: 170}, pose.Right, 0.9)
	el, _ := set.Get(pose.Elbow, pose.Right)
	set.Set(pose.Wrist, pose.Right, el)
	return set
}

func TestDegenerateAngleDiscarded(t *testing.T) {
	t.Parallel()

	s := New(DefaultConfig(), 0)
	sets := testutil.ElbowSequence(170, 120, 120)
	sets = append(sets, degenerateElbow())
	sums := feed(s, sets)

	assert.Equal(t, 2, s.elbow.Len())
	assert.Equal(t, 4, s.knee.Len())
	require.NotNil(t, sums[3].ElbowAngle)
	assert.InDelta(t, 120, *sums[3].ElbowAngle, 1e-6)
	ps, _ := s.States()
	assert.Equal(t, reps.StateDown, ps)
}

func TestDegenerateAngleKeptPollutesMean(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.DiscardDegenerate = false
	s := New(cfg, 0)
	sets := []*pose.LandmarkSet{degenerateElbow()}
	sets = append(sets, testutil.ElbowSequence(170, 120, 120, 120, 120)...)
	sums := feed(s, sets)

	// The NaN stays in the five-sample window, so the elbow machine sees
	// NaN every frame and never leaves Unset.
	assert.Equal(t, 5, s.elbow.Len())
	assert.Nil(t, sums[4].ElbowAngle)
	ps, _ := s.States()
	assert.Equal(t, reps.StateUnset, ps)

	// One more frame evicts it.
	sum := s.Process(pose.Observation{Index: 5, Landmarks: testutil.ElbowSequence(170, 120)[0]})
	require.NotNil(t, sum.ElbowAngle)
	ps, _ = s.States()
	assert.Equal(t, reps.StateDown, ps)
}

func TestProgress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		index, total, want int
	}{
		{1, 4, 25},
		{2, 4, 50},
		{4, 4, 100},
		{1, 3, 33},
		{5, 4, 100},
		{3, 0, 0},
		{3, -1, 0},
		{0, 10, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Progress(tt.index, tt.total), "Progress(%d, %d)", tt.index, tt.total)
	}
}

func TestTransitionsIsACopy(t *testing.T) {
	t.Parallel()

	s := New(unsmoothed(), 0)
	feed(s, testutil.KneeSequence(170, 100))
	trs := s.Transitions()
	require.Len(t, trs, 2)
	trs[0].Count = 99
	assert.Equal(t, 0, s.Transitions()[0].Count)
}

func squatCounts(sums []Summary) []int {
	out := make([]int, len(sums))
	for i, s := range sums {
		out[i] = s.SquatCount
	}
	return out
}
