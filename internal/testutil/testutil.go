// Package testutil provides shared test utilities and fixtures.
//
// The pose builders construct landmark sets whose elbow, body and knee
// angles are exactly the requested values, so tests can drive the rep
// counter with angle sequences instead of hand-placed coordinates.
package testutil

import (
	"math"

	"github.com/banshee-data/rep.report/internal/pose"
)

// Angles are the joint angles a fixture pose should measure, in degrees.
// Values must lie in (0, 180].
type Angles struct {
	Elbow float64
	Body  float64
	Knee  float64
}

const (
	hipX, hipY = 0.5, 0.5
	legLen     = 0.3
	armLen     = 0.12
)

// Pose returns a landmark set for one side with the given angles. Every
// joint gets visibility vis. The other side is absent.
func Pose(a Angles, side pose.Side, vis float64) *pose.LandmarkSet {
	set := pose.NewLandmarkSet()
	AddSide(set, a, side, vis)
	return set
}

// AddSide writes the six joints of one side into set.
func AddSide(set *pose.LandmarkSet, a Angles, side pose.Side, vis float64) {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	// Ankle lies along +X from the hip. The shoulder is rotated from that
	// direction by the body angle.
	ankleX, ankleY := hipX+legLen, hipY
	sh := rad(a.Body)
	shX, shY := hipX+legLen*math.Cos(sh), hipY+legLen*math.Sin(sh)

	// Knee is the apex of an isosceles triangle over hip-ankle.
	half := legLen / 2
	kneeX, kneeY := hipX+half, hipY
	if a.Knee < 180 {
		kneeY = hipY - half/math.Tan(rad(a.Knee)/2)
	}

	// Elbow hangs below the shoulder; the wrist is the shoulder direction
	// rotated about the elbow by the elbow angle.
	elX, elY := shX, shY+armLen
	up := -math.Pi / 2
	wr := up + rad(a.Elbow)
	wrX, wrY := elX+armLen*math.Cos(wr), elY+armLen*math.Sin(wr)

	set.Set(pose.Shoulder, side, pose.Landmark{X: shX, Y: shY, Visibility: vis})
	set.Set(pose.Elbow, side, pose.Landmark{X: elX, Y: elY, Visibility: vis})
	set.Set(pose.Wrist, side, pose.Landmark{X: wrX, Y: wrY, Visibility: vis})
	set.Set(pose.Hip, side, pose.Landmark{X: hipX, Y: hipY, Visibility: vis})
	set.Set(pose.Knee, side, pose.Landmark{X: kneeX, Y: kneeY, Visibility: vis})
	set.Set(pose.Ankle, side, pose.Landmark{X: ankleX, Y: ankleY, Visibility: vis})
}

// Observations turns a sequence of poses into indexed observations. A
// nil entry is a detection miss.
func Observations(sets ...*pose.LandmarkSet) []pose.Observation {
	out := make([]pose.Observation, len(sets))
	for i, s := range sets {
		out[i] = pose.Observation{Index: i, Landmarks: s}
	}
	return out
}

// KneeSequence builds right-side poses with the given knee angles, a
// bent torso (no push-ups possible) and arms at rest.
func KneeSequence(knees ...float64) []*pose.LandmarkSet {
	out := make([]*pose.LandmarkSet, len(knees))
	for i, k := range knees {
		out[i] = Pose(Angles{Elbow: 150, Body: 100, Knee: k}, pose.Right, 0.9)
	}
	return out
}

// ElbowSequence builds right-side poses with the given elbow angles, a
// fixed body angle and straight legs.
func ElbowSequence(body float64, elbows ...float64) []*pose.LandmarkSet {
	out := make([]*pose.LandmarkSet, len(elbows))
	for i, e := range elbows {
		out[i] = Pose(Angles{Elbow: e, Body: body, Knee: 140}, pose.Right, 0.9)
	}
	return out
}
