package pose

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrUnknownJoint is returned when a joint or side name cannot be resolved.
var ErrUnknownJoint = errors.New("unknown joint")

// JointKind identifies a body joint independent of side.
type JointKind uint8

const (
	Shoulder JointKind = iota
	Elbow
	Wrist
	Hip
	Knee
	Ankle

	// NumJointKinds is the number of tracked joint kinds.
	NumJointKinds
)

var jointNames = [NumJointKinds]string{
	Shoulder: "shoulder",
	Elbow:    "elbow",
	Wrist:    "wrist",
	Hip:      "hip",
	Knee:     "knee",
	Ankle:    "ankle",
}

func (j JointKind) String() string {
	if j < NumJointKinds {
		return jointNames[j]
	}
	return fmt.Sprintf("joint(%d)", uint8(j))
}

// ParseJointKind resolves a case-insensitive joint name.
func ParseJointKind(name string) (JointKind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for k, s := range jointNames {
		if s == n {
			return JointKind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownJoint, name)
}

// Side is a body side. Left and right are the subject's own sides.
type Side uint8

const (
	Left Side = iota
	Right

	numSides
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("side(%d)", uint8(s))
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Left {
		return Right
	}
	return Left
}

// ParseSide resolves "left" or "right", case-insensitively.
func ParseSide(name string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return 0, fmt.Errorf("%w: side %q", ErrUnknownJoint, name)
}

// Landmark is one joint estimate in normalized frame coordinates.
// X and Y are in [0,1]; Z is the estimator's relative depth and is
// carried through untouched. Visibility is the estimator's confidence
// that the joint is unoccluded and in frame.
type Landmark struct {
	X          float64
	Y          float64
	Z          float64
	Visibility float64
}

// Vec returns the landmark's 2D position.
func (l Landmark) Vec() r2.Vec {
	return r2.Vec{X: l.X, Y: l.Y}
}

// LandmarkSet holds the landmarks detected in one frame, indexed by
// (JointKind x Side). The core only reads it.
type LandmarkSet struct {
	joints  [NumJointKinds][numSides]Landmark
	present [NumJointKinds][numSides]bool
}

// NewLandmarkSet returns an empty set.
func NewLandmarkSet() *LandmarkSet {
	return &LandmarkSet{}
}

// Set stores a landmark. Out-of-range kinds or sides are ignored.
func (s *LandmarkSet) Set(kind JointKind, side Side, lm Landmark) {
	if kind >= NumJointKinds || side >= numSides {
		return
	}
	s.joints[kind][side] = lm
	s.present[kind][side] = true
}

// Get returns the landmark for (kind, side) and whether it was detected.
func (s *LandmarkSet) Get(kind JointKind, side Side) (Landmark, bool) {
	if s == nil || kind >= NumJointKinds || side >= numSides {
		return Landmark{}, false
	}
	return s.joints[kind][side], s.present[kind][side]
}

// Visibility returns the visibility of (kind, side), or 0 when absent.
func (s *LandmarkSet) Visibility(kind JointKind, side Side) float64 {
	lm, ok := s.Get(kind, side)
	if !ok {
		return 0
	}
	return lm.Visibility
}

// Len returns the number of detected landmarks.
func (s *LandmarkSet) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for k := range s.present {
		for _, ok := range s.present[k] {
			if ok {
				n++
			}
		}
	}
	return n
}

// Each calls fn for every detected landmark in (kind, side) order.
func (s *LandmarkSet) Each(fn func(kind JointKind, side Side, lm Landmark)) {
	if s == nil {
		return
	}
	for k := JointKind(0); k < NumJointKinds; k++ {
		for sd := Side(0); sd < numSides; sd++ {
			if s.present[k][sd] {
				fn(k, sd, s.joints[k][sd])
			}
		}
	}
}
