package geometry

import (
	"github.com/banshee-data/rep.report/internal/pose"
)

// JointAngles are the three angles measured on one body side per frame.
type JointAngles struct {
	Elbow float64 // shoulder-elbow-wrist
	Body  float64 // shoulder-hip-ankle, torso straightness
	Knee  float64 // hip-knee-ankle
}

// requiredJoints lists every joint MeasureSide reads.
var requiredJoints = [...]pose.JointKind{
	pose.Shoulder, pose.Elbow, pose.Wrist, pose.Hip, pose.Knee, pose.Ankle,
}

// SideJoints returns the six joints of one side. ok is false when any of
// them was not detected. minVisibility > 0 additionally rejects a side
// in which any joint is less visible than the threshold.
func SideJoints(set *pose.LandmarkSet, side pose.Side, minVisibility float64) (joints [pose.NumJointKinds]pose.Landmark, ok bool) {
	for _, k := range requiredJoints {
		lm, present := set.Get(k, side)
		if !present {
			return joints, false
		}
		if minVisibility > 0 && lm.Visibility < minVisibility {
			return joints, false
		}
		joints[k] = lm
	}
	return joints, true
}

// MeasureSide computes elbow, body and knee angles from a single side.
// Joints from the two sides are never mixed.
func MeasureSide(set *pose.LandmarkSet, side pose.Side, minVisibility float64) (JointAngles, bool) {
	j, ok := SideJoints(set, side, minVisibility)
	if !ok {
		return JointAngles{}, false
	}
	shoulder := j[pose.Shoulder].Vec()
	hip := j[pose.Hip].Vec()
	ankle := j[pose.Ankle].Vec()
	return JointAngles{
		Elbow: Angle(shoulder, j[pose.Elbow].Vec(), j[pose.Wrist].Vec()),
		Body:  Angle(shoulder, hip, ankle),
		Knee:  Angle(hip, j[pose.Knee].Vec(), ankle),
	}, true
}
