package pose

// MediaPipe's 33-point pose model indexes joints by a flat integer. The
// table maps the joints the counter uses to those indices; everything
// else in the model (face, hands, feet) is dropped on import.
var mediaPipeIndex = [NumJointKinds][numSides]int{
	Shoulder: {Left: 11, Right: 12},
	Elbow:    {Left: 13, Right: 14},
	Wrist:    {Left: 15, Right: 16},
	Hip:      {Left: 23, Right: 24},
	Knee:     {Left: 25, Right: 26},
	Ankle:    {Left: 27, Right: 28},
}

// MediaPipeLandmarkCount is the size of the MediaPipe pose landmark list.
const MediaPipeLandmarkCount = 33

// MediaPipeIndex returns the MediaPipe pose index of (kind, side), or -1.
func MediaPipeIndex(kind JointKind, side Side) int {
	if kind >= NumJointKinds || side >= numSides {
		return -1
	}
	return mediaPipeIndex[kind][side]
}

// FromMediaPipeIndex resolves a MediaPipe pose index. ok is false for
// indices the counter does not track.
func FromMediaPipeIndex(idx int) (kind JointKind, side Side, ok bool) {
	for k := range mediaPipeIndex {
		for sd, i := range mediaPipeIndex[k] {
			if i == idx {
				return JointKind(k), Side(sd), true
			}
		}
	}
	return 0, 0, false
}
