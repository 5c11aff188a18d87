package pose

import (
	"context"
	"fmt"
	"io"
)

// Frame is an opaque video frame handed to a Provider. The core never
// looks inside Data.
type Frame struct {
	Index  int
	Width  int
	Height int
	Data   []byte
}

// Provider is the pose-estimation collaborator. Detect returns a nil set
// and a nil error when the frame contains no detectable person.
type Provider interface {
	Detect(ctx context.Context, frame Frame) (*LandmarkSet, error)
}

// FrameSource yields video frames in order. Next returns io.EOF once the
// video is exhausted. TotalFrames returns 0 when the length is unknown.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
	TotalFrames() int
}

// Observation is the provider's output for one frame. A nil Landmarks
// field is a detection miss.
type Observation struct {
	Index     int
	Landmarks *LandmarkSet
}

// Detected reports whether the frame produced a landmark set.
func (o Observation) Detected() bool {
	return o.Landmarks != nil
}

// Stream yields observations in frame order and returns io.EOF at the
// end. TotalFrames returns 0 when the length is unknown.
type Stream interface {
	Next(ctx context.Context) (Observation, error)
	TotalFrames() int
}

// DetectingStream runs a Provider over every frame of a FrameSource.
type DetectingStream struct {
	source   FrameSource
	provider Provider
}

// NewDetectingStream pairs a frame source with a pose estimator.
func NewDetectingStream(source FrameSource, provider Provider) *DetectingStream {
	return &DetectingStream{source: source, provider: provider}
}

// Next reads one frame and runs detection on it.
func (d *DetectingStream) Next(ctx context.Context) (Observation, error) {
	frame, err := d.source.Next(ctx)
	if err != nil {
		return Observation{}, err
	}
	set, err := d.provider.Detect(ctx, frame)
	if err != nil {
		return Observation{}, fmt.Errorf("detect frame %d: %w", frame.Index, err)
	}
	if set != nil && set.Len() == 0 {
		set = nil
	}
	return Observation{Index: frame.Index, Landmarks: set}, nil
}

// TotalFrames forwards the source's frame count.
func (d *DetectingStream) TotalFrames() int {
	return d.source.TotalFrames()
}

// SliceStream replays a fixed list of observations.
type SliceStream struct {
	obs   []Observation
	total int
	pos   int
}

// NewSliceStream returns a stream over obs. A total of 0 or less reports
// the slice length as the frame count.
func NewSliceStream(obs []Observation, total int) *SliceStream {
	if total <= 0 {
		total = len(obs)
	}
	return &SliceStream{obs: obs, total: total}
}

// Next returns the next observation or io.EOF.
func (s *SliceStream) Next(ctx context.Context) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return Observation{}, err
	}
	if s.pos >= len(s.obs) {
		return Observation{}, io.EOF
	}
	o := s.obs[s.pos]
	s.pos++
	return o, nil
}

// TotalFrames returns the advertised frame count.
func (s *SliceStream) TotalFrames() int {
	return s.total
}
