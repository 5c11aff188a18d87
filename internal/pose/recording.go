package pose

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/rep.report/internal/monitoring"
)

// RecordingVersion is the landmark recording format version.
const RecordingVersion = 1

// maxRecordingLine bounds one JSON line; a full 33-point MediaPipe frame
// is a few KB.
const maxRecordingLine = 1 << 20

// Header is the first line of a landmark recording.
type Header struct {
	Version     int     `json:"version"`
	TotalFrames int     `json:"total_frames"`
	FPS         float64 `json:"fps,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	Source      string  `json:"source,omitempty"`
}

// landmarkRecord is one joint on the wire. Joints are named either by
// joint+side or by MediaPipe index.
type landmarkRecord struct {
	Joint      string  `json:"joint,omitempty"`
	Side       string  `json:"side,omitempty"`
	Index      *int    `json:"index,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Visibility float64 `json:"visibility"`
}

type frameRecord struct {
	Frame     int              `json:"frame"`
	Landmarks []landmarkRecord `json:"landmarks"`
}

// MarshalLandmarks encodes a landmark set as a JSON array in the
// recording's joint+side form. A nil set encodes as null.
func MarshalLandmarks(set *LandmarkSet) ([]byte, error) {
	return json.Marshal(toRecords(set))
}

// UnmarshalLandmarks decodes the output of MarshalLandmarks, or any
// landmark array in the recording format. null and [] decode to nil.
func UnmarshalLandmarks(data []byte) (*LandmarkSet, error) {
	var recs []landmarkRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode landmarks: %w", err)
	}
	return fromRecords(recs)
}

func toRecords(set *LandmarkSet) []landmarkRecord {
	if set == nil {
		return nil
	}
	recs := make([]landmarkRecord, 0, set.Len())
	set.Each(func(kind JointKind, side Side, lm Landmark) {
		recs = append(recs, landmarkRecord{
			Joint:      kind.String(),
			Side:       side.String(),
			X:          lm.X,
			Y:          lm.Y,
			Z:          lm.Z,
			Visibility: lm.Visibility,
		})
	})
	return recs
}

func fromRecords(recs []landmarkRecord) (*LandmarkSet, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	set := NewLandmarkSet()
	for _, r := range recs {
		var (
			kind JointKind
			side Side
			err  error
		)
		switch {
		case r.Index != nil:
			var ok bool
			kind, side, ok = FromMediaPipeIndex(*r.Index)
			if !ok {
				continue // untracked MediaPipe point
			}
		case r.Joint != "":
			if kind, err = ParseJointKind(r.Joint); err != nil {
				return nil, err
			}
			if side, err = ParseSide(r.Side); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: landmark has neither joint nor index", ErrUnknownJoint)
		}
		if r.X < 0 || r.X > 1 || r.Y < 0 || r.Y > 1 {
			monitoring.Logf("[pose] %s %s outside normalized frame: x=%.3f y=%.3f", side, kind, r.X, r.Y)
		}
		set.Set(kind, side, Landmark{X: r.X, Y: r.Y, Z: r.Z, Visibility: r.Visibility})
	}
	if set.Len() == 0 {
		return nil, nil
	}
	return set, nil
}

// RecordingReader reads a JSON-lines landmark recording. It implements
// Stream.
type RecordingReader struct {
	scanner *bufio.Scanner
	header  Header
	line    int
}

// NewRecordingReader reads and validates the header line.
func NewRecordingReader(r io.Reader) (*RecordingReader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordingLine)
	rr := &RecordingReader{scanner: sc}

	line, err := rr.nextLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("recording has no header")
		}
		return nil, err
	}
	if err := json.Unmarshal(line, &rr.header); err != nil {
		return nil, fmt.Errorf("parse recording header: %w", err)
	}
	if rr.header.Version != RecordingVersion {
		return nil, fmt.Errorf("unsupported recording version %d (want %d)", rr.header.Version, RecordingVersion)
	}
	return rr, nil
}

// Header returns the recording header.
func (r *RecordingReader) Header() Header {
	return r.header
}

// TotalFrames returns the header's frame count.
func (r *RecordingReader) TotalFrames() int {
	return r.header.TotalFrames
}

// Next decodes the next frame record.
func (r *RecordingReader) Next(ctx context.Context) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return Observation{}, err
	}
	line, err := r.nextLine()
	if err != nil {
		return Observation{}, err
	}
	var rec frameRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return Observation{}, fmt.Errorf("line %d: %w", r.line, err)
	}
	set, err := fromRecords(rec.Landmarks)
	if err != nil {
		return Observation{}, fmt.Errorf("line %d: %w", r.line, err)
	}
	return Observation{Index: rec.Frame, Landmarks: set}, nil
}

// nextLine skips blank lines and returns io.EOF at the end of input.
func (r *RecordingReader) nextLine() ([]byte, error) {
	for r.scanner.Scan() {
		r.line++
		b := r.scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		return b, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return nil, io.EOF
}

// RecordingWriter writes a JSON-lines landmark recording.
type RecordingWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewRecordingWriter writes the header and returns a writer for frames.
// Version is forced to RecordingVersion.
func NewRecordingWriter(w io.Writer, h Header) (*RecordingWriter, error) {
	bw := bufio.NewWriter(w)
	rw := &RecordingWriter{w: bw, enc: json.NewEncoder(bw)}
	h.Version = RecordingVersion
	if err := rw.enc.Encode(h); err != nil {
		return nil, fmt.Errorf("write recording header: %w", err)
	}
	return rw, nil
}

// Write appends one observation.
func (w *RecordingWriter) Write(obs Observation) error {
	if err := w.enc.Encode(frameRecord{Frame: obs.Index, Landmarks: toRecords(obs.Landmarks)}); err != nil {
		return fmt.Errorf("write frame %d: %w", obs.Index, err)
	}
	return nil
}

// Flush writes any buffered data.
func (w *RecordingWriter) Flush() error {
	return w.w.Flush()
}
