package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/banshee-data/rep.report/internal/session"
)

// JSONLSink writes one summary record per line.
type JSONLSink struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONLSink writes summaries to w. Output is buffered until Finish.
func NewJSONLSink(w io.Writer) *JSONLSink {
	bw := bufio.NewWriter(w)
	return &JSONLSink{w: bw, enc: json.NewEncoder(bw)}
}

// Consume encodes sum as a single line.
func (s *JSONLSink) Consume(_ context.Context, sum session.Summary) error {
	if err := s.enc.Encode(sum); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// Finish flushes buffered lines.
func (s *JSONLSink) Finish(context.Context, session.Result) error {
	return s.w.Flush()
}
