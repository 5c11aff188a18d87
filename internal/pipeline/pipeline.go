package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/rep.report/internal/monitoring"
	"github.com/banshee-data/rep.report/internal/pose"
	"github.com/banshee-data/rep.report/internal/session"
)

// Sink consumes the summary of every processed frame.
type Sink interface {
	Consume(ctx context.Context, sum session.Summary) error
}

// Finisher is implemented by sinks that need the final result once the
// stream ends or the run is cancelled.
type Finisher interface {
	Finish(ctx context.Context, res session.Result) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, sum session.Summary) error

// Consume calls f.
func (f SinkFunc) Consume(ctx context.Context, sum session.Summary) error {
	return f(ctx, sum)
}

// unknownTotalLogEvery is the progress log interval, in frames, for
// streams that do not advertise their length.
const unknownTotalLogEvery = 1000

// Run processes stream until io.EOF or ctx is cancelled. Cancellation is
// not an error: the result holds the counts reached so far. ctx is only
// checked between frames; sinks and finishers get a context with the
// cancellation stripped so a frame is never half delivered and buffered
// output can still be flushed.
func Run(ctx context.Context, stream pose.Stream, sess *session.RepCounterSession, sinks ...Sink) (session.Result, error) {
	total := stream.TotalFrames()
	monitoring.Logf("[pipeline] run %s started (%s)", sess.RunID(), describeTotal(total))

	sinkCtx := context.WithoutCancel(ctx)
	lastIndex := -1
	lastDecile := 0
	frames := 0
	cancelled := false

loop:
	for {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		obs, err := stream.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			break loop
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			cancelled = true
			break loop
		case err != nil:
			return sess.Result(), fmt.Errorf("read frame after %d: %w", lastIndex, err)
		}
		if obs.Index <= lastIndex {
			monitoring.Logf("[pipeline] frame index %d not after %d", obs.Index, lastIndex)
		}
		lastIndex = obs.Index

		sum := sess.Process(obs)
		frames++
		for _, s := range sinks {
			if err := s.Consume(sinkCtx, sum); err != nil {
				return sess.Result(), fmt.Errorf("sink frame %d: %w", obs.Index, err)
			}
		}

		if total > 0 {
			if d := sum.ProgressPct / 10; d > lastDecile {
				lastDecile = d
				monitoring.Logf("[pipeline] %d%% (%d pushups, %d squats)", sum.ProgressPct, sum.PushupCount, sum.SquatCount)
			}
		} else if frames%unknownTotalLogEvery == 0 {
			monitoring.Logf("[pipeline] %d frames (%d pushups, %d squats)", frames, sum.PushupCount, sum.SquatCount)
		}
	}

	res := sess.Result()
	if cancelled {
		monitoring.Logf("[pipeline] run %s cancelled after %d frames", res.RunID, res.Frames)
	}

	for _, s := range sinks {
		f, ok := s.(Finisher)
		if !ok {
			continue
		}
		if err := f.Finish(sinkCtx, res); err != nil {
			return res, fmt.Errorf("finish sink: %w", err)
		}
	}

	monitoring.Logf("[pipeline] run %s done: %d frames, %d detected, %d pushups, %d squats",
		res.RunID, res.Frames, res.DetectedFrames, res.Pushups, res.Squats)
	return res, nil
}

func describeTotal(total int) string {
	if total <= 0 {
		return "unknown length"
	}
	return fmt.Sprintf("%d frames", total)
}
