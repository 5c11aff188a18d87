package pose

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/banshee-data/rep.report/internal/monitoring"
)

// SidecarStream runs an external pose estimator as a child process. The
// child owns video decoding and detection and writes a landmark
// recording to stdout; its stderr is forwarded to the diagnostic log.
type SidecarStream struct {
	cmd    *exec.Cmd
	reader *RecordingReader
	stdout io.ReadCloser

	stderrDone chan struct{}
	closeOnce  sync.Once
	closeErr   error
}

// StartSidecar launches name with args and reads the recording header
// from its stdout. Cancelling ctx kills the child.
func StartSidecar(ctx context.Context, name string, args ...string) (*SidecarStream, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("sidecar stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("sidecar stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start sidecar %q: %w", name, err)
	}

	s := &SidecarStream{cmd: cmd, stdout: stdout, stderrDone: make(chan struct{})}
	go s.forwardStderr(stderr)

	s.reader, err = NewRecordingReader(stdout)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("sidecar %q: %w", name, err)
	}
	monitoring.Logf("[sidecar] started %s pid=%d total_frames=%d", name, cmd.Process.Pid, s.reader.TotalFrames())
	return s, nil
}

func (s *SidecarStream) forwardStderr(r io.Reader) {
	defer close(s.stderrDone)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		monitoring.Logf("[sidecar] %s", sc.Text())
	}
}

// Header returns the recording header the sidecar emitted.
func (s *SidecarStream) Header() Header {
	return s.reader.Header()
}

// Next returns the next observation from the sidecar. At the end of its
// output the child is reaped: a non-zero exit is returned in place of
// io.EOF, so a crashed estimator never looks like a finished video.
func (s *SidecarStream) Next(ctx context.Context) (Observation, error) {
	obs, err := s.reader.Next(ctx)
	if errors.Is(err, io.EOF) {
		if cerr := s.Close(); cerr != nil && ctx.Err() == nil {
			return Observation{}, cerr
		}
	}
	return obs, err
}

// TotalFrames returns the sidecar's advertised frame count.
func (s *SidecarStream) TotalFrames() int {
	return s.reader.TotalFrames()
}

// Close releases the child. A child that already exited cleanly, or
// that was stopped because the caller finished early, is not an error.
func (s *SidecarStream) Close() error {
	s.closeOnce.Do(func() {
		_ = s.stdout.Close()
		<-s.stderrDone
		err := s.cmd.Wait()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			s.closeErr = fmt.Errorf("wait sidecar: %w", err)
			return
		}
		if exitErr != nil && exitErr.Exited() && exitErr.ExitCode() != 0 {
			s.closeErr = fmt.Errorf("sidecar exited with status %d", exitErr.ExitCode())
		}
	})
	return s.closeErr
}
