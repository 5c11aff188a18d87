package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/rep.report/internal/monitoring"
	"github.com/banshee-data/rep.report/internal/reps"
	"github.com/banshee-data/rep.report/internal/session"
)

// AnalysisRun is the stored outcome of one analysis of a recording.
type AnalysisRun struct {
	RunID          uuid.UUID
	RecordingID    string
	ConfigJSON     string // tuning file keys, loadable with config.LoadTuningConfig
	Frames         int
	DetectedFrames int
	Pushups        int
	Squats         int
	SideSwitches   int
	Completed      bool
	CreatedAt      time.Time
}

// AnalysisWriter stores one run as a pipeline sink. All rows are written
// in a single transaction that commits on Finish; Rollback discards
// them. Any earlier analysis of the same recording is deleted in that
// transaction, so it survives until the new run commits.
type AnalysisWriter struct {
	tx          *sql.Tx
	runID       uuid.UUID
	recordingID string
	summaries   *sql.Stmt
	seq         int
	done        bool
}

// NewAnalysisWriter opens the transaction for a run of the given session
// over a stored recording. The transaction is bound to ctx: cancelling it
// rolls the run back.
func (db *DB) NewAnalysisWriter(ctx context.Context, recordingID string, runID uuid.UUID, cfg session.Config) (*AnalysisWriter, error) {
	if _, err := db.Recording(ctx, recordingID); err != nil {
		return nil, err
	}
	cfgJSON, err := json.Marshal(cfg.Tuning())
	if err != nil {
		return nil, fmt.Errorf("encode tuning config: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin analysis: %w", err)
	}
	w := &AnalysisWriter{tx: tx, runID: runID, recordingID: recordingID}

	if err := w.deletePrevious(ctx); err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO analysis_runs (run_id, recording_id, config_json) VALUES (?, ?, ?)`,
		runID.String(), recordingID, string(cfgJSON),
	); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("insert analysis run: %w", err)
	}

	w.summaries, err = tx.PrepareContext(ctx, `
		INSERT INTO frame_summaries (
			run_id, seq, frame, pushup_count, squat_count, progress_pct,
			elbow_angle, body_angle, knee_angle, skeleton_present, side,
			pushup_state, squat_state
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("prepare summary insert: %w", err)
	}
	return w, nil
}

func (w *AnalysisWriter) deletePrevious(ctx context.Context) error {
	var previous string
	err := w.tx.QueryRowContext(ctx,
		`SELECT run_id FROM analysis_runs WHERE recording_id = ?`, w.recordingID).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("query previous analysis: %w", err)
	}
	for _, q := range []string{
		`DELETE FROM transitions WHERE run_id = ?`,
		`DELETE FROM frame_summaries WHERE run_id = ?`,
		`DELETE FROM analysis_runs WHERE run_id = ?`,
	} {
		if _, err := w.tx.ExecContext(ctx, q, previous); err != nil {
			return fmt.Errorf("delete previous analysis %s: %w", previous, err)
		}
	}
	monitoring.Debugf("[db] replacing analysis %s of recording %s", previous, w.recordingID)
	return nil
}

// Consume stores one frame summary.
func (w *AnalysisWriter) Consume(ctx context.Context, sum session.Summary) error {
	if w.done {
		return errors.New("analysis writer already closed")
	}
	_, err := w.summaries.ExecContext(ctx,
		w.runID.String(), w.seq, sum.Frame, sum.PushupCount, sum.SquatCount, sum.ProgressPct,
		nullFloat(sum.ElbowAngle), nullFloat(sum.BodyAngle), nullFloat(sum.KneeAngle),
		boolInt(sum.SkeletonPresent), sum.Side, sum.PushupState, sum.SquatState,
	)
	if err != nil {
		return fmt.Errorf("insert summary for frame %d: %w", sum.Frame, err)
	}
	w.seq++
	return nil
}

// Finish stores the totals and transitions and commits the run.
func (w *AnalysisWriter) Finish(ctx context.Context, res session.Result) error {
	if w.done {
		return errors.New("analysis writer already closed")
	}
	w.done = true
	defer w.summaries.Close()

	if _, err := w.tx.ExecContext(ctx, `
		UPDATE analysis_runs
		SET frames = ?, detected_frames = ?, pushups = ?, squats = ?, side_switches = ?, completed = 1
		WHERE run_id = ?`,
		res.Frames, res.DetectedFrames, res.Pushups, res.Squats, res.SideSwitches, w.runID.String(),
	); err != nil {
		w.tx.Rollback()
		return fmt.Errorf("update analysis run: %w", err)
	}

	for i, tr := range res.Transitions {
		if _, err := w.tx.ExecContext(ctx, `
			INSERT INTO transitions (run_id, seq, frame, exercise, from_state, to_state, angle, counted, rep_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.runID.String(), i, tr.Frame, string(tr.Exercise), tr.From.String(), tr.To.String(),
			tr.Angle, boolInt(tr.Counted), tr.Count,
		); err != nil {
			w.tx.Rollback()
			return fmt.Errorf("insert transition %d: %w", i, err)
		}
	}

	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("commit analysis: %w", err)
	}
	monitoring.Logf("[db] stored analysis %s of recording %s (%d frames)", w.runID, w.recordingID, w.seq)
	return nil
}

// Rollback discards an unfinished run. It is a no-op after Finish.
func (w *AnalysisWriter) Rollback() error {
	if w.done {
		return nil
	}
	w.done = true
	w.summaries.Close()
	return w.tx.Rollback()
}

// LatestAnalysis returns the stored analysis of a recording.
func (db *DB) LatestAnalysis(ctx context.Context, recordingID string) (AnalysisRun, error) {
	var (
		run       AnalysisRun
		runID     string
		completed int
		createdAt sql.NullTime
	)
	err := db.QueryRowContext(ctx, `
		SELECT run_id, recording_id, config_json, frames, detected_frames, pushups, squats,
			side_switches, completed, created_at
		FROM analysis_runs WHERE recording_id = ?`, recordingID,
	).Scan(&runID, &run.RecordingID, &run.ConfigJSON, &run.Frames, &run.DetectedFrames,
		&run.Pushups, &run.Squats, &run.SideSwitches, &completed, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return AnalysisRun{}, fmt.Errorf("%w: %s", ErrNoAnalysis, recordingID)
	}
	if err != nil {
		return AnalysisRun{}, fmt.Errorf("query analysis: %w", err)
	}
	if run.RunID, err = uuid.Parse(runID); err != nil {
		return AnalysisRun{}, fmt.Errorf("stored run id %q: %w", runID, err)
	}
	run.Completed = completed != 0
	run.CreatedAt = createdAt.Time
	return run, nil
}

// FrameSummaries returns the stored per-frame summaries of a run in
// processing order.
func (db *DB) FrameSummaries(ctx context.Context, runID uuid.UUID) ([]session.Summary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT frame, pushup_count, squat_count, progress_pct, elbow_angle, body_angle,
			knee_angle, skeleton_present, side, pushup_state, squat_state
		FROM frame_summaries WHERE run_id = ? ORDER BY seq`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []session.Summary
	for rows.Next() {
		var (
			s                 session.Summary
			elbow, body, knee sql.NullFloat64
			skeleton          int
		)
		if err := rows.Scan(&s.Frame, &s.PushupCount, &s.SquatCount, &s.ProgressPct,
			&elbow, &body, &knee, &skeleton, &s.Side, &s.PushupState, &s.SquatState); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.ElbowAngle = floatPtr(elbow)
		s.BodyAngle = floatPtr(body)
		s.KneeAngle = floatPtr(knee)
		s.SkeletonPresent = skeleton != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

// Transitions returns the stored transition history of a run.
func (db *DB) Transitions(ctx context.Context, runID uuid.UUID) ([]reps.Transition, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT frame, exercise, from_state, to_state, angle, counted, rep_count
		FROM transitions WHERE run_id = ? ORDER BY seq`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []reps.Transition
	for rows.Next() {
		var (
			tr       reps.Transition
			exercise string
			from, to string
			counted  int
		)
		if err := rows.Scan(&tr.Frame, &exercise, &from, &to, &tr.Angle, &counted, &tr.Count); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.Exercise = reps.Exercise(exercise)
		if tr.From, err = reps.ParseState(from); err != nil {
			return nil, err
		}
		if tr.To, err = reps.ParseState(to); err != nil {
			return nil, err
		}
		tr.Counted = counted != 0
		out = append(out, tr)
	}
	return out, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
