package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/rep.report/internal/monitoring"
	"github.com/banshee-data/rep.report/internal/pose"
)

// Recording is one imported landmark recording.
type Recording struct {
	ID           string
	Source       string
	TotalFrames  int
	FPS          float64
	Width        int
	Height       int
	StoredFrames int
	ImportedAt   time.Time
}

// Header returns the recording's stream header.
func (r Recording) Header() pose.Header {
	return pose.Header{
		Version:     pose.RecordingVersion,
		TotalFrames: r.TotalFrames,
		FPS:         r.FPS,
		Width:       r.Width,
		Height:      r.Height,
		Source:      r.Source,
	}
}

// ImportRecording stores every observation of stream under a new
// recording id. The import is a single transaction: a decode error part
// way through leaves nothing behind.
func (db *DB) ImportRecording(ctx context.Context, h pose.Header, stream pose.Stream) (Recording, error) {
	rec := Recording{
		ID:          uuid.NewString(),
		Source:      h.Source,
		TotalFrames: h.TotalFrames,
		FPS:         h.FPS,
		Width:       h.Width,
		Height:      h.Height,
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Recording{}, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO recordings (recording_id, source, total_frames, fps, width, height)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Source, rec.TotalFrames, rec.FPS, rec.Width, rec.Height,
	); err != nil {
		return Recording{}, fmt.Errorf("insert recording: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO landmark_frames (recording_id, seq, frame, landmarks) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return Recording{}, fmt.Errorf("prepare frame insert: %w", err)
	}
	defer stmt.Close()

	for {
		obs, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Recording{}, fmt.Errorf("import frame %d: %w", rec.StoredFrames, err)
		}
		var landmarks sql.NullString
		if obs.Detected() {
			b, err := pose.MarshalLandmarks(obs.Landmarks)
			if err != nil {
				return Recording{}, fmt.Errorf("encode frame %d: %w", obs.Index, err)
			}
			landmarks = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.StoredFrames, obs.Index, landmarks); err != nil {
			return Recording{}, fmt.Errorf("insert frame %d: %w", obs.Index, err)
		}
		rec.StoredFrames++
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE recordings SET stored_frames = ? WHERE recording_id = ?`,
		rec.StoredFrames, rec.ID,
	); err != nil {
		return Recording{}, fmt.Errorf("update recording: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Recording{}, fmt.Errorf("commit import: %w", err)
	}

	monitoring.Logf("[db] imported recording %s: %d frames from %q", rec.ID, rec.StoredFrames, rec.Source)
	return db.Recording(ctx, rec.ID)
}

const recordingColumns = `recording_id, source, total_frames, fps, width, height, stored_frames, imported_at`

func scanRecording(row interface{ Scan(...any) error }) (Recording, error) {
	var r Recording
	var importedAt sql.NullTime
	if err := row.Scan(&r.ID, &r.Source, &r.TotalFrames, &r.FPS, &r.Width, &r.Height, &r.StoredFrames, &importedAt); err != nil {
		return Recording{}, err
	}
	r.ImportedAt = importedAt.Time
	return r, nil
}

// Recording looks up one recording by id.
func (db *DB) Recording(ctx context.Context, id string) (Recording, error) {
	row := db.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE recording_id = ?`, id)
	r, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Recording{}, fmt.Errorf("%w: %s", ErrRecordingNotFound, id)
	}
	if err != nil {
		return Recording{}, fmt.Errorf("query recording %s: %w", id, err)
	}
	return r, nil
}

// ListRecordings returns every recording, oldest first.
func (db *DB) ListRecordings(ctx context.Context) ([]Recording, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+recordingColumns+` FROM recordings ORDER BY imported_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		r, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordingStream loads a stored recording and returns it as a stream in
// its original order.
func (db *DB) RecordingStream(ctx context.Context, id string) (*pose.SliceStream, error) {
	rec, err := db.Recording(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT frame, landmarks FROM landmark_frames WHERE recording_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	obs := make([]pose.Observation, 0, rec.StoredFrames)
	for rows.Next() {
		var (
			frame     int
			landmarks sql.NullString
		)
		if err := rows.Scan(&frame, &landmarks); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		o := pose.Observation{Index: frame}
		if landmarks.Valid {
			if o.Landmarks, err = pose.UnmarshalLandmarks([]byte(landmarks.String)); err != nil {
				return nil, fmt.Errorf("frame %d: %w", frame, err)
			}
		}
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pose.NewSliceStream(obs, rec.TotalFrames), nil
}
