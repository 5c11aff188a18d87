package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/banshee-data/rep.report/internal/config"
	"github.com/banshee-data/rep.report/internal/pipeline"
	"github.com/banshee-data/rep.report/internal/pose"
	"github.com/banshee-data/rep.report/internal/session"
	"github.com/banshee-data/rep.report/internal/testutil"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "reps.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func squatObservations() []pose.Observation {
	var sets []*pose.LandmarkSet
	for _, k := range []float64{170, 100, 170, 100} {
		sets = append(sets, testutil.KneeSequence(k, k, k, k, k)...)
	}
	// A miss in the middle of the second descent.
	sets[7] = nil
	return testutil.Observations(sets...)
}

func importSquats(t *testing.T, db *DB) Recording {
	t.Helper()
	obs := squatObservations()
	h := pose.Header{Version: pose.RecordingVersion, TotalFrames: len(obs), FPS: 30, Width: 640, Height: 480, Source: "squats.mp4"}
	rec, err := db.ImportRecording(context.Background(), h, pose.NewSliceStream(obs, 0))
	if err != nil {
		t.Fatalf("ImportRecording: %v", err)
	}
	return rec
}

// TestPragmasApplied verifies that essential PRAGMAs are set on pooled connections
func TestPragmasApplied(t *testing.T) {
	db := newTestDB(t)

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}

	var busyTimeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("Failed to query busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Errorf("Expected busy_timeout=5000, got %d", busyTimeout)
	}

	var foreignKeys int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("Failed to query foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("Expected foreign_keys=1, got %d", foreignKeys)
	}
}

func TestMigrations(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if version != 1 || dirty {
		t.Fatalf("version = %d dirty=%v, want 1 clean", version, dirty)
	}

	// Up again is a no-op.
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("second MigrateUp: %v", err)
	}

	if err := db.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='recordings'`).Scan(&n); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if n != 0 {
		t.Errorf("recordings table still present after down migration")
	}
}

func TestImportRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	rec := importSquats(t, db)

	if rec.StoredFrames != 20 || rec.TotalFrames != 20 || rec.Source != "squats.mp4" {
		t.Errorf("unexpected recording %+v", rec)
	}
	if rec.ImportedAt.IsZero() {
		t.Errorf("ImportedAt not set")
	}

	stream, err := db.RecordingStream(ctx, rec.ID)
	if err != nil {
		t.Fatalf("RecordingStream: %v", err)
	}
	if stream.TotalFrames() != 20 {
		t.Errorf("TotalFrames = %d, want 20", stream.TotalFrames())
	}

	want := squatObservations()
	var got []pose.Observation
	for {
		o, err := stream.Next(ctx)
		if err != nil {
			break
		}
		got = append(got, o)
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(pose.LandmarkSet{}), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("stored frames differ (-want +got):\n%s", diff)
	}

	list, err := db.ListRecordings(ctx)
	if err != nil {
		t.Fatalf("ListRecordings: %v", err)
	}
	if len(list) != 1 || list[0].ID != rec.ID {
		t.Errorf("ListRecordings = %+v", list)
	}
	if h := list[0].Header(); h.FPS != 30 || h.Width != 640 || h.Version != pose.RecordingVersion {
		t.Errorf("Header() = %+v", h)
	}
}

func TestRecordingNotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.Recording(ctx, "nope"); !errors.Is(err, ErrRecordingNotFound) {
		t.Errorf("Recording err = %v, want ErrRecordingNotFound", err)
	}
	if _, err := db.RecordingStream(ctx, "nope"); !errors.Is(err, ErrRecordingNotFound) {
		t.Errorf("RecordingStream err = %v, want ErrRecordingNotFound", err)
	}
	cfg := session.DefaultConfig()
	if _, err := db.NewAnalysisWriter(ctx, "nope", session.New(cfg, 0).RunID(), cfg); !errors.Is(err, ErrRecordingNotFound) {
		t.Errorf("NewAnalysisWriter err = %v, want ErrRecordingNotFound", err)
	}
}

type brokenStream struct{ n int }

func (b *brokenStream) Next(context.Context) (pose.Observation, error) {
	if b.n == 3 {
		return pose.Observation{}, errors.New("truncated line")
	}
	b.n++
	return pose.Observation{Index: b.n}, nil
}

func (b *brokenStream) TotalFrames() int { return 10 }

func TestImportIsAtomic(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.ImportRecording(ctx, pose.Header{TotalFrames: 10}, &brokenStream{}); err == nil {
		t.Fatal("expected import error")
	}
	list, err := db.ListRecordings(ctx)
	if err != nil {
		t.Fatalf("ListRecordings: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("failed import left %d recordings", len(list))
	}
	var frames int
	if err := db.QueryRow(`SELECT COUNT(*) FROM landmark_frames`).Scan(&frames); err != nil {
		t.Fatal(err)
	}
	if frames != 0 {
		t.Errorf("failed import left %d frames", frames)
	}
}

func analyse(t *testing.T, db *DB, rec Recording) session.Result {
	t.Helper()
	ctx := context.Background()
	stream, err := db.RecordingStream(ctx, rec.ID)
	if err != nil {
		t.Fatalf("RecordingStream: %v", err)
	}
	cfg := session.DefaultConfig()
	sess := session.New(cfg, stream.TotalFrames())
	w, err := db.NewAnalysisWriter(ctx, rec.ID, sess.RunID(), cfg)
	if err != nil {
		t.Fatalf("NewAnalysisWriter: %v", err)
	}
	res, err := pipeline.Run(ctx, stream, sess, w)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestAnalysisRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	rec := importSquats(t, db)

	var sums []session.Summary
	stream, err := db.RecordingStream(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	cfg := session.DefaultConfig()
	sess := session.New(cfg, stream.TotalFrames())
	w, err := db.NewAnalysisWriter(ctx, rec.ID, sess.RunID(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	collect := pipeline.SinkFunc(func(_ context.Context, s session.Summary) error {
		sums = append(sums, s)
		return nil
	})
	res, err := pipeline.Run(ctx, stream, sess, collect, w)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Squats != 2 {
		t.Fatalf("squats = %d, want 2", res.Squats)
	}

	run, err := db.LatestAnalysis(ctx, rec.ID)
	if err != nil {
		t.Fatalf("LatestAnalysis: %v", err)
	}
	if run.RunID != res.RunID || !run.Completed || run.Squats != 2 || run.Frames != 20 || run.DetectedFrames != 19 {
		t.Errorf("stored run %+v does not match result %+v", run, res)
	}

	stored, err := db.FrameSummaries(ctx, run.RunID)
	if err != nil {
		t.Fatalf("FrameSummaries: %v", err)
	}
	if diff := cmp.Diff(sums, stored); diff != "" {
		t.Errorf("summaries differ (-emitted +stored):\n%s", diff)
	}

	trs, err := db.Transitions(ctx, run.RunID)
	if err != nil {
		t.Fatalf("Transitions: %v", err)
	}
	if diff := cmp.Diff(res.Transitions, trs); diff != "" {
		t.Errorf("transitions differ (-result +stored):\n%s", diff)
	}
}

func TestAnalysisStoresTuningConfig(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	rec := importSquats(t, db)

	cfg := session.DefaultConfig()
	cfg.Squat.KneeDown = 90
	cfg.MinVisibility = 0.3
	stream, err := db.RecordingStream(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	sess := session.New(cfg, stream.TotalFrames())
	w, err := db.NewAnalysisWriter(ctx, rec.ID, sess.RunID(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pipeline.Run(ctx, stream, sess, w); err != nil {
		t.Fatalf("Run: %v", err)
	}

	run, err := db.LatestAnalysis(ctx, rec.ID)
	if err != nil {
		t.Fatalf("LatestAnalysis: %v", err)
	}
	path := filepath.Join(t.TempDir(), "stored.json")
	if err := os.WriteFile(path, []byte(run.ConfigJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	tuning, err := config.LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("stored config %s does not load: %v", run.ConfigJSON, err)
	}
	if diff := cmp.Diff(cfg, session.ConfigFromTuning(tuning)); diff != "" {
		t.Errorf("stored config differs (-run +loaded):\n%s", diff)
	}
}

func TestReanalysisReplacesPrevious(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	rec := importSquats(t, db)

	first := analyse(t, db, rec)
	second := analyse(t, db, rec)
	if first.RunID == second.RunID {
		t.Fatal("expected distinct run ids")
	}

	run, err := db.LatestAnalysis(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if run.RunID != second.RunID {
		t.Errorf("latest run = %s, want %s", run.RunID, second.RunID)
	}

	for _, table := range []string{"frame_summaries", "transitions"} {
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE run_id = ?`, first.RunID.String()).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("%s still has %d rows of the replaced run", table, n)
		}
	}
	var runs int
	if err := db.QueryRow(`SELECT COUNT(*) FROM analysis_runs`).Scan(&runs); err != nil {
		t.Fatal(err)
	}
	if runs != 1 {
		t.Errorf("analysis_runs has %d rows, want 1", runs)
	}
}

func TestAnalysisRollback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	rec := importSquats(t, db)
	first := analyse(t, db, rec)

	cfg := session.DefaultConfig()
	w, err := db.NewAnalysisWriter(ctx, rec.ID, session.New(cfg, 0).RunID(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Consume(ctx, session.Summary{Frame: 0, PushupState: "unset", SquatState: "unset"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if err := w.Consume(ctx, session.Summary{}); err == nil {
		t.Error("Consume after Rollback should fail")
	}

	run, err := db.LatestAnalysis(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if run.RunID != first.RunID {
		t.Errorf("rolled back run replaced the stored analysis")
	}
}

func TestNoAnalysis(t *testing.T) {
	db := newTestDB(t)
	rec := importSquats(t, db)
	if _, err := db.LatestAnalysis(context.Background(), rec.ID); !errors.Is(err, ErrNoAnalysis) {
		t.Errorf("err = %v, want ErrNoAnalysis", err)
	}
}
