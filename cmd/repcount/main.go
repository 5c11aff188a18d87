// Command repcount counts push-ups and squats in a pose landmark stream.
//
// Landmarks come from a JSONL recording (-landmarks), a sidecar process
// that writes the same format to stdout (-sidecar), or a recording
// previously imported into a database (-db with -recording).
//
// The sidecar is given as a program path; arguments following the flags
// (or following --) are passed to it unchanged:
//
//	repcount -sidecar python3 -summary out.jsonl -- estimate.py "my video.mp4"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/banshee-data/rep.report/internal/config"
	"github.com/banshee-data/rep.report/internal/db"
	"github.com/banshee-data/rep.report/internal/monitoring"
	"github.com/banshee-data/rep.report/internal/pipeline"
	"github.com/banshee-data/rep.report/internal/pose"
	"github.com/banshee-data/rep.report/internal/report"
	"github.com/banshee-data/rep.report/internal/security"
	"github.com/banshee-data/rep.report/internal/session"
	"github.com/banshee-data/rep.report/internal/version"
)

type options struct {
	landmarks   string
	sidecar     string
	sidecarArgs []string
	dbPath      string
	recording   string
	configPath  string
	summaryPath string
	plotPath    string
	dashPath    string
	outDir      string
	importRec   bool
	list        bool
	verbose     bool
	showVersion bool
}

func parseFlags(args []string, errOut io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("repcount", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&o.landmarks, "landmarks", "", "JSONL landmark recording to read (- for stdin)")
	fs.StringVar(&o.sidecar, "sidecar", "", "program that writes a JSONL landmark recording to stdout; trailing arguments are passed to it")
	fs.StringVar(&o.dbPath, "db", "", "sqlite recording database")
	fs.StringVar(&o.recording, "recording", "", "id of a recording stored in -db to analyse")
	fs.StringVar(&o.configPath, "config", "", "tuning config JSON file (defaults apply when omitted)")
	fs.StringVar(&o.summaryPath, "summary", "", "write per-frame summaries as JSONL (- for stdout)")
	fs.StringVar(&o.plotPath, "plot", "", "write the angle plot to this image file (.png, .svg, .pdf)")
	fs.StringVar(&o.dashPath, "dashboard", "", "write the HTML dashboard to this file")
	fs.StringVar(&o.outDir, "out", "", "write summary, plot and dashboard into this directory, named after the recording")
	fs.BoolVar(&o.importRec, "import", false, "store the -landmarks or -sidecar stream in -db before analysing it")
	fs.BoolVar(&o.list, "list", false, "list recordings stored in -db and exit")
	fs.BoolVar(&o.verbose, "v", false, "log every state transition")
	fs.BoolVar(&o.showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.sidecarArgs = fs.Args()
	return o, o.validate()
}

func (o options) validate() error {
	if o.showVersion {
		return nil
	}
	if o.list {
		if o.dbPath == "" {
			return errors.New("-list requires -db")
		}
		return nil
	}

	sources := 0
	for _, s := range []string{o.landmarks, o.sidecar, o.recording} {
		if s != "" {
			sources++
		}
	}
	switch {
	case sources == 0:
		return errors.New("one of -landmarks, -sidecar or -recording is required")
	case sources > 1:
		return errors.New("-landmarks, -sidecar and -recording are mutually exclusive")
	case o.recording != "" && o.dbPath == "":
		return errors.New("-recording requires -db")
	case o.importRec && o.dbPath == "":
		return errors.New("-import requires -db")
	case o.importRec && o.recording != "":
		return errors.New("-import reads -landmarks or -sidecar, not -recording")
	case o.sidecar != "" && strings.TrimSpace(o.sidecar) == "":
		return errors.New("-sidecar command is blank")
	case len(o.sidecarArgs) > 0 && o.sidecar == "":
		return fmt.Errorf("unexpected arguments %q: only -sidecar takes trailing arguments", o.sidecarArgs)
	}
	return nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("repcount: %v", err)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.showVersion {
		fmt.Fprintln(stdout, version.String())
		return nil
	}
	monitoring.Verbose = o.verbose

	tuning := config.EmptyTuningConfig()
	if o.configPath != "" {
		if tuning, err = config.LoadTuningConfig(o.configPath); err != nil {
			return err
		}
	}
	cfg := session.ConfigFromTuning(tuning)

	var database *db.DB
	if o.dbPath != "" {
		if database, err = db.NewDB(o.dbPath); err != nil {
			return err
		}
		defer database.Close()
	}
	if o.list {
		return listRecordings(ctx, database, stdout)
	}

	stream, header, closeSource, err := openSource(ctx, o, database, stdin)
	if err != nil {
		return err
	}
	defer closeSource()

	if o.outDir != "" {
		if err := o.fillOutputs(header.Source, o.recording, o.landmarks); err != nil {
			return err
		}
	}

	recordingID := o.recording
	if o.importRec {
		rec, err := database.ImportRecording(ctx, header, stream)
		if err != nil {
			return err
		}
		if err := closeSource(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "imported recording %s (%d frames)\n", rec.ID, rec.StoredFrames)
		recordingID = rec.ID
		if stream, err = database.RecordingStream(ctx, rec.ID); err != nil {
			return err
		}
	}

	sess := session.New(cfg, stream.TotalFrames())
	var sinks []pipeline.Sink

	summaryOut := stdout
	if o.summaryPath != "" {
		w := stdout
		if o.summaryPath != "-" {
			f, err := os.Create(o.summaryPath)
			if err != nil {
				return fmt.Errorf("create summary file: %w", err)
			}
			defer f.Close()
			w = f
		} else {
			summaryOut = stderr
		}
		sinks = append(sinks, pipeline.NewJSONLSink(w))
	}

	var trace *report.Trace
	if o.plotPath != "" || o.dashPath != "" {
		trace = report.NewTrace(cfg)
		sinks = append(sinks, trace)
	}

	var writer *db.AnalysisWriter
	if database != nil && recordingID != "" {
		// Detached from ctx: an interrupted run is still stored.
		writer, err = database.NewAnalysisWriter(context.WithoutCancel(ctx), recordingID, sess.RunID(), cfg)
		if err != nil {
			return err
		}
		sinks = append(sinks, writer)
	}

	res, err := pipeline.Run(ctx, stream, sess, sinks...)
	if err != nil {
		if writer != nil {
			writer.Rollback()
		}
		return err
	}
	// A sidecar that died after its last frame must not pass as a full run.
	// When ctx is done the child was killed on purpose.
	if err := closeSource(); err != nil && ctx.Err() == nil {
		return err
	}

	if trace != nil {
		title := header.Source
		if title == "" {
			title = "repcount"
		}
		if o.plotPath != "" {
			if err := report.WriteAnglePlot(trace, o.plotPath); err != nil {
				return err
			}
			log.Printf("wrote angle plot %s", o.plotPath)
		}
		if o.dashPath != "" {
			if err := report.WriteDashboard(trace, o.dashPath, title); err != nil {
				return err
			}
			log.Printf("wrote dashboard %s", o.dashPath)
		}
	}

	fmt.Fprintf(summaryOut, "pushups: %d\nsquats: %d\n", res.Pushups, res.Squats)
	if ctx.Err() != nil {
		fmt.Fprintf(summaryOut, "stopped after %d frames\n", res.Frames)
	}
	return nil
}

// openSource returns the observation stream selected by the flags. The
// returned close function is safe to call more than once.
func openSource(ctx context.Context, o options, database *db.DB, stdin io.Reader) (pose.Stream, pose.Header, func() error, error) {
	noop := func() error { return nil }

	switch {
	case o.recording != "":
		rec, err := database.Recording(ctx, o.recording)
		if err != nil {
			return nil, pose.Header{}, nil, err
		}
		stream, err := database.RecordingStream(ctx, o.recording)
		if err != nil {
			return nil, pose.Header{}, nil, err
		}
		return stream, rec.Header(), noop, nil

	case o.sidecar != "":
		sc, err := pose.StartSidecar(ctx, o.sidecar, o.sidecarArgs...)
		if err != nil {
			return nil, pose.Header{}, nil, err
		}
		return sc, sc.Header(), sc.Close, nil

	default:
		var r io.Reader = stdin
		closeFn := noop
		if o.landmarks != "-" {
			f, err := os.Open(o.landmarks)
			if err != nil {
				return nil, pose.Header{}, nil, fmt.Errorf("open landmarks: %w", err)
			}
			r = f
			var closed bool
			closeFn = func() error {
				if closed {
					return nil
				}
				closed = true
				return f.Close()
			}
		}
		rr, err := pose.NewRecordingReader(r)
		if err != nil {
			closeFn()
			return nil, pose.Header{}, nil, fmt.Errorf("%s: %w", o.landmarks, err)
		}
		return rr, rr.Header(), closeFn, nil
	}
}

// fillOutputs derives any unset output path from the first non-empty
// label, inside o.outDir.
func (o *options) fillOutputs(labels ...string) error {
	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	stem := ""
	for _, l := range labels {
		if l != "" && l != "-" {
			stem = l
			break
		}
	}
	outputs := []struct {
		path   *string
		suffix string
	}{
		{&o.summaryPath, "_frames.jsonl"},
		{&o.plotPath, "_angles.png"},
		{&o.dashPath, "_dashboard.html"},
	}
	for _, out := range outputs {
		if *out.path != "" {
			continue
		}
		p, err := security.OutputPath(o.outDir, stem, out.suffix)
		if err != nil {
			return err
		}
		*out.path = p
	}
	return nil
}

func listRecordings(ctx context.Context, database *db.DB, out io.Writer) error {
	recs, err := database.ListRecordings(ctx)
	if err != nil {
		return err
	}
	for _, r := range recs {
		line := fmt.Sprintf("%s\t%d frames\t%s", r.ID, r.StoredFrames, r.Source)
		if run, err := database.LatestAnalysis(ctx, r.ID); err == nil {
			line += fmt.Sprintf("\t%d pushups\t%d squats", run.Pushups, run.Squats)
		} else if !errors.Is(err, db.ErrNoAnalysis) {
			return err
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
