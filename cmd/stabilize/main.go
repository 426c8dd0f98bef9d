// Command stabilize removes camera shake from a directory of numbered
// frames and writes the stabilized frames to another directory.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/banshee-data/stabilizer/internal/config"
	"github.com/banshee-data/stabilizer/internal/db"
	"github.com/banshee-data/stabilizer/internal/fsutil"
	"github.com/banshee-data/stabilizer/internal/monitoring"
	"github.com/banshee-data/stabilizer/internal/version"
	"github.com/banshee-data/stabilizer/internal/video/frameio"
	"github.com/banshee-data/stabilizer/internal/video/l1image"
	"github.com/banshee-data/stabilizer/internal/video/l4flow"
	"github.com/banshee-data/stabilizer/internal/video/l6stabilize"
	"github.com/banshee-data/stabilizer/internal/video/monitor"
	"github.com/banshee-data/stabilizer/internal/video/storage/sqlite"
)

// options is the parsed command line.
type options struct {
	input       string
	output      string
	dbPath      string
	plotPath    string
	chartPath   string
	verbose     bool
	trace       bool
	showVersion bool
	cfg         *config.StabilizeConfig
}

// parseFlags reads args into options. Values from -config are loaded first;
// flags given explicitly on the command line override them.
func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("stabilize", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	configPath := fs.String("config", "", "JSON config file (see "+config.DefaultConfigPath+")")
	fs.StringVar(&o.input, "input", "", "Directory of input frames (png, jpeg, bmp, tiff)")
	fs.StringVar(&o.output, "output", "", "Directory for stabilized frames")
	fs.StringVar(&o.dbPath, "db", "", "SQLite run log (disabled when empty)")
	fs.StringVar(&o.plotPath, "plot", "", "Write a trajectory plot (png/svg/pdf) to this file")
	fs.StringVar(&o.chartPath, "chart", "", "Write an HTML trajectory chart to this file")
	fs.BoolVar(&o.verbose, "verbose", false, "Log stream diagnostics")
	fs.BoolVar(&o.trace, "trace", false, "Log one line per frame")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")

	solver := fs.String("solver", config.SolverDense, "Flow solver: 'dense' or 'corner'")
	window := fs.Int("window", 5, "Lucas-Kanade window size (odd, >= 3)")
	iter := fs.Int("iter", 5, "Solver iterations per pyramid level")
	levels := fs.Int("levels", 5, "Pyramid levels above full resolution")
	workers := fs.Int("workers", 0, "Solver goroutines (0: one per CPU)")
	minLevelWindows := fs.Int("min-level-windows", 0, "Skip coarse levels narrower than this many windows (0: refine every level)")
	extendBorder := fs.Bool("extend-border", false, "Warp with border flow extended from the interior")
	crop := fs.String("crop", "", "Crop margins 'top,left,bottom,right' applied after warping")
	width := fs.Int("width", 0, "Output width (0: input width)")
	height := fs.Int("height", 0, "Output height (0: input height)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.showVersion {
		return o, nil
	}

	o.cfg = config.EmptyStabilizeConfig()
	if *configPath != "" {
		cfg, err := config.LoadStabilizeConfig(*configPath)
		if err != nil {
			return nil, err
		}
		o.cfg = cfg
	}

	var visitErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "solver":
			o.cfg.Solver = solver
		case "window":
			o.cfg.WindowSize = window
		case "iter":
			o.cfg.MaxIter = iter
		case "levels":
			o.cfg.NumLevels = levels
		case "workers":
			o.cfg.Workers = workers
		case "min-level-windows":
			o.cfg.MinLevelWindows = minLevelWindows
		case "extend-border":
			o.cfg.ExtendBorder = extendBorder
		case "width":
			o.cfg.OutputWidth = width
		case "height":
			o.cfg.OutputHeight = height
		case "crop":
			m, err := parseMargins(*crop)
			if err != nil {
				visitErr = err
				return
			}
			o.cfg.Crop = &m
		}
	})
	if visitErr != nil {
		return nil, visitErr
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if o.input == "" || o.output == "" {
		return nil, errors.New("-input and -output are required")
	}
	return o, nil
}

// parseMargins parses "top,left,bottom,right".
func parseMargins(s string) (l1image.Margins, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return l1image.Margins{}, fmt.Errorf("invalid crop %q: want top,left,bottom,right", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return l1image.Margins{}, fmt.Errorf("invalid crop %q: %w", s, err)
		}
		v[i] = n
	}
	return l1image.Margins{Top: v[0], Left: v[1], Bottom: v[2], Right: v[3]}, nil
}

// newSolver builds the configured flow solver.
func newSolver(cfg *config.StabilizeConfig) (l4flow.Solver, error) {
	s, err := l4flow.NewSolver(cfg.GetSolver(), cfg.GetWindowSize())
	if err != nil {
		return nil, err
	}
	l4flow.SetWorkers(s, cfg.GetWorkers())
	if cs, ok := s.(*l4flow.CornerSolver); ok {
		cs.Threshold = cfg.GetCornerThreshold()
	}
	return s, nil
}

// run stabilizes o.input into o.output and writes the optional run log and
// reports.
func run(ctx context.Context, o *options) (l6stabilize.Summary, error) {
	cfg := o.cfg
	solver, err := newSolver(cfg)
	if err != nil {
		return l6stabilize.Summary{}, err
	}
	stab, err := l6stabilize.New(l6stabilize.Config{
		MaxIter:         cfg.GetMaxIter(),
		NumLevels:       cfg.GetNumLevels(),
		MinLevelWindows: cfg.GetMinLevelWindows(),
		ExtendBorder:    cfg.GetExtendBorder(),
		Crop:            cfg.GetCrop(),
		OutputWidth:     cfg.GetOutputWidth(),
		OutputHeight:    cfg.GetOutputHeight(),
	}, solver)
	if err != nil {
		return l6stabilize.Summary{}, err
	}

	osfs := fsutil.OSFileSystem{}
	src, err := frameio.NewDirSource(osfs, o.input)
	if err != nil {
		return l6stabilize.Summary{}, err
	}
	sink, err := frameio.NewDirSink(osfs, o.output)
	if err != nil {
		return l6stabilize.Summary{}, err
	}

	var plotter *monitor.TrajectoryPlotter
	if o.plotPath != "" || o.chartPath != "" {
		plotter = monitor.NewTrajectoryPlotter(filepath.Base(filepath.Clean(o.input)))
		stab.AddObserver(plotter)
	}

	var (
		store *sqlite.RunStore
		rec   *sqlite.Recorder
		runID string
	)
	if o.dbPath != "" {
		d, err := db.Open(o.dbPath)
		if err != nil {
			return l6stabilize.Summary{}, err
		}
		defer d.Close()

		params, err := json.Marshal(cfg)
		if err != nil {
			return l6stabilize.Summary{}, fmt.Errorf("encode params: %w", err)
		}
		store = sqlite.NewRunStore(d.DB)
		r := &sqlite.Run{
			InputPath:  o.input,
			OutputPath: o.output,
			Solver:     solver.Name(),
			WindowSize: solver.WindowSize(),
			MaxIter:    cfg.GetMaxIter(),
			NumLevels:  cfg.GetNumLevels(),
			ParamsJSON: params,
		}
		if err := store.Insert(r); err != nil {
			return l6stabilize.Summary{}, fmt.Errorf("record run: %w", err)
		}
		runID = r.RunID
		rec = sqlite.NewRecorder(store, runID, cfg.GetSampleBatchSize())
		stab.AddObserver(rec)
		log.Printf("run %s: %d frames from %s", runID, src.Len(), o.input)
	}

	sum, runErr := stab.Run(ctx, src, sink)

	if rec != nil {
		if err := rec.Flush(); err != nil {
			monitoring.Logf("[recorder] run %s: %d samples stored: %v", runID, rec.Written(), err)
		}
		var err error
		if runErr != nil {
			err = store.Fail(runID, runErr, sum)
		} else {
			err = store.Complete(runID, sum)
		}
		if err != nil {
			monitoring.Logf("[recorder] run %s: %v", runID, err)
		}
	}
	if plotter != nil && sum.Frames > 0 {
		writeReports(plotter, o.plotPath, o.chartPath)
	}
	return sum, runErr
}

// writeReports saves the requested trajectory reports. Failures are logged.
func writeReports(p *monitor.TrajectoryPlotter, plotPath, chartPath string) {
	if plotPath != "" {
		if err := p.SavePNG(plotPath); err != nil {
			monitoring.Logf("[monitor] %s: %v", plotPath, err)
		}
	}
	if chartPath != "" {
		f, err := os.Create(chartPath)
		if err != nil {
			monitoring.Logf("[monitor] %s: %v", chartPath, err)
			return
		}
		defer f.Close()
		if err := p.WriteHTML(f); err != nil {
			monitoring.Logf("[monitor] %s: %v", chartPath, err)
		}
	}
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain runs the command and returns the process exit code: 2 for usage
// errors, 1 for a failed run.
func realMain(args []string) int {
	o, err := parseFlags(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		log.Printf("stabilize: %v", err)
		return 2
	}
	if o.showVersion {
		fmt.Println(version.String())
		return 0
	}

	var diag, trace io.Writer
	if o.verbose || o.trace {
		diag = os.Stderr
	}
	if o.trace {
		trace = os.Stderr
	}
	l6stabilize.SetLogWriters(os.Stderr, diag, trace)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum, err := run(ctx, o)
	if err != nil {
		log.Printf("stabilize: %v", err)
		return 1
	}
	log.Printf("stabilized %d frames (%dx%d -> %dx%d) in %v, max correction %.2f px",
		sum.Frames, sum.Width, sum.Height, sum.OutputWidth, sum.OutputHeight,
		sum.Elapsed.Round(time.Millisecond), sum.MaxCorrection)
	return 0
}
