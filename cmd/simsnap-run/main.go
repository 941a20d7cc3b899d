package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/mslinn/simsnap/pkg/baseline"
	"github.com/mslinn/simsnap/pkg/capture"
	"github.com/mslinn/simsnap/pkg/config"
	"github.com/mslinn/simsnap/pkg/database"
	"github.com/mslinn/simsnap/pkg/device"
	"github.com/mslinn/simsnap/pkg/filelock"
	"github.com/mslinn/simsnap/pkg/logger"
	"github.com/mslinn/simsnap/pkg/results"
	"github.com/mslinn/simsnap/pkg/scenario"
	"github.com/mslinn/simsnap/pkg/scenariofile"
)

var version = "dev" // Set by -ldflags during build

func main() {
	var (
		showVersion bool
		showHelp    bool
		debug       bool
		update      bool
		skipDB      bool
		skipCheck   bool
		listOnly    bool
		tolerance   float64
		dbPath      string
		deviceID    string
		baselineDir string
		resultsDir  string
		runID       string
		logLevel    string
		cases       []string
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	pflag.BoolVarP(&debug, "verbose", "v", false, "Enable verbose output (alias for --debug)")
	pflag.BoolVarP(&update, "update", "u", false, "Accept every capture as the new baseline")
	pflag.BoolVar(&skipDB, "skip-db", false, "Do not record the run in the database")
	pflag.BoolVar(&skipCheck, "skip-tool-check", false, "Do not verify that xcrun and idb are installed")
	pflag.BoolVar(&listOnly, "list", false, "List the test cases in the given files and exit")
	pflag.Float64VarP(&tolerance, "tolerance", "t", 0, "Fraction of pixels allowed to differ (default from config)")
	pflag.StringVar(&dbPath, "db", "", "Path to SQLite database (default from config)")
	pflag.StringVar(&deviceID, "device", "", "Simulator UDID (default from config, 'booted' for the booted simulator)")
	pflag.StringVar(&baselineDir, "baselines", "", "Baseline directory (default from config)")
	pflag.StringVar(&resultsDir, "results", "", "Results directory (default from config)")
	pflag.StringVar(&runID, "run-id", "", "Run id naming the results subdirectory (default: new UUID)")
	pflag.StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (default from config)")
	pflag.StringSliceVarP(&cases, "case", "c", nil, "Only run these test case ids (repeatable, comma separated)")

	pflag.Parse()

	if showVersion {
		fmt.Printf("simsnap-run version %s\n", version)
		os.Exit(0)
	}

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	args := pflag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Error: at least one scenario file or directory is required\n\n")
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Flags override config
	if pflag.CommandLine.Changed("update") {
		cfg.Update = update
	}
	if pflag.CommandLine.Changed("tolerance") {
		cfg.Tolerance = tolerance
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if deviceID != "" {
		cfg.Device = deviceID
	}
	if baselineDir != "" {
		cfg.BaselineDir = baselineDir
	}
	if resultsDir != "" {
		cfg.ResultsDir = resultsDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	if dbPath == "" {
		dbPath = cfg.GetDatabasePath()
	}

	testCases, err := scenariofile.Load(args...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scenarios: %v\n", err)
		os.Exit(1)
	}
	testCases = scenariofile.Filter(testCases, cases)
	if len(testCases) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no test cases to run\n")
		os.Exit(1)
	}

	if listOnly {
		listTestCases(testCases)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.NewConsoleLogger(os.Stdout, cfg.LogLevel)

	if !skipCheck {
		if err := device.CheckTools(ctx, nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	sim := device.NewSimulator(cfg.Device)
	sim.Debug = log.Level() <= logger.LevelTrace

	store := baseline.NewStore(cfg.GetBaselineDir(), cfg.GetResultsDir(), runID)
	driver := capture.NewDriver(sim, cfg.ToCaptureConfig(), store, log)

	engine := scenario.NewEngine(sim, driver, log)
	engine.UpdateMode = cfg.Update
	engine.Tolerance = cfg.Tolerance
	engine.OnStep = func(s results.StepResult) {
		log.LogStep(s)
		log.LogCheckpoint(s.Checkpoint)
	}

	var db *database.DB
	if !skipDB {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating database directory: %v\n", err)
			os.Exit(1)
		}
		db, err = database.Open(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
			os.Exit(1)
		}

		rec := database.NewRecorder(db)
		sim.Recorder = rec
		engine.Recorder = rec
	}

	log.Infof("run %s: %d test case(s) on %s", store.RunID, len(testCases), sim.ID())
	if cfg.Update {
		log.LogWarn("update mode: every capture becomes the new baseline")
	}

	var all []*results.TestCaseResult
	failed := 0
	for _, tc := range testCases {
		if ctx.Err() != nil {
			log.LogWarn("interrupted, skipping remaining test cases")
			break
		}

		log.Infof("test case %s (%d steps)", tc.ID, len(tc.Steps))
		res, err := engine.Run(ctx, tc)
		all = append(all, res)

		var stepErr *scenario.StepError
		if errors.As(err, &stepErr) {
			log.Errorf("%s stopped: %v", tc.ID, stepErr)
		}
		log.LogSummary(res)
		if !res.Success {
			failed++
		}
	}

	summaryPath := filepath.Join(cfg.GetResultsDir(), store.RunID, "results.json")
	if err := writeSummary(summaryPath, all); err != nil {
		log.Errorf("failed to write %s: %v", summaryPath, err)
	} else {
		log.Infof("results: %s", summaryPath)
	}

	if db != nil {
		db.Close()
		fmt.Printf("  View results: simsnap-results show %s\n", store.RunID)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "\n✗ %d of %d test case(s) failed\n", failed, len(all))
		os.Exit(1)
	}
	fmt.Printf("\n✓ %d test case(s) passed\n", len(all))
}

func writeSummary(path string, all []*results.TestCaseResult) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return filelock.AtomicWrite(path, append(data, '\n'))
}

func listTestCases(testCases []scenario.TestCase) {
	fmt.Println("ID                    Steps  Checkpoints  Name")
	fmt.Println("--                    -----  -----------  ----")
	for _, tc := range testCases {
		checkpoints := 0
		for _, s := range tc.Steps {
			if _, ok := s.Type.CheckpointKind(); ok {
				checkpoints++
			}
		}
		fmt.Printf("%-21s %6d %12d  %s\n", tc.ID, len(tc.Steps), checkpoints, tc.Name)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: simsnap-run [OPTIONS] SCENARIO_FILE|DIR...\n\n")
	fmt.Fprintf(os.Stderr, "Run visual regression scenarios against an iOS simulator\n\n")
	pflag.PrintDefaults()
}

func printHelp() {
	fmt.Printf("simsnap-run - Run visual regression scenarios\n\n")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Executes every test case in the given YAML scenario files, one step at a time,\n")
	fmt.Printf("  against a simulator. Checkpoint steps capture the screen (or the whole\n")
	fmt.Printf("  scrollable page) and compare it with the stored baseline.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  simsnap-run [OPTIONS] SCENARIO_FILE|DIR...\n\n")

	fmt.Printf("OPTIONS:\n")
	pflag.PrintDefaults()

	fmt.Printf("\nSTEP TYPES:\n")
	for _, t := range scenario.StepTypes {
		fmt.Printf("  %s\n", t)
	}

	fmt.Printf("\nEXAMPLES:\n")
	fmt.Printf("  # Record baselines for the first time\n")
	fmt.Printf("  simsnap-run --update scenarios/\n\n")

	fmt.Printf("  # Compare against baselines, allowing 0.1%% of pixels to differ\n")
	fmt.Printf("  simsnap-run -t 0.001 scenarios/login.yaml\n\n")

	fmt.Printf("  # Run one test case with debug output\n")
	fmt.Printf("  simsnap-run -d --case login scenarios/\n\n")

	fmt.Printf("NOTES:\n")
	fmt.Printf("  - Requires xcrun (Xcode) and idb on PATH\n")
	fmt.Printf("  - A checkpoint mismatch fails the test case but later steps still run\n")
	fmt.Printf("  - Any other step failure stops the test case\n")
	fmt.Printf("  - Artifacts go to RESULTS/RUN_ID/TEST_CASE/, with results.json alongside\n")
	fmt.Printf("  - Exit status is 1 when any test case failed\n\n")
}
