package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/mslinn/simsnap/pkg/baseline"
	"github.com/mslinn/simsnap/pkg/config"
	"github.com/mslinn/simsnap/pkg/database"
)

var version = "dev" // Set by -ldflags during build

func main() {
	var (
		showVersion bool
		showHelp    bool
		debug       bool
		dbPath      string
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	pflag.BoolVarP(&debug, "verbose", "v", false, "Enable verbose output (alias for --debug)")
	pflag.StringVar(&dbPath, "db", "", "Path to SQLite database (default from config)")

	// Stop parsing at first non-flag argument (the subcommand)
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if showVersion {
		fmt.Printf("simsnap-results version %s\n", version)
		os.Exit(0)
	}

	args := pflag.Args()
	if len(args) == 0 || showHelp {
		printHelp()
		os.Exit(0)
	}

	subcommand := args[0]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if subcommand == "baselines" {
		handleBaselines(cfg)
		return
	}

	if dbPath == "" {
		dbPath = cfg.GetDatabasePath()
	}
	if debug {
		fmt.Printf("Using database: %s\n", dbPath)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	switch subcommand {
	case "list":
		handleList(db, args[1:])
	case "show":
		handleShow(db, args[1:], debug)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown subcommand '%s'\n\n", subcommand)
		printUsage()
		db.Close()
		os.Exit(1)
	}
}

func handleList(db *database.DB, args []string) {
	fs := pflag.NewFlagSet("list", pflag.ExitOnError)
	testCase := fs.String("case", "", "Only show runs of this test case id")
	limit := fs.Int("limit", 20, "Maximum number of rows (0 = all)")
	fs.Parse(args)

	runs, err := db.ListTestRuns(*testCase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(runs) == 0 {
		fmt.Println("No test runs found")
		return
	}
	if *limit > 0 && len(runs) > *limit {
		runs = runs[:*limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRun\tTest Case\tDevice\tMode\tStarted\tDuration\tStatus")
	fmt.Fprintln(w, "--\t---\t---------\t------\t----\t-------\t--------\t------")
	for _, run := range runs {
		mode := "compare"
		if run.UpdateMode {
			mode = "update"
		}
		duration := "-"
		if run.CompletedAt != nil {
			duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			run.ID, shortUUID(run.RunUUID), run.TestCaseID, run.DeviceID, mode,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"), duration, run.Status)
	}
	w.Flush()
}

func shortUUID(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// handleShow accepts a numeric test run id or a run UUID covering several test cases.
func handleShow(db *database.DB, args []string, debug bool) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: 'show' requires a test run ID or run UUID\n")
		os.Exit(1)
	}

	var runs []*database.TestRun
	if id, err := strconv.ParseInt(args[0], 10, 64); err == nil {
		run, err := db.GetTestRun(id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		runs = append(runs, run)
	} else {
		runs, err = db.ListTestRunsByUUID(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if len(runs) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no test runs for %s\n", args[0])
		os.Exit(1)
	}

	for _, run := range runs {
		if err := showRun(db, run, debug); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func showRun(db *database.DB, run *database.TestRun, debug bool) error {
	fmt.Printf("Test Run #%d: %s (%s)\n", run.ID, run.Name, run.TestCaseID)
	fmt.Printf("  Run:      %s\n", run.RunUUID)
	fmt.Printf("  Device:   %s\n", run.DeviceID)
	fmt.Printf("  Update:   %v\n", run.UpdateMode)
	fmt.Printf("  Started:  %s\n", run.StartedAt.Local().Format(time.RFC3339))
	if run.CompletedAt != nil {
		fmt.Printf("  Finished: %s\n", run.CompletedAt.Local().Format(time.RFC3339))
	}
	fmt.Printf("  Status:   %s\n", run.Status)
	if run.Notes != "" {
		fmt.Printf("  Notes:    %s\n", run.Notes)
	}

	steps, err := db.ListSteps(run.ID)
	if err != nil {
		return err
	}
	fmt.Printf("\nSteps:\n")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  #\tType\tName\tDuration\tResult")
	for _, s := range steps {
		result := "OK"
		if !s.Success {
			result = "FAILED"
			if s.Error != "" {
				result += ": " + s.Error
			}
		}
		fmt.Fprintf(w, "  %d\t%s\t%s\t%dms\t%s\n", s.StepIndex+1, s.StepType, s.Name, s.DurationMs, result)
	}
	w.Flush()

	cps, err := db.ListCheckpoints(run.ID)
	if err != nil {
		return err
	}
	if len(cps) > 0 {
		fmt.Printf("\nCheckpoints:\n")
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  Name\tKind\tDifference\tVerdict\tDiff")
		for _, c := range cps {
			kind := "plain"
			if c.IsFullPage {
				kind = fmt.Sprintf("full-page/%d", c.SegmentCount)
			}
			verdict := "match"
			switch {
			case c.Updated:
				verdict = "updated"
			case c.BaselineMissing:
				verdict = "no baseline"
			case !c.Match:
				verdict = "MISMATCH"
			}
			fmt.Fprintf(w, "  %s\t%s\t%.4f%%\t%s\t%s\n", c.Name, kind, c.DifferenceRatio*100, verdict, c.DiffPath)
		}
		w.Flush()
	}

	if debug {
		ops, err := db.ListOperations(run.ID)
		if err != nil {
			return err
		}
		fmt.Printf("\nDevice operations:\n")
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, op := range ops {
			fmt.Fprintf(w, "  step %d\t%s\t%dms\t%s\t%s\n", op.StepIndex+1, op.Operation, op.DurationMs, op.Status, op.Command)
		}
		w.Flush()

		artifacts, err := db.ListArtifacts(run.ID)
		if err != nil {
			return err
		}
		fmt.Printf("\nArtifacts:\n")
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, a := range artifacts {
			fmt.Fprintf(w, "  %s\t%s\t%d bytes\t%s\n", a.Kind, a.CRC32, a.SizeBytes, a.FilePath)
		}
		w.Flush()
	}

	fmt.Println()
	return nil
}

func handleBaselines(cfg *config.Config) {
	store := baseline.NewStore(cfg.GetBaselineDir(), cfg.GetResultsDir(), "-")
	names, err := store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(names) == 0 {
		fmt.Printf("No baselines in %s\n", store.BaselineDir)
		return
	}
	fmt.Printf("Baselines in %s:\n", store.BaselineDir)
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: simsnap-results [OPTIONS] SUBCOMMAND [ARGS]\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  list [--case ID] [--limit N]   List recorded test runs\n")
	fmt.Fprintf(os.Stderr, "  show ID|RUN_UUID               Show steps and checkpoints of a run\n")
	fmt.Fprintf(os.Stderr, "  baselines                      List accepted baselines\n\n")
	pflag.PrintDefaults()
}

func printHelp() {
	fmt.Printf("simsnap-results - Inspect recorded runs\n\n")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Reads the run ledger written by simsnap-run.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  simsnap-results [OPTIONS] SUBCOMMAND [ARGS]\n\n")

	fmt.Printf("SUBCOMMANDS:\n")
	fmt.Printf("  list [--case ID] [--limit N]   List recorded test runs, newest first\n")
	fmt.Printf("  show ID|RUN_UUID               Show steps and checkpoints\n")
	fmt.Printf("  baselines                      List accepted baselines\n\n")

	fmt.Printf("OPTIONS:\n")
	pflag.PrintDefaults()

	fmt.Printf("\nEXAMPLES:\n")
	fmt.Printf("  simsnap-results list --case login\n")
	fmt.Printf("  simsnap-results show 12\n")
	fmt.Printf("  simsnap-results -d show 3f2a9c1e-7b1d-4c55-9a0e-2f4d8c6b1a77\n\n")
}
