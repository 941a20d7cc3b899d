package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/mslinn/simsnap/pkg/imagecmp"
	"github.com/mslinn/simsnap/pkg/overlap"
)

var version = "dev" // Set by -ldflags during build

func main() {
	var (
		showVersion bool
		showHelp    bool
		debug       bool
		asJSON      bool
		noDiff      bool
		tolerance   float64
		diffPath    string
		overlapPx   int
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	pflag.BoolVar(&asJSON, "json", false, "Print the result as JSON")
	pflag.BoolVar(&noDiff, "no-diff", false, "Do not write a diff image")
	pflag.Float64VarP(&tolerance, "tolerance", "t", 0, "Fraction of pixels allowed to differ (0..1)")
	pflag.StringVar(&diffPath, "diff", "", "Diff image path (default: ACTUAL_diff.png)")
	pflag.IntVar(&overlapPx, "overlap", 0, "Instead of comparing, report the vertical overlap for this expected scroll in pixels")

	pflag.Parse()

	if showVersion {
		fmt.Printf("simsnap-compare version %s\n", version)
		os.Exit(0)
	}

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	args := pflag.Args()
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "Error: ACTUAL and BASELINE paths are required\n\n")
		printUsage()
		os.Exit(2)
	}
	if tolerance < 0 || tolerance > 1 {
		fmt.Fprintf(os.Stderr, "Error: --tolerance must be within [0,1]\n")
		os.Exit(2)
	}

	if overlapPx > 0 {
		handleOverlap(args[0], args[1], overlapPx, asJSON)
		return
	}

	opts := imagecmp.Options{
		Tolerance:    tolerance,
		GenerateDiff: !noDiff,
		DiffPath:     diffPath,
	}
	if debug {
		fmt.Printf("[compare] actual=%s baseline=%s tolerance=%v\n", args[0], args[1], tolerance)
	}

	result, err := imagecmp.Compare(args[0], args[1], opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if asJSON {
		printJSON(struct {
			*imagecmp.Result
			DifferencePercent float64 `json:"difference_percent"`
		}{result, result.DifferencePercent()})
	} else {
		printResult(result)
	}

	if !result.Match {
		os.Exit(1)
	}
}

// handleOverlap treats the two images as consecutive captures of a scrolling
// page and reports how far the content really moved.
func handleOverlap(prevPath, curPath string, expected int, asJSON bool) {
	prev, err := imagecmp.Load(prevPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	cur, err := imagecmp.Load(curPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	r := overlap.FindOverlap(prev, cur, expected, overlap.DefaultOptions())
	if asJSON {
		printJSON(struct {
			overlap.Result
			ActualScroll int `json:"actual_scroll"`
		}{r, r.ActualScroll(expected)})
		return
	}

	if r.Confidence == 0 {
		fmt.Println("No overlap found (reference strip out of bounds or no match)")
		os.Exit(1)
	}
	fmt.Printf("Expected scroll:  %dpx\n", expected)
	fmt.Printf("Actual scroll:    %dpx\n", r.ActualScroll(expected))
	fmt.Printf("Offset:           %+dpx\n", r.Offset)
	fmt.Printf("Confidence:       %.2f\n", r.Confidence)
	fmt.Printf("Match row:        %d\n", r.MatchPosition)
}

func printResult(r *imagecmp.Result) {
	switch {
	case r.BaselineMissing:
		fmt.Println("✗ Baseline not found")
	case r.SizeMismatch:
		fmt.Println("✗ Image dimensions differ")
	case r.Match:
		fmt.Println("✓ Images match")
	default:
		fmt.Println("✗ Images differ")
	}
	fmt.Printf("  Different pixels: %d of %d\n", r.DifferentPixels, r.TotalPixels)
	fmt.Printf("  Difference:       %.4f%%\n", r.DifferencePercent())
	if r.DiffPath != "" {
		fmt.Printf("  Diff image:       %s\n", r.DiffPath)
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: simsnap-compare [OPTIONS] ACTUAL BASELINE\n\n")
	fmt.Fprintf(os.Stderr, "Compare two PNG images pixel by pixel\n\n")
	pflag.PrintDefaults()
}

func printHelp() {
	fmt.Printf("simsnap-compare - Compare two PNG images\n\n")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Counts the pixels whose RGB channels differ between ACTUAL and BASELINE.\n")
	fmt.Printf("  Alpha is ignored. The images match when the fraction of differing pixels\n")
	fmt.Printf("  does not exceed the tolerance. Differing pixels are marked in magenta\n")
	fmt.Printf("  on a dimmed greyscale copy of ACTUAL.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  simsnap-compare [OPTIONS] ACTUAL BASELINE\n")
	fmt.Printf("  simsnap-compare --overlap PIXELS PREVIOUS CURRENT\n\n")

	fmt.Printf("OPTIONS:\n")
	pflag.PrintDefaults()

	fmt.Printf("\nEXIT STATUS:\n")
	fmt.Printf("  0  images match\n")
	fmt.Printf("  1  images differ, baseline missing, or no overlap found\n")
	fmt.Printf("  2  usage or decode error\n\n")

	fmt.Printf("EXAMPLES:\n")
	fmt.Printf("  # Exact comparison\n")
	fmt.Printf("  simsnap-compare results/run/login/home.png baselines/home.png\n\n")

	fmt.Printf("  # Allow 0.5%% of pixels to differ\n")
	fmt.Printf("  simsnap-compare -t 0.005 actual.png baseline.png\n\n")

	fmt.Printf("  # Check how far a 900px scroll really moved\n")
	fmt.Printf("  simsnap-compare --overlap 900 segment_000.png segment_001.png\n\n")
}
