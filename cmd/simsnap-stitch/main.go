package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/mslinn/simsnap/pkg/checksum"
	"github.com/mslinn/simsnap/pkg/stitch"
)

var version = "dev" // Set by -ldflags during build

func main() {
	var (
		showVersion bool
		showHelp    bool
		debug       bool
		output      string
		dir         string
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	pflag.StringVarP(&output, "output", "o", "", "Output PNG path (required)")
	pflag.StringVar(&dir, "dir", "", "Stitch every segment_*.png in this directory, in name order")

	pflag.Parse()

	if showVersion {
		fmt.Printf("simsnap-stitch version %s\n", version)
		os.Exit(0)
	}

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	if output == "" {
		fmt.Fprintf(os.Stderr, "Error: --output is required\n\n")
		printUsage()
		os.Exit(1)
	}

	segments := pflag.Args()
	if dir != "" {
		found, err := filepath.Glob(filepath.Join(dir, "segment_*.png"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		// diff images share the prefix
		for _, f := range found {
			if !strings.HasSuffix(f, "_diff.png") {
				segments = append(segments, f)
			}
		}
		sort.Strings(segments)
	}

	if len(segments) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no segments given\n\n")
		printUsage()
		os.Exit(1)
	}

	if debug {
		for i, s := range segments {
			fmt.Printf("[stitch] segment %d: %s\n", i, s)
		}
	}

	out, err := stitch.StitchVertically(segments, output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cs, err := checksum.ComputeFile(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Stitched %d segment(s) into %s\n", len(segments), out)
	fmt.Printf("  Size:  %s\n", checksum.FormatSize(cs.SizeBytes))
	fmt.Printf("  CRC32: %s\n", cs.Hex())
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: simsnap-stitch [OPTIONS] -o OUTPUT SEGMENT...\n\n")
	fmt.Fprintf(os.Stderr, "Stack PNG segments vertically into one image\n\n")
	pflag.PrintDefaults()
}

func printHelp() {
	fmt.Printf("simsnap-stitch - Stack PNG segments vertically\n\n")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Paints each segment below the previous one, left-aligned, on a white canvas\n")
	fmt.Printf("  as wide as the first segment. Segments are not trimmed for overlap.\n")
	fmt.Printf("  A single segment is copied byte for byte.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  simsnap-stitch [OPTIONS] -o OUTPUT SEGMENT...\n")
	fmt.Printf("  simsnap-stitch -o OUTPUT --dir SEGMENT_DIR\n\n")

	fmt.Printf("OPTIONS:\n")
	pflag.PrintDefaults()

	fmt.Printf("\nEXAMPLES:\n")
	fmt.Printf("  # Rebuild a full-page capture from its segments\n")
	fmt.Printf("  simsnap-stitch -o feed.png --dir results/RUN/feed_case/feed_segments\n\n")
}
