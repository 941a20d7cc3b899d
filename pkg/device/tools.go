package device

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/mslinn/simsnap/pkg/timing"
)

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// CheckTools verifies that the simulator tooling is installed and that
// `xcrun simctl` answers.
func CheckTools(ctx context.Context, run timing.Runner) error {
	if _, err := lookPath("xcrun"); err != nil {
		return fmt.Errorf("xcrun is required but not found in PATH\nInstall Xcode and its command line tools")
	}

	if _, err := lookPath("idb"); err != nil {
		return fmt.Errorf("idb is required but not found in PATH\nInstall with: pip install fb-idb && brew install idb-companion")
	}

	if run == nil {
		run = timing.Run
	}
	result := run(ctx, "xcrun", []string{"simctl", "help"}, nil)
	if err := result.Err(); err != nil {
		return fmt.Errorf("xcrun simctl is not usable: %w", err)
	}

	return nil
}
