package deviceinfo

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner runs a platform tool (getprop, dumpsys, wm, settings, service)
// and returns its trimmed standard output
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct {
	// Timeout bounds each command; zero means no limit
	Timeout time.Duration
}

// Run executes the command and returns its output
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	output, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w", name, err)
	}

	return strings.TrimSpace(string(output)), nil
}
