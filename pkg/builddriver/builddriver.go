// Package builddriver runs the external build tool's install and build
// steps for one materialized project, treating each as an opaque subprocess
// judged solely by its exit code.
package builddriver

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	forgeerr "github.com/arthur-debert/siteforge/pkg/errors"
	"github.com/arthur-debert/siteforge/pkg/logging"
)

// maxOutputInError caps how much captured output is embedded in a failure
// message.
const maxOutputInError = 4096

// Options configures the external tool commands.
type Options struct {
	InstallCommand []string
	BuildCommand   []string
	Timeout        time.Duration
}

// CommandResult is the tagged outcome of one subprocess unit.
type CommandResult struct {
	Cmd      string
	ExitCode int
	Output   string
}

// Driver invokes the external build tool.
type Driver struct {
	installCmd []string
	buildCmd   []string
	timeout    time.Duration
	logger     zerolog.Logger
}

// New creates a Driver. Zero timeout defaults to 15 minutes per step.
func New(opts Options) *Driver {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Minute
	}
	return &Driver{
		installCmd: opts.InstallCommand,
		buildCmd:   opts.BuildCommand,
		timeout:    timeout,
		logger:     logging.GetLogger("builddriver"),
	}
}

// Install runs the dependency-install command in dir.
func (d *Driver) Install(ctx context.Context, dir string) (*CommandResult, error) {
	return d.run(ctx, dir, d.installCmd, forgeerr.ErrInstall)
}

// Build runs the build command in dir.
func (d *Driver) Build(ctx context.Context, dir string) (*CommandResult, error) {
	return d.run(ctx, dir, d.buildCmd, forgeerr.ErrBuild)
}

// run spawns one subprocess with dir as working directory, waits for it, and
// captures combined stdout and stderr. Exit code zero resolves the unit;
// anything else, including a spawn failure, fails it with the captured
// output embedded for diagnosis. Output is never streamed live.
func (d *Driver) run(ctx context.Context, dir string, argv []string, code forgeerr.ErrorCode) (*CommandResult, error) {
	if len(argv) == 0 {
		return nil, forgeerr.New(forgeerr.ErrInvalidInput, "no command configured")
	}

	cmdline := strings.Join(argv, " ")
	d.logger.Info().Str("command", cmdline).Str("dir", dir).Msg("running external command")

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	result := &CommandResult{
		Cmd:    cmdline,
		Output: output.String(),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		d.logger.Error().
			Str("command", cmdline).
			Str("dir", dir).
			Int("exitCode", result.ExitCode).
			Msg("external command failed")
		return result, forgeerr.Wrapf(err, code, "%s failed in %s (exit %d): %s",
			cmdline, dir, result.ExitCode, tail(result.Output, maxOutputInError))
	}

	d.logger.Debug().Str("command", cmdline).Str("dir", dir).Msg("external command succeeded")
	return result, nil
}

// tail returns the last n bytes of s.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
