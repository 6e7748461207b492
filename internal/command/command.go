// Package command runs config-supplied shell command lines and captures
// their output.
package command

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
)

// Executor runs a shell command line in a working directory and returns
// everything it printed.
type Executor interface {
	Run(ctx context.Context, dir, commandLine string) (string, error)
}

// Shell runs command lines through the host shell so that pipes and
// redirects written by config authors keep working.
type Shell struct {
	log zerolog.Logger
	env []string
}

// NewShell creates a shell executor. A nil env inherits the process
// environment.
func NewShell(log zerolog.Logger, env []string) *Shell {
	return &Shell{
		log: log.With().Str("component", "command").Logger(),
		env: env,
	}
}

// Run executes commandLine with dir as the working directory. Standard
// output and standard error go to the same buffer.
//
// The exit status is not interpreted: a command that runs and exits
// non-zero returns its output and a nil error. The returned error is
// non-nil only when the process could not be started (missing working
// directory, missing shell); the output is then empty.
func (s *Shell) Run(ctx context.Context, dir, commandLine string) (string, error) {
	s.log.Info().Str("cmd", commandLine).Str("dir", dir).Msg("running command")

	cmd := buildShellCommand(ctx, commandLine)
	cmd.Dir = dir
	if s.env != nil {
		cmd.Env = s.env
	}

	// A single writer for both streams keeps their interleaving as the OS
	// delivers it.
	var captured bytes.Buffer
	cmd.Stdout = &captured
	cmd.Stderr = &captured

	err := cmd.Run()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		s.log.Error().Err(err).Str("cmd", commandLine).Str("dir", dir).Msg("could not launch command")
		return "", err
	}

	exitCode := 0
	if exitErr != nil {
		exitCode = exitErr.ExitCode()
	}

	out := captured.String()
	s.log.Debug().Int("exit_code", exitCode).Msgf("==========\n%s==========", out)
	s.log.Info().Msg("done")
	return out, nil
}

// buildShellCommand creates a cross-platform shell command.
// On Windows, uses full path to PowerShell.
// On Unix, uses sh -c.
func buildShellCommand(ctx context.Context, cmdStr string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return buildWindowsShellCommand(ctx, cmdStr)
	}
	return exec.CommandContext(ctx, "sh", "-c", cmdStr)
}

// buildWindowsShellCommand creates a PowerShell command using the full path,
// so that a PATH entry shadowing powershell.exe cannot intercept it.
func buildWindowsShellCommand(ctx context.Context, cmdStr string) *exec.Cmd {
	systemRoot := os.Getenv("SYSTEMROOT")
	if systemRoot == "" {
		systemRoot = `C:\Windows`
	}
	powershellPath := filepath.Join(systemRoot, "System32", "WindowsPowerShell", "v1.0", "powershell.exe")
	return exec.CommandContext(ctx, powershellPath, "-NoProfile", "-NonInteractive", "-Command", cmdStr)
}
