// Package rexec runs external tools as one-shot child processes bound to a context.
package rexec

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/cadpoints/logging"
)

// maxOutputInError caps how much of a failed process's output is carried in its error.
const maxOutputInError = 2048

// ProcessConfig describes how to run a process.
type ProcessConfig struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
	CWD  string   `json:"cwd"`
	// Log sends every line the process writes to the logger at debug level.
	Log bool `json:"log"`
}

// Validate ensures all parts of the config are valid.
func (config ProcessConfig) Validate() error {
	if config.Name == "" {
		return errors.New("process name is required")
	}
	return nil
}

// ProcessError is returned when a process cannot be started or exits unsuccessfully.
type ProcessError struct {
	Name     string
	ExitCode int
	Output   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := "process " + e.Name + " failed"
	if e.ExitCode > 0 {
		msg += " with exit code " + strconv.Itoa(e.ExitCode)
	}
	msg += ": " + e.Err.Error()
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// RunOnce starts the process, waits for it to exit and returns its combined output. The process is
// killed if ctx is done first, in which case the returned error wraps ctx.Err().
func RunOnce(ctx context.Context, config ProcessConfig, logger logging.Logger) ([]byte, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	//nolint:gosec
	cmd := exec.CommandContext(ctx, config.Name, config.Args...)
	cmd.Dir = config.CWD
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logger.Debugw("running process", "name", config.Name, "args", config.Args)
	runErr := cmd.Run()
	if config.Log {
		scanner := bufio.NewScanner(bytes.NewReader(out.Bytes()))
		for scanner.Scan() {
			logger.Debugw("output", "name", config.Name, "line", scanner.Text())
		}
	}
	if runErr == nil {
		return out.Bytes(), nil
	}

	procErr := &ProcessError{Name: config.Name, Err: runErr, Output: trimOutput(out.String())}
	if ctxErr := ctx.Err(); ctxErr != nil {
		procErr.Err = ctxErr
	} else {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			procErr.ExitCode = exitErr.ExitCode()
		}
	}
	return out.Bytes(), procErr
}

func trimOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxOutputInError {
		s = "..." + s[len(s)-maxOutputInError:]
	}
	return s
}
