// Package runner executes the external PDF tools and normalizes their
// failures.
package runner

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// ToolError reports a failed external tool invocation.
type ToolError struct {
	Tool        string
	Diagnostics string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Tool, e.Diagnostics)
}

// Runner runs one external command to completion and captures both streams.
// There is exactly one invocation per call site: no retries, no timeout, no
// cancellation. A hung tool hangs the pipeline, which is acceptable for a
// local batch converter.
type Runner interface {
	Run(name string, args ...string) (stdout, stderr string, err error)
}

// Exec is the real Runner backed by os/exec.
type Exec struct{}

// Run blocks until the child exits. A non-zero exit (or a failure to spawn at
// all) comes back as a *ToolError carrying the most useful diagnostic text:
// stderr if any, else stdout, else a fixed placeholder.
func (Exec) Run(name string, args ...string) (string, string, error) {
	cmd := exec.Command(name, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	log.Debug().Str("tool", name).Strs("args", args).Msg("running external tool")
	err := cmd.Run()

	stdout := outBuf.String()
	stderr := errBuf.String()
	if err != nil {
		log.Warn().Str("tool", name).Err(err).Msg("external tool failed")
		return stdout, stderr, &ToolError{Tool: name, Diagnostics: diagnostics(stdout, stderr, err)}
	}
	return stdout, stderr, nil
}

func diagnostics(stdout, stderr string, err error) string {
	if s := strings.TrimSpace(stderr); s != "" {
		return s
	}
	if s := strings.TrimSpace(stdout); s != "" {
		return s
	}
	// Spawn failures (missing binary, bad permissions) never produce output;
	// the exec error text is the only diagnostic there is.
	var exit *exec.ExitError
	if err != nil && !errors.As(err, &exit) {
		return err.Error()
	}
	return "Unknown error"
}
