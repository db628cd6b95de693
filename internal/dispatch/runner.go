package dispatch

import (
	"errors"

	"github.com/jerefrer/stacked-pdf-generator/internal/metrics"
	"github.com/jerefrer/stacked-pdf-generator/internal/runner"
)

// InstrumentedRunner counts external tool failures on top of an inner runner.
// The daemon hands this to the generator so tool failures show up in
// Prometheus.
type InstrumentedRunner struct {
	Inner runner.Runner
}

func (r InstrumentedRunner) Run(name string, args ...string) (string, string, error) {
	stdout, stderr, err := r.Inner.Run(name, args...)
	if err != nil {
		var te *runner.ToolError
		if errors.As(err, &te) {
			metrics.IncToolFailure(te.Tool)
		}
	}
	return stdout, stderr, err
}
