package dispatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerefrer/stacked-pdf-generator/internal/runner"
)

type cannedRunner struct {
	stdout string
	stderr string
	err    error
}

func (r cannedRunner) Run(name string, args ...string) (string, string, error) {
	return r.stdout, r.stderr, r.err
}

func TestInstrumentedRunnerPassesThrough(t *testing.T) {
	t.Run("success is untouched", func(t *testing.T) {
		ir := InstrumentedRunner{Inner: cannedRunner{stdout: "Pages: 3\n"}}
		stdout, stderr, err := ir.Run("pdfinfo", "in.pdf")
		require.NoError(t, err)
		assert.Equal(t, "Pages: 3\n", stdout)
		assert.Empty(t, stderr)
	})

	t.Run("tool errors keep their identity", func(t *testing.T) {
		want := &runner.ToolError{Tool: "pdfjam", Diagnostics: "boom"}
		ir := InstrumentedRunner{Inner: cannedRunner{err: want}}
		_, _, err := ir.Run("pdfjam")
		var te *runner.ToolError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, want, te)
	})

	t.Run("plain errors pass through too", func(t *testing.T) {
		want := errors.New("not a tool error")
		ir := InstrumentedRunner{Inner: cannedRunner{err: want}}
		_, _, err := ir.Run("pdfjam")
		assert.ErrorIs(t, err, want)
	})
}
