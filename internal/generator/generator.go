// Package generator imposes PDF pages onto sheets so that a printed stack
// can be cut into equal pieces and restacked into reading order. It drives
// the external pdfjam, pdfinfo and podofocrop tools and never lets an error
// escape as anything but a failed Result.
package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jerefrer/stacked-pdf-generator/internal/fetch"
	"github.com/jerefrer/stacked-pdf-generator/internal/ordering"
	"github.com/jerefrer/stacked-pdf-generator/internal/preview"
	"github.com/jerefrer/stacked-pdf-generator/internal/runner"
	"github.com/jerefrer/stacked-pdf-generator/internal/sequence"
)

// Result is the outcome of one conversion. Message is empty on success and
// holds a single human-readable diagnostic on failure.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Dependencies are the injectable seams of a Generator. Zero values select
// the real implementations.
type Dependencies struct {
	Runner runner.Runner
	Order  ordering.Func
}

// Generator converts PDFs according to normalized jobs.
type Generator struct {
	deps Dependencies
}

// New returns a Generator, filling in defaults for any dependency left nil.
func New(deps Dependencies) *Generator {
	if deps.Runner == nil {
		deps.Runner = runner.Exec{}
	}
	if deps.Order == nil {
		deps.Order = ordering.Stack
	}
	return &Generator{deps: deps}
}

// Generate runs one conversion end to end. It never panics and never
// returns an error; every failure is folded into the Result message.
func (g *Generator) Generate(ctx context.Context, opts Options) Result {
	start := time.Now()
	if err := g.run(ctx, opts); err != nil {
		log.Error().Err(err).
			Str("input", opts.Input).
			Str("output", opts.Output).
			Dur("duration", time.Since(start)).
			Msg("conversion failed")
		return Result{Success: false, Message: err.Error()}
	}
	log.Info().
		Str("input", opts.Input).
		Str("output", opts.Output).
		Dur("duration", time.Since(start)).
		Msg("conversion finished")
	return Result{Success: true}
}

func (g *Generator) run(ctx context.Context, opts Options) error {
	job, err := Normalize(opts)
	if err != nil {
		return err
	}

	input, done, err := fetch.Resolve(ctx, job.Input)
	if err != nil {
		return invalid(fmt.Sprintf("Could not fetch input PDF: %v", err))
	}
	defer done()

	if err := ensurePDF(input); err != nil {
		return err
	}

	if dir := filepath.Dir(job.Output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return invalid(fmt.Sprintf("Could not create output directory: %v", err))
		}
	}

	pages, err := g.countPages(input)
	if err != nil {
		return err
	}

	cells := job.Rows * job.Columns
	padded := sequence.Pad(g.deps.Order(pages, job.Rows, job.Columns), cells)
	pageList := sequence.Serialize(padded)

	log.Debug().
		Int("pages", pages).
		Int("rows", job.Rows).
		Int("columns", job.Columns).
		Str("paper", string(job.Paper)).
		Str("autoscale", string(job.Autoscale)).
		Msg("imposing")

	// The temp path is claimed only here, right before the tool that
	// creates it, and removed no matter which later step fails.
	temp := tempPath(job.Output)
	defer func() {
		if err := os.Remove(temp); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", temp).Msg("failed to remove imposed temp file")
		}
	}()

	if _, _, err := g.deps.Runner.Run(pdfjamTool, imposeArgs(job, input, pageList, temp)...); err != nil {
		return err
	}

	if err := g.finalize(job, temp); err != nil {
		return err
	}

	if job.Verify {
		if err := verifyOutput(job.Output, len(padded)/cells); err != nil {
			return err
		}
	}

	if job.PreviewPath != "" {
		// Previews are best-effort; a render failure never fails the job.
		if err := preview.Render(job.Output, job.PreviewPath); err != nil {
			log.Warn().Err(err).Str("preview", job.PreviewPath).Msg("preview rendering failed")
		}
	}

	return nil
}

// ensurePDF rejects inputs whose content is not a PDF, regardless of their
// file extension.
func ensurePDF(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return invalid(fmt.Sprintf("Could not read input PDF: %v", err))
	}
	if !mtype.Is("application/pdf") {
		return invalid("Input file is not a PDF")
	}
	return nil
}

// tempPath derives a sibling temp path from the output path so the final
// rename stays on one filesystem.
func tempPath(output string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return output + "." + suffix
}
