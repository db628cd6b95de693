package generator

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
)

// finalize turns the imposed temp file into the final output. In podofo mode
// the temp file is cropped into place and then discarded; in every other
// mode it is simply moved.
func (g *Generator) finalize(job Job, temp string) error {
	if job.Autoscale == AutoscalePodofo {
		if _, _, err := g.deps.Runner.Run(podofocropTool, cropArgs(temp, job.Output)...); err != nil {
			return err
		}
		if err := os.Remove(temp); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", temp).Msg("failed to remove imposed temp file")
		}
		return nil
	}
	return moveFile(temp, job.Output)
}

// moveFile renames src to dst, falling back to copy-and-delete when the two
// live on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("could not move output into place: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("could not move output into place: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("could not move output into place: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("could not move output into place: %w", err)
	}
	if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", src).Msg("failed to remove moved temp file")
	}
	return nil
}
