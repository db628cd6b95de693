// Package preview renders the first sheet of a finished PDF as a JPEG so a
// user can eyeball the imposition before printing the whole stack.
package preview

import (
	"fmt"
	"image/jpeg"
	"os"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

const (
	renderDPI   = 96
	jpegQuality = 85
)

// Render writes a JPEG of pdfPath's first page to outPath.
func Render(pdfPath, outPath string) error {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.ImageDPI(0, renderDPI)
	if err != nil {
		return fmt.Errorf("failed to render first sheet: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create preview file: %w", err)
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		out.Close()
		os.Remove(outPath)
		return fmt.Errorf("failed to encode preview JPEG: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finish preview file: %w", err)
	}

	bounds := img.Bounds()
	log.Debug().
		Str("preview", outPath).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Msg("rendered preview")
	return nil
}
