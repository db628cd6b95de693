package generator

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jerefrer/stacked-pdf-generator/internal/fetch"
)

// Paper is the output sheet size.
type Paper string

const (
	PaperA4 Paper = "A4"
	PaperA3 Paper = "A3"
)

// Flag returns the pdfjam --paper value for p.
func (p Paper) Flag() string {
	if p == PaperA3 {
		return "a3paper"
	}
	return "a4paper"
}

// ParsePaper maps loose user input onto a paper size. Anything that is not
// recognizably A3 falls back to A4.
func ParsePaper(s string) Paper {
	if strings.EqualFold(strings.TrimSpace(s), "A3") {
		return PaperA3
	}
	return PaperA4
}

// Autoscale selects how pages are fitted into their cells and whether the
// imposed file gets a crop pass afterwards.
type Autoscale string

const (
	// AutoscalePdfjam leaves scaling to pdfjam and moves the imposed file
	// into place unchanged.
	AutoscalePdfjam Autoscale = "pdfjam"
	// AutoscaleNone disables pdfjam's automatic scaling.
	AutoscaleNone Autoscale = "none"
	// AutoscalePodofo disables automatic scaling and crops the result with
	// podofocrop instead of moving it.
	AutoscalePodofo Autoscale = "podofo"
)

// ParseAutoscale maps loose user input onto an autoscale mode. Unknown
// values behave like pdfjam mode.
func ParseAutoscale(s string) Autoscale {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case string(AutoscaleNone):
		return AutoscaleNone
	case string(AutoscalePodofo):
		return AutoscalePodofo
	case "", string(AutoscalePdfjam):
		return AutoscalePdfjam
	default:
		log.Debug().Str("autoscale", s).Msg("unknown autoscale mode, treating as pdfjam")
		return AutoscalePdfjam
	}
}

// Margins holds trim margins in millimetres, in CSS order.
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// Trim renders the margins as a pdfjam --trim argument.
func (m Margins) Trim() string {
	return fmt.Sprintf("%gmm %gmm %gmm %gmm", m.Top, m.Right, m.Bottom, m.Left)
}

// Options is the loosely validated caller input for one conversion.
// Zero-valued grid fields mean "not provided".
type Options struct {
	Input         string
	Output        string
	Rows          int
	Columns       int
	PagesPerSheet int
	Paper         string
	Autoscale     string
	Portrait      bool
	// SheetMargins is a whitespace-separated "top right bottom left"
	// string in millimetres. Malformed values are ignored, not rejected.
	SheetMargins string
	// Verify re-opens the finished file and checks its sheet count.
	Verify bool
	// PreviewPath, when set, receives a JPEG render of the first sheet.
	PreviewPath string
}

// Job is a fully resolved conversion, safe to execute.
type Job struct {
	Input         string
	Output        string
	Rows          int
	Columns       int
	PagesPerSheet int
	Paper         Paper
	Autoscale     Autoscale
	Portrait      bool
	Margins       *Margins
	Verify        bool
	PreviewPath   string
}

// Normalize validates opts and resolves them into a Job. The grid shape is
// seeded either by rows+columns (pages per sheet is then their product,
// overriding any supplied value) or by pages per sheet alone (a single
// column of that many rows). It reads the filesystem but never writes.
func Normalize(opts Options) (Job, error) {
	input := strings.TrimSpace(opts.Input)
	if input == "" {
		return Job{}, invalid("Missing input PDF")
	}
	if !fetch.IsRemote(input) {
		st, err := os.Stat(fetch.LocalPath(input))
		if err != nil || st.IsDir() {
			return Job{}, invalid("Missing input PDF")
		}
	}

	output := strings.TrimSpace(opts.Output)
	if output == "" {
		return Job{}, invalid("Missing output path")
	}

	job := Job{
		Input:       input,
		Output:      output,
		Paper:       ParsePaper(opts.Paper),
		Autoscale:   ParseAutoscale(opts.Autoscale),
		Portrait:    opts.Portrait,
		Margins:     parseMargins(opts.SheetMargins),
		Verify:      opts.Verify,
		PreviewPath: strings.TrimSpace(opts.PreviewPath),
	}

	switch {
	case opts.Rows != 0 && opts.Columns != 0:
		if opts.Rows < 0 || opts.Columns < 0 {
			return Job{}, invalid("Rows and columns must be positive numbers")
		}
		job.Rows = opts.Rows
		job.Columns = opts.Columns
		job.PagesPerSheet = job.Rows * job.Columns
	case opts.PagesPerSheet != 0:
		if opts.PagesPerSheet < 0 {
			return Job{}, invalid("Pages per sheet must be a positive number")
		}
		job.Rows = opts.PagesPerSheet
		job.Columns = 1
		job.PagesPerSheet = opts.PagesPerSheet
	default:
		return Job{}, invalid("Either rows and columns or pages per sheet must be provided")
	}

	return job, nil
}

// parseMargins reads a whitespace-separated margin string. The result is
// present only when there are exactly four tokens and every one parses as a
// finite number; anything else means "no margins" rather than an error.
func parseMargins(s string) *Margins {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return nil
	}
	vals := make([]float64, 4)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		vals[i] = v
	}
	return &Margins{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
}
