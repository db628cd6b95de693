// Command stackedpdf imposes a PDF for stack cutting: print the result,
// cut the stack into equal pieces, restack them in reading order, and the
// pages collate into a single booklet.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/jerefrer/stacked-pdf-generator/internal/config"
	"github.com/jerefrer/stacked-pdf-generator/internal/doctor"
	"github.com/jerefrer/stacked-pdf-generator/internal/generator"
	"github.com/jerefrer/stacked-pdf-generator/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	var (
		input     = flag.String("input", "", "input PDF: a path, file://, http(s):// or s3:// reference")
		output    = flag.String("output", "", "output PDF path")
		rows      = flag.Int("rows", 0, "grid rows per sheet")
		columns   = flag.Int("columns", 0, "grid columns per sheet")
		pps       = flag.Int("pages-per-sheet", 0, "pages per sheet (shorthand for a single column of rows)")
		paper     = flag.String("paper", "A4", "paper size: A4 or A3")
		autoscale = flag.String("autoscale", "pdfjam", "scaling mode: pdfjam, none or podofo")
		portrait  = flag.String("portrait", "", "portrait orientation; yes/no, true/false, 1/0 (default yes)")
		margins   = flag.String("margins", "", `sheet margins in mm as "top right bottom left"`)
		verify    = flag.Bool("verify", false, "re-open the output and check its sheet count")
		previewTo = flag.String("preview", "", "also write a JPEG preview of the first sheet to this path")
		checkDeps = flag.Bool("doctor", false, "check external tool availability and exit")
	)
	flag.Parse()

	if err := logger.Init(cfg.Logging, cfg.Axiom); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		return 1
	}
	defer logger.Close()

	if *checkDeps {
		return runDoctor()
	}

	gen := generator.New(generator.Dependencies{})
	res := gen.Generate(context.Background(), generator.Options{
		Input:         *input,
		Output:        *output,
		Rows:          *rows,
		Columns:       *columns,
		PagesPerSheet: *pps,
		Paper:         *paper,
		Autoscale:     *autoscale,
		Portrait:      config.ToBool(*portrait, true),
		SheetMargins:  *margins,
		Verify:        *verify,
		PreviewPath:   *previewTo,
	})
	if !res.Success {
		fmt.Fprintln(os.Stderr, res.Message)
		return 1
	}
	fmt.Println(*output)
	return 0
}

func runDoctor() int {
	sum := doctor.New(doctor.Options{}).Summary(context.Background())
	report := func(name string, st doctor.Status) {
		mark := "ok"
		if !st.OK {
			mark = "MISSING"
		}
		fmt.Printf("%-12s %-8s %s\n", name, mark, st.Message)
	}
	report("pdfjam", sum.Pdfjam)
	report("pdfinfo", sum.Pdfinfo)
	report("podofocrop", sum.Podofocrop)
	if !sum.AllOK() {
		return 1
	}
	return 0
}
