package generator

import "fmt"

// External tools this package shells out to.
const (
	pdfjamTool     = "pdfjam"
	pdfinfoTool    = "pdfinfo"
	podofocropTool = "podofocrop"
)

// imposeArgs builds the pdfjam argument vector for job. The flag order is
// fixed: input and page list first, then -o, --nup, --paper, the optional
// --noautoscale and --landscape switches, --quiet, and finally the optional
// --trim/--clip pair. Note --nup is columns-first while the grid is stated
// rows-first.
func imposeArgs(job Job, input, pageList, tempOut string) []string {
	args := []string{
		input, pageList,
		"-o", tempOut,
		"--nup", fmt.Sprintf("%dx%d", job.Columns, job.Rows),
		"--paper", job.Paper.Flag(),
	}
	if job.Autoscale == AutoscaleNone || job.Autoscale == AutoscalePodofo {
		args = append(args, "--noautoscale", "true")
	}
	if !job.Portrait {
		args = append(args, "--landscape")
	}
	args = append(args, "--quiet")
	if job.Margins != nil {
		args = append(args, "--trim", job.Margins.Trim(), "--clip", "true")
	}
	return args
}

// cropArgs builds the podofocrop argument vector: source first, then
// destination.
func cropArgs(src, dst string) []string {
	return []string{src, dst}
}
