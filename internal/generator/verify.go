package generator

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// verifyOutput re-opens the finished file and checks that it holds exactly
// the expected number of imposed sheets.
func verifyOutput(path string, wantSheets int) error {
	got, err := api.PageCountFile(path)
	if err != nil {
		return fmt.Errorf("Output verification failed: %v", err)
	}
	if got != wantSheets {
		return fmt.Errorf("Output verification failed: expected %d sheets, found %d", wantSheets, got)
	}
	return nil
}
