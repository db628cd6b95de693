package generator

import (
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"
)

// pagesPattern matches the "Pages: N" line of pdfinfo output.
var pagesPattern = regexp.MustCompile(`(?m)^Pages:\s+(\d+)`)

// countPages asks pdfinfo how many pages path has.
func (g *Generator) countPages(path string) (int, error) {
	stdout, _, err := g.deps.Runner.Run(pdfinfoTool, path)
	if err != nil {
		return 0, err
	}
	m := pagesPattern.FindStringSubmatch(stdout)
	if m == nil {
		log.Warn().Str("input", path).Msg("pdfinfo output had no page count")
		return 0, ErrUnparsablePageCount
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, ErrUnparsablePageCount
	}
	return n, nil
}
