package generator

import "errors"

// InvalidInputError reports a job rejected during validation, before any
// external tool has run. Its reason is surfaced verbatim as the result
// message.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string { return e.Reason }

func invalid(reason string) error { return &InvalidInputError{Reason: reason} }

// ErrUnparsablePageCount means pdfinfo ran successfully but its output did
// not contain a recognizable page count line.
var ErrUnparsablePageCount = errors.New("Could not determine the page count")
