package pipeline

import "github.com/rotisserie/eris"

// Sentinel errors for the pipeline's failure taxonomy. Validation errors
// (ErrFileTooLarge, ErrUnsupportedFormat) are detected before any expensive
// work; the rest surface from the processing stages. Callers distinguish
// them with errors.Is.
var (
	// ErrFileTooLarge indicates the upload exceeds the configured maximum.
	ErrFileTooLarge = eris.New("pipeline: file too large")

	// ErrUnsupportedFormat indicates the declared type is not in the accepted
	// format set, independent of file contents.
	ErrUnsupportedFormat = eris.New("pipeline: unsupported format")

	// ErrUnsupportedDocument indicates a document that cannot be turned into
	// pages: a zero-page or unrasterizable PDF, or an undecodable image.
	ErrUnsupportedDocument = eris.New("pipeline: unsupported document")

	// ErrEmptyDocument indicates aggregation received zero page results.
	// Unreachable by construction when normalization succeeds.
	ErrEmptyDocument = eris.New("pipeline: empty document")

	// ErrTimedOut indicates the run exceeded its deadline. No record is
	// persisted for a timed-out run.
	ErrTimedOut = eris.New("pipeline: timed out")
)
