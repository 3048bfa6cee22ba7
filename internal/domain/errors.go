package domain

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrClient            = errors.New("torrent client failure")
	ErrFileSystem        = errors.New("file system failure")

	// ErrNoSources is raised when source resolution produces an empty set,
	// as opposed to per-source failures which are recorded, not raised.
	ErrNoSources     = errors.New("no search sources available")
	ErrUnknownSource = errors.New("unknown search source")

	// ErrAllSourcesFailed is the aggregate failure when every resolved
	// source failed and there is nothing to merge.
	ErrAllSourcesFailed = errors.New("all sources failed")
)

// SourceError marks a recoverable failure of a single search source. The
// aggregation engine absorbs these (and timeouts) into per-source failure
// entries; any other error aborts the whole search.
type SourceError struct {
	Source  string
	Timeout bool
	Err     error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return "source " + e.Source + " failed"
	}
	return "source " + e.Source + ": " + e.Err.Error()
}

func (e *SourceError) Unwrap() error { return e.Err }

// NewSourceError wraps a generic source failure.
func NewSourceError(source string, err error) *SourceError {
	return &SourceError{Source: source, Err: err}
}

// NewSourceTimeout wraps a timeout-kind source failure.
func NewSourceTimeout(source string, err error) *SourceError {
	return &SourceError{Source: source, Timeout: true, Err: err}
}
