package dblist

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Detail for an id with no listing/detail pair.
	ErrNotFound = errors.New("listing not found")
	// ErrIngestion matches every error returned by Compile.
	ErrIngestion = errors.New("manifest ingestion failed")
)

// IngestionError reports a fatal compile failure. No store is produced.
type IngestionError struct {
	Op   string // step that failed, e.g. "open manifest", "commit"
	Path string // manifest path
	Err  error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("compile %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// Is reports ErrIngestion as a match so callers need not use errors.As.
func (e *IngestionError) Is(target error) bool { return target == ErrIngestion }
