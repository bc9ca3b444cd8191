// Package files materializes user-uploaded input files from their
// external references before dispatch to the provider.
package files

import (
	"context"
	"errors"
)

// Fetcher errors.
var (
	// ErrFetchFailed is returned when a file reference cannot be
	// resolved or downloaded.
	ErrFetchFailed = errors.New("failed to fetch input file")
)

// Fetcher resolves an opaque file reference to its filename and bytes.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (filename string, data []byte, err error)
}
