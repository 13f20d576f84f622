// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

// ErrNoRedirect means a resolver response held neither a document nor a
// redirect target.
var ErrNoRedirect = errors.New("no redirect target found")

// Resolution is the success half of a PDF resolution.
type Resolution struct {
	// URL is the document location to download. Empty when Materialized.
	URL string

	// Materialized means the document was already written to the
	// destination path and no download is needed.
	Materialized bool

	// Via names the resolver that succeeded.
	Via string
}

// Resolver finds a downloadable location for an article identifier.
// Failures are returned as *types.SkipReason.
type Resolver interface {
	Resolve(ctx context.Context, id, dest string) (Resolution, error)
}

// Chain tries each resolver in order and returns the first success. When
// all fail the last failure is returned.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(ctx context.Context, id, dest string) (Resolution, error) {
	err := error(types.Skipf(types.SkipMirrorFailed, "no resolver configured"))
	for _, r := range c {
		res, rerr := r.Resolve(ctx, id, dest)
		if rerr == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return Resolution{}, ctx.Err()
		}
		err = rerr
	}
	return Resolution{}, err
}

// writeAtomic writes data to dest through a temporary file in the same
// directory.
func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", dest, errors.Join(werr, cerr))
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
