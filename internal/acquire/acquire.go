// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire turns resolved article locations into files on disk:
// identifier-to-document resolution (open-access lookup, mirror), and an
// idempotent download manager that tells captcha pages apart from real
// documents.
package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdiddy/harvest-engine/internal/httputil"
	"github.com/pdiddy/harvest-engine/pkg/types"
)

// DefaultBlockThreshold is the size under which a non-PDF response is
// treated as a challenge page.
const DefaultBlockThreshold = 40 * 1024

// ErrBlocked reports a response classified as an anti-bot challenge.
var ErrBlocked = errors.New("response looks like a captcha page")

// BlockDetector decides whether a downloaded body is a challenge page
// rather than the document. head holds the first bytes of the body.
type BlockDetector interface {
	Blocked(head []byte, size int64) bool
}

// MagicDetector flags bodies smaller than Threshold that do not start with
// Magic.
type MagicDetector struct {
	Magic     []byte
	Threshold int64
}

// Blocked implements BlockDetector.
func (d MagicDetector) Blocked(head []byte, size int64) bool {
	return size < d.Threshold && !bytes.HasPrefix(head, d.Magic)
}

// Manager downloads documents to disk. Destinations that already exist,
// and with OnlyOneCopy any file of the same name under Root, are skipped
// without network I/O.
type Manager struct {
	fetcher     *httputil.Fetcher
	root        string
	onlyOneCopy bool
	detector    BlockDetector

	mu      sync.Mutex
	indexed bool
	names   map[string]struct{}
}

// NewManager returns a Manager writing under root. A nil detector selects
// a MagicDetector for PDFs with the given threshold.
func NewManager(f *httputil.Fetcher, root string, onlyOneCopy bool, threshold int64, detector BlockDetector) *Manager {
	if detector == nil {
		if threshold <= 0 {
			threshold = DefaultBlockThreshold
		}
		detector = MagicDetector{Magic: PDFMagic, Threshold: threshold}
	}
	return &Manager{
		fetcher:     f,
		root:        root,
		onlyOneCopy: onlyOneCopy,
		detector:    detector,
	}
}

// Duplicate reports whether dest already exists or, with the one-copy
// policy, a file named like dest exists anywhere under the root.
func (m *Manager) Duplicate(dest string) bool {
	if _, err := os.Stat(dest); err == nil {
		return true
	}
	if !m.onlyOneCopy {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.indexed {
		m.buildIndex()
	}
	_, ok := m.names[filepath.Base(dest)]
	return ok
}

// buildIndex walks the root once. Unreadable directories are skipped.
func (m *Manager) buildIndex() {
	m.names = make(map[string]struct{})
	m.indexed = true
	filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && !strings.HasPrefix(d.Name(), ".") {
			m.names[d.Name()] = struct{}{}
		}
		return nil
	})
}

// Record adds a file written outside Download, such as a mirrored
// document, to the duplicate index.
func (m *Manager) Record(dest string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.names != nil {
		m.names[filepath.Base(dest)] = struct{}{}
	}
}

// Download fetches url into dest. The returned error explains blocked and
// failed outcomes; it is nil for succeeded and skipped-duplicate.
func (m *Manager) Download(ctx context.Context, url, dest string) (types.DownloadOutcome, error) {
	if m.Duplicate(dest) {
		return types.OutcomeSkippedDuplicate, nil
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.OutcomeFailed, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".download-*.tmp")
	if err != nil {
		return types.OutcomeFailed, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	head := &headWriter{max: 8}
	n, copyErr := m.fetcher.Stream(ctx, url, io.MultiWriter(tmpFile, head))
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return types.OutcomeFailed, copyErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return types.OutcomeFailed, fmt.Errorf("closing temp file: %w", closeErr)
	}

	if m.detector.Blocked(head.buf, n) {
		os.Remove(tmpPath)
		return types.OutcomeBlocked, fmt.Errorf("%w: %d bytes from %s", ErrBlocked, n, url)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return types.OutcomeFailed, fmt.Errorf("renaming temp file: %w", err)
	}
	m.Record(dest)
	return types.OutcomeSucceeded, nil
}

// headWriter keeps the first max bytes written to it.
type headWriter struct {
	buf []byte
	max int
}

func (h *headWriter) Write(p []byte) (int, error) {
	if room := h.max - len(h.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		h.buf = append(h.buf, p[:room]...)
	}
	return len(p), nil
}
