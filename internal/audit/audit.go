// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package audit appends per-run rows to the CSV audit logs kept in a run
// directory: one search row per (site, keyword), one result row per
// article, and a source-detail log per structured source.
package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/harvest-engine/internal/enrich"
	"github.com/pdiddy/harvest-engine/pkg/types"
)

// StampFormat formats run stamps and row timestamps (MMDDYY-HHMMSS).
const StampFormat = "010206-150405"

// AuthorSeparator joins author and affiliation lists in a single cell.
const AuthorSeparator = "; "

var (
	searchHeader = []string{"Date-Time", "Search terms", "Websites", "Number of papers", "Max results"}
	resultHeader = []string{
		"DateTime", "SearchTerms", "Website", "Result", "Max results",
		"Article ID", "Title", "Abstract", "Outcome", "FilenamePath",
		"Authors", "Affiliations", "First author", "First author affiliation",
		"Last author", "Last author affiliation", "Citations",
	}
)

// SearchEntry is one search-log row.
type SearchEntry struct {
	Keyword string
	Site    string
	Total   int
	Max     int
}

// ResultEntry is one result-log row. Path holds the written file; when
// Stub.Skip is set its marker is logged in the path column instead.
type ResultEntry struct {
	Keyword string
	Site    string
	Ordinal int
	Max     int
	Stub    types.ArticleStub
	Outcome string
	Path    string
}

// Row renders the entry in header order. Enrichment columns are always
// emitted, empty when the stub carries no detail metadata.
func (e ResultEntry) Row(ts string) []string {
	path := e.Path
	if e.Stub.Skip != nil {
		path = e.Stub.Skip.Marker()
	}
	s := e.Stub
	return []string{
		ts, e.Keyword, e.Site, strconv.Itoa(e.Ordinal), formatMax(e.Max),
		s.ID, s.Title, s.Abstract, e.Outcome, path,
		strings.Join(s.Authors, AuthorSeparator),
		strings.Join(s.Affiliations, AuthorSeparator),
		s.FirstAuthor, s.FirstAuthorAffiliation,
		s.LastAuthor, s.LastAuthorAffiliation,
		strings.Join(s.Citations, enrich.CitationSeparator),
	}
}

func formatMax(max int) string {
	if max < 0 {
		return "unlimited"
	}
	return strconv.Itoa(max)
}

// Logger owns the audit files of one run directory. Files are created on
// first write and the header is written only to a new or empty file. All
// methods are safe for concurrent use.
type Logger struct {
	dir   string
	stamp string
	now   func() time.Time

	mu    sync.Mutex
	files map[string]*logFile
}

type logFile struct {
	f *os.File
	w *csv.Writer
}

// New returns a Logger writing into dir. stamp is the run stamp used in
// file names.
func New(dir, stamp string) *Logger {
	return &Logger{dir: dir, stamp: stamp, now: time.Now, files: make(map[string]*logFile)}
}

// Dir returns the run directory.
func (l *Logger) Dir() string { return l.dir }

// SearchLogPath returns the search log location.
func (l *Logger) SearchLogPath() string {
	return filepath.Join(l.dir, "output_searchlog_"+strings.ReplaceAll(l.stamp, "-", "_")+".csv")
}

// ResultLogPath returns the result log location.
func (l *Logger) ResultLogPath() string {
	return filepath.Join(l.dir, "output_pdf_log_"+l.stamp+".csv")
}

// DetailLogPath returns the source-detail log location for site.
func (l *Logger) DetailLogPath(site types.Site) string {
	name := strings.ToLower(strings.TrimSpace(site.Name))
	if name == "" {
		name = "source"
	}
	return filepath.Join(l.dir, name+"_results.csv")
}

// LogSearch appends a search-log row.
func (l *Logger) LogSearch(e SearchEntry) error {
	return l.append(l.SearchLogPath(), searchHeader, []string{
		l.timestamp(), e.Keyword, e.Site, strconv.Itoa(e.Total), formatMax(e.Max),
	})
}

// LogResult appends a result-log row.
func (l *Logger) LogResult(e ResultEntry) error {
	return l.append(l.ResultLogPath(), resultHeader, e.Row(l.timestamp()))
}

// LogDetail appends a source-detail row for site.
func (l *Logger) LogDetail(site types.Site, rec types.DetailRecord) error {
	return l.append(l.DetailLogPath(site), types.DetailHeader, rec.Row())
}

func (l *Logger) timestamp() string {
	return l.now().Format(StampFormat)
}

func (l *Logger) append(path string, header, row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	lf, err := l.open(path, header)
	if err != nil {
		return err
	}
	if err := lf.w.Write(row); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	lf.w.Flush()
	if err := lf.w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return nil
}

// open must be called with l.mu held.
func (l *Logger) open(path string, header []string) (*logFile, error) {
	if lf, ok := l.files[path]; ok {
		return lf, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	lf := &logFile{f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := lf.w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing header to %s: %w", path, err)
		}
	}
	l.files[path] = lf
	return lf, nil
}

// Close flushes and closes every open log.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for path, lf := range l.files {
		lf.w.Flush()
		if err := lf.w.Error(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := lf.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(l.files, path)
	}
	return firstErr
}
