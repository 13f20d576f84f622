// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search turns (site, keyword) pairs into deduplicated article
// stubs. Each source kind is an Adapter (structured API, bulk aggregator,
// scraped HTML portal); the Paginator drives any adapter page by page
// through one Session.
package search

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/harvest-engine/internal/logging"
	"github.com/pdiddy/harvest-engine/pkg/types"
)

// Adapter fetches one page of results. Implementations read the keyword,
// cap, and already-seen ids from sess and never mutate it directly; the
// Paginator owns dedup and total latching.
type Adapter interface {
	Name() string
	FetchPage(ctx context.Context, sess *Session, page int) (types.SearchPage, error)
}

// DetailSink receives per-article bibliographic rows from adapters that
// have them.
type DetailSink interface {
	LogDetail(site types.Site, rec types.DetailRecord) error
}

// Session is the mutable state of one keyword against one site.
type Session struct {
	ID      uuid.UUID
	Site    types.Site
	Domain  string
	Keyword string

	// Max is the per-keyword cap; negative means unlimited.
	Max int

	Log zerolog.Logger

	seen     map[string]struct{}
	total    int
	hasTotal bool
}

// NewSession starts a session for keyword against site.
func NewSession(site types.Site, domain, keyword string, max int, log zerolog.Logger) *Session {
	id := uuid.New()
	return &Session{
		ID:      id,
		Site:    site,
		Domain:  domain,
		Keyword: keyword,
		Max:     max,
		Log:     logging.WithSession(log, id.String(), domain, keyword),
		seen:    make(map[string]struct{}),
	}
}

// Unlimited reports whether the session has no cap.
func (s *Session) Unlimited() bool { return s.Max < 0 }

// Seen reports whether id was accepted on an earlier page.
func (s *Session) Seen(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// SeenCount is the number of stubs accepted so far.
func (s *Session) SeenCount() int { return len(s.seen) }

// Total returns the latched total and whether one has been reported.
func (s *Session) Total() (int, bool) { return s.total, s.hasTotal }

func (s *Session) markSeen(id string) { s.seen[id] = struct{}{} }

// latch records n unless a total is already known. It reports whether n
// was taken.
func (s *Session) latch(n int) bool {
	if s.hasTotal {
		return false
	}
	s.total, s.hasTotal = n, true
	return true
}

// QueryTerms renders a keyword for URL templates: each word is
// path-escaped and words are joined with '+'.
func QueryTerms(keyword string) string {
	words := strings.Fields(keyword)
	for i, w := range words {
		words[i] = url.PathEscape(w)
	}
	return strings.Join(words, "+")
}

// LastSegment returns the final non-empty path segment of a URL or path.
func LastSegment(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimRight(u, "/")
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}
