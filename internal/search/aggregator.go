// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed/atom"

	"github.com/pdiddy/harvest-engine/internal/enrich"
	"github.com/pdiddy/harvest-engine/internal/httputil"
	"github.com/pdiddy/harvest-engine/pkg/types"
)

const defaultMaxChunk = 1000

// AggregatorAdapter queries an arXiv-style Atom API once per keyword.
// Page 0 holds every result, fetched in chunks when the cap is large or
// unlimited; later pages are empty.
type AggregatorAdapter struct {
	cfg    types.AggregatorSource
	client *httputil.Client
}

// NewAggregatorAdapter returns an adapter for cfg.
func NewAggregatorAdapter(f *httputil.Fetcher, cfg types.AggregatorSource) *AggregatorAdapter {
	if cfg.MaxChunk <= 0 {
		cfg.MaxChunk = defaultMaxChunk
	}
	return &AggregatorAdapter{cfg: cfg, client: httputil.NewClient(f, cfg.BaseURL)}
}

// Name returns the adapter identifier.
func (a *AggregatorAdapter) Name() string { return "aggregator" }

// FetchPage implements Adapter. Results are sorted by relevance; the total
// is the number of stubs returned.
func (a *AggregatorAdapter) FetchPage(ctx context.Context, sess *Session, page int) (types.SearchPage, error) {
	var res types.SearchPage
	if page > 0 {
		return res, nil
	}

	seen := make(map[string]bool)
	for start := 0; ; {
		size := a.cfg.MaxChunk
		if !sess.Unlimited() {
			remaining := sess.Max - len(res.Stubs)
			if remaining <= 0 {
				break
			}
			if remaining < size {
				size = remaining
			}
		}

		entries, err := a.fetch(ctx, sess.Keyword, start, size)
		if err != nil {
			return res.WithTotal(len(res.Stubs)), err
		}
		for _, e := range entries {
			stub := a.stub(e)
			if stub.ID == "" || seen[stub.ID] {
				continue
			}
			seen[stub.ID] = true
			res.Stubs = append(res.Stubs, stub)
		}
		if len(entries) < size {
			break
		}
		start += len(entries)
	}
	return res.WithTotal(len(res.Stubs)), nil
}

func (a *AggregatorAdapter) fetch(ctx context.Context, keyword string, start, size int) ([]*atom.Entry, error) {
	q := url.Values{
		"search_query": {keyword},
		"start":        {strconv.Itoa(start)},
		"max_results":  {strconv.Itoa(size)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}
	data, err := a.client.GetRaw(ctx, "", q)
	if err != nil {
		return nil, fmt.Errorf("aggregator query: %w", err)
	}
	var p atom.Parser
	feed, err := p.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing Atom feed: %w", err)
	}
	return feed.Entries, nil
}

func (a *AggregatorAdapter) stub(e *atom.Entry) types.ArticleStub {
	stub := types.ArticleStub{
		ID:       entryID(e.ID),
		Source:   a.Name(),
		Title:    strings.Join(strings.Fields(e.Title), " "),
		Abstract: strings.Join(strings.Fields(e.Summary), " "),
	}
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			stub.PDFURL = l.Href
			break
		}
	}
	if stub.PDFURL == "" {
		stub.Skip = types.Skipf(types.SkipNoPDFLink, "entry %s has no PDF link", e.ID)
	}
	authors := make([]enrich.Author, 0, len(e.Authors))
	for _, p := range e.Authors {
		authors = append(authors, enrich.Author{Name: p.Name})
	}
	enrich.ApplyAuthors(&stub, authors)
	return stub
}

// entryID turns "http://arxiv.org/abs/2301.07041v1" into "2301.07041v1"
// and keeps old-style ids such as "hep-th/9901001v1" whole.
func entryID(id string) string {
	if _, after, ok := strings.Cut(id, "/abs/"); ok {
		return after
	}
	return LastSegment(id)
}
