// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/harvest-engine/internal/httputil"
	"github.com/pdiddy/harvest-engine/internal/markup"
	"github.com/pdiddy/harvest-engine/pkg/types"
)

// HTMLAdapter scrapes a search portal. Result anchors give the canonical
// article URL; the id is its last path segment and the PDF lives at the
// canonical URL plus a fixed suffix.
type HTMLAdapter struct {
	cfg     types.HTMLSource
	fetcher *httputil.Fetcher
}

// NewHTMLAdapter returns an adapter for cfg.
func NewHTMLAdapter(f *httputil.Fetcher, cfg types.HTMLSource) *HTMLAdapter {
	return &HTMLAdapter{cfg: cfg, fetcher: f}
}

// Name returns the adapter identifier.
func (a *HTMLAdapter) Name() string { return "html" }

// PageURL returns the listing URL for keyword and page.
func (a *HTMLAdapter) PageURL(keyword string, page int) string {
	u := fmt.Sprintf(a.cfg.SearchURL, QueryTerms(keyword))
	if page > 0 {
		u += fmt.Sprintf(a.cfg.PageSuffix, page)
	}
	return u
}

// FetchPage implements Adapter. The total-count node is read on page 0 only.
func (a *HTMLAdapter) FetchPage(ctx context.Context, sess *Session, page int) (types.SearchPage, error) {
	var res types.SearchPage
	doc, err := a.fetcher.Document(ctx, a.PageURL(sess.Keyword, page))
	if err != nil {
		return res, fmt.Errorf("fetching results page %d: %w", page, err)
	}

	if page == 0 && a.cfg.TotalSelector != "" {
		if n, ok := markup.Digits(markup.Text(doc, a.cfg.TotalSelector)); ok {
			res = res.WithTotal(n)
		}
	}

	doc.Find(a.cfg.ResultSelector).Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		canonical := a.canonical(href)
		res.Stubs = append(res.Stubs, types.ArticleStub{
			ID:        LastSegment(canonical),
			Source:    a.Name(),
			Title:     markup.Clean(s.Text()),
			PDFURL:    canonical + a.cfg.PDFSuffix,
			DetailURL: canonical,
		})
	})
	return res, nil
}

func (a *HTMLAdapter) canonical(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(a.cfg.URLPrefix, "/") + "/" + strings.TrimLeft(href, "/")
}

// IDListAdapter treats the keyword as a literal article identifier. Page 0
// holds exactly one stub; there are no further pages.
type IDListAdapter struct {
	// Mirror marks stubs for mirror resolution.
	Mirror bool

	// PDFTemplate, when set, is a fmt template building the PDF URL from the id.
	PDFTemplate string
}

// Name returns the adapter identifier.
func (a IDListAdapter) Name() string { return "id-list" }

// FetchPage implements Adapter.
func (a IDListAdapter) FetchPage(_ context.Context, sess *Session, page int) (types.SearchPage, error) {
	if page > 0 {
		return types.SearchPage{}, nil
	}
	id := strings.TrimSpace(sess.Keyword)
	stub := types.ArticleStub{ID: id, Source: a.Name(), NeedsMirror: a.Mirror}
	if a.PDFTemplate != "" {
		stub.PDFURL = fmt.Sprintf(a.PDFTemplate, id)
		stub.NeedsMirror = false
	}
	return types.SearchPage{Stubs: []types.ArticleStub{stub}}.WithTotal(1), nil
}
