// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

// portal serves three listing pages of two results each; past the end it
// repeats the last page, the way the real portals do.
func portal(t *testing.T, paths *[]string) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		*paths = append(*paths, r.URL.RequestURI())
		mu.Unlock()
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page > 2 {
			page = 2
		}
		var b strings.Builder
		b.WriteString(`<html><body><div id="search-summary-wrapper"> 6 Results for cells </div><ul>`)
		for i := 0; i < 2; i++ {
			id := fmt.Sprintf("2024.01.%02d.%d", page, i)
			fmt.Fprintf(&b, `<li><a class="highwire-cite-linked-title" href="/content/10.1101/%s"><span>Title %s</span></a></li>`, id, id)
		}
		b.WriteString(`</ul></body></html>`)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(b.String()))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func htmlSource(base string) types.HTMLSource {
	return types.HTMLSource{
		SearchURL:      base + "/search/%s%%20numresults%%3A75",
		PageSuffix:     "?page=%d",
		ResultSelector: "a.highwire-cite-linked-title",
		TotalSelector:  "#search-summary-wrapper",
		URLPrefix:      base,
		PDFSuffix:      ".full.pdf",
	}
}

func TestHTMLAdapter_PaginatesUntilRepeat(t *testing.T) {
	var paths []string
	ts := portal(t, &paths)
	a := NewHTMLAdapter(testFetcher(), htmlSource(ts.URL))

	sess := newSession(-1)
	sess.Keyword = "single cell"
	out := Paginator{}.Run(context.Background(), a, sess)

	require.Len(t, out.Stubs, 6)
	assert.Equal(t, StopEndOfResults, out.Stop)
	assert.Equal(t, 4, out.Pages)
	assert.Equal(t, "/search/single+cell%20numresults%3A75", paths[0])
	assert.Equal(t, "/search/single+cell%20numresults%3A75?page=1", paths[1])

	s := out.Stubs[0]
	assert.Equal(t, "2024.01.00.0", s.ID)
	assert.Equal(t, "Title 2024.01.00.0", s.Title)
	assert.Equal(t, ts.URL+"/content/10.1101/2024.01.00.0", s.DetailURL)
	assert.Equal(t, ts.URL+"/content/10.1101/2024.01.00.0.full.pdf", s.PDFURL)

	total, ok := sess.Total()
	require.True(t, ok)
	assert.Equal(t, 6, total)
}

func TestHTMLAdapter_CapStopsEarly(t *testing.T) {
	var paths []string
	ts := portal(t, &paths)
	a := NewHTMLAdapter(testFetcher(), htmlSource(ts.URL))

	out := Paginator{}.Run(context.Background(), a, newSession(3))
	assert.Len(t, out.Stubs, 3)
	assert.Len(t, paths, 2)
}

func TestIDListAdapter(t *testing.T) {
	sess := newSession(-1)
	sess.Keyword = " 2301.07041 "

	out := Paginator{}.Run(context.Background(), IDListAdapter{PDFTemplate: "https://arxiv.org/pdf/%s"}, sess)
	require.Len(t, out.Stubs, 1)
	assert.Equal(t, "2301.07041", out.Stubs[0].ID)
	assert.Equal(t, "https://arxiv.org/pdf/2301.07041", out.Stubs[0].PDFURL)
	assert.False(t, out.Stubs[0].NeedsMirror)
	assert.Equal(t, 2, out.Pages)

	mirror, err := IDListAdapter{Mirror: true}.FetchPage(context.Background(), sess, 0)
	require.NoError(t, err)
	assert.True(t, mirror.Stubs[0].NeedsMirror)
}
