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

func atomEntry(id string, withPDF bool) string {
	pdf := ""
	if withPDF {
		pdf = fmt.Sprintf(`<link title="pdf" href="http://arxiv.org/pdf/%s" rel="related" type="application/pdf"/>`, id)
	}
	return fmt.Sprintf(`<entry>
<id>http://arxiv.org/abs/%[1]s</id>
<title>Graph   networks %[1]s</title>
<summary> We study graphs. </summary>
<author><name>Ada Lovelace</name></author>
<author><name>Alan Turing</name></author>
<link href="http://arxiv.org/abs/%[1]s" rel="alternate" type="text/html"/>
%[2]s
</entry>`, id, pdf)
}

// arxivServer returns total entries in relevance order honoring start and
// max_results. Entry 5 repeats entry 1 and entry 4 has no PDF link.
func arxivServer(t *testing.T, total int, queries *[]string) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mu.Lock()
		*queries = append(*queries, r.URL.RawQuery)
		mu.Unlock()
		start, _ := strconv.Atoi(q.Get("start"))
		max, _ := strconv.Atoi(q.Get("max_results"))
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom">`)
		for i := start; i < total && i < start+max; i++ {
			n := i
			if i == 5 {
				n = 1
			}
			b.WriteString(atomEntry(fmt.Sprintf("2401.%05dv1", n), i != 4))
		}
		b.WriteString(`</feed>`)
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(b.String()))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestAggregatorAdapter_CappedSingleCall(t *testing.T) {
	var queries []string
	ts := arxivServer(t, 50, &queries)
	a := NewAggregatorAdapter(testFetcher(), types.AggregatorSource{BaseURL: ts.URL})

	sess := newSession(3)
	sess.Keyword = "graph neural networks"
	out := Paginator{}.Run(context.Background(), a, sess)

	require.Len(t, out.Stubs, 3)
	assert.Equal(t, StopCapReached, out.Stop)
	require.Len(t, queries, 1)
	assert.Contains(t, queries[0], "max_results=3")
	assert.Contains(t, queries[0], "sortBy=relevance")
	assert.Contains(t, queries[0], "sortOrder=descending")
	assert.Contains(t, queries[0], "search_query=graph+neural+networks")

	first := out.Stubs[0]
	assert.Equal(t, "2401.00000v1", first.ID)
	assert.Equal(t, "Graph networks 2401.00000v1", first.Title)
	assert.Equal(t, "We study graphs.", first.Abstract)
	assert.Equal(t, "http://arxiv.org/pdf/2401.00000v1", first.PDFURL)
	assert.Equal(t, "Alan Turing", first.LastAuthor)

	total, ok := sess.Total()
	require.True(t, ok)
	assert.GreaterOrEqual(t, total, 3)
}

func TestAggregatorAdapter_UnlimitedChunksAndTagsMissingPDF(t *testing.T) {
	var queries []string
	ts := arxivServer(t, 7, &queries)
	a := NewAggregatorAdapter(testFetcher(), types.AggregatorSource{BaseURL: ts.URL, MaxChunk: 3})

	sess := newSession(-1)
	out := Paginator{}.Run(context.Background(), a, sess)

	// 7 entries, one duplicate.
	assert.Len(t, out.Stubs, 6)
	assert.Len(t, queries, 3)
	assert.Equal(t, 2, out.Pages)
	assert.Equal(t, StopEndOfResults, out.Stop)

	var tagged *types.ArticleStub
	for i := range out.Stubs {
		if out.Stubs[i].ID == "2401.00004v1" {
			tagged = &out.Stubs[i]
		}
	}
	require.NotNil(t, tagged)
	require.NotNil(t, tagged.Skip)
	assert.Equal(t, types.SkipNoPDFLink, tagged.Skip.Kind)
	assert.Empty(t, tagged.PDFURL)

	total, _ := sess.Total()
	assert.Equal(t, 6, total)
}

func TestEntryID(t *testing.T) {
	assert.Equal(t, "2301.07041v2", entryID("http://arxiv.org/abs/2301.07041v2"))
	assert.Equal(t, "hep-th/9901001v1", entryID("http://arxiv.org/abs/hep-th/9901001v1"))
	assert.Equal(t, "x", entryID("urn:y/x"))
}
