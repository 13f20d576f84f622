// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

func TestSiteDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://pubmed.ncbi.nlm.nih.gov/", "nih.gov"},
		{"http://eutils.ncbi.nlm.nih.gov", "nih.gov"},
		{"https://www.biorxiv.org", "biorxiv.org"},
		{"arxiv.org", "arxiv.org"},
		{"https://www.bbc.co.uk/news", "bbc.co.uk"},
		{"http://localhost:8080", "localhost"},
		{"http://127.0.0.1:41234", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := SiteDomain(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := SiteDomain("https://")
	assert.Error(t, err)
}

func TestDefaultCatalogIsValid(t *testing.T) {
	c := DefaultCatalog()
	require.NoError(t, c.Validate())
	assert.Equal(t, []string{"arxiv.org", "biorxiv.org", "medrxiv.org", "nih.gov"}, c.Domains())
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - domain: arxiv.org
    kind: aggregator_api
    aggregator:
      base_url: http://localhost:9000/api/query
      max_chunk: 50
  - domain: chemrxiv.org
    kind: html_scrape
    html:
      search_url: https://chemrxiv.org/search?q=%s
      page_suffix: "&page=%d"
      result_selector: a.result
      url_prefix: https://chemrxiv.org
      pdf_suffix: /pdf
`), 0o644))

	c, err := LoadCatalog(path, DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/api/query", c["arxiv.org"].Aggregator.BaseURL)
	assert.Equal(t, types.KindHTMLScrape, c["chemrxiv.org"].Kind)
	assert.Contains(t, c, "nih.gov")
}

func TestLoadCatalog_RejectsMismatchedVariant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - domain: example.org
    kind: html_scrape
    aggregator:
      base_url: https://example.org/api
      max_chunk: 10
`), 0o644))

	_, err := LoadCatalog(path, nil)
	assert.Error(t, err)
}

func TestBuildDispatchesOnKind(t *testing.T) {
	f := testFetcher()
	c := DefaultCatalog()

	a, err := Build(f, c["nih.gov"], false, nil)
	require.NoError(t, err)
	assert.IsType(t, &StructuredAdapter{}, a)

	a, err = Build(f, c["arxiv.org"], false, nil)
	require.NoError(t, err)
	assert.IsType(t, &AggregatorAdapter{}, a)

	a, err = Build(f, c["biorxiv.org"], false, nil)
	require.NoError(t, err)
	assert.IsType(t, &HTMLAdapter{}, a)

	a, err = Build(f, c["nih.gov"], true, nil)
	require.NoError(t, err)
	assert.Equal(t, IDListAdapter{Mirror: true}, a)

	a, err = Build(f, c["arxiv.org"], true, nil)
	require.NoError(t, err)
	assert.Equal(t, IDListAdapter{PDFTemplate: "https://arxiv.org/pdf/%s"}, a)

	_, err = Build(f, types.SourceConfig{Domain: "x.org", Kind: types.KindHTMLScrape}, false, nil)
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	c := DefaultCatalog()
	src, domain, err := c.Lookup(types.Site{Name: "PubMed", URL: "https://pubmed.ncbi.nlm.nih.gov"})
	require.NoError(t, err)
	assert.Equal(t, "nih.gov", domain)
	assert.Equal(t, types.KindStructuredAPI, src.Kind)

	_, domain, err = c.Lookup(types.Site{URL: "https://example.com"})
	assert.Error(t, err)
	assert.Equal(t, "example.com", domain)
}
