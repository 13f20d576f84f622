// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.yaml.in/yaml/v3"
	"golang.org/x/net/publicsuffix"

	"github.com/pdiddy/harvest-engine/internal/httputil"
	"github.com/pdiddy/harvest-engine/pkg/types"
)

var validate = validator.New()

// Catalog maps a registered domain to its source configuration.
type Catalog map[string]types.SourceConfig

// DefaultCatalog returns the built-in sources.
func DefaultCatalog() Catalog {
	highwire := func(host string) *types.HTMLSource {
		return &types.HTMLSource{
			SearchURL:      "https://" + host + "/search/%s%%20numresults%%3A75%%20sort%%3Arelevance-rank",
			PageSuffix:     "?page=%d",
			ResultSelector: "a.highwire-cite-linked-title",
			TotalSelector:  "#search-summary-wrapper",
			URLPrefix:      "https://" + host,
			PDFSuffix:      ".full.pdf",
			PDFTemplate:    "https://" + host + "/content/10.1101/%s.full.pdf",
			Enrich:         true,
		}
	}
	return Catalog{
		"nih.gov": {
			Domain: "nih.gov",
			Kind:   types.KindStructuredAPI,
			Structured: &types.StructuredSource{
				BaseURL:     "https://eutils.ncbi.nlm.nih.gov",
				SearchPath:  "/entrez/eutils/esearch.fcgi",
				SummaryPath: "/entrez/eutils/esummary.fcgi",
				FetchPath:   "/entrez/eutils/efetch.fcgi",
				Database:    "pubmed",
				PageSize:    1000,
			},
		},
		"arxiv.org": {
			Domain: "arxiv.org",
			Kind:   types.KindAggregatorAPI,
			Aggregator: &types.AggregatorSource{
				BaseURL:     "https://export.arxiv.org/api/query",
				MaxChunk:    1000,
				PDFTemplate: "https://arxiv.org/pdf/%s",
			},
		},
		"biorxiv.org": {Domain: "biorxiv.org", Kind: types.KindHTMLScrape, HTML: highwire("www.biorxiv.org")},
		"medrxiv.org": {Domain: "medrxiv.org", Kind: types.KindHTMLScrape, HTML: highwire("www.medrxiv.org")},
	}
}

type catalogFile struct {
	Sources []types.SourceConfig `yaml:"sources"`
}

// LoadCatalog reads a YAML file of sources and merges it over base. Entries
// replace built-ins with the same domain.
func LoadCatalog(path string, base Catalog) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source catalog %s: %w", path, err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing source catalog %s: %w", path, err)
	}
	out := make(Catalog, len(base)+len(f.Sources))
	for k, v := range base {
		out[k] = v
	}
	for _, src := range f.Sources {
		out[strings.ToLower(src.Domain)] = src
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks every entry's tags and variant.
func (c Catalog) Validate() error {
	for _, d := range c.Domains() {
		src := c[d]
		if err := validate.Struct(src); err != nil {
			return fmt.Errorf("source %s: %w", d, err)
		}
		if err := src.CheckVariant(); err != nil {
			return err
		}
	}
	return nil
}

// Domains returns the catalog keys in sorted order.
func (c Catalog) Domains() []string {
	ds := make([]string, 0, len(c))
	for d := range c {
		ds = append(ds, d)
	}
	sort.Strings(ds)
	return ds
}

// SiteDomain returns the registered domain of a site URL, e.g.
// "https://pubmed.ncbi.nlm.nih.gov/" yields "nih.gov".
func SiteDomain(siteURL string) (string, error) {
	raw := strings.TrimSpace(siteURL)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing site URL %q: %w", siteURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("site URL %q has no host", siteURL)
	}
	if net.ParseIP(host) != nil {
		return host, nil
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host, nil
	}
	return d, nil
}

// Lookup returns the source for site.
func (c Catalog) Lookup(site types.Site) (types.SourceConfig, string, error) {
	domain, err := SiteDomain(site.URL)
	if err != nil {
		return types.SourceConfig{}, "", err
	}
	src, ok := c[domain]
	if !ok {
		return types.SourceConfig{}, domain, fmt.Errorf("no source configured for %s", domain)
	}
	return src, domain, nil
}

// Build returns the Adapter for src, dispatching on its kind. In ID-list
// mode every kind is served by an IDListAdapter.
func Build(f *httputil.Fetcher, src types.SourceConfig, idList bool, details DetailSink) (Adapter, error) {
	if err := src.CheckVariant(); err != nil {
		return nil, err
	}
	switch src.Kind {
	case types.KindStructuredAPI:
		if idList {
			return IDListAdapter{Mirror: true}, nil
		}
		return NewStructuredAdapter(f, *src.Structured, details), nil
	case types.KindAggregatorAPI:
		if idList {
			return IDListAdapter{PDFTemplate: src.Aggregator.PDFTemplate, Mirror: src.Aggregator.PDFTemplate == ""}, nil
		}
		return NewAggregatorAdapter(f, *src.Aggregator), nil
	case types.KindHTMLScrape:
		if idList {
			return IDListAdapter{PDFTemplate: src.HTML.PDFTemplate, Mirror: src.HTML.PDFTemplate == ""}, nil
		}
		return NewHTMLAdapter(f, *src.HTML), nil
	}
	return nil, fmt.Errorf("unknown source kind %q", src.Kind)
}
