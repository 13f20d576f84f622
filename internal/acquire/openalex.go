// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"net/url"

	"github.com/pdiddy/harvest-engine/internal/httputil"
	"github.com/pdiddy/harvest-engine/pkg/types"
)

// DefaultOpenAlexURL is the OpenAlex works endpoint.
const DefaultOpenAlexURL = "https://api.openalex.org/works"

// openAlexWork captures the fields we need from an OpenAlex work record.
type openAlexWork struct {
	BestOALocation *struct {
		PDFURL     string `json:"pdf_url"`
		LandingURL string `json:"landing_page_url"`
	} `json:"best_oa_location"`
}

// OpenAlexResolver looks up an open-access PDF for DOIs, PubMed ids, and
// arXiv ids. It is tried before the mirror.
type OpenAlexResolver struct {
	client *httputil.Client
	email  string
}

// NewOpenAlexResolver returns a resolver against baseURL (DefaultOpenAlexURL
// when empty). email joins OpenAlex's polite pool when set.
func NewOpenAlexResolver(f *httputil.Fetcher, baseURL, email string) *OpenAlexResolver {
	if baseURL == "" {
		baseURL = DefaultOpenAlexURL
	}
	return &OpenAlexResolver{client: httputil.NewClient(f, baseURL), email: email}
}

// workKey maps an identifier to OpenAlex's external-id syntax.
func workKey(raw string) (string, bool) {
	id := ParseID(raw)
	if id.Kind == KindPMID {
		return "pmid:" + id.Value, true
	}
	if doi, ok := id.DOI(); ok {
		return "doi:" + doi, true
	}
	return "", false
}

// Resolve implements Resolver.
func (r *OpenAlexResolver) Resolve(ctx context.Context, id, _ string) (Resolution, error) {
	key, ok := workKey(id)
	if !ok {
		return Resolution{}, types.Skipf(types.SkipMirrorFailed, "openalex: unsupported identifier %q", id)
	}
	var q url.Values
	if r.email != "" {
		q = url.Values{"mailto": {r.email}}
	}
	var work openAlexWork
	if err := r.client.GetJSON(ctx, key, q, &work); err != nil {
		return Resolution{}, types.Skipf(types.SkipMirrorFailed, "openalex lookup for %s: %v", id, err)
	}
	if work.BestOALocation == nil || work.BestOALocation.PDFURL == "" {
		return Resolution{}, types.Skipf(types.SkipMirrorFailed, "openalex: no open-access PDF for %s", id)
	}
	return Resolution{URL: work.BestOALocation.PDFURL, Via: "openalex"}, nil
}
