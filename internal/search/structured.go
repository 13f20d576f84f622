// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/harvest-engine/internal/enrich"
	"github.com/pdiddy/harvest-engine/internal/httputil"
	"github.com/pdiddy/harvest-engine/pkg/types"
)

// StructuredAdapter pages through an NCBI E-utilities style API: one
// esearch call per page for ids, then an esummary call (and optionally an
// efetch call) per new id. Stubs carry no PDF URL; they are resolved
// through the mirror.
type StructuredAdapter struct {
	cfg     types.StructuredSource
	client  *httputil.Client
	details DetailSink
}

// NewStructuredAdapter returns an adapter for cfg. details may be nil.
func NewStructuredAdapter(f *httputil.Fetcher, cfg types.StructuredSource, details DetailSink) *StructuredAdapter {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	return &StructuredAdapter{cfg: cfg, client: httputil.NewClient(f, cfg.BaseURL), details: details}
}

// Name returns the adapter identifier.
func (a *StructuredAdapter) Name() string { return "structured:" + a.cfg.Database }

type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryAuthor struct {
	Name     string `json:"name"`
	AuthType string `json:"authtype"`
}

type esummaryRecord struct {
	UID             string           `json:"uid"`
	Title           string           `json:"title"`
	Authors         []esummaryAuthor `json:"authors"`
	SortPubDate     string           `json:"sortpubdate"`
	SortFirstAuthor string           `json:"sortfirstauthor"`
	FullJournalName string           `json:"fulljournalname"`
	ELocationID     string           `json:"elocationid"`
	PubType         []string         `json:"pubtype"`
}

// FetchPage implements Adapter. The total is reported on page 0 only.
func (a *StructuredAdapter) FetchPage(ctx context.Context, sess *Session, page int) (types.SearchPage, error) {
	var res types.SearchPage

	start := page * a.cfg.PageSize
	if total, ok := sess.Total(); ok && start >= total {
		return res, nil
	}

	if !sess.Unlimited() && sess.SeenCount() >= sess.Max {
		return res, nil
	}

	q := a.query()
	q.Set("retmode", "json")
	q.Set("retstart", strconv.Itoa(start))
	q.Set("retmax", strconv.Itoa(a.cfg.PageSize))
	q.Set("term", sess.Keyword)

	var sr esearchResponse
	if err := a.client.GetJSON(ctx, a.cfg.SearchPath, q, &sr); err != nil {
		return res, fmt.Errorf("esearch: %w", err)
	}
	if page == 0 {
		n, err := strconv.Atoi(strings.TrimSpace(sr.Result.Count))
		if err != nil {
			return res, fmt.Errorf("esearch: bad count %q", sr.Result.Count)
		}
		res = res.WithTotal(n)
	}

	for _, id := range sr.Result.IDList {
		if !sess.Unlimited() && sess.SeenCount()+len(res.Stubs) >= sess.Max {
			break
		}
		if sess.Seen(id) {
			continue
		}
		stub, err := a.stub(ctx, sess, id)
		if err != nil {
			sess.Log.Warn().Err(err).Str("id", id).Msg("skipping record")
			continue
		}
		res.Stubs = append(res.Stubs, stub)
	}
	return res, nil
}

func (a *StructuredAdapter) query() url.Values {
	q := url.Values{"db": {a.cfg.Database}}
	if a.cfg.APIKey != "" {
		q.Set("api_key", a.cfg.APIKey)
	}
	return q
}

func (a *StructuredAdapter) stub(ctx context.Context, sess *Session, id string) (types.ArticleStub, error) {
	stub := types.ArticleStub{ID: id, Source: a.Name(), NeedsMirror: true}

	rec, found, err := a.summary(ctx, id)
	if err != nil {
		return stub, err
	}
	if found {
		stub.Title = rec.Title
		authors := make([]enrich.Author, 0, len(rec.Authors))
		for _, au := range rec.Authors {
			authors = append(authors, enrich.Author{Name: au.Name})
		}
		enrich.ApplyAuthors(&stub, authors)
	}

	if a.cfg.FetchPath != "" {
		if err := a.fullRecord(ctx, &stub); err != nil {
			return stub, err
		}
	}
	// Only accepted stubs get a detail row.
	if found && a.details != nil {
		if err := a.details.LogDetail(sess.Site, a.detail(rec)); err != nil {
			sess.Log.Warn().Err(err).Str("id", id).Msg("writing detail log")
		}
	}
	return stub, nil
}

// summary fetches the esummary record for id. A response without a record
// for id is not an error.
func (a *StructuredAdapter) summary(ctx context.Context, id string) (esummaryRecord, bool, error) {
	var rec esummaryRecord
	q := a.query()
	q.Set("retmode", "json")
	q.Set("id", id)

	var body struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := a.client.GetJSON(ctx, a.cfg.SummaryPath, q, &body); err != nil {
		return rec, false, fmt.Errorf("esummary: %w", err)
	}
	raw, ok := body.Result[id]
	if !ok {
		return rec, false, nil
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, false, fmt.Errorf("esummary record %s: %w", id, err)
	}
	return rec, true, nil
}

func (a *StructuredAdapter) detail(rec esummaryRecord) types.DetailRecord {
	names := make([]string, 0, len(rec.Authors))
	for _, au := range rec.Authors {
		names = append(names, au.Name)
	}
	pubTypes := strings.Join(rec.PubType, ", ")
	createDate, _, _ := strings.Cut(rec.SortPubDate, " ")
	year, _, _ := strings.Cut(rec.SortPubDate, "/")

	return types.DetailRecord{
		Title:        rec.Title,
		URL:          "/" + a.cfg.Database + "/" + rec.UID,
		Description:  strings.Join(names, ", ") + ".",
		Details:      rec.FullJournalName + ". " + rec.ELocationID + ". " + pubTypes + ".",
		ShortDetails: rec.FullJournalName + ". " + year,
		Resource:     "PubMed",
		Type:         pubTypes,
		Identifiers:  "PMID:" + rec.UID,
		DB:           a.cfg.Database,
		UID:          rec.UID,
		Properties:   "create date: " + createDate + " | first author: " + rec.SortFirstAuthor,
	}
}

type pubmedArticleSet struct {
	Articles []struct {
		Citation struct {
			Article struct {
				Title    string `xml:"ArticleTitle"`
				Abstract struct {
					Texts []string `xml:"AbstractText"`
				} `xml:"Abstract"`
				Authors []struct {
					LastName       string   `xml:"LastName"`
					ForeName       string   `xml:"ForeName"`
					CollectiveName string   `xml:"CollectiveName"`
					Affiliations   []string `xml:"AffiliationInfo>Affiliation"`
				} `xml:"AuthorList>Author"`
			} `xml:"Article"`
		} `xml:"MedlineCitation"`
		References []struct {
			Citation string `xml:"Citation"`
			IDs      []struct {
				Type  string `xml:"IdType,attr"`
				Value string `xml:",chardata"`
			} `xml:"ArticleIdList>ArticleId"`
		} `xml:"PubmedData>ReferenceList>Reference"`
	} `xml:"PubmedArticle"`
}

// fullRecord fetches the efetch XML record and fills abstract, authors
// with affiliations, and references.
func (a *StructuredAdapter) fullRecord(ctx context.Context, stub *types.ArticleStub) error {
	q := a.query()
	q.Set("retmode", "xml")
	q.Set("id", stub.ID)

	var set pubmedArticleSet
	if err := a.client.GetXML(ctx, a.cfg.FetchPath, q, &set); err != nil {
		return fmt.Errorf("efetch: %w", err)
	}
	if len(set.Articles) == 0 {
		return nil
	}
	art := set.Articles[0]

	if stub.Title == "" {
		stub.Title = strings.TrimSpace(art.Citation.Article.Title)
	}
	stub.Abstract = strings.Join(strings.Fields(strings.Join(art.Citation.Article.Abstract.Texts, " ")), " ")

	var authors []enrich.Author
	for _, au := range art.Citation.Article.Authors {
		name := strings.TrimSpace(au.ForeName + " " + au.LastName)
		if name == "" {
			name = au.CollectiveName
		}
		authors = append(authors, enrich.Author{Name: name, Affiliations: au.Affiliations})
	}
	if len(authors) > 0 {
		enrich.ApplyAuthors(stub, authors)
	}

	var refs []enrich.Citation
	for _, r := range art.References {
		c := enrich.Citation{Text: r.Citation}
		for _, id := range r.IDs {
			if id.Type == "pubmed" {
				c.ID = "PMID:" + strings.TrimSpace(id.Value)
				break
			}
			if id.Type == "doi" && c.ID == "" {
				c.ID = strings.TrimSpace(id.Value)
			}
		}
		refs = append(refs, c)
	}
	stub.Citations = enrich.FormatCitations(refs)
	return nil
}
