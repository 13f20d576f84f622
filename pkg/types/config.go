// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by every stage that makes
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" validate:"gte=0"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "harvest-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// RequestsPerSecond bounds requests to any one host (default 2).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`

	// MaxRetries bounds retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" validate:"gte=0"`
}

// HarvestConfig holds settings for a harvest run.
type HarvestConfig struct {
	HTTPConfig `yaml:",inline"`

	// SitesFile lists one site per line: name and URL.
	SitesFile string `json:"sites_file" yaml:"sites_file" validate:"required"`

	// KeywordsFile lists one search term (or identifier in ID-list mode) per line.
	KeywordsFile string `json:"keywords_file" yaml:"keywords_file" validate:"required"`

	// OutputDir is the root under which each run creates its own directory.
	OutputDir string `json:"output_dir" yaml:"output_dir" validate:"required"`

	// DatabasePath is the SQLite file holding completion records.
	DatabasePath string `json:"database_path" yaml:"database_path" validate:"required"`

	// DownloadDelay is the pause after each article-level download (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay" validate:"gte=0"`

	// MinHoursBetweenRuns is the completion window: a (site, keyword) pair
	// finished within this many hours is skipped (default 12).
	MinHoursBetweenRuns int `json:"min_hours_between_runs" yaml:"min_hours_between_runs" validate:"gte=0"`

	// RetentionDays controls the completion-record retention sweep (default 60).
	RetentionDays int `json:"retention_days" yaml:"retention_days" validate:"gte=0"`

	// MaxResultsPerKeyword caps stubs per keyword. -1 means unlimited.
	MaxResultsPerKeyword int `json:"max_results_per_keyword" yaml:"max_results_per_keyword" validate:"gte=-1,ne=0"`

	// MaxPages is the pagination circuit breaker (default 1000).
	MaxPages int `json:"max_pages" yaml:"max_pages" validate:"gte=1"`

	// OnlyOneCopyPerPDF skips a download when a file with the same name
	// already exists anywhere under OutputDir.
	OnlyOneCopyPerPDF bool `json:"only_one_copy_per_pdf" yaml:"only_one_copy_per_pdf"`

	// BlockThreshold is the size in bytes under which a response lacking a
	// PDF header is treated as a captcha page.
	BlockThreshold int64 `json:"block_threshold" yaml:"block_threshold" validate:"gte=0"`

	// IDList treats every keyword as a literal article identifier.
	IDList bool `json:"id_list" yaml:"id_list"`

	// Parallelism is the number of sites harvested at once (default 1).
	// Keywords within a site always run one after another.
	Parallelism int `json:"parallelism" yaml:"parallelism" validate:"gte=1"`

	// Mirror configures identifier-to-PDF resolution.
	Mirror MirrorConfig `json:"mirror" yaml:"mirror"`
}

// Unlimited reports whether the per-keyword cap is disabled.
func (c HarvestConfig) Unlimited() bool {
	return c.MaxResultsPerKeyword < 0
}

// CompletionWindow returns MinHoursBetweenRuns as a duration.
func (c HarvestConfig) CompletionWindow() time.Duration {
	return time.Duration(c.MinHoursBetweenRuns) * time.Hour
}

// MirrorConfig holds settings for resolving identifiers to documents: an
// optional open-access lookup followed by the mirror-resolution service.
type MirrorConfig struct {
	// URL is the mirror endpoint. Empty disables resolution.
	URL string `json:"url" yaml:"url" validate:"omitempty,url"`

	// RequestField is the form field carrying the identifier (default "request").
	RequestField string `json:"request_field" yaml:"request_field"`

	// OpenAccess tries OpenAlex for an open-access copy before the mirror.
	OpenAccess bool `json:"open_access" yaml:"open_access"`

	// OpenAlexURL overrides the OpenAlex works endpoint.
	OpenAlexURL string `json:"openalex_url,omitempty" yaml:"openalex_url,omitempty" validate:"omitempty,url"`

	// Email is sent to OpenAlex as the mailto parameter.
	Email string `json:"email,omitempty" yaml:"email,omitempty" validate:"omitempty,email"`
}

// Enabled reports whether any resolver is configured.
func (m MirrorConfig) Enabled() bool {
	return m.URL != "" || m.OpenAccess
}

// SourceKind tags the SourceConfig variant.
type SourceKind string

const (
	KindStructuredAPI SourceKind = "structured_api"
	KindAggregatorAPI SourceKind = "aggregator_api"
	KindHTMLScrape    SourceKind = "html_scrape"
)

// SourceConfig is a tagged variant: Kind selects which of the pointer fields
// is populated. Exactly one must be set, matching Kind.
type SourceConfig struct {
	// Domain is the registered domain the source serves (e.g. "biorxiv.org").
	Domain string     `json:"domain" yaml:"domain" validate:"required,hostname"`
	Kind   SourceKind `json:"kind" yaml:"kind" validate:"required,oneof=structured_api aggregator_api html_scrape"`

	Structured *StructuredSource `json:"structured,omitempty" yaml:"structured,omitempty" validate:"required_if=Kind structured_api"`
	Aggregator *AggregatorSource `json:"aggregator,omitempty" yaml:"aggregator,omitempty" validate:"required_if=Kind aggregator_api"`
	HTML       *HTMLSource       `json:"html,omitempty" yaml:"html,omitempty" validate:"required_if=Kind html_scrape"`
}

// CheckVariant reports an error when a populated variant does not match Kind.
func (s SourceConfig) CheckVariant() error {
	set := 0
	for _, ok := range []bool{s.Structured != nil, s.Aggregator != nil, s.HTML != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("source %s: exactly one variant must be set, found %d", s.Domain, set)
	}
	switch {
	case s.Kind == KindStructuredAPI && s.Structured != nil,
		s.Kind == KindAggregatorAPI && s.Aggregator != nil,
		s.Kind == KindHTMLScrape && s.HTML != nil:
		return nil
	}
	return fmt.Errorf("source %s: variant does not match kind %q", s.Domain, s.Kind)
}

// StructuredSource describes a paged search API that returns identifiers
// plus separate summary and full-record endpoints (NCBI E-utilities).
type StructuredSource struct {
	BaseURL     string `json:"base_url" yaml:"base_url" validate:"required,url"`
	SearchPath  string `json:"search_path" yaml:"search_path" validate:"required"`
	SummaryPath string `json:"summary_path" yaml:"summary_path" validate:"required"`

	// FetchPath is the full-record endpoint. Empty disables the extended
	// metadata fetch.
	FetchPath string `json:"fetch_path,omitempty" yaml:"fetch_path,omitempty"`

	Database string `json:"database" yaml:"database" validate:"required"`
	PageSize int    `json:"page_size" yaml:"page_size" validate:"gte=1,lte=10000"`

	// APIKey raises the NCBI rate limit when set.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// AggregatorSource describes a bulk preprint API queried once per keyword.
type AggregatorSource struct {
	BaseURL string `json:"base_url" yaml:"base_url" validate:"required,url"`

	// MaxChunk is the page size used for the bulk call when the cap is
	// unlimited (default 1000).
	MaxChunk int `json:"max_chunk" yaml:"max_chunk" validate:"gte=1"`

	// PDFTemplate builds a PDF URL from an article id in ID-list mode
	// (e.g. "https://arxiv.org/pdf/%s").
	PDFTemplate string `json:"pdf_template,omitempty" yaml:"pdf_template,omitempty"`
}

// HTMLSource describes a search portal scraped with CSS selectors.
type HTMLSource struct {
	// SearchURL is a fmt template taking the query (spaces already
	// replaced by '+').
	SearchURL string `json:"search_url" yaml:"search_url" validate:"required"`

	// PageSuffix is a fmt template taking the page index; appended for
	// pages after the first.
	PageSuffix string `json:"page_suffix" yaml:"page_suffix" validate:"required"`

	ResultSelector string `json:"result_selector" yaml:"result_selector" validate:"required"`
	TotalSelector  string `json:"total_selector,omitempty" yaml:"total_selector,omitempty"`

	// URLPrefix is prepended to each result href to form the canonical URL.
	URLPrefix string `json:"url_prefix" yaml:"url_prefix" validate:"required,url"`

	// PDFSuffix is appended to the canonical URL to form the PDF URL.
	PDFSuffix string `json:"pdf_suffix" yaml:"pdf_suffix" validate:"required"`

	// PDFTemplate builds a PDF URL from an article id in ID-list mode.
	// Empty sends ID-list stubs through the mirror.
	PDFTemplate string `json:"pdf_template,omitempty" yaml:"pdf_template,omitempty"`

	// Enrich fetches each result's detail page for authors and abstract.
	Enrich bool `json:"enrich" yaml:"enrich"`
}
