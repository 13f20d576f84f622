// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest drives a run: for every site and keyword it gates on the
// completion history, paginates the site's adapter, and moves each article
// through enrichment, resolution, download, and the audit logs.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/harvest-engine/internal/acquire"
	"github.com/pdiddy/harvest-engine/internal/audit"
	"github.com/pdiddy/harvest-engine/internal/enrich"
	"github.com/pdiddy/harvest-engine/internal/httputil"
	"github.com/pdiddy/harvest-engine/internal/metrics"
	"github.com/pdiddy/harvest-engine/internal/search"
	"github.com/pdiddy/harvest-engine/pkg/types"
)

// Tracker is the completion history the orchestrator gates on.
type Tracker interface {
	IsDone(ctx context.Context, site, keyword string, window time.Duration) (bool, error)
	MarkDone(ctx context.Context, rec types.CompletionRecord) error
	Prune(ctx context.Context, retentionDays int) (int64, error)
}

// Status is the end state of one (site, keyword) session.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusGated     Status = "gated"
	StatusFailed    Status = "failed"
)

// KeywordFailure is an uncaught failure while processing one keyword. The
// keyword is not marked done so a later run retries it.
type KeywordFailure struct {
	Site    string
	Keyword string
	Err     error
}

func (f *KeywordFailure) Error() string {
	return fmt.Sprintf("%s / %q: %v", f.Site, f.Keyword, f.Err)
}

func (f *KeywordFailure) Unwrap() error { return f.Err }

// KeywordResult summarizes one session.
type KeywordResult struct {
	Site    string
	Domain  string
	Keyword string
	Status  Status
	Stop    search.StopReason
	Pages   int
	Found   int

	Downloaded int
	Duplicates int
	Blocked    int
	Failed     int
	Skipped    int

	Err error
}

// Summary is the result of Run.
type Summary struct {
	RunDir   string
	Pruned   int64
	Keywords []KeywordResult
}

// Count returns the number of sessions that ended in status.
func (s Summary) Count(status Status) int {
	n := 0
	for _, k := range s.Keywords {
		if k.Status == status {
			n++
		}
	}
	return n
}

// Harvester runs sites against keywords.
type Harvester struct {
	cfg       types.HarvestConfig
	catalog   search.Catalog
	fetcher   *httputil.Fetcher
	tracker   Tracker
	audit     *audit.Logger
	downloads *acquire.Manager
	resolver  acquire.Resolver
	metrics   *metrics.Metrics
	log       zerolog.Logger

	now    func() time.Time
	pause  func(ctx context.Context, d time.Duration) error
	stamp  string
	runDir string
}

// Option customizes a Harvester.
type Option func(*Harvester)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(h *Harvester) { h.log = log }
}

// WithMetrics enables counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Harvester) { h.metrics = m }
}

// WithResolver replaces the resolver chain built from the mirror config.
func WithResolver(r acquire.Resolver) Option {
	return func(h *Harvester) { h.resolver = r }
}

// WithClock sets the time source used for the run stamp and completion
// records.
func WithClock(now func() time.Time) Option {
	return func(h *Harvester) { h.now = now }
}

// WithPause replaces the post-download pause.
func WithPause(p func(ctx context.Context, d time.Duration) error) Option {
	return func(h *Harvester) { h.pause = p }
}

// New prepares a run. The run directory is
// <OutputDir>/WebSearch_<stamp>; it is created on first write.
func New(cfg types.HarvestConfig, catalog search.Catalog, f *httputil.Fetcher, tracker Tracker, opts ...Option) (*Harvester, error) {
	h := &Harvester{
		cfg:     cfg,
		catalog: catalog,
		fetcher: f,
		tracker: tracker,
		log:     zerolog.Nop(),
		now:     time.Now,
		pause:   sleep,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.resolver == nil {
		r, err := ResolverFor(f, cfg.Mirror)
		if err != nil {
			return nil, err
		}
		h.resolver = r
	}

	h.stamp = h.now().Format(audit.StampFormat)
	h.runDir = filepath.Join(cfg.OutputDir, "WebSearch_"+h.stamp)
	h.audit = audit.New(h.runDir, h.stamp)
	h.downloads = acquire.NewManager(f, cfg.OutputDir, cfg.OnlyOneCopyPerPDF, cfg.BlockThreshold, nil)
	return h, nil
}

// ResolverFor builds the resolver chain for cfg: OpenAlex first when open
// access lookup is on, then the mirror. It returns nil when neither is
// configured.
func ResolverFor(f *httputil.Fetcher, cfg types.MirrorConfig) (acquire.Resolver, error) {
	var chain acquire.Chain
	if cfg.OpenAccess {
		chain = append(chain, acquire.NewOpenAlexResolver(f, cfg.OpenAlexURL, cfg.Email))
	}
	if cfg.URL != "" {
		m, err := acquire.NewMirrorResolver(f, cfg, nil)
		if err != nil {
			return nil, fmt.Errorf("mirror config: %w", err)
		}
		chain = append(chain, m)
	}
	if len(chain) == 0 {
		return nil, nil
	}
	return chain, nil
}

// RunDir returns the directory this run writes into.
func (h *Harvester) RunDir() string { return h.runDir }

// Close flushes the audit logs.
func (h *Harvester) Close() error { return h.audit.Close() }

// Run prunes the history once, then harvests sites concurrently (at most
// Parallelism at a time) and each site's keywords in order. Failures are
// contained per keyword and reported in the Summary.
func (h *Harvester) Run(ctx context.Context, sites []types.Site, keywords []string) Summary {
	summary := Summary{RunDir: h.runDir}

	pruned, err := h.tracker.Prune(ctx, h.cfg.RetentionDays)
	if err != nil {
		h.log.Error().Err(err).Msg("retention sweep failed")
	} else if pruned > 0 {
		h.log.Info().Int64("deleted", pruned).Int("days", h.cfg.RetentionDays).Msg("pruned completion history")
	}
	summary.Pruned = pruned
	h.metrics.RecordPrune(pruned)

	limit := h.cfg.Parallelism
	if limit < 1 {
		limit = 1
	}
	results := make([][]KeywordResult, len(sites))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, site := range sites {
		i, site := i, site
		g.Go(func() error {
			results[i] = h.runSite(ctx, i, len(sites), site, keywords)
			return nil
		})
	}
	_ = g.Wait()

	for _, rs := range results {
		summary.Keywords = append(summary.Keywords, rs...)
	}
	return summary
}

func (h *Harvester) runSite(ctx context.Context, index, total int, site types.Site, keywords []string) []KeywordResult {
	out := make([]KeywordResult, 0, len(keywords))

	src, domain, err := h.catalog.Lookup(site)
	var adapter search.Adapter
	if err == nil {
		adapter, err = search.Build(h.fetcher, src, h.cfg.IDList, h.audit)
	}
	if err != nil {
		h.log.Error().Err(err).Str("site", site.URL).Msg("skipping site")
		for _, kw := range keywords {
			out = append(out, KeywordResult{
				Site: site.Name, Domain: domain, Keyword: kw, Status: StatusFailed,
				Err: &KeywordFailure{Site: site.Name, Keyword: kw, Err: err},
			})
			h.metrics.RecordKeyword(domain, string(StatusFailed))
		}
		return out
	}
	enricher := enricherFor(h.fetcher, src, h.cfg.IDList)

	for k, kw := range keywords {
		h.log.Info().Msgf("Site %d of %d: %s. Keyword %d of %d: %s.", index+1, total, site.URL, k+1, len(keywords), kw)
		if ctx.Err() != nil {
			out = append(out, KeywordResult{
				Site: site.Name, Domain: domain, Keyword: kw, Status: StatusFailed,
				Err: &KeywordFailure{Site: site.Name, Keyword: kw, Err: ctx.Err()},
			})
			continue
		}
		res := h.runKeyword(ctx, site, domain, kw, adapter, enricher)
		h.metrics.RecordKeyword(domain, string(res.Status))
		out = append(out, res)
	}
	return out
}

func enricherFor(f *httputil.Fetcher, src types.SourceConfig, idList bool) enrich.Enricher {
	if !idList && src.Kind == types.KindHTMLScrape && src.HTML != nil && src.HTML.Enrich {
		return enrich.NewHTMLEnricher(f, enrich.DefaultSelectors)
	}
	return enrich.Noop{}
}

// runKeyword gates, processes, and marks one keyword done.
func (h *Harvester) runKeyword(ctx context.Context, site types.Site, domain, keyword string, adapter search.Adapter, enricher enrich.Enricher) KeywordResult {
	res := KeywordResult{Site: site.Name, Domain: domain, Keyword: keyword}
	log := h.log.With().Str("site", domain).Str("keyword", keyword).Logger()

	done, err := h.tracker.IsDone(ctx, domain, keyword, h.cfg.CompletionWindow())
	if err != nil {
		res.Status = StatusFailed
		res.Err = &KeywordFailure{Site: domain, Keyword: keyword, Err: err}
		log.Error().Err(err).Msg("checking completion history")
		return res
	}
	if done {
		log.Info().Msg("Skipping. Too soon since last completed this item.")
		res.Status = StatusGated
		return res
	}

	if err := h.processKeyword(ctx, site, domain, keyword, adapter, enricher, &res); err != nil {
		res.Status = StatusFailed
		res.Err = err
		log.Debug().Err(err).Msg("keyword failure detail")
		log.Error().Msg("Skipping. Something went wrong.")
		return res
	}

	rec := types.CompletionRecord{
		Site:        domain,
		Keyword:     keyword,
		Directory:   h.runDir,
		CompletedAt: h.now(),
	}
	if err := h.tracker.MarkDone(ctx, rec); err != nil {
		res.Status = StatusFailed
		res.Err = &KeywordFailure{Site: domain, Keyword: keyword, Err: err}
		log.Error().Err(err).Msg("recording completion")
		return res
	}
	res.Status = StatusCompleted
	return res
}

// processKeyword paginates and handles every stub. Article-level problems
// are absorbed into the result log; anything else, panics included, comes
// back as a *KeywordFailure.
func (h *Harvester) processKeyword(ctx context.Context, site types.Site, domain, keyword string, adapter search.Adapter, enricher enrich.Enricher, res *KeywordResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Debug().Str("stack", string(debug.Stack())).Msg("recovered panic")
			err = &KeywordFailure{Site: domain, Keyword: keyword, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	fail := func(e error) error {
		return &KeywordFailure{Site: domain, Keyword: keyword, Err: e}
	}

	sess := search.NewSession(site, domain, keyword, h.cfg.MaxResultsPerKeyword, h.log)
	pager := search.Paginator{
		MaxPages: h.cfg.MaxPages,
		OnTotal: func(s *search.Session, total int) {
			s.Log.Info().Int("total", total).Msg("total results")
		},
	}
	outcome := pager.Run(ctx, adapter, sess)
	h.metrics.RecordPages(domain, outcome.Pages)
	res.Stop, res.Pages, res.Found = outcome.Stop, outcome.Pages, len(outcome.Stubs)

	if outcome.Stop == search.StopPageError && ctx.Err() != nil {
		return fail(ctx.Err())
	}

	total, ok := sess.Total()
	if !ok {
		total = len(outcome.Stubs)
	}
	if err := h.audit.LogSearch(audit.SearchEntry{
		Keyword: keyword, Site: site.Name, Total: total, Max: h.cfg.MaxResultsPerKeyword,
	}); err != nil {
		return fail(err)
	}

	siteDir := filepath.Join(h.runDir, domain+"_"+h.stamp)
	for i := range outcome.Stubs {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		stub := outcome.Stubs[i]
		sess.Log.Info().Msgf("Downloading item %d of %d", i+1, len(outcome.Stubs))

		entry, attempted := h.handleStub(ctx, sess, enricher, &stub, siteDir)
		entry.Ordinal = i + 1
		entry.Max = h.cfg.MaxResultsPerKeyword
		tally(res, entry, &stub)

		if err := h.audit.LogResult(entry); err != nil {
			return fail(err)
		}
		if attempted && h.cfg.DownloadDelay > 0 {
			sess.Log.Debug().Dur("delay", h.cfg.DownloadDelay).Msg("waiting")
			if err := h.pause(ctx, h.cfg.DownloadDelay); err != nil {
				return fail(err)
			}
		}
	}
	return nil
}

// handleStub enriches, resolves, and downloads one stub. attempted reports
// whether the article cost network I/O, which earns the caller's pause.
func (h *Harvester) handleStub(ctx context.Context, sess *search.Session, enricher enrich.Enricher, stub *types.ArticleStub, siteDir string) (audit.ResultEntry, bool) {
	entry := audit.ResultEntry{Keyword: sess.Keyword, Site: sess.Site.Name}
	dest := filepath.Join(siteDir, acquire.FileName(stub.ID))
	log := sess.Log.With().Str("id", stub.ID).Logger()

	if stub.Skip == nil && stub.DetailURL != "" {
		if err := enricher.Enrich(ctx, stub); err != nil {
			stub.Skip = types.Skipf(types.SkipEnrichFailed, "%v", err)
		}
	}

	finish := func(outcome string) audit.ResultEntry {
		entry.Stub = *stub
		entry.Outcome = outcome
		return entry
	}

	if stub.Skip != nil {
		log.Warn().Str("reason", stub.Skip.Error()).Msg("skipping article")
		h.metrics.RecordSkip(sess.Domain, stub.Skip.Kind)
		return finish(string(stub.Skip.Kind)), false
	}

	if h.downloads.Duplicate(dest) {
		log.Info().Msg("Skipping. Output file already exists.")
		h.metrics.RecordDownload(sess.Domain, types.OutcomeSkippedDuplicate)
		entry.Path = dest
		return finish(types.OutcomeSkippedDuplicate.String()), false
	}

	target := stub.PDFURL
	if target == "" || stub.NeedsMirror {
		if h.resolver == nil {
			stub.Skip = types.Skipf(types.SkipMirrorFailed, "no resolver configured for %s", stub.ID)
			h.metrics.RecordSkip(sess.Domain, stub.Skip.Kind)
			return finish(string(stub.Skip.Kind)), false
		}
		resolved, err := h.resolver.Resolve(ctx, stub.ID, dest)
		if err != nil {
			var skip *types.SkipReason
			if !errors.As(err, &skip) {
				skip = types.Skipf(types.SkipMirrorFailed, "%v", err)
			}
			stub.Skip = skip
			log.Warn().Err(err).Msg("no document location")
			h.metrics.RecordSkip(sess.Domain, skip.Kind)
			return finish(string(skip.Kind)), true
		}
		if resolved.Materialized {
			h.downloads.Record(dest)
			h.metrics.RecordDownload(sess.Domain, types.OutcomeSucceeded)
			entry.Path = dest
			log.Info().Str("via", resolved.Via).Str("path", dest).Msg("downloaded")
			return finish(types.OutcomeSucceeded.String()), true
		}
		target = resolved.URL
	}

	outcome, err := h.downloads.Download(ctx, target, dest)
	h.metrics.RecordDownload(sess.Domain, outcome)
	switch outcome {
	case types.OutcomeSucceeded, types.OutcomeSkippedDuplicate:
		entry.Path = dest
		log.Info().Str("path", dest).Msg("downloaded")
	default:
		if err == nil {
			err = errors.New(outcome.String())
		}
		entry.Path = "Error: " + err.Error()
		log.Warn().Err(err).Str("url", target).Str("outcome", outcome.String()).Msg("download did not produce a document")
	}
	return finish(outcome.String()), true
}

func tally(res *KeywordResult, entry audit.ResultEntry, stub *types.ArticleStub) {
	if stub.Skip != nil {
		res.Skipped++
		return
	}
	switch entry.Outcome {
	case types.OutcomeSucceeded.String():
		res.Downloaded++
	case types.OutcomeSkippedDuplicate.String():
		res.Duplicates++
	case types.OutcomeBlocked.String():
		res.Blocked++
	default:
		res.Failed++
	}
}

// sleep pauses for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
