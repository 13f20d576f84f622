package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/harvest-engine/internal/harvest"
	"github.com/pdiddy/harvest-engine/internal/httputil"
	"github.com/pdiddy/harvest-engine/internal/metrics"
	"github.com/pdiddy/harvest-engine/internal/search"
	"github.com/pdiddy/harvest-engine/internal/tracker"
	"github.com/pdiddy/harvest-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search every site for every keyword and download the results",
	Long: `Run reads the sites and keywords files, prunes old completion records,
and harvests each site. Keywords already completed for a site within
--min-hours are skipped. Each run writes into its own WebSearch_<stamp>
directory under --output-dir, with per-site PDF folders and CSV logs.

With --id-list every keyword is treated as an article identifier and fetched
directly, through the mirror when the source has no PDF template.`,
	RunE: runHarvest,
}

func init() {
	f := runCmd.Flags()
	f.StringP("sites", "w", "", "sites file (name and URL per entry)")
	f.StringP("keywords", "s", "", "keywords file (one term or identifier per line)")
	f.String("output-dir", "", "root directory for run output (default ~/Desktop)")
	f.Int("max-results", 0, "maximum results per keyword, -1 for unlimited (default 25000)")
	f.Duration("delay", 0, "pause after each download (default 1s)")
	f.Bool("id-list", false, "treat keywords as article identifiers")
	f.Int("parallel", 0, "number of sites harvested at once (default 1)")
	f.Int("min-hours", 0, "skip keywords completed within this many hours (default 12)")
	f.Int("retention-days", 0, "delete completion records older than this (default 60)")
	f.Bool("only-one-copy", true, "skip files whose name already exists anywhere under the output directory")
	f.Bool("debug", false, "use a 3s delay and a 2500 result cap")
	f.String("metrics-file", "", "write Prometheus textfile metrics here after the run")
	f.String("mirror-url", "", "mirror-resolution service for identifier-only results")
	f.Bool("open-access", false, "look up open-access copies on OpenAlex before the mirror")

	mustBind("sites_file", f.Lookup("sites"))
	mustBind("keywords_file", f.Lookup("keywords"))
	mustBind("output_dir", f.Lookup("output-dir"))
	mustBind("max_results_per_keyword", f.Lookup("max-results"))
	mustBind("download_delay", f.Lookup("delay"))
	mustBind("id_list", f.Lookup("id-list"))
	mustBind("parallelism", f.Lookup("parallel"))
	mustBind("min_hours_between_runs", f.Lookup("min-hours"))
	mustBind("retention_days", f.Lookup("retention-days"))
	mustBind("only_one_copy_per_pdf", f.Lookup("only-one-copy"))
	mustBind("debug", f.Lookup("debug"))
	mustBind("metrics_file", f.Lookup("metrics-file"))
	mustBind("mirror.url", f.Lookup("mirror-url"))
	mustBind("mirror.open_access", f.Lookup("open-access"))

	rootCmd.AddCommand(runCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg := harvestConfig()
	sites, keywords, err := readInputs(cfg, os.Stdin, os.Stderr)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(&cfg)
	if err != nil {
		return err
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	return harvestSites(cmd.Context(), cfg, catalog, sites, keywords)
}

// readInputs reads the sites and keywords files. Unset, missing, or empty
// input is reported and waits for the operator before returning.
func readInputs(cfg types.HarvestConfig, in io.Reader, out io.Writer) ([]types.Site, []string, error) {
	sites, err := harvest.ReadSites(cfg.SitesFile)
	if err == nil {
		var keywords []string
		keywords, err = harvest.ReadKeywords(cfg.KeywordsFile)
		if err == nil {
			return sites, keywords, nil
		}
	}
	if errors.Is(err, harvest.ErrNoInput) {
		harvest.AwaitOperator(in, out, err.Error())
	}
	return nil, nil, err
}

func harvestSites(ctx context.Context, cfg types.HarvestConfig, catalog search.Catalog, sites []types.Site, keywords []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	store, err := tracker.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.New()
	h, err := harvest.New(cfg, catalog, httputil.NewFetcher(cfg.HTTPConfig), store,
		harvest.WithLogger(logger),
		harvest.WithMetrics(m),
	)
	if err != nil {
		return err
	}
	defer h.Close()

	logger.Info().
		Int("sites", len(sites)).
		Int("keywords", len(keywords)).
		Str("dir", h.RunDir()).
		Msg("starting")

	summary := h.Run(ctx, sites, keywords)

	if err := m.WriteTextfile(viper.GetString("metrics_file")); err != nil {
		logger.Warn().Err(err).Msg("writing metrics file")
	}

	printSummary(summary)
	if n := summary.Count(harvest.StatusFailed); n > 0 {
		return fmt.Errorf("%d keyword(s) failed and will be retried next run", n)
	}
	return nil
}

func printSummary(s harvest.Summary) {
	var downloaded, duplicates, blocked, failed, skipped int
	for _, k := range s.Keywords {
		downloaded += k.Downloaded
		duplicates += k.Duplicates
		blocked += k.Blocked
		failed += k.Failed
		skipped += k.Skipped
	}
	fmt.Fprintf(os.Stdout, "Output: %s\n", s.RunDir)
	fmt.Fprintf(os.Stdout, "Keywords: %d completed, %d skipped as recent, %d failed\n",
		s.Count(harvest.StatusCompleted), s.Count(harvest.StatusGated), s.Count(harvest.StatusFailed))
	fmt.Fprintf(os.Stdout, "Articles: %d downloaded, %d already present, %d blocked, %d failed, %d skipped\n",
		downloaded, duplicates, blocked, failed, skipped)
}
