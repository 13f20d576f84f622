package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/harvest-engine/internal/acquire"
	"github.com/pdiddy/harvest-engine/internal/search"
	"github.com/pdiddy/harvest-engine/internal/secrets"
	"github.com/pdiddy/harvest-engine/pkg/types"
)

const (
	defaultTimeout        = 60 * time.Second
	defaultDelay          = 1 * time.Second
	defaultUserAgent      = "harvest-engine/0.1"
	defaultMaxResults     = 25000
	defaultMinHours       = 12
	defaultRetentionDays  = 60
	debugDelay            = 3 * time.Second
	debugMaxResults       = 2500
	defaultRequestsPerSec = 2
	defaultMaxRetries     = 5
)

var validate = validator.New()

func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Desktop")
}

func init() {
	viper.SetDefault("timeout", defaultTimeout)
	viper.SetDefault("user_agent", defaultUserAgent)
	viper.SetDefault("requests_per_second", defaultRequestsPerSec)
	viper.SetDefault("max_retries", defaultMaxRetries)
	viper.SetDefault("output_dir", defaultOutputDir())
	viper.SetDefault("download_delay", defaultDelay)
	viper.SetDefault("min_hours_between_runs", defaultMinHours)
	viper.SetDefault("retention_days", defaultRetentionDays)
	viper.SetDefault("max_results_per_keyword", defaultMaxResults)
	viper.SetDefault("max_pages", search.DefaultMaxPages)
	viper.SetDefault("only_one_copy_per_pdf", true)
	viper.SetDefault("block_threshold", acquire.DefaultBlockThreshold)
	viper.SetDefault("parallelism", 1)
	viper.SetDefault("mirror.request_field", "request")
}

// harvestConfig assembles the run configuration from flags, environment,
// and config file. The debug switch overrides the delay and the cap.
func harvestConfig() types.HarvestConfig {
	cfg := types.HarvestConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:           viper.GetDuration("timeout"),
			UserAgent:         viper.GetString("user_agent"),
			RequestsPerSecond: viper.GetFloat64("requests_per_second"),
			MaxRetries:        viper.GetInt("max_retries"),
		},
		SitesFile:            viper.GetString("sites_file"),
		KeywordsFile:         viper.GetString("keywords_file"),
		OutputDir:            viper.GetString("output_dir"),
		DatabasePath:         viper.GetString("database_path"),
		DownloadDelay:        viper.GetDuration("download_delay"),
		MinHoursBetweenRuns:  viper.GetInt("min_hours_between_runs"),
		RetentionDays:        viper.GetInt("retention_days"),
		MaxResultsPerKeyword: viper.GetInt("max_results_per_keyword"),
		MaxPages:             viper.GetInt("max_pages"),
		OnlyOneCopyPerPDF:    viper.GetBool("only_one_copy_per_pdf"),
		BlockThreshold:       viper.GetInt64("block_threshold"),
		IDList:               viper.GetBool("id_list"),
		Parallelism:          viper.GetInt("parallelism"),
		Mirror: types.MirrorConfig{
			URL:          viper.GetString("mirror.url"),
			RequestField: viper.GetString("mirror.request_field"),
			OpenAccess:   viper.GetBool("mirror.open_access"),
			OpenAlexURL:  viper.GetString("mirror.openalex_url"),
			Email:        viper.GetString("mirror.email"),
		},
	}
	if viper.GetBool("debug") {
		cfg.DownloadDelay = debugDelay
		cfg.MaxResultsPerKeyword = debugMaxResults
	}
	return cfg
}

// loadCatalog returns the built-in sources merged with the optional
// catalog file, with secrets applied.
func loadCatalog(cfg *types.HarvestConfig) (search.Catalog, error) {
	catalog := search.DefaultCatalog()
	if path := viper.GetString("sources_file"); path != "" {
		var err error
		catalog, err = search.LoadCatalog(path, catalog)
		if err != nil {
			return nil, err
		}
	}
	secrets.Apply(loadedSecrets, cfg, catalog)
	return catalog, nil
}

func validateConfig(cfg types.HarvestConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
