// Package main is the entry point for the harvest-engine CLI.
package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/harvest-engine/internal/logging"
	"github.com/pdiddy/harvest-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds credentials loaded from .secrets/ at startup.
	loadedSecrets map[string]string

	logger = zerolog.Nop()
)

// rootCmd is the base command for the harvest-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "harvest-engine",
	Short: "Harvest full-text articles from literature sources",
	Long: `harvest-engine searches literature sources (PubMed, arXiv, bioRxiv,
medRxiv, or any source described in a catalog file) for each keyword, and
downloads every result's PDF with rate limiting, duplicate detection, and
CSV audit logs. Finished (site, keyword) pairs are remembered so repeated
runs inside the completion window do no work.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.New(viper.GetString("log_level"), viper.GetString("log_format"), os.Stderr)
		if f := viper.ConfigFileUsed(); f != "" {
			logger.Info().Str("file", f).Msg("using config file")
		}

		s, err := secrets.Load(viper.GetString("secrets_dir"), logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./harvest-engine.yaml or ~/.config/harvest-engine/config.yaml)")
	pf.String("db", "database.sqlite", "completion history database")
	pf.String("sources", "", "YAML source catalog merged over the built-in sources")
	pf.String("secrets-dir", ".secrets", "directory of credential files")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console or json)")

	mustBind("database_path", pf.Lookup("db"))
	mustBind("sources_file", pf.Lookup("sources"))
	mustBind("secrets_dir", pf.Lookup("secrets-dir"))
	mustBind("log_level", pf.Lookup("log-level"))
	mustBind("log_format", pf.Lookup("log-format"))
}

func initConfig() {
	// A .env file may carry HARVEST_ENGINE_* settings.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("harvest-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "harvest-engine"))
		}
	}

	viper.SetEnvPrefix("HARVEST_ENGINE")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
