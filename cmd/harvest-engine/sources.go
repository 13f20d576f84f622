package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Print the source catalog as YAML",
	Long: `Sources prints the built-in sources merged with --sources, in the same
format the catalog file accepts. Redirect the output to a file to start a
custom catalog.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := harvestConfig()
		catalog, err := loadCatalog(&cfg)
		if err != nil {
			return err
		}

		out := struct {
			Sources []types.SourceConfig `yaml:"sources"`
		}{}
		for _, d := range catalog.Domains() {
			src := catalog[d]
			if src.Structured != nil && src.Structured.APIKey != "" {
				redacted := *src.Structured
				redacted.APIKey = "<redacted>"
				src.Structured = &redacted
			}
			out.Sources = append(out.Sources, src)
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
