package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"courtstats/internal/analysis"
	"courtstats/internal/catalog"
	"courtstats/internal/cli"
	"courtstats/internal/config"
)

var Version = "dev"

type rootOptions struct {
	catalogFile string
	timezone    string
}

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "courtctl",
		Short:         "Analyse badminton order exports from the command line",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.catalogFile, "catalog", cfg.CatalogFile, "venue catalog YAML (built-in when empty)")
	rootCmd.PersistentFlags().StringVar(&opts.timezone, "tz", cfg.Timezone, "zone for timestamps without an offset")

	rootCmd.AddCommand(analyzeCmd(opts))
	rootCmd.AddCommand(classifyCmd(opts))
	rootCmd.AddCommand(catalogCmd(opts))
	rootCmd.AddCommand(sourcesCmd(cfg))

	return rootCmd
}

func (o *rootOptions) loadCatalog() (catalog.Catalog, error) {
	return catalog.Load(o.catalogFile)
}

func (o *rootOptions) newAnalyzer(includeOrders bool) (*analysis.Analyzer, error) {
	cat, err := o.loadCatalog()
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", o.timezone, err)
	}
	return analysis.New(cat, analysis.WithLocation(loc), analysis.WithOrders(includeOrders)), nil
}
