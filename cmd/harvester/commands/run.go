package commands

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/williampepple1/legis-harvester/internal/config"
	"github.com/williampepple1/legis-harvester/internal/harvest"
	"github.com/williampepple1/legis-harvester/pkg/models"
)

type runOptions struct {
	families    []string
	all         bool
	parallel    bool
	outputDir   string
	format      string
	workers     int
	keepPartial bool
	progress    bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run [--family <name>]... [--all]",
	Short: "Harvests the selected source families.",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyRunFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		names, err := selectFamilies(cfg, append(runOpts.families, args...), runOpts.all)
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return fmt.Errorf("setting up logging: %w", err)
		}
		defer logger.Sync()

		if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}

		logger.Info("harvest starting",
			zap.Strings("families", names),
			zap.Int("workers", cfg.Scraper.Workers),
			zap.String("format", cfg.Output.Format),
			zap.String("output_dir", cfg.Output.Dir),
		)

		runner := &harvest.Runner{
			Config:   cfg,
			Logger:   logger,
			Parallel: runOpts.parallel,
		}
		if runOpts.progress {
			runner.Progress = progressPrinter()
		}

		summaries := runner.Run(cmd.Context(), names)
		harvest.RenderSummaries(cmd.OutOrStdout(), summaries)

		failed := 0
		for _, s := range summaries {
			if !s.OK() {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d families did not complete", failed, len(summaries))
		}
		return nil
	},
}

func init() {
	flags := runCmd.Flags()
	flags.StringSliceVarP(&runOpts.families, "family", "f", nil, "Family to harvest (repeatable)")
	flags.BoolVar(&runOpts.all, "all", false, "Harvest every configured family")
	flags.BoolVar(&runOpts.parallel, "parallel", false, "Harvest families concurrently")
	flags.StringVarP(&runOpts.outputDir, "output-dir", "o", "", "Directory for output files")
	flags.StringVar(&runOpts.format, "format", "", "Output format: csv or sqlite")
	flags.IntVarP(&runOpts.workers, "workers", "w", 0, "Concurrent full-text fetches per batch")
	flags.BoolVar(&runOpts.keepPartial, "keep-partial", false, "Keep rows of spans that fail midway")
	flags.BoolVar(&runOpts.progress, "progress", false, "Print per-row progress to stderr")
	rootCmd.AddCommand(runCmd)
}

// applyRunFlags overrides the configuration with flags given on the command line
func applyRunFlags(cmd *cobra.Command, cfg *config.AppConfig) {
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.Output.Dir = runOpts.outputDir
	}
	if flags.Changed("format") {
		cfg.Output.Format = runOpts.format
	}
	if flags.Changed("workers") {
		cfg.Scraper.Workers = runOpts.workers
	}
	if flags.Changed("keep-partial") {
		cfg.Output.KeepPartial = runOpts.keepPartial
	}
}

// selectFamilies resolves the requested family names, keeping their order and
// dropping repeats
func selectFamilies(cfg *config.AppConfig, requested []string, all bool) ([]string, error) {
	if all {
		names := make([]string, 0, len(cfg.Families))
		for _, f := range cfg.Families {
			names = append(names, f.Name)
		}
		return names, nil
	}
	if len(requested) == 0 {
		return nil, fmt.Errorf("no family selected: pass --family <name> or --all")
	}

	seen := make(map[string]bool)
	var names []string
	for _, name := range requested {
		if _, ok := cfg.Family(name); !ok {
			return nil, fmt.Errorf("unknown family %q (see: harvester families)", name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}

func progressPrinter() harvest.ProgressFunc {
	var mu sync.Mutex
	return func(family config.FamilyConfig, span models.Span, written, total int) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(os.Stderr, "\rBaixando %s (%s): %d/%d", family.Label, span.Label, written, total)
		if written == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}
