package cli

import (
	"os"

	"github.com/law-makers/dealcrawl/internal/agent"
	"github.com/law-makers/dealcrawl/internal/config"
	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	crawlSites       []string
	crawlConcurrency int
	crawlOutput      string
	crawlImages      string
)

// crawlCmd runs one loop per configured site
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run the agent on every enabled site",
	Long: `Starts one agent loop per enabled site (or per --site). Loops for
different hosts run in parallel, each with its own browser; loops for the
same host run one after another.`,
	Example: `  # All enabled sites
  dealcrawl crawl

  # Two sites, at most two browsers at once, results as JSON
  dealcrawl crawl --site coupang --site amazon -c 2 -o runs.json`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringArrayVar(&crawlSites, "site", nil, "Site to include (repeatable); default is every enabled site")
	crawlCmd.Flags().IntVarP(&crawlConcurrency, "concurrency", "c", 0, "Browsers to run at once (0 = based on CPU and memory)")
	crawlCmd.Flags().StringVarP(&crawlOutput, "output", "o", "", "File to save results (.json reports or .csv products)")
	crawlCmd.Flags().StringVar(&crawlImages, "images", "", "Directory to save product images")
	crawlCmd.Flags().Int("max-actions", config.DefaultMaxActions, "Maximum actions per site")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)
	if a == nil {
		return engine.ConfigError("crawl", "application not initialized", nil)
	}

	jobs, err := a.Jobs(crawlSites...)
	if err != nil {
		return err
	}

	concurrency := crawlConcurrency
	if concurrency <= 0 {
		concurrency = a.Config.Loop.Concurrency
	}
	pool := agent.NewPool(a.RunJob, concurrency)

	silent := a.Config.Logging.JSON || a.Config.Logging.Level == "error"
	bar := newStepBar(os.Stderr, len(jobs), "sites", silent)

	var reports []*agent.Report
	failed := 0
	for res := range pool.Run(cmd.Context(), jobs) {
		_ = bar.Add(1)
		if res.Err != nil {
			failed++
			log.Error().Err(res.Err).Str("site", res.Job.Site).Msg("Run failed")
			continue
		}
		reports = append(reports, res.Report)
	}
	_ = bar.Finish()

	for _, r := range reports {
		printReport(os.Stdout, r)
	}
	if crawlImages != "" {
		saveImages(cmd.Context(), a, crawlImages, reports)
	}
	if crawlOutput != "" && len(reports) > 0 {
		if err := saveProducts(crawlOutput, reports); err != nil {
			return err
		}
	}
	if failed == len(jobs) {
		return engine.NewError(engine.KindUnknown, "crawl", "every run failed", nil)
	}
	return nil
}
