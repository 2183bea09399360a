package cli

import (
	"fmt"
	"os"

	"github.com/law-makers/dealcrawl/internal/agent"
	"github.com/law-makers/dealcrawl/internal/config"
	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	runSite   string
	runOutput string
	runImages string
)

// runCmd drives one agent loop
var runCmd = &cobra.Command{
	Use:   "run [url]",
	Short: "Run the browsing agent from a start URL",
	Long: `Opens the start URL in Chrome and lets the decision backend pick one
action at a time until the action budget is spent, too many steps fail in a
row, or the run is interrupted.

Without a URL, the start URL of --site is used.`,
	Example: `  # Browse Coupang from the home page
  dealcrawl run https://www.coupang.com

  # Use a configured site and save the products as CSV
  dealcrawl run --site coupang -o deals.csv

  # Offline decisions, short run
  dealcrawl run https://www.coupang.com --oracle rules --max-actions 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runSite, "site", "", "Configured site to run (name from `dealcrawl sites`)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "File to save results (.json report or .csv products)")
	runCmd.Flags().StringVar(&runImages, "images", "", "Directory to save product images")
	runCmd.Flags().Int("max-actions", config.DefaultMaxActions, "Maximum actions before stopping")
	runCmd.Flags().Int("failure-threshold", config.DefaultFailureThreshold, "Consecutive failures before stopping")
	runCmd.Flags().String("timeout", config.DefaultRunTimeout.String(), "Hard limit for the whole run")
}

func runRun(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)
	if a == nil {
		return engine.ConfigError("run", "application not initialized", nil)
	}

	job, err := resolveJob(a.SiteConfigsByName(), args, runSite)
	if err != nil {
		return err
	}
	if job.Site == "" {
		job.Site = a.Sites.Select(job.Start).Name()
	}

	o, err := a.NewOrchestrator(job.Site)
	if err != nil {
		return err
	}
	defer func() {
		if err := o.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing browser")
		}
	}()

	silent := a.Config.Logging.JSON || a.Config.Logging.Level == "error"
	bar := newStepBar(os.Stderr, a.Config.Loop.MaxActions, job.Site, silent)
	o.OnStep = func(s agent.Step) {
		bar.Describe(fmt.Sprintf("%s: %s", job.Site, stepDescription(s)))
		_ = bar.Add(1)
	}

	ctx, cancel := contextWithTimeout(cmd, a.Config.Loop.Timeout)
	defer cancel()

	log.Info().Str("site", job.Site).Str("url", job.Start).Msg("Starting run")
	report, err := o.Run(ctx, job.Start)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	printReport(os.Stdout, report)
	if runImages != "" {
		saveImages(cmd.Context(), a, runImages, []*agent.Report{report})
	}
	if runOutput != "" {
		return saveProducts(runOutput, []*agent.Report{report})
	}
	return nil
}
