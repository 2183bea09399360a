package cli

import (
	"context"
	"os"
	"time"

	"github.com/law-makers/dealcrawl/internal/app"
	"github.com/law-makers/dealcrawl/internal/config"
	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dealcrawl",
	Short: "An autonomous browsing agent that collects product deals",
	Long: `Dealcrawl drives a real Chrome through shopping sites. At every step a
language model (or a rule table) looks at the page and picks the next action;
product pages found along the way are extracted and stored with their price
history.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with ctx. This is called by main.main().
// It returns the process exit code: 2 for configuration and input errors,
// 1 for everything else.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command failed")
		if engine.IsFatal(err) {
			return 2
		}
		return 1
	}
	return 0
}

func init() {
	// Lazily initialize the application before running commands (avoid starting app for -h/help)
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if GetApp(cmd) != nil || skipsApp(cmd) {
			return nil
		}

		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		SetApp(cmd, a)
		return nil
	}

	// Ensure app is closed after command runs
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		a := GetApp(cmd)
		if a == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		SetApp(cmd, nil)
		return a.Close(ctx)
	}

	config.RegisterFlags(rootCmd)

	// Customize help and version flag descriptions
	rootCmd.Flags().BoolP("help", "h", false, "Help for dealcrawl")
	rootCmd.Flags().Bool("version", false, "Version for dealcrawl")

	// Disable the default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(os.Stdout, cmd, true)
	})
	rootCmd.SetUsageFunc(func(cmd *cobra.Command) error {
		renderHelp(os.Stderr, cmd, false)
		return nil
	})
}
