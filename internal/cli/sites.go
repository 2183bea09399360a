package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/law-makers/dealcrawl/internal/extract"
	"github.com/law-makers/dealcrawl/internal/ui"
	"github.com/spf13/cobra"
)

// sitesCmd lists the configured sites
var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List configured sites and their extractors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp(cmd)
		if a == nil {
			return engine.ConfigError("sites", "application not initialized", nil)
		}

		for _, sc := range a.SiteConfigs {
			status := ui.Info("disabled")
			if sc.Enabled {
				status = ui.Success("enabled")
			}
			extractor := "generic"
			if len(sc.Hosts) > 0 {
				if _, ok := a.Sites.Select("https://" + sc.Hosts[0]).(*extract.CoupangExtractor); ok {
					extractor = "coupang"
				}
			}
			if sc.JavaScript != nil {
				extractor += " + " + sc.JavaScript.MainDataVariable
			}
			fmt.Fprintf(os.Stdout, "%s  %s\n", ui.Bold(sc.Name), status)
			fmt.Fprintf(os.Stdout, "  hosts:     %s\n", strings.Join(sc.Hosts, ", "))
			fmt.Fprintf(os.Stdout, "  start:     %s\n", sc.StartURL)
			fmt.Fprintf(os.Stdout, "  extractor: %s\n", extractor)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}
