package cli

import (
	"fmt"
	"os"

	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/law-makers/dealcrawl/internal/ui"
	"github.com/spf13/cobra"
)

// historyCmd prints the stored price history of a product
var historyCmd = &cobra.Command{
	Use:     "history <product-url>",
	Short:   "Show the recorded price history of a product",
	Example: `  dealcrawl history https://www.coupang.com/vp/products/123`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp(cmd)
		if a == nil {
			return engine.ConfigError("history", "application not initialized", nil)
		}
		st, err := a.EnsureStore()
		if err != nil {
			return err
		}
		if st == nil {
			return engine.ConfigError("history", "the record store is disabled", nil)
		}

		product, err := st.Product(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		points, err := st.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "%s\n", ui.Bold(product.Name))
		if len(points) == 0 {
			fmt.Fprintln(os.Stdout, ui.Info("no price points recorded"))
			return nil
		}
		var prev float64
		for i, p := range points {
			change := ""
			if i > 0 && p.Price != prev {
				if p.Price < prev {
					change = ui.Success(fmt.Sprintf(" ▼ %.0f", prev-p.Price))
				} else {
					change = ui.Error(fmt.Sprintf(" ▲ %.0f", p.Price-prev))
				}
			}
			fmt.Fprintf(os.Stdout, "  %s  %10.0f%s\n", p.RecordedAt.Format("2006-01-02 15:04"), p.Price, change)
			prev = p.Price
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
