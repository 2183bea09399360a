package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/law-makers/dealcrawl/internal/agent"
	"github.com/law-makers/dealcrawl/internal/app"
	"github.com/law-makers/dealcrawl/internal/ui"
	"github.com/law-makers/dealcrawl/internal/utils/output"
	"github.com/law-makers/dealcrawl/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// newStepBar shows loop progress on stderr. Quiet and JSON modes get a
// silent bar so logs stay machine-readable.
func newStepBar(w io.Writer, max int, desc string, silent bool) *progressbar.ProgressBar {
	if silent {
		w = io.Discard
	}
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

// stepDescription labels the bar after a step
func stepDescription(s agent.Step) string {
	if s.Err != nil {
		return fmt.Sprintf("%s (failed)", s.Decision.ActionKind)
	}
	if s.Decision.ActionKind == "" {
		return s.Action
	}
	return s.Decision.ActionKind
}

// saveProducts writes products as CSV, or the reports as JSON for any
// other extension
func saveProducts(path string, reports []*agent.Report) error {
	var products []*models.Product
	for _, r := range reports {
		products = append(products, r.Products...)
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		err = output.SaveProductsCSV(products, path)
	default:
		if len(reports) == 1 {
			err = output.SaveJSON(reports[0], path)
		} else {
			err = output.SaveJSON(reports, path)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info().Str("file", path).Int("products", len(products)).Msg("Output saved")
	return nil
}

// saveImages downloads product images and logs a summary
func saveImages(ctx context.Context, a *app.Application, dir string, reports []*agent.Report) {
	var products []*models.Product
	for _, r := range reports {
		products = append(products, r.Products...)
	}
	saved := 0
	for _, res := range a.DownloadImages(ctx, dir, products) {
		if res.Error != nil {
			log.Warn().Err(res.Error).Str("url", res.URL).Msg("Image download failed")
			continue
		}
		saved++
	}
	log.Info().Int("saved", saved).Str("dir", dir).Msg("Images saved")
}

// printReport writes a short summary of one run
func printReport(w io.Writer, r *agent.Report) {
	snap := r.Snapshot
	fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorCyan, r.StartAddress, ui.ColorReset)
	fmt.Fprintf(w, "  Run:          %s\n", r.RunID)
	fmt.Fprintf(w, "  Stopped:      %s\n", r.Reason)
	fmt.Fprintf(w, "  Actions:      %d (%d ok, %d failed, %.0f%% success)\n",
		r.Actions, snap.SuccessfulRequests, snap.FailedRequests, snap.SuccessRate()*100)
	fmt.Fprintf(w, "  Duration:     %s\n", r.Duration.Round(time.Millisecond))
	if len(snap.ErrorsByKind) > 0 {
		var parts []string
		for k, n := range snap.ErrorsByKind {
			parts = append(parts, fmt.Sprintf("%s=%d", k, n))
		}
		fmt.Fprintf(w, "  Errors:       %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintf(w, "  Products:     %d\n", len(r.Products))
	for _, p := range r.Products {
		price := "-"
		if p.CurrentPrice != nil {
			price = fmt.Sprintf("%.0f", *p.CurrentPrice)
		}
		fmt.Fprintf(w, "    %s %s %s%s%s\n", ui.Success("•"), p.Name, ui.ColorDim, price, ui.ColorReset)
	}
}
