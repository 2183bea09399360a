package cli

import (
	"context"
	"time"

	"github.com/law-makers/dealcrawl/internal/agent"
	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/law-makers/dealcrawl/internal/extract"
	"github.com/spf13/cobra"
)

// resolveJob picks the start URL from args or the named site
func resolveJob(sites map[string]extract.SiteConfig, args []string, site string) (agent.Job, error) {
	job := agent.Job{Site: site}
	if len(args) > 0 {
		job.Start = args[0]
	}

	if site != "" {
		sc, ok := sites[site]
		if !ok {
			return job, engine.ValidationError("run", "unknown site", nil).WithDetail("site", site)
		}
		if job.Start == "" {
			job.Start = sc.StartURL
		}
	}
	if job.Start == "" {
		return job, engine.ValidationError("run", "a start URL or --site is required", nil)
	}
	return job, nil
}

func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}
