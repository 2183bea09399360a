package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/law-makers/dealcrawl/internal/agent"
	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/law-makers/dealcrawl/internal/extract"
	"github.com/law-makers/dealcrawl/pkg/models"
	"github.com/spf13/cobra"
)

func TestResolveJob(t *testing.T) {
	sites := map[string]extract.SiteConfig{
		"coupang": {Name: "coupang", StartURL: "https://www.coupang.com"},
	}

	job, err := resolveJob(sites, nil, "coupang")
	if err != nil || job.Start != "https://www.coupang.com" {
		t.Fatalf("expected site start URL, got %+v, %v", job, err)
	}

	job, err = resolveJob(sites, []string{"https://www.coupang.com/np/search?q=tv"}, "coupang")
	if err != nil || !strings.Contains(job.Start, "q=tv") {
		t.Fatalf("explicit URL should win, got %+v, %v", job, err)
	}

	if _, err := resolveJob(sites, nil, "nope"); engine.KindOf(err) != engine.KindValidation {
		t.Errorf("expected validation error for unknown site, got %v", err)
	}
	if _, err := resolveJob(sites, nil, ""); engine.KindOf(err) != engine.KindValidation {
		t.Errorf("expected validation error without URL, got %v", err)
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret("sk-abcdefgh1234"); got != "sk-a*******1234" {
		t.Errorf("unexpected mask %q", got)
	}
	if got := maskSecret("short"); got != "*****" {
		t.Errorf("unexpected mask %q", got)
	}
}

func TestStepDescription(t *testing.T) {
	s := agent.Step{Decision: models.Decision{ActionKind: "scroll"}, Action: "scroll down 500"}
	if got := stepDescription(s); got != "scroll" {
		t.Errorf("unexpected description %q", got)
	}
	s.Err = engine.BrowserError("scroll", "failed", nil)
	if got := stepDescription(s); got != "scroll (failed)" {
		t.Errorf("unexpected description %q", got)
	}
}

func TestPrintReport(t *testing.T) {
	price := 12900.0
	r := &agent.Report{
		RunID:        "run-1",
		StartAddress: "https://www.coupang.com",
		Reason:       agent.ReasonMaxActions,
		Actions:      3,
		Products:     []*models.Product{{Name: "Mouse", CurrentPrice: &price}},
	}
	var buf bytes.Buffer
	printReport(&buf, r)
	out := buf.String()
	for _, want := range []string{"run-1", "max_actions", "Mouse", "12900"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestSkipsApp(t *testing.T) {
	if !skipsApp(importCmd) {
		t.Error("auth subcommands should skip app initialization")
	}
	if skipsApp(runCmd) {
		t.Error("run needs the application")
	}
}

func TestRenderHelp(t *testing.T) {
	var buf bytes.Buffer
	renderHelp(&buf, runCmd, true)
	out := buf.String()
	for _, want := range []string{"RUN", "Examples", "--max-actions"} {
		if !strings.Contains(out, want) {
			t.Errorf("help missing %q", want)
		}
	}
}

func TestGetAppWithoutContext(t *testing.T) {
	if GetApp(&cobra.Command{}) != nil {
		t.Error("expected nil app")
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	if got != "one two\nthree\nfour" {
		t.Errorf("unexpected wrap %q", got)
	}
}
