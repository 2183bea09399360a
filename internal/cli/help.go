package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/law-makers/dealcrawl/internal/ui"
	"github.com/spf13/cobra"
)

// renderHelp prints colorized help. Usage output (full=false) leaves out the
// descriptions, examples and inherited flags.
func renderHelp(w io.Writer, cmd *cobra.Command, full bool) {
	section := func(title string) {
		fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorWhite, title, ui.ColorReset)
	}

	if full {
		fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorCyan, strings.ToUpper(cmd.Name()), ui.ColorReset)
		if cmd.Short != "" {
			fmt.Fprintln(w, cmd.Short)
		}
		if cmd.Long != "" && cmd.Long != cmd.Short {
			fmt.Fprintf(w, "\n%s\n", wrapText(cmd.Long, 80))
		}
	}

	section("Usage")
	if cmd.Runnable() {
		fmt.Fprintf(w, "  %s%s%s\n", ui.ColorCyan, cmd.UseLine(), ui.ColorReset)
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "  %s%s%s %s<command>%s %s[flags]%s\n",
			ui.ColorCyan, cmd.CommandPath(), ui.ColorReset,
			ui.ColorYellow, ui.ColorReset,
			ui.ColorDim, ui.ColorReset)
	}

	if full && cmd.HasExample() {
		section("Examples")
		for _, line := range strings.Split(cmd.Example, "\n") {
			trimmed := strings.TrimSpace(line)
			switch {
			case trimmed == "":
			case strings.HasPrefix(trimmed, "#"):
				fmt.Fprintf(w, "  %s%s%s\n", ui.ColorDim, trimmed, ui.ColorReset)
			default:
				fmt.Fprintf(w, "  %s$ %s%s\n", ui.ColorGreen, trimmed, ui.ColorReset)
			}
		}
	}

	if cmd.HasAvailableSubCommands() {
		section("Commands")
		var names []*cobra.Command
		width := 0
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() && c.Name() != "help" {
				names = append(names, c)
				width = max(width, len(c.Name()))
			}
		}
		for _, c := range names {
			fmt.Fprintf(w, "  %s%-*s%s  %s%s%s\n",
				ui.ColorCyan, width, c.Name(), ui.ColorReset,
				ui.ColorDim, c.Short, ui.ColorReset)
		}
	}

	if cmd.HasAvailableLocalFlags() {
		section("Flags")
		printFlags(w, cmd.LocalFlags().FlagUsages())
	}
	if full && cmd.HasAvailableInheritedFlags() {
		section("Global Flags")
		printFlags(w, cmd.InheritedFlags().FlagUsages())
	}

	fmt.Fprintf(w, "\n%sUse \"%s --help\" for more information.%s\n\n", ui.ColorDim, cmd.CommandPath(), ui.ColorReset)
}

// printFlags colors pflag's usage block: flag names green, descriptions dim
func printFlags(w io.Writer, usages string) {
	const minWidth = 28

	type row struct{ flag, desc string }
	var rows []row
	width := minWidth
	for _, line := range strings.Split(usages, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "-") {
			// Continuation of the previous description
			if n := len(rows); n > 0 {
				rows[n-1].desc += " " + trimmed
			}
			continue
		}
		flag, desc, _ := strings.Cut(trimmed, "  ")
		rows = append(rows, row{strings.TrimSpace(flag), strings.TrimSpace(desc)})
		width = max(width, len(strings.TrimSpace(flag)))
	}

	for _, r := range rows {
		fmt.Fprintf(w, "  %s%-*s%s  %s%s%s\n", ui.ColorGreen, width, r.flag, ui.ColorReset, ui.ColorDim, r.desc, ui.ColorReset)
	}
}

// wrapText wraps text at the specified width while preserving paragraphs
func wrapText(text string, width int) string {
	var paragraphs []string
	for _, para := range strings.Split(text, "\n\n") {
		var lines []string
		var current strings.Builder
		for _, word := range strings.Fields(para) {
			if current.Len() > 0 && current.Len()+1+len(word) > width {
				lines = append(lines, current.String())
				current.Reset()
			}
			if current.Len() > 0 {
				current.WriteByte(' ')
			}
			current.WriteString(word)
		}
		if current.Len() > 0 {
			lines = append(lines, current.String())
		}
		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
