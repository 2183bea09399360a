package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/law-makers/dealcrawl/internal/auth"
	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/law-makers/dealcrawl/internal/ui"
	"github.com/spf13/cobra"
)

var (
	importCookie  string
	importHeaders []string
	importTTL     time.Duration
)

// authCmd manages stored credentials. It does not need the application,
// so it works even when the configured oracle has no key yet.
var authCmd = &cobra.Command{
	Use:         "auth",
	Short:       "Manage the OpenAI key and site sessions",
	Annotations: map[string]string{skipAppAnnotation: "true"},
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key [key]",
	Short: "Store the OpenAI API key (reads stdin when no key is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			fmt.Fprint(os.Stderr, "OpenAI API key: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read key: %w", err)
			}
			key = line
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return engine.ValidationError("set-key", "empty key", nil)
		}

		vault, err := auth.NewVault()
		if err != nil {
			return err
		}
		if err := vault.Set(auth.OpenAIKey, key); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s Key stored in %s\n", ui.Success("✓"), vault.Backend())
		return nil
	},
}

var clearKeyCmd = &cobra.Command{
	Use:   "clear-key",
	Short: "Remove the stored OpenAI API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		vault, err := auth.NewVault()
		if err != nil {
			return err
		}
		if err := vault.Delete(auth.OpenAIKey); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s Key removed\n", ui.Success("✓"))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where credentials come from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		vault, err := auth.NewVault()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Storage:     %s\n", vault.Backend())

		switch key, err := vault.Get(auth.OpenAIKey); {
		case err == nil:
			fmt.Fprintf(os.Stdout, "Stored key:  %s\n", maskSecret(key))
		case errors.Is(err, auth.ErrNotFound):
			fmt.Fprintf(os.Stdout, "Stored key:  %s\n", ui.Info("none"))
		default:
			fmt.Fprintf(os.Stdout, "Stored key:  %s\n", ui.Error(err.Error()))
		}
		if env := os.Getenv("OPENAI_API_KEY"); env != "" {
			fmt.Fprintf(os.Stdout, "Env key:     %s (takes precedence)\n", maskSecret(env))
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <site>",
	Short: "Store cookies copied from a logged-in browser for a site",
	Example: `  # Copy the Cookie request header from your browser's DevTools
  dealcrawl auth import coupang --cookie "PCID=...; sid=..." --ttl 720h`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := auth.NewSiteSession(args[0], importCookie, importHeaders, importTTL)
		if len(sess.Cookies) == 0 && len(sess.Headers) == 0 {
			return engine.ValidationError("import", "no cookies or headers given", nil)
		}

		vault, err := auth.NewVault()
		if err != nil {
			return err
		}
		if err := vault.SaveSiteSession(sess); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s Session for %s stored (%d cookies)\n", ui.Success("✓"), args[0], len(sess.Cookies))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout <site>",
	Short: "Remove the stored session for a site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vault, err := auth.NewVault()
		if err != nil {
			return err
		}
		if err := vault.DeleteSiteSession(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s Session for %s removed\n", ui.Success("✓"), args[0])
		return nil
	},
}

// maskSecret keeps the first and last four characters
func maskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(setKeyCmd, clearKeyCmd, statusCmd, importCmd, logoutCmd)

	importCmd.Flags().StringVar(&importCookie, "cookie", "", "Cookie header value (\"name=value; name2=value2\")")
	importCmd.Flags().StringArrayVarP(&importHeaders, "header", "H", nil, "Extra header to send (e.g., -H \"Referer: https://...\")")
	importCmd.Flags().DurationVar(&importTTL, "ttl", 0, "How long the session stays valid (0 = no expiry)")
}
