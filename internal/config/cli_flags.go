package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Write logs as JSON")
	cmd.PersistentFlags().String("config", "", "Path to configuration file (optional)")
	cmd.PersistentFlags().Bool("headless", DefaultHeadless, "Run Chrome without a window")
	cmd.PersistentFlags().String("proxy", "", "Comma-separated HTTP/SOCKS5 proxies to rotate")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().String("oracle", "", "Decision backend: auto, openai or rules")
	cmd.PersistentFlags().String("model", "", "Model name for the openai backend")
	cmd.PersistentFlags().String("database", "", "Database URL (sqlite path or mysql DSN)")
	cmd.PersistentFlags().Bool("no-store", false, "Do not persist extracted records")
	cmd.PersistentFlags().String("sites", "", "Path to a site definitions YAML file")
}
