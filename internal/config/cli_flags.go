package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Write logs as JSON to stderr")
	cmd.PersistentFlags().String("config", "", "Path to configuration file (default ~/"+DefaultConfigFile+")")
	cmd.PersistentFlags().StringP("username", "u", "", "Portal username (or GUC_USERNAME)")
	cmd.PersistentFlags().String("base-url", "", "Portal base URL")
	cmd.PersistentFlags().String("proxy", "", "Set HTTP/SOCKS5 proxy (e.g., http://localhost:8080)")
	cmd.PersistentFlags().String("timeout", "", "Timeout for each page navigation or wait (e.g., 30s)")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().String("chrome-path", "", "Chrome/Chromium executable")
	cmd.PersistentFlags().Bool("headed", false, "Show the browser window")
	cmd.PersistentFlags().Int("parallel", 0, "Maximum years or courses fetched at once")
	cmd.PersistentFlags().Float64("rate", 0, "Maximum page navigations per second per host (0 disables the limit)")
}
