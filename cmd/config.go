package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"pixelplay/config"
	"pixelplay/logger"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  "Commands for managing and validating pixelplay configuration.",
}

// configValidateCmd validates the current configuration
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Validate the current configuration file and environment variables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Setup basic logging for validation
		if err := logger.Setup("info", "text"); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if err := cfg.Validate(); err != nil {
			slog.Error("Configuration validation failed", slog.Any("error", err))
			return err
		}

		slog.Info("Configuration is valid")
		fmt.Fprintln(cmd.OutOrStdout(), "✅ Configuration is valid")
		return nil
	},
}

// configShowCmd shows the current configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current configuration values from file and environment variables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Setup("info", "text"); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		printConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

func printConfig(w io.Writer, cfg *config.Config) {
	maxSize := "unlimited"
	if cfg.Upstream.MaxSize > 0 {
		maxSize = humanize.IBytes(uint64(cfg.Upstream.MaxSize))
	}

	fmt.Fprintln(w, "Current Configuration:")
	fmt.Fprintf(w, "  Server:\n")
	fmt.Fprintf(w, "    Address: %s\n", cfg.Server.Addr)
	fmt.Fprintf(w, "    Read header timeout: %s\n", cfg.Server.ReadHeaderTimeout)
	fmt.Fprintf(w, "    Shutdown timeout: %s\n", cfg.Server.ShutdownTimeout)
	fmt.Fprintf(w, "  Upstream:\n")
	fmt.Fprintf(w, "    Base URL: %s\n", cfg.Upstream.BaseURL)
	fmt.Fprintf(w, "    Timeout: %s\n", cfg.Upstream.Timeout)
	fmt.Fprintf(w, "    Max size: %s\n", maxSize)
	fmt.Fprintf(w, "  Download:\n")
	fmt.Fprintf(w, "    Cache max age: %s\n", cfg.Download.CacheMaxAge)
	fmt.Fprintf(w, "  Monitor:\n")
	fmt.Fprintf(w, "    Interval: %s\n", cfg.Monitor.Interval)
	fmt.Fprintf(w, "  Alerts:\n")
	fmt.Fprintf(w, "    Discord webhook: %s\n", maskURL(cfg.Alerts.DiscordWebhookURL))
	fmt.Fprintf(w, "    Per minute: %d\n", cfg.Alerts.PerMinute)
	fmt.Fprintf(w, "  Logging:\n")
	fmt.Fprintf(w, "    Level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "    Format: %s\n", cfg.Logging.Format)
}

// maskURL keeps only the host of a webhook URL; the path carries the token.
func maskURL(raw string) string {
	if raw == "" {
		return "(disabled)"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Scheme + "://" + u.Host + "/***"
}
