package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pixelplay/app"
	"pixelplay/config"
	"pixelplay/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pixelplay",
	Short: "An embeddable audio player for files hosted on pixeldrain",
	Long: `Pixelplay serves a minimal audio player page that third-party sites can
embed in an iframe, plus a download proxy that relays the upstream file with a
clean attachment filename.

The page streams audio directly from the file host; only downloads pass
through this server.`,
	RunE: runServer,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("upstream", "https://pixeldrain.com", "upstream file host base URL")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	// Local flags for the server command
	rootCmd.Flags().StringP("addr", "a", ":8080", "HTTP listen address")
	rootCmd.Flags().Int64("max-size", 0, "largest file the download proxy relays, in bytes (0 disables)")
	rootCmd.Flags().Duration("monitor-interval", time.Minute, "upstream reachability check period (0 disables)")
	rootCmd.Flags().String("discord-webhook", "", "Discord webhook URL for upstream alerts")

	// Bind flags to viper
	viper.BindPFlag("upstream.base_url", rootCmd.PersistentFlags().Lookup("upstream"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("server.addr", rootCmd.Flags().Lookup("addr"))
	viper.BindPFlag("upstream.max_size", rootCmd.Flags().Lookup("max-size"))
	viper.BindPFlag("monitor.interval", rootCmd.Flags().Lookup("monitor-interval"))
	viper.BindPFlag("alerts.discord_webhook_url", rootCmd.Flags().Lookup("discord-webhook"))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if verbose {
		viper.Set("logging.level", "debug")
	}
}

// loadConfig loads, validates and applies logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	return cfg, nil
}

// runServer starts the HTTP service
func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	if err := a.Start(); err != nil {
		return fmt.Errorf("failed to start app: %w", err)
	}

	// Setup graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or error
	select {
	case sig := <-signalChan:
		fmt.Printf("\nReceived %s, shutting down gracefully...\n", sig)
	case err := <-a.Error():
		fmt.Printf("Error occurred: %v\n", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop gracefully: %w", err)
	}

	return nil
}
