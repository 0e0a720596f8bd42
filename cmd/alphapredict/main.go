// AlphaPredict: stock dashboard with AI-generated outlooks.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seenimoa/alphapredict/internal/config"
	"github.com/seenimoa/alphapredict/internal/logger"
	"github.com/seenimoa/alphapredict/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by PersistentPreRunE.
var (
	cfg *config.Config
	log *zap.Logger
)

func main() {
	err := rootCmd.Execute()
	if log != nil {
		_ = log.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "alphapredict",
	Short: "AlphaPredict: stock dashboard with AI insights",
	Long: `AlphaPredict looks up a ticker, charts today's intraday prices,
shows a few descriptive fields, and asks an LLM for a short outlook.

In subscription mode users log in and their tier selects the model.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		log, err = logger.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(entitlementCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("AlphaPredict %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := loadResolver(cfg)
		if err != nil {
			return err
		}

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  AlphaPredict: System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		fmt.Printf("  Time (ET):     %s\n", utils.FormatDateTimeEastern(utils.NowEastern()))
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Mode:          %s\n", cfg.App.Mode)
		if cfg.Subscription() {
			fmt.Printf("    Auth:          %s\n", cfg.Auth.Provider)
			fmt.Printf("    Tiers:         %v\n", resolver.Tiers())
		} else {
			c := cfg.LLM.Community
			fmt.Printf("    Model:         %s/%s\n", c.Provider, c.Model)
		}
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		var credentialKeys []string
		if cfg.Subscription() {
			credentialKeys = resolver.CredentialKeys()
		}
		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg, config.NewSecrets(), credentialKeys) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-32s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
