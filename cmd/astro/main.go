package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/comigor/astro-go/internal/config"
	"github.com/comigor/astro-go/internal/logger"
)

var version = "dev"

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "astro",
	Short:         "ASTRO, the ISSDC mission assistant",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if err := os.Setenv("CONFIG_PATH", configPath); err != nil {
				return err
			}
		}
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		logger.SetLevel(cfg.Log.Level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")
	rootCmd.AddCommand(serveCmd, chatCmd, mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.L.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, "astro:", err)
		os.Exit(1)
	}
}
