// Package main provides the careers_agent command: the HTTP API over the
// applicant drafts engine plus offline tools for application files.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/careers-portal/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "careers_agent",
	Short: "Careers portal applicant drafts service",
	Long:  "careers_agent stages applicant education and work history edits as drafts and saves them to the records backend in one batch.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file (optional)")
}

// loadConfig reads the optional config file, applies environment overrides
// and fills the remaining fields from the defaults.
func loadConfig() (config.Config, error) {
	cfg := config.Config{}
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
