package commands

import (
	"os"

	"github.com/spf13/cobra"

	"hotseat/internal/config"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "hotseat",
	Short: "Live mock interviews in the terminal",
	Long: `hotseat runs a spoken mock interview against Gemini Live.

Configuration is read from the environment (GEMINI_API_KEY, HOTSEAT_*),
an optional .env file, and an optional YAML file passed with --config.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(interviewCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(verifyCmd)
}

// loadConfig applies the persistent flags on top of config.Load.
func loadConfig() (config.Config, error) {
	if configFile != "" {
		if err := os.Setenv("HOTSEAT_CONFIG", configFile); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}
