package cmd

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-follow/config"
	"github.com/RyanBlaney/sonido-follow/logging"
)

var (
	configPath string
	logLevel   string

	// cfg is loaded before any subcommand runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sonido-follow",
	Short: "Real-time score following for guitar practice",
	Long: `sonido-follow listens to a guitar, aligns what it hears to a score and
judges every note as a hit or a miss.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides the config)")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func loadConfig() error {
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	if logLevel != "" {
		if _, err := logging.ParseLevel(logLevel); err != nil {
			return err
		}
		cfg.Logging.Level = logLevel
	}
	return cfg.ApplyLogging()
}
