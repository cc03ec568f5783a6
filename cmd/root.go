package cmd

import (
	"fmt"

	"github.com/deploymenttheory/go-app-walkthrough/internal/config"
	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base CLI command
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Drive desktop wallets through declarative walkthroughs and document them",
	Long: `go-app-walkthrough replays a wallet walkthrough described in YAML against
the running application, captures a screenshot per documented step, and
renders Markdown user guides from the results.

Generated guides land in a staging area and are published only after review.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// If config file was explicitly specified via flag, reload it
		if cmd.Flags().Changed("config") && cfgFile != "" {
			if err := config.Reload(cfgFile); err != nil {
				return fmt.Errorf("error loading config file %s: %w", cfgFile, err)
			}
		}

		// Pick up flag values bound to configuration keys
		if err := config.Refresh(); err != nil {
			return err
		}

		if cmd.Flags().Changed("debug") || cmd.Flags().Changed("log-format") || cmd.Flags().Changed("config") {
			return logger.InitLogger(logger.LoggerConfig{
				Debug:     config.Instance.Debug,
				LogFormat: config.Instance.LogFormat,
				LogFile:   config.Instance.LogFile,
			})
		}
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logger.LogError("Command execution failed", err, nil)
		return err
	}
	return nil
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is search in standard locations)")

	// Debug flag
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	// Log format flag
	rootCmd.PersistentFlags().String("log-format", "human", "Log format: json or human")

	// Bind flags to configuration keys
	config.BindFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	config.BindFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(runCmd, reviewCmd, indexCmd, newCmd, previewCmd, exportCmd, versionCmd)
}
