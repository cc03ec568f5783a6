package cmd

import (
	"fmt"

	"github.com/deploymenttheory/go-app-walkthrough/internal/config"
	"github.com/deploymenttheory/go-app-walkthrough/internal/synth"
	"github.com/spf13/cobra"
)

// indexCmd regenerates the cross-wallet index
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Regenerate the index of published wallet guides",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := synth.WriteIndex(config.Instance.Paths.OutputDir, config.Instance.Documentation.IndexTitle)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d wallet guide(s)\n", len(entries))
		return nil
	},
}
