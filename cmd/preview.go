package cmd

import (
	"fmt"

	"github.com/deploymenttheory/go-app-walkthrough/internal/config"
	"github.com/deploymenttheory/go-app-walkthrough/internal/preview"
	"github.com/spf13/cobra"
)

var previewPublished bool

// previewCmd serves documentation trees locally
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Serve staged (or published) guides over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		root := config.Instance.Paths.StagingDir
		title := "Staged guides"
		if previewPublished {
			root = config.Instance.Paths.OutputDir
			title = config.Instance.Documentation.IndexTitle
		}

		addr := config.Instance.Preview.Listen
		fmt.Fprintf(cmd.OutOrStdout(), "serving %s on http://%s/\n", root, addr)
		return preview.New(root, title).Serve(ctx, addr)
	},
}

func init() {
	previewCmd.Flags().BoolVar(&previewPublished, "published", false, "Serve the published trees instead of staging")
	previewCmd.Flags().String("listen", "127.0.0.1:8089", "Listen address")
	config.BindFlag("preview.listen", previewCmd.Flags().Lookup("listen"))
}
