package cmd

import (
	"fmt"

	"github.com/deploymenttheory/go-app-walkthrough/internal/export"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
	"github.com/spf13/cobra"
)

var exportFlags struct {
	published bool
	output    string
}

// exportCmd writes a wallet's screenshots into a PDF
var exportCmd = &cobra.Command{
	Use:   "export <wallet>",
	Short: "Export a wallet's screenshots as a PDF, one per page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := workflow.Slug(args[0])
		out := exportFlags.output
		if out == "" {
			out = slug + "-screenshots.pdf"
		}

		pages, err := export.ScreenshotBook(treeRoot(slug, exportFlags.published), out)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d pages)\n", out, pages)
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportFlags.published, "published", false, "Export the published tree instead of staging")
	exportCmd.Flags().StringVarP(&exportFlags.output, "output", "o", "", "Output PDF path")
}
