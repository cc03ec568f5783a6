package cmd

import (
	"fmt"

	"github.com/deploymenttheory/go-app-walkthrough/internal/config"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/osutil"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
	"github.com/spf13/cobra"
)

var newFlags struct {
	version   string
	platform  string
	appPath   string
	backend   string
	sourceURL string
	force     bool
}

// newCmd scaffolds a workflow for a new wallet
var newCmd = &cobra.Command{
	Use:   "new <wallet name>",
	Short: "Create a starter workflow for a new wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := workflow.WriteScaffold(config.Instance.Paths.WorkflowsDir, workflow.ScaffoldOptions{
			Name:      args[0],
			Version:   newFlags.version,
			Platform:  newFlags.platform,
			AppPath:   newFlags.appPath,
			Backend:   workflow.BackendKind(newFlags.backend),
			SourceURL: newFlags.sourceURL,
		}, newFlags.force)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
		return nil
	},
}

func init() {
	newCmd.Flags().StringVar(&newFlags.version, "version", "", "Wallet version")
	newCmd.Flags().StringVar(&newFlags.platform, "platform", osutil.PlatformKey(), "Platform key: macos, linux or windows")
	newCmd.Flags().StringVar(&newFlags.appPath, "app-path", "", "Application path (defaults to a platform guess)")
	newCmd.Flags().StringVar(&newFlags.backend, "backend", string(workflow.BackendPointer), "Automation backend: pointer or element")
	newCmd.Flags().StringVar(&newFlags.sourceURL, "source-url", "", "Source repository URL")
	newCmd.Flags().BoolVar(&newFlags.force, "force", false, "Overwrite an existing workflow")
}
