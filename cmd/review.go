package cmd

import (
	"fmt"

	"github.com/deploymenttheory/go-app-walkthrough/internal/review"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
	"github.com/spf13/cobra"
)

var reviewFlags struct {
	approve    bool
	approveAll bool
	verbose    bool
	history    bool
	restore    string
}

// reviewCmd lists staged documentation or publishes it
var reviewCmd = &cobra.Command{
	Use:   "review [wallet]",
	Short: "List staged documentation or approve it for publication",
	Long: `Without flags, review lists the staged guides and how each file differs
from the published copy. --approve publishes one wallet, --approve-all
publishes every staged wallet. --history lists archived versions of a
published wallet and --restore republishes one of them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		var wallet string
		if len(args) == 1 {
			wallet = workflow.Slug(args[0])
		}
		if wallet == "" && (reviewFlags.approve || reviewFlags.history || reviewFlags.restore != "") {
			return fmt.Errorf("a wallet is required with --approve, --history and --restore")
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		pipeline, cleanup, err := newPipeline(ctx, st)
		if err != nil {
			return err
		}
		defer cleanup()

		out := cmd.OutOrStdout()
		switch {
		case reviewFlags.approveAll:
			approvals, err := pipeline.ApproveAll(ctx)
			for _, a := range approvals {
				printApproval(cmd, a)
			}
			return err

		case reviewFlags.approve:
			a, err := pipeline.Approve(ctx, wallet)
			if err != nil {
				return err
			}
			printApproval(cmd, a)
			return nil

		case reviewFlags.history:
			archives, err := pipeline.History(wallet)
			if err != nil {
				return err
			}
			if len(archives) == 0 {
				fmt.Fprintf(out, "No archived versions of %s.\n", wallet)
			}
			for _, a := range archives {
				fmt.Fprintln(out, a)
			}
			return nil

		case reviewFlags.restore != "":
			a, err := pipeline.Restore(ctx, wallet, reviewFlags.restore)
			if err != nil {
				return err
			}
			printApproval(cmd, a)
			return nil

		default:
			trees, err := pipeline.Review(ctx, wallet)
			if err != nil {
				return err
			}
			fmt.Fprint(out, review.Format(trees, reviewFlags.verbose))
			return nil
		}
	},
}

func init() {
	reviewCmd.Flags().BoolVar(&reviewFlags.approve, "approve", false, "Publish the staged documentation of the given wallet")
	reviewCmd.Flags().BoolVar(&reviewFlags.approveAll, "approve-all", false, "Publish every staged wallet")
	reviewCmd.Flags().BoolVarP(&reviewFlags.verbose, "verbose", "v", false, "Also list unchanged files")
	reviewCmd.Flags().BoolVar(&reviewFlags.history, "history", false, "List archived versions of the given wallet")
	reviewCmd.Flags().StringVar(&reviewFlags.restore, "restore", "", "Republish an archived version of the given wallet")
	reviewCmd.MarkFlagsMutuallyExclusive("approve", "approve-all", "history", "restore")
}

func printApproval(cmd *cobra.Command, a *review.Approval) {
	fmt.Fprintf(cmd.OutOrStdout(), "published %s (%d files)\n", a.Wallet, a.Files)
	if a.Archive != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  previous version archived to %s\n", a.Archive)
	}
	if a.MirrorErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "  mirror upload failed: %v\n", a.MirrorErr)
	}
}
