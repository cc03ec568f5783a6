package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-app-walkthrough/internal/backend"
	"github.com/deploymenttheory/go-app-walkthrough/internal/capture"
	"github.com/deploymenttheory/go-app-walkthrough/internal/config"
	"github.com/deploymenttheory/go-app-walkthrough/internal/executor"
	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/deploymenttheory/go-app-walkthrough/internal/store"
	"github.com/deploymenttheory/go-app-walkthrough/internal/synth"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
	"github.com/spf13/cobra"
)

var runFlags struct {
	docsOnly      bool
	sections      []string
	noScreenshots bool
}

// runCmd executes a walkthrough and stages its documentation
var runCmd = &cobra.Command{
	Use:   "run <workflow>",
	Short: "Run a wallet walkthrough and stage its documentation",
	Long: `Run launches the wallet application, performs every step of the workflow,
captures screenshots and renders the guide into the staging area.

The workflow argument is a path to a YAML file or a wallet directory name
under the configured workflows directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		return runWalkthrough(ctx, args[0])
	},
}

func init() {
	runCmd.Flags().BoolVar(&runFlags.docsOnly, "docs-only", false, "Regenerate documentation from recorded results without running the application")
	runCmd.Flags().StringSliceVar(&runFlags.sections, "sections", nil, "Only run these sections (comma separated keys)")
	runCmd.Flags().BoolVar(&runFlags.noScreenshots, "no-screenshots", false, "Perform the actions without capturing screenshots")
}

func runWalkthrough(ctx context.Context, id string) error {
	def, err := loadDefinition(id)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	slug := workflow.Slug(def.Wallet.Name)
	stagedRoot := treeRoot(slug, false)

	var runErr error
	if !runFlags.docsOnly {
		var err error
		runErr, err = execute(ctx, def, st, stagedRoot)
		if err != nil {
			return err
		}
		if runErr != nil && ctx.Err() != nil {
			return runErr
		}
	}

	// Synthesis and state updates proceed even when the run halted, so the
	// guide shows how far it got
	ctx = context.WithoutCancel(ctx)
	results, err := st.LatestResults(ctx, def.Wallet.Name)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("%w for %s", errors.ErrNoResults, def.Wallet.Name)
	}
	results = def.OrderResults(results)

	tree, err := synth.Render(def, results, synth.Options{
		ScreenshotMaxHeight: config.Instance.Documentation.ScreenshotMaxHeight,
	})
	if err != nil {
		return err
	}
	for _, w := range tree.Warnings {
		logger.LogWarn("Section rendered with warnings", map[string]interface{}{
			"section": w.Section,
			"step":    w.Step,
			"error":   w.Cause.Error(),
		})
	}
	if err := tree.Write(stagedRoot); err != nil {
		return err
	}

	pipeline, cleanup, err := newPipeline(ctx, st)
	if err != nil {
		return err
	}
	defer cleanup()
	if err := pipeline.MarkStaged(ctx, slug); err != nil {
		return err
	}

	logger.LogInfo("Documentation staged for review", map[string]interface{}{
		"wallet":   def.Wallet.Name,
		"path":     stagedRoot,
		"steps":    tree.Metadata.TotalSteps,
		"warnings": len(tree.Warnings),
	})
	return runErr
}

// execute runs the walkthrough and records whatever results it produced.
// runErr is the failure that halted the run; err means nothing ran or the
// results could not be recorded.
func execute(ctx context.Context, def *workflow.Definition, st *store.Store, stagedRoot string) (runErr, err error) {
	auto := executor.EffectiveAutomation(def, config.Instance.Automation)
	b, err := backend.New(def.Backend, auto)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.LogWarn("Backend did not close cleanly", map[string]interface{}{"error": err.Error()})
		}
	}()

	opts := executor.OptionsFrom(auto)
	opts.NoScreenshots = runFlags.noScreenshots
	ex := executor.New(b, capture.NewStore(stagedRoot), opts)

	run, runErr := ex.Run(ctx, def, runFlags.sections)
	if run == nil {
		return nil, runErr
	}
	if err := st.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		return runErr, err
	}

	logger.LogInfo("Run recorded", map[string]interface{}{
		"run_id":   run.ID,
		"sections": strings.Join(run.Sections, ","),
		"results":  len(run.Results),
		"failed":   run.Failed(),
	})
	return runErr, nil
}
