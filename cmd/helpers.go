package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/deploymenttheory/go-app-walkthrough/internal/config"
	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/deploymenttheory/go-app-walkthrough/internal/review"
	"github.com/deploymenttheory/go-app-walkthrough/internal/store"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadDefinition resolves, loads and validates a workflow
func loadDefinition(id string) (*workflow.Definition, error) {
	path, err := workflow.ResolvePath(config.Instance.Paths.WorkflowsDir, id)
	if err != nil {
		return nil, err
	}

	def, err := workflow.LoadWorkflow(path)
	if err != nil {
		return nil, err
	}

	if errs := workflow.ValidateWorkflow(def); len(errs) > 0 {
		for _, err := range errs {
			logger.LogError("Workflow validation error", err, map[string]interface{}{"file": path})
		}
		return nil, fmt.Errorf("workflow validation failed with %d errors", len(errs))
	}

	logger.LogDebug("Loaded workflow", map[string]interface{}{
		"file":     path,
		"wallet":   def.Wallet.Name,
		"sections": len(def.Sections),
		"steps":    def.StepCount(),
	})
	return def, nil
}

func openStore() (*store.Store, error) {
	return store.Open(config.Instance.Paths.StateDB)
}

// newPipeline wires the review pipeline from configuration. The returned
// cleanup releases the mirror client, if any.
func newPipeline(ctx context.Context, st *store.Store) (*review.Pipeline, func(), error) {
	cfg := config.Instance
	opts := review.Options{
		StagingDir:    cfg.Paths.StagingDir,
		OutputDir:     cfg.Paths.OutputDir,
		HistoryDir:    cfg.Paths.HistoryDir,
		ArchiveFormat: cfg.Review.ArchiveFormat,
		KeepHistory:   cfg.Review.KeepHistory,
		IndexTitle:    cfg.Documentation.IndexTitle,
	}

	cleanup := func() {}
	mirror, err := review.MirrorFromConfig(ctx, cfg.Storage)
	if err != nil {
		return nil, cleanup, err
	}
	if mirror != nil {
		opts.Mirror = mirror
		cleanup = func() { mirror.Close() }
	}
	return review.New(st, opts), cleanup, nil
}

// treeRoot locates a wallet tree in staging or in the published output
func treeRoot(slug string, published bool) string {
	if published {
		return filepath.Join(config.Instance.Paths.OutputDir, slug)
	}
	return filepath.Join(config.Instance.Paths.StagingDir, slug)
}
