// Package executor runs a workflow's steps against a backend, one at a time,
// stopping at the first step whose target cannot be resolved or whose action
// fails.
package executor

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/deploymenttheory/go-app-walkthrough/internal/backend"
	"github.com/deploymenttheory/go-app-walkthrough/internal/capture"
	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/deploymenttheory/go-app-walkthrough/internal/resolver"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/osutil"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
	"github.com/google/uuid"
)

// DefaultWait is the length of a wait step without a value, in seconds
const DefaultWait = 1.0

// Options holds run timing and test hooks
type Options struct {
	StartupWait     time.Duration
	ScreenshotDelay time.Duration
	WaitBefore      time.Duration
	WaitAfter       time.Duration

	// NoScreenshots runs the actions without capturing anything
	NoScreenshots bool

	// Platform selects the application path; defaults to the host platform
	Platform string

	Sleep    func(ctx context.Context, d time.Duration) error
	Now      func() time.Time
	NewRunID func() string
}

// Run is the record of one execution
type Run struct {
	ID         string
	Wallet     string
	Sections   []string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []workflow.StepResult
}

// Failed reports whether any step failed
func (r *Run) Failed() bool {
	for _, res := range r.Results {
		if !res.Succeeded() {
			return true
		}
	}
	return false
}

// Executor drives one backend and writes images to one capture store
type Executor struct {
	backend backend.Backend
	store   *capture.Store
	opts    Options
}

// New creates an executor
func New(b backend.Backend, store *capture.Store, opts Options) *Executor {
	if opts.Sleep == nil {
		opts.Sleep = backend.SleepContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = newRunID
	}
	if opts.Platform == "" {
		opts.Platform = osutil.PlatformKey()
	}
	return &Executor{backend: b, store: store, opts: opts}
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Run launches the application once and executes the steps of the given
// sections in definition order. Empty keys run every section. On a halting
// failure the results recorded so far are returned with the error.
func (e *Executor) Run(ctx context.Context, def *workflow.Definition, keys []string) (*Run, error) {
	sections, err := def.FilterSections(keys)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:        e.opts.NewRunID(),
		Wallet:    def.Wallet.Name,
		StartedAt: e.opts.Now(),
	}
	for _, s := range sections {
		run.Sections = append(run.Sections, s.Key)
	}
	defer func() { run.FinishedAt = e.opts.Now() }()

	total := 0
	for _, s := range sections {
		total += len(s.Steps)
	}

	logger.LogInfo("Starting walkthrough", map[string]interface{}{
		"wallet":   def.Wallet.Name,
		"run_id":   run.ID,
		"backend":  string(e.backend.Name()),
		"sections": len(sections),
		"steps":    total,
	})

	if err := e.launch(ctx, def); err != nil {
		return run, err
	}

	n := 0
	for _, section := range sections {
		for i, step := range section.Steps {
			n++
			if err := ctx.Err(); err != nil {
				logger.LogWarn("Run cancelled", map[string]interface{}{"completed_steps": n - 1})
				return run, err
			}

			logger.LogInfo(fmt.Sprintf("Executing step %d/%d: %s", n, total, step.Name), map[string]interface{}{
				"section": section.Key,
				"action":  step.Action.String(),
			})

			result, err := e.runStep(ctx, def, section, step)
			result.RunID = run.ID
			result.Position = i + 1
			if result.Status != "" {
				run.Results = append(run.Results, result)
			}
			if err != nil {
				logger.LogError("Step failed, stopping run", err, map[string]interface{}{
					"section": section.Key,
					"step":    step.Name,
				})
				return run, err
			}
		}
	}

	logger.LogInfo("Walkthrough complete", map[string]interface{}{
		"wallet": def.Wallet.Name,
		"run_id": run.ID,
		"steps":  len(run.Results),
	})
	return run, nil
}

func (e *Executor) launch(ctx context.Context, def *workflow.Definition) error {
	app := backend.App{
		Name:     def.Wallet.Name,
		Path:     def.AppPath(e.opts.Platform),
		BundleID: def.Wallet.BundleID,
		Platform: e.opts.Platform,
	}
	if app.Path == "" {
		logger.LogWarn("No application path declared for platform", map[string]interface{}{
			"platform": e.opts.Platform,
		})
	}

	logger.LogInfo("Launching application", map[string]interface{}{
		"app":  app.Name,
		"path": app.Path,
	})
	if err := e.backend.Launch(context.WithoutCancel(ctx), app); err != nil {
		return err
	}
	return e.opts.Sleep(ctx, e.opts.StartupWait)
}

// runStep executes one step. A returned error halts the run; the result is
// still recorded when its Status is set.
func (e *Executor) runStep(ctx context.Context, def *workflow.Definition, section *workflow.Section, step *workflow.Step) (workflow.StepResult, error) {
	result := workflow.StepResult{
		Section: section.Key,
		Step:    step.Name,
		Action:  step.Action,
	}
	scope := resolver.Scope{Step: step, Section: section, Global: def}

	target, err := resolver.ResolveTarget(step.Target, scope)
	if err != nil {
		return e.fail(result, workflow.FailureResolution, err, step.Target.String()), err
	}

	wantImage := step.Captures() && !e.opts.NoScreenshots
	var crop *workflow.Rect
	if wantImage {
		if crop, err = resolver.ResolveCrop(scope); err != nil {
			return e.fail(result, workflow.FailureResolution, err, step.CropRegion.String()), err
		}
	}

	if err := e.opts.Sleep(ctx, e.wait(step.WaitBefore, e.opts.WaitBefore)); err != nil {
		return result, err
	}

	// In-flight backend calls finish even if the run is cancelled
	bctx := context.WithoutCancel(ctx)

	switch step.Action {
	case workflow.ActionLaunch:
		// launched at run start
	case workflow.ActionWait:
		if err := e.opts.Sleep(ctx, waitValue(step.Value)); err != nil {
			return result, err
		}
	case workflow.ActionClick, workflow.ActionType:
		out := e.backend.Perform(bctx, backend.Action{
			Kind:   step.Action,
			Target: target,
			Value:  step.Value,
			Clicks: step.Clicks,
		})
		if !out.OK {
			err := out.Err()
			return e.fail(result, workflow.FailureBackend, err, out.Target), err
		}
	case workflow.ActionScreenshot:
		// capture only
	default:
		err := fmt.Errorf("%w: %d", errors.ErrUnknownAction, step.Action)
		return e.fail(result, workflow.FailureBackend, err, ""), err
	}

	result.Status = workflow.StatusSucceeded
	if wantImage {
		marks := capture.Marks{Annotations: step.Annotations}
		if target.Kind == workflow.LocatorPoint {
			marks.Anchor = &target.Point
		}
		rel, err := e.capture(ctx, bctx, capture.Key{Workflow: def.Wallet.Name, Section: section.Key, Step: step.Name}, crop, marks)
		if err != nil {
			var cerr *capture.CaptureError
			if !stderrors.As(err, &cerr) {
				// cancelled during the screenshot delay
				return result, err
			}
			logger.LogWarn("Screenshot not saved", map[string]interface{}{
				"step":  step.Name,
				"error": err.Error(),
			})
			result = e.fail(result, workflow.FailureCapture, err, "")
		} else {
			result.ImagePath = rel
		}
	}

	if err := e.opts.Sleep(ctx, e.wait(step.WaitAfter, e.opts.WaitAfter)); err != nil {
		result.Timestamp = e.opts.Now()
		return result, err
	}

	result.Timestamp = e.opts.Now()
	return result, nil
}

func (e *Executor) capture(ctx, bctx context.Context, key capture.Key, crop *workflow.Rect, marks capture.Marks) (string, error) {
	if err := e.opts.Sleep(ctx, e.opts.ScreenshotDelay); err != nil {
		return "", err
	}
	frame, err := e.backend.CaptureFrame(bctx)
	if err != nil {
		return "", &capture.CaptureError{Key: key, Cause: err}
	}
	return e.store.Save(key, frame, crop, marks)
}

func (e *Executor) fail(result workflow.StepResult, kind workflow.FailureKind, err error, target string) workflow.StepResult {
	result.Status = workflow.StatusFailed
	result.ImagePath = ""
	result.Timestamp = e.opts.Now()
	result.Failure = &workflow.Failure{
		Kind:    kind,
		Message: err.Error(),
		Action:  result.Action.String(),
		Target:  target,
	}
	return result
}

func (e *Executor) wait(override *float64, def time.Duration) time.Duration {
	if override != nil {
		return seconds(*override)
	}
	return def
}

func waitValue(v string) time.Duration {
	if v == "" {
		return seconds(DefaultWait)
	}
	s, err := strconv.ParseFloat(v, 64)
	if err != nil || s < 0 {
		return seconds(DefaultWait)
	}
	return seconds(s)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
