package backend

import (
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"time"

	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

// Element is a located UI element
type Element interface {
	Click(ctx context.Context, clicks int) error
	SetText(ctx context.Context, text string) error
}

// ElementDriver talks to an accessibility or DevTools session.
// Find returns an error wrapping ErrElementNotFound when nothing matches.
type ElementDriver interface {
	Open(ctx context.Context, app App) error
	Find(ctx context.Context, selector string) (Element, error)
	Screenshot(ctx context.Context) (image.Image, error)
	Close() error
}

// ElementOptions configures an ElementBackend
type ElementOptions struct {
	// ImplicitWait bounds how long Find is retried
	ImplicitWait time.Duration

	// PollInterval is the delay between Find attempts
	PollInterval time.Duration

	// Sleep and Now are replaced in tests
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// ElementBackend drives the application through selectors
type ElementBackend struct {
	driver ElementDriver
	opts   ElementOptions
}

// NewElementBackend creates an element backend over driver
func NewElementBackend(driver ElementDriver, opts ElementOptions) *ElementBackend {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.Sleep == nil {
		opts.Sleep = SleepContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ElementBackend{driver: driver, opts: opts}
}

// Name returns the backend variant
func (b *ElementBackend) Name() workflow.BackendKind {
	return workflow.BackendElement
}

// Launch opens a driver session against the application
func (b *ElementBackend) Launch(ctx context.Context, app App) error {
	if err := b.driver.Open(ctx, app); err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrLaunch, app.Name, err)
	}
	return nil
}

// Perform locates the target element and interacts with it
func (b *ElementBackend) Perform(ctx context.Context, action Action) Outcome {
	if action.Target.Kind != workflow.LocatorSelector {
		return failed(action, errors.ErrSelectorRequired)
	}

	el, err := b.find(ctx, action.Target.Selector)
	if err != nil {
		return failed(action, err)
	}

	switch action.Kind {
	case workflow.ActionClick:
		clicks := action.Clicks
		if clicks < 1 {
			clicks = 1
		}
		err = el.Click(ctx, clicks)
	case workflow.ActionType:
		err = el.SetText(ctx, action.Value)
	default:
		err = fmt.Errorf("%w: %s is not an element interaction", errors.ErrInvalidArgument, action.Kind)
	}
	if err != nil {
		return failed(action, err)
	}
	return succeeded(action)
}

// find polls the driver until the selector matches or the implicit wait ends
func (b *ElementBackend) find(ctx context.Context, selector string) (Element, error) {
	deadline := b.opts.Now().Add(b.opts.ImplicitWait)
	attempts := 0

	for {
		attempts++
		el, err := b.driver.Find(ctx, selector)
		if err == nil {
			return el, nil
		}
		if !stderrors.Is(err, errors.ErrElementNotFound) {
			return nil, err
		}
		if !b.opts.Now().Before(deadline) {
			logger.LogDebug("Element lookup gave up", map[string]interface{}{
				"selector": selector,
				"attempts": attempts,
			})
			return nil, fmt.Errorf("%w: %q after %s", errors.ErrElementNotFound, selector, b.opts.ImplicitWait)
		}
		if err := b.opts.Sleep(ctx, b.opts.PollInterval); err != nil {
			return nil, err
		}
	}
}

// CaptureFrame grabs the current window. Element drivers report frames in
// canonical units so the scale is always 1.
func (b *ElementBackend) CaptureFrame(ctx context.Context) (Frame, error) {
	img, err := b.driver.Screenshot(ctx)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Image: img, Scale: 1}, nil
}

// Close ends the driver session
func (b *ElementBackend) Close() error {
	return b.driver.Close()
}

// SleepContext waits for d or until ctx is done
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
