package backend

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

// InputDriver performs raw input at device coordinates
type InputDriver interface {
	Launch(ctx context.Context, app App) error
	Click(ctx context.Context, p workflow.Point, clicks int) error
	Type(ctx context.Context, text string) error
	Screenshot(ctx context.Context) (image.Image, error)
}

// PointerOptions configures a PointerBackend
type PointerOptions struct {
	// InputScale maps canonical coordinates to input device coordinates
	InputScale float64

	// FrameScale maps canonical coordinates to captured frame pixels
	FrameScale float64
}

// PointerBackend drives the application with absolute coordinates.
// Targets are canonical points; scaling happens once in toDevice.
type PointerBackend struct {
	driver InputDriver
	opts   PointerOptions
}

// NewPointerBackend creates a pointer backend over driver
func NewPointerBackend(driver InputDriver, opts PointerOptions) *PointerBackend {
	if opts.InputScale <= 0 {
		opts.InputScale = 1
	}
	if opts.FrameScale <= 0 {
		opts.FrameScale = 1
	}
	return &PointerBackend{driver: driver, opts: opts}
}

// Name returns the backend variant
func (b *PointerBackend) Name() workflow.BackendKind {
	return workflow.BackendPointer
}

// Launch starts the application
func (b *PointerBackend) Launch(ctx context.Context, app App) error {
	if err := b.driver.Launch(ctx, app); err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrLaunch, app.Name, err)
	}
	return nil
}

// Perform executes a click or type at the target point
func (b *PointerBackend) Perform(ctx context.Context, action Action) Outcome {
	if action.Target.Kind != workflow.LocatorPoint {
		return failed(action, errors.ErrPointRequired)
	}
	device := b.toDevice(action.Target.Point)

	logger.LogDebug("Pointer action", map[string]interface{}{
		"action":    action.Kind.String(),
		"canonical": action.Target.Point.String(),
		"device":    device.String(),
	})

	switch action.Kind {
	case workflow.ActionClick:
		clicks := action.Clicks
		if clicks < 1 {
			clicks = 1
		}
		if err := b.driver.Click(ctx, device, clicks); err != nil {
			return failed(action, err)
		}
	case workflow.ActionType:
		// Focus the field before typing
		if err := b.driver.Click(ctx, device, 1); err != nil {
			return failed(action, err)
		}
		if err := b.driver.Type(ctx, action.Value); err != nil {
			return failed(action, err)
		}
	default:
		return failed(action, fmt.Errorf("%w: %s is not a pointer interaction", errors.ErrInvalidArgument, action.Kind))
	}
	return succeeded(action)
}

// CaptureFrame grabs the screen and tags it with the frame scale
func (b *PointerBackend) CaptureFrame(ctx context.Context) (Frame, error) {
	img, err := b.driver.Screenshot(ctx)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Image: img, Scale: b.opts.FrameScale}, nil
}

// Close is a no-op; pointer drivers hold no session
func (b *PointerBackend) Close() error {
	return nil
}

func (b *PointerBackend) toDevice(p workflow.Point) workflow.Point {
	return workflow.Point{
		X: int(math.Round(float64(p.X) * b.opts.InputScale)),
		Y: int(math.Round(float64(p.Y) * b.opts.InputScale)),
	}
}
