// Package backend drives the application under documentation. A Backend is
// either pointer based (absolute coordinates) or element based (accessibility
// selectors); the variant is chosen once per run and never mixed.
package backend

import (
	"context"
	"fmt"
	"image"

	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

// App identifies the application a backend launches
type App struct {
	Name     string
	Path     string
	BundleID string
	Platform string
}

// Action is one resolved interaction handed to Perform
type Action struct {
	Kind   workflow.ActionKind
	Target workflow.Locator
	Value  string
	Clicks int
}

// Outcome reports the result of Perform. Failure is a value so the executor
// can record it on the step before deciding to halt.
type Outcome struct {
	OK     bool
	Action workflow.ActionKind
	Target string
	Cause  error
}

// Err returns nil for a successful outcome, otherwise a *BackendError
func (o Outcome) Err() error {
	if o.OK {
		return nil
	}
	return &BackendError{Action: o.Action, Target: o.Target, Cause: o.Cause}
}

func succeeded(a Action) Outcome {
	return Outcome{OK: true, Action: a.Kind, Target: a.Target.String()}
}

func failed(a Action, cause error) Outcome {
	return Outcome{Action: a.Kind, Target: a.Target.String(), Cause: cause}
}

// BackendError is a rejected or failed interaction
type BackendError struct {
	Action workflow.ActionKind
	Target string
	Cause  error
}

func (e *BackendError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %s: %v", errors.ErrBackend, e.Action, e.Cause)
	}
	return fmt.Sprintf("%s: %s %s: %v", errors.ErrBackend, e.Action, e.Target, e.Cause)
}

// Unwrap exposes both the ErrBackend sentinel and the driver cause
func (e *BackendError) Unwrap() []error {
	if e.Cause == nil {
		return []error{errors.ErrBackend}
	}
	return []error{errors.ErrBackend, e.Cause}
}

// Frame is a captured screen image. Scale maps canonical units to pixels.
type Frame struct {
	Image image.Image
	Scale float64
}

// Backend is the automation capability used by the executor
type Backend interface {
	// Name returns the backend variant
	Name() workflow.BackendKind

	// Launch starts the application and prepares the session
	Launch(ctx context.Context, app App) error

	// Perform executes a click or type interaction
	Perform(ctx context.Context, action Action) Outcome

	// CaptureFrame grabs the current screen
	CaptureFrame(ctx context.Context) (Frame, error)

	// Close releases the session
	Close() error
}
