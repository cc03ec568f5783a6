package backend

import (
	"context"
	"errors"
	"image"
	"testing"

	apperrors "github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

type fakeInput struct {
	clicks   []workflow.Point
	counts   []int
	typed    []string
	launched []App
	clickErr error
	frame    image.Image
}

func (f *fakeInput) Launch(ctx context.Context, app App) error {
	f.launched = append(f.launched, app)
	return nil
}

func (f *fakeInput) Click(ctx context.Context, p workflow.Point, clicks int) error {
	if f.clickErr != nil {
		return f.clickErr
	}
	f.clicks = append(f.clicks, p)
	f.counts = append(f.counts, clicks)
	return nil
}

func (f *fakeInput) Type(ctx context.Context, text string) error {
	f.typed = append(f.typed, text)
	return nil
}

func (f *fakeInput) Screenshot(ctx context.Context) (image.Image, error) {
	return f.frame, nil
}

func TestPointerScalesOnce(t *testing.T) {
	driver := &fakeInput{}
	b := NewPointerBackend(driver, PointerOptions{InputScale: 0.5, FrameScale: 2})

	out := b.Perform(context.Background(), Action{
		Kind:   workflow.ActionClick,
		Target: workflow.PointLocator(workflow.Point{X: 400, Y: 300}),
		Clicks: 2,
	})
	if !out.OK {
		t.Fatalf("click failed: %v", out.Err())
	}
	if len(driver.clicks) != 1 || driver.clicks[0] != (workflow.Point{X: 200, Y: 150}) {
		t.Errorf("expected one click at device (200, 150), got %v", driver.clicks)
	}
	if driver.counts[0] != 2 {
		t.Errorf("expected double click, got %d", driver.counts[0])
	}
}

func TestPointerTypeFocusesTarget(t *testing.T) {
	driver := &fakeInput{}
	b := NewPointerBackend(driver, PointerOptions{})

	out := b.Perform(context.Background(), Action{
		Kind:   workflow.ActionType,
		Target: workflow.PointLocator(workflow.Point{X: 10, Y: 20}),
		Value:  "Savings",
	})
	if !out.OK {
		t.Fatalf("type failed: %v", out.Err())
	}
	if len(driver.clicks) != 1 || driver.clicks[0] != (workflow.Point{X: 10, Y: 20}) {
		t.Errorf("expected focus click at target, got %v", driver.clicks)
	}
	if len(driver.typed) != 1 || driver.typed[0] != "Savings" {
		t.Errorf("unexpected typed text %v", driver.typed)
	}
}

func TestPointerRejectsSelector(t *testing.T) {
	driver := &fakeInput{}
	b := NewPointerBackend(driver, PointerOptions{})

	out := b.Perform(context.Background(), Action{
		Kind:   workflow.ActionClick,
		Target: workflow.SelectorLocator("OK"),
	})
	if out.OK {
		t.Fatalf("expected selector target to be rejected")
	}
	err := out.Err()
	if !errors.Is(err, apperrors.ErrBackend) || !errors.Is(err, apperrors.ErrPointRequired) {
		t.Errorf("expected ErrBackend wrapping ErrPointRequired, got %v", err)
	}
	if len(driver.clicks) != 0 {
		t.Errorf("driver must not be called for a rejected target")
	}
}

func TestPointerDriverFailureIsOutcome(t *testing.T) {
	driver := &fakeInput{clickErr: errors.New("cliclick: not permitted")}
	b := NewPointerBackend(driver, PointerOptions{})

	out := b.Perform(context.Background(), Action{
		Kind:   workflow.ActionClick,
		Target: workflow.PointLocator(workflow.Point{X: 1, Y: 1}),
	})
	var berr *BackendError
	if !errors.As(out.Err(), &berr) {
		t.Fatalf("expected *BackendError, got %v", out.Err())
	}
	if berr.Action != workflow.ActionClick || berr.Target != "(1,1)" {
		t.Errorf("unexpected error detail %+v", berr)
	}
}

func TestPointerFrameCarriesScale(t *testing.T) {
	driver := &fakeInput{frame: image.NewRGBA(image.Rect(0, 0, 20, 10))}
	b := NewPointerBackend(driver, PointerOptions{FrameScale: 2})

	frame, err := b.CaptureFrame(context.Background())
	if err != nil {
		t.Fatalf("CaptureFrame failed: %v", err)
	}
	if frame.Scale != 2 || frame.Image.Bounds().Dx() != 20 {
		t.Errorf("unexpected frame %+v", frame)
	}
}
