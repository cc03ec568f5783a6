package backend

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"
	"time"

	apperrors "github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

type fakeElement struct {
	clicks int
	text   string
}

func (e *fakeElement) Click(ctx context.Context, clicks int) error {
	e.clicks += clicks
	return nil
}

func (e *fakeElement) SetText(ctx context.Context, text string) error {
	e.text = text
	return nil
}

type fakeElementDriver struct {
	missBefore int
	calls      int
	findErr    error
	el         *fakeElement
}

func (d *fakeElementDriver) Open(ctx context.Context, app App) error { return nil }

func (d *fakeElementDriver) Find(ctx context.Context, selector string) (Element, error) {
	d.calls++
	if d.findErr != nil {
		return nil, d.findErr
	}
	if d.calls <= d.missBefore {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrElementNotFound, selector)
	}
	return d.el, nil
}

func (d *fakeElementDriver) Screenshot(ctx context.Context) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func (d *fakeElementDriver) Close() error { return nil }

// fakeClock advances only when the backend sleeps
type fakeClock struct {
	now   time.Time
	slept time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	c.slept += d
	return nil
}

func newTestElementBackend(driver ElementDriver, wait time.Duration) (*ElementBackend, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewElementBackend(driver, ElementOptions{
		ImplicitWait: wait,
		PollInterval: time.Second,
		Sleep:        clock.Sleep,
		Now:          clock.Now,
	})
	return b, clock
}

func TestElementPollsUntilFound(t *testing.T) {
	el := &fakeElement{}
	driver := &fakeElementDriver{missBefore: 3, el: el}
	b, clock := newTestElementBackend(driver, 10*time.Second)

	out := b.Perform(context.Background(), Action{
		Kind:   workflow.ActionClick,
		Target: workflow.SelectorLocator("Create New Wallet"),
		Clicks: 1,
	})
	if !out.OK {
		t.Fatalf("click failed: %v", out.Err())
	}
	if driver.calls != 4 || el.clicks != 1 {
		t.Errorf("expected 4 lookups and one click, got %d lookups, %d clicks", driver.calls, el.clicks)
	}
	if clock.slept != 3*time.Second {
		t.Errorf("expected 3s of polling, got %s", clock.slept)
	}
}

func TestElementGivesUpAfterImplicitWait(t *testing.T) {
	driver := &fakeElementDriver{missBefore: 1000}
	b, clock := newTestElementBackend(driver, 5*time.Second)

	out := b.Perform(context.Background(), Action{
		Kind:   workflow.ActionClick,
		Target: workflow.SelectorLocator("Missing"),
	})
	if out.OK {
		t.Fatalf("expected lookup to fail")
	}
	if !errors.Is(out.Err(), apperrors.ErrElementNotFound) {
		t.Errorf("expected ErrElementNotFound, got %v", out.Err())
	}
	if clock.slept != 5*time.Second {
		t.Errorf("polling must stop at the implicit wait, slept %s", clock.slept)
	}
}

func TestElementDriverErrorIsNotRetried(t *testing.T) {
	driver := &fakeElementDriver{findErr: apperrors.ErrSessionNotOpen}
	b, _ := newTestElementBackend(driver, 5*time.Second)

	out := b.Perform(context.Background(), Action{
		Kind:   workflow.ActionType,
		Target: workflow.SelectorLocator("Name"),
		Value:  "x",
	})
	if !errors.Is(out.Err(), apperrors.ErrSessionNotOpen) || driver.calls != 1 {
		t.Errorf("expected a single failed lookup, got %d calls, %v", driver.calls, out.Err())
	}
}

func TestElementTypeAndRejectPoint(t *testing.T) {
	el := &fakeElement{}
	b, _ := newTestElementBackend(&fakeElementDriver{el: el}, 0)

	out := b.Perform(context.Background(), Action{
		Kind:   workflow.ActionType,
		Target: workflow.SelectorLocator("Wallet name"),
		Value:  "Savings",
	})
	if !out.OK || el.text != "Savings" {
		t.Errorf("expected text to be set, got %q, %v", el.text, out.Err())
	}

	out = b.Perform(context.Background(), Action{
		Kind:   workflow.ActionClick,
		Target: workflow.PointLocator(workflow.Point{X: 1, Y: 2}),
	})
	if !errors.Is(out.Err(), apperrors.ErrSelectorRequired) {
		t.Errorf("expected ErrSelectorRequired, got %v", out.Err())
	}
}

func TestElementFrameScaleIsOne(t *testing.T) {
	b, _ := newTestElementBackend(&fakeElementDriver{}, 0)
	frame, err := b.CaptureFrame(context.Background())
	if err != nil || frame.Scale != 1 {
		t.Errorf("unexpected frame %+v, %v", frame, err)
	}
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
