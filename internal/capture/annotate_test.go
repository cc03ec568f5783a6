package capture

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/deploymenttheory/go-app-walkthrough/internal/backend"
	apperrors "github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	return img
}

func TestAnnotateBoxAndHighlight(t *testing.T) {
	anns := []workflow.Annotation{
		{Kind: workflow.AnnotateBox, Region: &workflow.Rect{X: 10, Y: 10, Width: 30, Height: 20}, Color: "blue", Thickness: 2},
		{Kind: workflow.AnnotateHighlight, Region: &workflow.Rect{X: 60, Y: 60, Width: 20, Height: 20}},
	}
	out, err := Annotate(whiteImage(100, 100), anns, image.Point{}, 1, nil)
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	blue := color.RGBA{B: 255, A: 255}
	if got := out.RGBAAt(10, 10); got != blue {
		t.Errorf("box corner = %v, want blue", got)
	}
	if got := out.RGBAAt(39, 29); got != blue {
		t.Errorf("box far corner = %v, want blue", got)
	}
	if got := out.RGBAAt(25, 20); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("box interior should stay white, got %v", got)
	}

	tint := out.RGBAAt(70, 70)
	if tint.R != 255 || tint.G != 255 || tint.B == 255 || tint.B == 0 {
		t.Errorf("highlight should tint the region yellow, got %v", tint)
	}
	if got := out.RGBAAt(90, 90); got.B != 255 {
		t.Errorf("pixels outside the highlight changed: %v", got)
	}
}

func TestAnnotateBlurSmoothsRegion(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}

	anns := []workflow.Annotation{{Kind: workflow.AnnotateBlur, Region: &workflow.Rect{Width: 48, Height: 48}}}
	out, err := Annotate(img, anns, image.Point{}, 1, nil)
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	if got := out.RGBAAt(24, 24).R; got < 60 || got > 195 {
		t.Errorf("blurred checkerboard should average to grey, got %d", got)
	}
	if img.RGBAAt(24, 24).R != 255 {
		t.Errorf("Annotate must not modify its input")
	}
}

func TestAnnotateTextAndNumber(t *testing.T) {
	anchor := &workflow.Point{X: 60, Y: 60}
	anns := []workflow.Annotation{
		{Kind: workflow.AnnotateText, Position: &workflow.Point{X: 10, Y: 10}, Label: "Seed"},
		{Kind: workflow.AnnotateNumber, Label: "1"},
	}
	out, err := Annotate(whiteImage(100, 100), anns, image.Point{}, 1, anchor)
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	inked := 0
	for y := 10; y < 23; y++ {
		for x := 10; x < 38; x++ {
			if out.RGBAAt(x, y) == (color.RGBA{A: 255}) {
				inked++
			}
		}
	}
	if inked == 0 {
		t.Errorf("text label drew no black pixels")
	}

	// inside the disc, clear of both the label and the border
	if got := out.RGBAAt(60, 45); got != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("number badge should be filled blue at its anchor, got %v", got)
	}
}

func TestAnnotateArrowNeedsPosition(t *testing.T) {
	_, err := Annotate(whiteImage(10, 10), []workflow.Annotation{{Kind: workflow.AnnotateArrow}}, image.Point{}, 1, nil)
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for an arrow without a position, got %v", err)
	}

	out, err := Annotate(whiteImage(200, 200), []workflow.Annotation{{Kind: workflow.AnnotateArrow}}, image.Point{}, 1, &workflow.Point{X: 150, Y: 150})
	if err != nil {
		t.Fatalf("anchored arrow failed: %v", err)
	}
	if got := out.RGBAAt(100, 100); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("arrow shaft should cross (100,100) in red, got %v", got)
	}
}

func TestStoreSaveAnnotatesAfterCrop(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	frame := backend.Frame{Image: whiteImage(200, 200), Scale: 2}
	marks := Marks{Annotations: []workflow.Annotation{
		{Kind: workflow.AnnotateBox, Region: &workflow.Rect{X: 20, Y: 20, Width: 10, Height: 10}, Color: "green", Thickness: 1},
	}}

	rel, err := store.Save(Key{Section: "setup", Step: "Seed"}, frame, &workflow.Rect{X: 10, Y: 10, Width: 50, Height: 50}, marks)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}

	// canonical (20,20) is 10 units into the crop, 20 device pixels at scale 2
	green := color.RGBA{G: 255, A: 255}
	if got := color.RGBAModel.Convert(img.At(20, 20)); got != green {
		t.Errorf("box corner = %v, want green at (20,20)", got)
	}
	if got := color.RGBAModel.Convert(img.At(19, 19)); got == green {
		t.Errorf("box drawn outside its region")
	}
	if got := color.RGBAModel.Convert(img.At(39, 39)); got != green {
		t.Errorf("box far corner = %v, want green at (39,39)", got)
	}
}

func TestStoreSaveRejectsBadAnnotation(t *testing.T) {
	store := NewStore(t.TempDir())
	marks := Marks{Annotations: []workflow.Annotation{{Kind: workflow.AnnotateCircle}}}

	_, err := store.Save(Key{Section: "s", Step: "x"}, testFrame(10, 10, 1), nil, marks)
	var cerr *CaptureError
	if !errors.As(err, &cerr) || !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Errorf("expected a CaptureError wrapping ErrInvalidArgument, got %v", err)
	}
}
