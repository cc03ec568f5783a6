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

func testFrame(w, h int, scale float64) backend.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	return backend.Frame{Image: img, Scale: scale}
}

func TestKeyRelPath(t *testing.T) {
	k := Key{Workflow: "sparrow", Section: "Wallet Setup", Step: "Create/Import"}
	if got := k.RelPath(); got != "screenshots/wallet_setup_create_import.png" {
		t.Errorf("RelPath = %s", got)
	}
}

func TestCropScalesRect(t *testing.T) {
	frame := testFrame(100, 80, 2)

	img, err := Crop(frame, &workflow.Rect{X: 5, Y: 10, Width: 20, Height: 15})
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("expected 40x30 crop, got %v", img.Bounds())
	}
	// Top left of the crop is pixel (10, 20) of the frame
	r, g, _, _ := img.At(0, 0).RGBA()
	if r>>8 != 10 || g>>8 != 20 {
		t.Errorf("crop origin pixel = (%d, %d), want (10, 20)", r>>8, g>>8)
	}
}

func TestCropClampsAndRejectsOutside(t *testing.T) {
	frame := testFrame(50, 50, 1)

	img, err := Crop(frame, &workflow.Rect{X: 40, Y: 40, Width: 30, Height: 30})
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 10 {
		t.Errorf("expected crop clamped to 10x10, got %v", img.Bounds())
	}

	if _, err := Crop(frame, &workflow.Rect{X: 60, Y: 60, Width: 10, Height: 10}); err == nil {
		t.Errorf("expected error for crop outside the frame")
	}
}

func TestCropNilIsFullFrame(t *testing.T) {
	frame := testFrame(12, 8, 2)
	img, err := Crop(frame, nil)
	if err != nil || img != frame.Image {
		t.Errorf("expected the frame image unchanged, got %v, %v", img, err)
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	key := Key{Workflow: "sparrow", Section: "setup", Step: "Launch"}

	rel, err := store.Save(key, testFrame(30, 20, 1), nil, Marks{})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if rel != "screenshots/setup_launch.png" {
		t.Errorf("unexpected relative path %s", rel)
	}

	if _, err := store.Save(key, testFrame(30, 20, 1), &workflow.Rect{X: 0, Y: 0, Width: 5, Height: 4}, Marks{}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	f, err := os.Open(filepath.Join(root, "screenshots", "setup_launch.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 5 {
		t.Errorf("expected the second image to replace the first, got %v", img.Bounds())
	}

	entries, _ := os.ReadDir(filepath.Join(root, "screenshots"))
	if len(entries) != 1 {
		t.Errorf("expected a single file, found %d", len(entries))
	}
}

func TestStoreSaveCaptureError(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Save(Key{Section: "s", Step: "x"}, testFrame(10, 10, 1), &workflow.Rect{X: 100, Y: 100, Width: 1, Height: 1}, Marks{})

	var cerr *CaptureError
	if !errors.As(err, &cerr) || !errors.Is(err, apperrors.ErrCapture) {
		t.Errorf("expected *CaptureError wrapping ErrCapture, got %v", err)
	}
}
