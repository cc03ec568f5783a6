// Package capture persists screenshots under deterministic paths. It never
// talks to the backend; the executor hands it frames.
package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"path"
	"path/filepath"

	"github.com/deploymenttheory/go-app-walkthrough/internal/backend"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/fsutil"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

// ScreenshotsDir is the image directory relative to a wallet tree root
const ScreenshotsDir = "screenshots"

// Key identifies the image of one step
type Key struct {
	Workflow string
	Section  string
	Step     string
}

// FileName returns <section>_<step>.png with both names sanitised
func (k Key) FileName() string {
	return workflow.SanitizeName(k.Section) + "_" + workflow.SanitizeName(k.Step) + ".png"
}

// RelPath returns the slash separated path relative to the wallet tree root
func (k Key) RelPath() string {
	return path.Join(ScreenshotsDir, k.FileName())
}

// CaptureError reports a frame that could not be cropped or persisted
type CaptureError struct {
	Key   Key
	Cause error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("%s: %s: %v", errors.ErrCapture, e.Key.RelPath(), e.Cause)
}

// Unwrap exposes both the ErrCapture sentinel and the cause
func (e *CaptureError) Unwrap() []error {
	return []error{errors.ErrCapture, e.Cause}
}

// Crop returns the part of the frame covered by rect, given in canonical
// units. A nil rect returns the frame image unchanged.
func Crop(frame backend.Frame, rect *workflow.Rect) (image.Image, error) {
	r, err := cropBounds(frame, rect)
	if err != nil {
		return nil, err
	}
	if rect == nil {
		return frame.Image, nil
	}

	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), frame.Image, r.Min, draw.Src)
	return out, nil
}

// cropBounds maps rect to device pixels of the frame image, clipped to it.
// A nil rect covers the whole frame.
func cropBounds(frame backend.Frame, rect *workflow.Rect) (image.Rectangle, error) {
	if frame.Image == nil {
		return image.Rectangle{}, fmt.Errorf("%w: empty frame", errors.ErrInvalidArgument)
	}
	bounds := frame.Image.Bounds()
	if rect == nil {
		return bounds, nil
	}

	scale := frame.Scale
	if scale <= 0 {
		scale = 1
	}
	r := image.Rect(
		int(math.Round(float64(rect.X)*scale)),
		int(math.Round(float64(rect.Y)*scale)),
		int(math.Round(float64(rect.X+rect.Width)*scale)),
		int(math.Round(float64(rect.Y+rect.Height)*scale)),
	)

	r = r.Add(bounds.Min).Intersect(bounds)
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("%w: crop %s is outside the %dx%d frame", errors.ErrInvalidArgument, rect, bounds.Dx(), bounds.Dy())
	}
	return r, nil
}

// Store writes screenshots beneath a wallet tree root
type Store struct {
	root string
}

// NewStore creates a store rooted at a wallet's staging directory
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the wallet tree root
func (s *Store) Root() string {
	return s.root
}

// Save crops the frame, draws the marks and writes it as PNG. The same key
// always lands on the same file, replacing any earlier image atomically.
func (s *Store) Save(key Key, frame backend.Frame, crop *workflow.Rect, marks Marks) (string, error) {
	img, err := Crop(frame, crop)
	if err != nil {
		return "", &CaptureError{Key: key, Cause: err}
	}
	if len(marks.Annotations) > 0 {
		r, _ := cropBounds(frame, crop)
		origin := r.Min.Sub(frame.Image.Bounds().Min)
		if img, err = Annotate(img, marks.Annotations, origin, frame.Scale, marks.Anchor); err != nil {
			return "", &CaptureError{Key: key, Cause: err}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", &CaptureError{Key: key, Cause: err}
	}

	rel := key.RelPath()
	if err := fsutil.WriteFileAtomic(filepath.Join(s.root, filepath.FromSlash(rel)), buf.Bytes(), 0644); err != nil {
		return "", &CaptureError{Key: key, Cause: err}
	}
	return rel, nil
}
