package backend

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"strings"
	"testing"

	apperrors "github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

var testTemplates = ExecTemplates{
	Launch:     "open -a {{quote .App}}",
	Click:      "cliclick {{if eq .Clicks 2}}dc{{else}}c{{end}}:{{.X}},{{.Y}}",
	Type:       "cliclick t:{{quote .Text}}",
	Screenshot: "screencapture -x {{quote .Path}}",
}

type recordingRunner struct {
	commands []string
}

func (r *recordingRunner) run(ctx context.Context, command string) ([]byte, error) {
	r.commands = append(r.commands, command)
	if strings.HasPrefix(command, "screencapture") {
		path := strings.Trim(strings.TrimPrefix(command, "screencapture -x "), "'")
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return nil, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 8, 6)))
	}
	return nil, nil
}

func TestExecDriverRendersCommands(t *testing.T) {
	rec := &recordingRunner{}
	d, err := NewExecDriver(testTemplates, rec.run)
	if err != nil {
		t.Fatalf("NewExecDriver failed: %v", err)
	}
	ctx := context.Background()

	if err := d.Launch(ctx, App{Name: "Sparrow", Path: "/Applications/Sparrow.app"}); err != nil {
		t.Fatal(err)
	}
	if err := d.Click(ctx, workflow.Point{X: 10, Y: 20}, 2); err != nil {
		t.Fatal(err)
	}
	if err := d.Type(ctx, "it's mine"); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"open -a '/Applications/Sparrow.app'",
		"cliclick dc:10,20",
		`cliclick t:'it'\''s mine'`,
	}
	if len(rec.commands) != len(want) {
		t.Fatalf("got commands %v", rec.commands)
	}
	for i := range want {
		if rec.commands[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, rec.commands[i], want[i])
		}
	}
}

func TestExecDriverScreenshot(t *testing.T) {
	rec := &recordingRunner{}
	d, err := NewExecDriver(testTemplates, rec.run)
	if err != nil {
		t.Fatalf("NewExecDriver failed: %v", err)
	}

	img, err := d.Screenshot(context.Background())
	if err != nil {
		t.Fatalf("Screenshot failed: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 6 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}

	path := strings.Trim(strings.TrimPrefix(rec.commands[0], "screencapture -x "), "'")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("temporary frame %s should be removed", path)
	}
}

func TestExecDriverCommandFailure(t *testing.T) {
	d, err := NewExecDriver(testTemplates, func(ctx context.Context, command string) ([]byte, error) {
		return []byte("cliclick: command not found\n"), errors.New("exit status 127")
	})
	if err != nil {
		t.Fatal(err)
	}
	err = d.Click(context.Background(), workflow.Point{X: 1, Y: 1}, 1)
	if err == nil || !strings.Contains(err.Error(), "command not found") {
		t.Errorf("expected command output in error, got %v", err)
	}
}

func TestExecDriverRejectsBadTemplates(t *testing.T) {
	bad := testTemplates
	bad.Click = ""
	if _, err := NewExecDriver(bad, nil); !errors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid for empty template, got %v", err)
	}

	bad = testTemplates
	bad.Type = "cliclick t:{{.Text"
	if _, err := NewExecDriver(bad, nil); !errors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid for unparsable template, got %v", err)
	}
}
