package backend

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

// ExecTemplates holds the shell command templates for each input primitive.
//
// Template data:
//   - Launch:     .App (path), .Name, .BundleID
//   - Click:      .X, .Y, .Clicks
//   - Type:       .Text
//   - Screenshot: .Path (PNG file to create)
//
// The quote function single-quotes a value for the shell.
type ExecTemplates struct {
	Launch     string
	Click      string
	Type       string
	Screenshot string
}

// Runner executes a rendered shell command
type Runner func(ctx context.Context, command string) ([]byte, error)

// ExecDriver implements InputDriver by running command line tools such as
// cliclick and screencapture
type ExecDriver struct {
	launch     *template.Template
	click      *template.Template
	typ        *template.Template
	screenshot *template.Template

	run Runner
}

// NewExecDriver parses the command templates. A nil runner runs commands
// through sh -c.
func NewExecDriver(t ExecTemplates, run Runner) (*ExecDriver, error) {
	d := &ExecDriver{run: run}
	if d.run == nil {
		d.run = shellRunner
	}

	var err error
	for _, item := range []struct {
		name string
		text string
		dst  **template.Template
	}{
		{"launch", t.Launch, &d.launch},
		{"click", t.Click, &d.click},
		{"type", t.Type, &d.typ},
		{"screenshot", t.Screenshot, &d.screenshot},
	} {
		if strings.TrimSpace(item.text) == "" {
			return nil, fmt.Errorf("%w: %s command template is empty", errors.ErrConfigInvalid, item.name)
		}
		*item.dst, err = template.New(item.name).Funcs(template.FuncMap{"quote": shellQuote}).Option("missingkey=error").Parse(item.text)
		if err != nil {
			return nil, fmt.Errorf("%w: %s command template: %v", errors.ErrConfigInvalid, item.name, err)
		}
	}
	return d, nil
}

// Launch runs the launch command
func (d *ExecDriver) Launch(ctx context.Context, app App) error {
	return d.exec(ctx, d.launch, map[string]interface{}{
		"App":      app.Path,
		"Name":     app.Name,
		"BundleID": app.BundleID,
	})
}

// Click runs the click command at device coordinates
func (d *ExecDriver) Click(ctx context.Context, p workflow.Point, clicks int) error {
	return d.exec(ctx, d.click, map[string]interface{}{
		"X":      p.X,
		"Y":      p.Y,
		"Clicks": clicks,
	})
}

// Type runs the type command
func (d *ExecDriver) Type(ctx context.Context, text string) error {
	return d.exec(ctx, d.typ, map[string]interface{}{"Text": text})
}

// Screenshot runs the screenshot command into a temporary PNG and decodes it
func (d *ExecDriver) Screenshot(ctx context.Context) (image.Image, error) {
	f, err := os.CreateTemp("", "walkthrough-frame-*.png")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := d.exec(ctx, d.screenshot, map[string]interface{}{"Path": path}); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrFileReadError, err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("screenshot %s is not a PNG: %w", filepath.Base(path), err)
	}
	return img, nil
}

func (d *ExecDriver) exec(ctx context.Context, tmpl *template.Template, data map[string]interface{}) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("rendering %s command: %w", tmpl.Name(), err)
	}
	command := buf.String()

	logger.LogDebug("Running input command", map[string]interface{}{
		"primitive": tmpl.Name(),
		"command":   command,
	})

	out, err := d.run(ctx, command)
	if err != nil {
		return fmt.Errorf("%s command failed: %w: %s", tmpl.Name(), err, strings.TrimSpace(string(out)))
	}
	return nil
}

func shellRunner(ctx context.Context, command string) ([]byte, error) {
	return exec.CommandContext(ctx, "sh", "-c", command).CombinedOutput()
}

// shellQuote wraps s in single quotes for POSIX shells
func shellQuote(v interface{}) string {
	s := fmt.Sprint(v)
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
