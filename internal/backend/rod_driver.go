package backend

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/osutil"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/plistutil"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodOptions configures the DevTools driver
type RodOptions struct {
	// ControlURL attaches to an already running app started with
	// --remote-debugging-port. Empty launches the app binary.
	ControlURL string

	// Bin overrides the executable to launch
	Bin string

	Headless bool
}

// RodDriver implements ElementDriver over the Chrome DevTools Protocol, for
// Electron and Chromium based wallets
type RodDriver struct {
	opts    RodOptions
	browser *rod.Browser
	page    *rod.Page
	lnch    *launcher.Launcher
}

// NewRodDriver creates an unconnected DevTools driver
func NewRodDriver(opts RodOptions) *RodDriver {
	return &RodDriver{opts: opts}
}

// Open launches or attaches to the application and selects its first window
func (d *RodDriver) Open(ctx context.Context, app App) error {
	wsURL, err := d.controlURL(app)
	if err != nil {
		return err
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		d.kill()
		return fmt.Errorf("connecting to %s: %w", wsURL, err)
	}
	d.browser = b

	page, err := d.firstPage()
	if err != nil {
		return err
	}
	d.page = page

	logger.LogInfo("DevTools session open", map[string]interface{}{
		"app":         app.Name,
		"control_url": wsURL,
	})
	return nil
}

func (d *RodDriver) controlURL(app App) (string, error) {
	if d.opts.ControlURL != "" {
		u, err := launcher.ResolveURL(d.opts.ControlURL)
		if err != nil {
			return "", fmt.Errorf("resolving control url %s: %w", d.opts.ControlURL, err)
		}
		return u, nil
	}

	bin := d.opts.Bin
	if bin == "" {
		bin = app.Path
		if app.Platform == osutil.PlatformMacOS && strings.HasSuffix(app.Path, ".app") {
			exe, err := plistutil.BundleExecutable(app.Path)
			if err != nil {
				return "", err
			}
			bin = exe
		}
	}

	l := launcher.New().Bin(bin).Headless(d.opts.Headless)
	u, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("launching %s: %w", bin, err)
	}
	d.lnch = l
	return u, nil
}

func (d *RodDriver) firstPage() (*rod.Page, error) {
	pages, err := d.browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	if len(pages) > 0 {
		return pages.First(), nil
	}
	page, err := d.browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}
	return page, nil
}

// Find performs a single lookup. Selectors starting with "/" or "(" are
// XPath, "css:" selects by CSS, and anything else matches visible text,
// aria-label or title.
func (d *RodDriver) Find(ctx context.Context, selector string) (Element, error) {
	if d.page == nil {
		return nil, errors.ErrSessionNotOpen
	}
	page := d.page.Context(ctx)

	var (
		found bool
		el    *rod.Element
		err   error
	)
	switch {
	case strings.HasPrefix(selector, "css:"):
		found, el, err = page.Has(strings.TrimPrefix(selector, "css:"))
	case strings.HasPrefix(selector, "/"), strings.HasPrefix(selector, "("):
		found, el, err = page.HasX(selector)
	default:
		found, el, err = page.HasX(textXPath(selector))
	}
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", errors.ErrElementNotFound, selector)
	}
	return &rodElement{el: el}, nil
}

// Screenshot captures the current page viewport
func (d *RodDriver) Screenshot(ctx context.Context) (image.Image, error) {
	if d.page == nil {
		return nil, errors.ErrSessionNotOpen
	}
	data, err := d.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(data))
}

// Close disconnects and stops a launched app
func (d *RodDriver) Close() error {
	var err error
	if d.browser != nil && d.lnch != nil {
		err = d.browser.Close()
	}
	d.kill()
	d.browser, d.page = nil, nil
	return err
}

func (d *RodDriver) kill() {
	if d.lnch != nil {
		d.lnch.Kill()
		d.lnch = nil
	}
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Click(ctx context.Context, clicks int) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, clicks)
}

func (e *rodElement) SetText(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

func textXPath(label string) string {
	lit := xpathLiteral(label)
	return fmt.Sprintf("//*[normalize-space(text())=%s or @aria-label=%s or @title=%s]", lit, lit, lit)
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = `"` + p + `"`
	}
	return "concat(" + strings.Join(quoted, `, '"', `) + ")"
}
