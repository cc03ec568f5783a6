package backend

import (
	"fmt"
	"time"

	"github.com/deploymenttheory/go-app-walkthrough/internal/config"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

// Element driver names accepted in automation.element.driver
const (
	DriverWebDriver = "webdriver"
	DriverCDP       = "cdp"
)

// New builds the backend variant declared by a workflow. cfg should already
// carry the workflow's timing overrides.
func New(kind workflow.BackendKind, cfg config.AutomationConfig) (Backend, error) {
	switch kind {
	case workflow.BackendPointer:
		driver, err := NewExecDriver(ExecTemplates{
			Launch:     cfg.Pointer.Launch,
			Click:      cfg.Pointer.Click,
			Type:       cfg.Pointer.Type,
			Screenshot: cfg.Pointer.Screenshot,
		}, nil)
		if err != nil {
			return nil, err
		}
		return NewPointerBackend(driver, PointerOptions{
			InputScale: cfg.Pointer.InputScale,
			FrameScale: cfg.ScaleFactor,
		}), nil

	case workflow.BackendElement:
		driver, err := newElementDriver(cfg.Element)
		if err != nil {
			return nil, err
		}
		return NewElementBackend(driver, ElementOptions{
			ImplicitWait: seconds(cfg.ImplicitWait),
		}), nil

	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownBackend, kind)
	}
}

func newElementDriver(cfg config.ElementConfig) (ElementDriver, error) {
	switch cfg.Driver {
	case DriverWebDriver, "":
		return NewWebDriverClient(cfg.WebDriverURL, nil), nil
	case DriverCDP:
		return NewRodDriver(RodOptions{
			ControlURL: cfg.CDPURL,
			Bin:        cfg.BrowserBin,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown element driver %q", errors.ErrConfigInvalid, cfg.Driver)
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
