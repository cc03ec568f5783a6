package executor

import (
	"github.com/deploymenttheory/go-app-walkthrough/internal/config"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

// EffectiveAutomation applies a workflow's timing overrides to the
// application defaults
func EffectiveAutomation(def *workflow.Definition, base config.AutomationConfig) config.AutomationConfig {
	out := base
	a := def.Automation
	for _, o := range []struct {
		src *float64
		dst *float64
	}{
		{a.StartupWait, &out.StartupWait},
		{a.ScreenshotDelay, &out.ScreenshotDelay},
		{a.ImplicitWait, &out.ImplicitWait},
		{a.WaitBefore, &out.WaitBefore},
		{a.WaitAfter, &out.WaitAfter},
		{a.ScaleFactor, &out.ScaleFactor},
	} {
		if o.src != nil {
			*o.dst = *o.src
		}
	}
	return out
}

// OptionsFrom converts automation settings into run options
func OptionsFrom(cfg config.AutomationConfig) Options {
	return Options{
		StartupWait:     seconds(cfg.StartupWait),
		ScreenshotDelay: seconds(cfg.ScreenshotDelay),
		WaitBefore:      seconds(cfg.WaitBefore),
		WaitAfter:       seconds(cfg.WaitAfter),
	}
}
