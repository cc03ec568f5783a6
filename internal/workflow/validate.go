package workflow

import (
	"fmt"
	"strconv"

	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
)

// ValidateWorkflow checks the definition structure and returns every problem found
func ValidateWorkflow(def *Definition) []error {
	var errs []error

	if def.Wallet.Name == "" || def.Wallet.Name == "Unknown" {
		errs = append(errs, fmt.Errorf("%w: wallet name is required", errors.ErrWorkflowInvalid))
	}

	switch def.Backend {
	case BackendPointer, BackendElement:
	default:
		errs = append(errs, fmt.Errorf("%w: %q (want pointer or element)", errors.ErrUnknownBackend, def.Backend))
	}

	if len(def.Sections) == 0 {
		errs = append(errs, fmt.Errorf("%w: workflow must contain at least one section", errors.ErrWorkflowInvalid))
	}

	for _, v := range []struct {
		name string
		val  *float64
	}{
		{"startup_wait", def.Automation.StartupWait},
		{"screenshot_delay", def.Automation.ScreenshotDelay},
		{"implicit_wait", def.Automation.ImplicitWait},
		{"wait_before", def.Automation.WaitBefore},
		{"wait_after", def.Automation.WaitAfter},
	} {
		if v.val != nil && *v.val < 0 {
			errs = append(errs, fmt.Errorf("%w: automation.%s must not be negative", errors.ErrWorkflowInvalid, v.name))
		}
	}
	if sf := def.Automation.ScaleFactor; sf != nil && *sf <= 0 {
		errs = append(errs, fmt.Errorf("%w: automation.scale_factor must be positive", errors.ErrWorkflowInvalid))
	}

	seenSections := make(map[string]bool)
	seenFiles := make(map[string]string)
	seenDocs := make(map[string]string)
	for si, section := range def.Sections {
		if seenSections[section.Key] {
			errs = append(errs, fmt.Errorf("%w: duplicate section %q", errors.ErrWorkflowInvalid, section.Key))
		}
		seenSections[section.Key] = true

		// Distinct sections must not share a section document
		doc := SanitizeName(section.Key)
		if prev, ok := seenDocs[doc]; ok && prev != section.Key {
			errs = append(errs, fmt.Errorf("%w: sections %q and %q map to the same document sections/%s.md", errors.ErrWorkflowInvalid, prev, section.Key, doc))
		} else if !ok {
			seenDocs[doc] = section.Key
		}

		if len(section.Steps) == 0 {
			errs = append(errs, fmt.Errorf("%w: section %q has no steps", errors.ErrWorkflowInvalid, section.Key))
		}

		for i, step := range section.Steps {
			for _, err := range validateStep(def, step, si == 0 && i == 0) {
				errs = append(errs, fmt.Errorf("section %s, step %d (%s): %w", section.Key, i+1, step.Name, err))
			}

			// Distinct steps must not share a screenshot file
			file := SanitizeName(section.Key) + "_" + SanitizeName(step.Name)
			id := section.Key + "/" + step.Name
			if prev, ok := seenFiles[file]; ok && step.Name != "" {
				errs = append(errs, fmt.Errorf("%w: steps %s and %s map to the same screenshot %s.png", errors.ErrWorkflowInvalid, prev, id, file))
			} else {
				seenFiles[file] = id
			}
		}
	}

	return errs
}

func validateStep(def *Definition, step *Step, first bool) []error {
	var errs []error

	if step.Name == "" {
		errs = append(errs, fmt.Errorf("%w: name is required", errors.ErrWorkflowInvalid))
	}

	switch step.Action {
	case ActionLaunch:
		if !first {
			errs = append(errs, fmt.Errorf("%w: launch is only allowed as the first step of the first section", errors.ErrWorkflowInvalid))
		}
	case ActionClick:
		if step.Target.IsZero() {
			errs = append(errs, fmt.Errorf("%w: click requires a target", errors.ErrWorkflowInvalid))
		}
	case ActionType:
		if step.Target.IsZero() {
			errs = append(errs, fmt.Errorf("%w: type requires a target", errors.ErrWorkflowInvalid))
		}
		if step.Value == "" {
			errs = append(errs, fmt.Errorf("%w: type requires a value", errors.ErrWorkflowInvalid))
		}
	case ActionWait:
		if step.Value != "" {
			if d, err := strconv.ParseFloat(step.Value, 64); err != nil || d < 0 {
				errs = append(errs, fmt.Errorf("%w: wait value %q must be a non-negative number of seconds", errors.ErrWorkflowInvalid, step.Value))
			}
		}
	case ActionScreenshot:
	default:
		errs = append(errs, fmt.Errorf("%w: action is required", errors.ErrUnknownAction))
	}

	switch {
	case def.Backend == BackendPointer && step.Target.Kind == RefSelector:
		errs = append(errs, fmt.Errorf("%w: selector target on pointer backend", errors.ErrPointRequired))
	case def.Backend == BackendElement && step.Target.Kind == RefPoint:
		errs = append(errs, fmt.Errorf("%w: point target on element backend", errors.ErrSelectorRequired))
	}

	for _, f := range step.Flags {
		if f != FlagNew && f != FlagChanged && f != FlagDeprecated {
			errs = append(errs, fmt.Errorf("%w: unknown flag %q", errors.ErrWorkflowInvalid, f))
		}
	}

	if len(step.Annotations) > 0 && !step.Captures() {
		errs = append(errs, fmt.Errorf("%w: annotations require a screenshot", errors.ErrWorkflowInvalid))
	}
	anchored := def.Backend == BackendPointer && (step.Target.Kind == RefPoint || step.Target.Kind == RefName)
	for i, a := range step.Annotations {
		if err := a.Validate(anchored); err != nil {
			errs = append(errs, fmt.Errorf("annotation %d: %w", i+1, err))
		}
	}

	if step.WaitBefore != nil && *step.WaitBefore < 0 {
		errs = append(errs, fmt.Errorf("%w: wait_before must not be negative", errors.ErrWorkflowInvalid))
	}
	if step.WaitAfter != nil && *step.WaitAfter < 0 {
		errs = append(errs, fmt.Errorf("%w: wait_after must not be negative", errors.ErrWorkflowInvalid))
	}

	return errs
}

// FilterSections returns the sections named by keys in definition order.
// An empty keys list selects every section; unknown keys are an error.
func (d *Definition) FilterSections(keys []string) ([]*Section, error) {
	if len(keys) == 0 {
		return d.Sections, nil
	}

	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		if d.Section(k) == nil {
			return nil, fmt.Errorf("%w: %q (available: %v)", errors.ErrUnknownSection, k, d.SectionKeys())
		}
		want[k] = true
	}

	var out []*Section
	for _, s := range d.Sections {
		if want[s.Key] {
			out = append(out, s)
		}
	}
	return out, nil
}
