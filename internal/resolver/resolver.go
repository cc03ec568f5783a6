// Package resolver turns symbolic step targets and crop references into
// concrete geometry. Lookups walk step, section and global scope in that
// order and never merge tables.
package resolver

import (
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

// Kind names what was being resolved
type Kind string

const (
	KindCoordinate Kind = "coordinate"
	KindCrop       Kind = "crop"
)

// Scope names searched for a reference, closest first
const (
	ScopeStep    = "step"
	ScopeSection = "section"
	ScopeGlobal  = "global"
)

// ResolutionError reports a name absent from every searched scope
type ResolutionError struct {
	Name   string
	Kind   Kind
	Scopes []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %s %q not found in %s scope", errors.ErrResolution, e.Kind, e.Name, strings.Join(e.Scopes, ", "))
}

func (e *ResolutionError) Unwrap() error {
	return errors.ErrResolution
}

// Scope is the lookup context for one step
type Scope struct {
	Step    *workflow.Step
	Section *workflow.Section
	Global  *workflow.Definition
}

// ResolveTarget returns the concrete locator for ref. Literal points and
// selectors are returned without lookup; an absent ref yields the zero Locator.
func ResolveTarget(ref workflow.TargetRef, scope Scope) (workflow.Locator, error) {
	switch ref.Kind {
	case workflow.RefAbsent:
		return workflow.Locator{}, nil
	case workflow.RefPoint:
		return workflow.PointLocator(ref.Point), nil
	case workflow.RefSelector:
		return workflow.SelectorLocator(ref.Selector), nil
	}

	var searched []string
	if scope.Step != nil {
		searched = append(searched, ScopeStep)
		if loc, ok := scope.Step.Coordinates[ref.Name]; ok {
			return loc, nil
		}
	}
	if scope.Section != nil {
		searched = append(searched, ScopeSection)
		if loc, ok := scope.Section.Coordinates[ref.Name]; ok {
			return loc, nil
		}
	}
	if scope.Global != nil {
		searched = append(searched, ScopeGlobal)
		if loc, ok := scope.Global.Coordinates[ref.Name]; ok {
			return loc, nil
		}
	}

	return workflow.Locator{}, &ResolutionError{Name: ref.Name, Kind: KindCoordinate, Scopes: searched}
}

// ResolveCrop returns the crop rectangle for the step, or nil for a full
// frame. The closest crop reference wins: step override, then the section
// default, then the global default. A named reference is looked up in the
// section crop table, then the global one.
func ResolveCrop(scope Scope) (*workflow.Rect, error) {
	var ref workflow.CropRef
	switch {
	case scope.Step != nil && !scope.Step.CropRegion.IsZero():
		ref = scope.Step.CropRegion
	case scope.Section != nil && !scope.Section.Crop.IsZero():
		ref = scope.Section.Crop
	case scope.Global != nil && !scope.Global.Crop.IsZero():
		ref = scope.Global.Crop
	default:
		return nil, nil
	}

	if ref.Rect != nil {
		r := *ref.Rect
		return &r, nil
	}

	var searched []string
	if scope.Section != nil {
		searched = append(searched, ScopeSection)
		if r, ok := scope.Section.Crops[ref.Name]; ok {
			return &r, nil
		}
	}
	if scope.Global != nil {
		searched = append(searched, ScopeGlobal)
		if r, ok := scope.Global.Crops[ref.Name]; ok {
			return &r, nil
		}
	}

	return nil, &ResolutionError{Name: ref.Name, Kind: KindCrop, Scopes: searched}
}
