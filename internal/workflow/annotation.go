package workflow

import (
	"fmt"

	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
)

// AnnotationKind names a mark drawn onto a step screenshot
type AnnotationKind string

const (
	AnnotateArrow     AnnotationKind = "arrow"
	AnnotateBox       AnnotationKind = "box"
	AnnotateHighlight AnnotationKind = "highlight"
	AnnotateBlur      AnnotationKind = "blur"
	AnnotateText      AnnotationKind = "text"
	AnnotateNumber    AnnotationKind = "number"
	AnnotateCircle    AnnotationKind = "circle"
)

// Annotation is a mark drawn onto a step screenshot after cropping.
// Geometry uses canonical screen coordinates like targets and crops do.
type Annotation struct {
	Kind      AnnotationKind `yaml:"type" json:"type"`
	Region    *Rect          `yaml:"region,omitempty" json:"region,omitempty"`
	Position  *Point         `yaml:"position,omitempty" json:"position,omitempty"`
	Label     string         `yaml:"label,omitempty" json:"label,omitempty"`
	Color     string         `yaml:"color,omitempty" json:"color,omitempty"`
	Thickness int            `yaml:"thickness,omitempty" json:"thickness,omitempty"`
	Radius    int            `yaml:"radius,omitempty" json:"radius,omitempty"`
}

// Validate checks the annotation has the geometry its kind needs. anchored
// reports whether the step resolves to a point that arrows and numbers can
// fall back to.
func (a Annotation) Validate(anchored bool) error {
	switch a.Kind {
	case AnnotateBox, AnnotateHighlight, AnnotateBlur:
		if a.Region == nil || a.Region.Empty() {
			return fmt.Errorf("%w: %s annotation requires a region", errors.ErrWorkflowInvalid, a.Kind)
		}
	case AnnotateText:
		if a.Position == nil || a.Label == "" {
			return fmt.Errorf("%w: text annotation requires a position and a label", errors.ErrWorkflowInvalid)
		}
	case AnnotateCircle:
		if a.Position == nil {
			return fmt.Errorf("%w: circle annotation requires a position", errors.ErrWorkflowInvalid)
		}
	case AnnotateArrow, AnnotateNumber:
		if a.Position == nil && !anchored {
			return fmt.Errorf("%w: %s annotation requires a position or a point target", errors.ErrWorkflowInvalid, a.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown annotation type %q", errors.ErrWorkflowInvalid, a.Kind)
	}
	if a.Thickness < 0 || a.Radius < 0 {
		return fmt.Errorf("%w: %s annotation thickness and radius must not be negative", errors.ErrWorkflowInvalid, a.Kind)
	}
	return nil
}
