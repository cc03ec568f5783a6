package workflow

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
)

func TestParseAnnotations(t *testing.T) {
	def, err := Parse([]byte(`
wallet: {name: Test}
automation: {backend: pointer}
coordinates:
  create_button: [100, 100]
documentation:
  sections:
    setup:
      steps:
        - name: Create
          action: click
          target: create_button
          screenshot: true
          annotations:
            - type: box
              region: [80, 80, 60, 40]
              color: blue
              thickness: 2
            - type: number
              label: "1"
            - type: text
              position: [10, 10]
              label: Press here
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	anns := def.Sections[0].Steps[0].Annotations
	if len(anns) != 3 {
		t.Fatalf("expected 3 annotations, got %d", len(anns))
	}
	if anns[0].Kind != AnnotateBox || anns[0].Region == nil || *anns[0].Region != (Rect{X: 80, Y: 80, Width: 60, Height: 40}) {
		t.Errorf("unexpected box %+v", anns[0])
	}
	if anns[0].Color != "blue" || anns[0].Thickness != 2 {
		t.Errorf("unexpected box style %+v", anns[0])
	}
	if anns[1].Kind != AnnotateNumber || anns[1].Position != nil || anns[1].Label != "1" {
		t.Errorf("unexpected number %+v", anns[1])
	}
	if anns[2].Position == nil || *anns[2].Position != (Point{X: 10, Y: 10}) {
		t.Errorf("unexpected text position %+v", anns[2].Position)
	}
	if errs := ValidateWorkflow(def); len(errs) != 0 {
		t.Errorf("expected no validation errors, got %v", errs)
	}
}

func TestParseRejectsBadAnnotationPoint(t *testing.T) {
	_, err := Parse([]byte(`
wallet: {name: Test}
documentation:
  sections:
    s:
      steps:
        - name: Shot
          action: screenshot
          annotations:
            - type: circle
              position: [1, 2, 3]
`))
	if err == nil {
		t.Fatalf("expected a three value position to fail at load time")
	}
}

func TestValidateAnnotations(t *testing.T) {
	def, err := Parse([]byte(`
wallet: {name: Test}
automation: {backend: element}
documentation:
  sections:
    setup:
      steps:
        - name: Shot
          action: screenshot
          annotations:
            - type: sparkle
            - type: box
            - type: text
              position: [5, 5]
            - type: arrow
        - name: Press
          action: click
          selector: "//Button"
          annotations:
            - type: highlight
              region: [0, 0, 10, 10]
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	errs := ValidateWorkflow(def)
	if len(errs) != 5 {
		t.Fatalf("expected 5 validation errors, got %d: %v", len(errs), errs)
	}
	for _, err := range errs {
		if !errors.Is(err, apperrors.ErrWorkflowInvalid) {
			t.Errorf("expected ErrWorkflowInvalid, got %v", err)
		}
	}
	if !strings.Contains(errs[0].Error(), `unknown annotation type "sparkle"`) {
		t.Errorf("unexpected first error %v", errs[0])
	}
	if !strings.Contains(errs[3].Error(), "arrow annotation requires a position or a point target") {
		t.Errorf("arrow on the element backend has no anchor, got %v", errs[3])
	}
	if !strings.Contains(errs[4].Error(), "annotations require a screenshot") {
		t.Errorf("annotations without a screenshot should fail, got %v", errs[4])
	}
}
