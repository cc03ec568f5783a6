// Package synth renders documentation from a workflow definition and its
// recorded step results. Rendering is a pure function of those inputs: the
// same definition and results always produce byte-identical documents.
package synth

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"text/template"
	"time"

	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

// Artifact names within a wallet tree
const (
	MasterFile   = "user-guide.md"
	MetadataFile = "metadata.json"
	SectionsDir  = "sections"
)

// DefaultScreenshotMaxHeight is used when neither the workflow nor the
// options set a height
const DefaultScreenshotMaxHeight = 600

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("synth").Funcs(template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
}).ParseFS(templateFS, "templates/*.tmpl"))

// Options tune rendering
type Options struct {
	// ScreenshotMaxHeight applies when the workflow sets no image height
	ScreenshotMaxHeight int
}

// File is one rendered artifact, addressed relative to the tree root
type File struct {
	Path string
	Data []byte
}

// Tree is the rendered documentation of one wallet
type Tree struct {
	Wallet   string
	Files    []File
	Metadata Metadata
	Warnings []*SynthesisError
}

// File returns the artifact at rel, if rendered
func (t *Tree) File(rel string) ([]byte, bool) {
	for _, f := range t.Files {
		if f.Path == rel {
			return f.Data, true
		}
	}
	return nil, false
}

// SynthesisError is a problem confined to one section. The section still
// renders; the problem is shown as a warning inside it.
type SynthesisError struct {
	Section string
	Step    string
	Cause   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("%s: section %s, step %q: %v", errors.ErrSynthesis, e.Section, e.Step, e.Cause)
}

// Unwrap exposes both the ErrSynthesis sentinel and the cause
func (e *SynthesisError) Unwrap() []error {
	return []error{errors.ErrSynthesis, e.Cause}
}

type stepView struct {
	Number      int
	Name        string
	Description string
	Notes       string
	Flags       []string
	Image       string
	Incomplete  string
	annotations []workflow.Annotation
}

type sectionView struct {
	Key         string
	File        string
	H1, H2      string
	Title       string
	Description string
	Warnings    []string
	Steps       []stepView
	MaxHeight   int
}

type masterView struct {
	Metadata
	Sections []sectionView
}

// Render produces the section documents, the master guide and metadata.json
func Render(def *workflow.Definition, results []workflow.StepResult, opts Options) (*Tree, error) {
	byKey := make(map[workflow.ResultKey]workflow.StepResult, len(results))
	for _, r := range results {
		byKey[r.Key()] = r
	}

	maxHeight := def.Documentation.ScreenshotMaxHeight
	if maxHeight <= 0 {
		maxHeight = opts.ScreenshotMaxHeight
	}
	if maxHeight <= 0 {
		maxHeight = DefaultScreenshotMaxHeight
	}

	tree := &Tree{Wallet: workflow.Slug(def.Wallet.Name)}
	meta := newMetadata(def, results)

	var sectionViews, masterViews []sectionView
	for _, section := range def.Sections {
		view, warnings := buildSection(section, byKey, maxHeight)
		tree.Warnings = append(tree.Warnings, warnings...)

		sm := SectionMeta{Key: section.Key, Title: section.Title, File: view.File}
		for i := range view.Steps {
			img := view.Steps[i].Image
			if img == "" {
				continue
			}
			meta.Screenshots = append(meta.Screenshots, img)
			if anns := view.Steps[i].annotations; len(anns) > 0 {
				meta.AnnotatedScreenshots = append(meta.AnnotatedScreenshots, AnnotatedScreenshot{Image: img, Annotations: anns})
			}
		}
		for _, w := range warnings {
			sm.Warnings = append(sm.Warnings, w.Cause.Error())
		}
		sm.Steps = len(view.Steps)
		meta.TotalSteps += sm.Steps
		meta.Sections = append(meta.Sections, sm)

		for _, step := range section.Steps {
			if !step.Visible() {
				continue
			}
			ref := Feature{Section: section.Key, SectionTitle: section.Title, Step: step.Name}
			if step.HasFlag(workflow.FlagNew) {
				meta.NewFeatures = append(meta.NewFeatures, ref)
			}
			if step.HasFlag(workflow.FlagChanged) {
				meta.ChangedFeatures = append(meta.ChangedFeatures, ref)
			}
		}

		// The image prefix is chosen per artifact: section files live one
		// level below the tree root, the master guide at the root.
		sectionViews = append(sectionViews, withLayout(view, "#", "##", "../"))
		masterViews = append(masterViews, withLayout(view, "##", "###", ""))
	}

	for _, view := range sectionViews {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, "section", view); err != nil {
			return nil, fmt.Errorf("%w: rendering section %s: %v", errors.ErrSynthesis, view.Key, err)
		}
		tree.Files = append(tree.Files, File{Path: view.File, Data: buf.Bytes()})
	}

	var master bytes.Buffer
	if err := templates.ExecuteTemplate(&master, "master.md.tmpl", masterView{Metadata: meta, Sections: masterViews}); err != nil {
		return nil, fmt.Errorf("%w: rendering master guide: %v", errors.ErrSynthesis, err)
	}
	tree.Files = append(tree.Files, File{Path: MasterFile, Data: master.Bytes()})

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: encoding metadata: %v", errors.ErrSynthesis, err)
	}
	tree.Files = append(tree.Files, File{Path: MetadataFile, Data: append(data, '\n')})
	tree.Metadata = meta

	return tree, nil
}

// buildSection renders nothing; it decides what each visible step shows.
// Image paths are kept root relative here and prefixed per artifact later.
func buildSection(section *workflow.Section, results map[workflow.ResultKey]workflow.StepResult, maxHeight int) (sectionView, []*SynthesisError) {
	view := sectionView{
		Key:         section.Key,
		File:        path.Join(SectionsDir, workflow.SanitizeName(section.Key)+".md"),
		Title:       section.Title,
		Description: normalizeText(section.Description),
		MaxHeight:   maxHeight,
	}
	var warnings []*SynthesisError
	warn := func(step string, err error) {
		warnings = append(warnings, &SynthesisError{Section: section.Key, Step: step, Cause: err})
	}

	n := 0
	for _, step := range section.Steps {
		res, ran := results[workflow.ResultKey{Section: section.Key, Step: step.Name}]
		failed := ran && !res.Succeeded()

		// A hidden step renders nothing, but its failure must still show
		if !step.Visible() {
			if failed {
				warn(step.Name, fmt.Errorf("%w: hidden step %q (%s)", errors.ErrStepFailed, step.Name, failureText(res)))
			}
			continue
		}

		n++
		sv := stepView{
			Number:      n,
			Name:        step.Name,
			Description: normalizeText(step.Description),
			Notes:       normalizeText(step.Notes),
			Flags:       step.Flags,
		}

		captureFailed := failed && res.Failure != nil && res.Failure.Kind == workflow.FailureCapture
		switch {
		case !ran:
			sv.Incomplete = "this step has not been run."
			if !step.Captures() {
				warn(step.Name, fmt.Errorf("%w: step %q", errors.ErrStepNotRun, step.Name))
			}
		case failed && !captureFailed:
			sv.Incomplete = fmt.Sprintf("this step failed during the last run (%s).", failureText(res))
			warn(step.Name, fmt.Errorf("%w: step %q (%s)", errors.ErrStepFailed, step.Name, failureText(res)))
		}

		if step.Captures() {
			switch {
			case ran && res.ImagePath != "":
				sv.Image = res.ImagePath
				sv.annotations = step.Annotations
			case !ran:
				warn(step.Name, fmt.Errorf("%w: step %q has not been run", errors.ErrMissingImage, step.Name))
			case failed && !captureFailed:
				// reported as a failed step
			default:
				warn(step.Name, fmt.Errorf("%w: step %q", errors.ErrMissingImage, step.Name))
			}
		}
		view.Steps = append(view.Steps, sv)
	}

	for _, w := range warnings {
		view.Warnings = append(view.Warnings, w.Cause.Error())
	}
	return view, warnings
}

func failureText(res workflow.StepResult) string {
	if res.Failure == nil {
		return string(res.Status)
	}
	return fmt.Sprintf("%s: %s", res.Failure.Kind, res.Failure.Message)
}

func withLayout(v sectionView, h1, h2, prefix string) sectionView {
	out := v
	out.H1, out.H2 = h1, h2
	out.Steps = make([]stepView, len(v.Steps))
	for i, s := range v.Steps {
		if s.Image != "" {
			s.Image = prefix + s.Image
		}
		out.Steps[i] = s
	}
	return out
}

// generatedDate is derived from the newest result so output never depends
// on the wall clock
func generatedDate(results []workflow.StepResult) string {
	var newest time.Time
	for _, r := range results {
		if r.Timestamp.After(newest) {
			newest = r.Timestamp
		}
	}
	if newest.IsZero() {
		return "unknown"
	}
	return newest.UTC().Format("2006-01-02")
}
