package workflow

import (
	"sort"
	"time"
)

// BackendKind names the automation backend variant a workflow is driven by
type BackendKind string

const (
	// BackendPointer drives the application with absolute screen coordinates
	BackendPointer BackendKind = "pointer"

	// BackendElement drives the application through accessibility selectors
	BackendElement BackendKind = "element"
)

// Definition represents a complete walkthrough for one wallet application.
// It is treated as immutable once loaded.
type Definition struct {
	// Wallet identity and platform metadata
	Wallet Wallet

	// Backend variant declared by the workflow; fixed for a run
	Backend BackendKind

	// Timing overrides; nil fields fall back to application configuration
	Automation Automation

	// Global coordinate table (name -> point or selector)
	Coordinates map[string]Locator

	// Global crop table (name -> rectangle)
	Crops map[string]Rect

	// Default crop applied to every step without a closer crop
	Crop CropRef

	// Documentation metadata
	Documentation Documentation

	// Build metadata rendered into the master guide
	Build Build

	// Sections in declaration order
	Sections []*Section

	// Variables substituted into step values, descriptions and notes
	Variables map[string]interface{}

	// Source file the definition was loaded from, if any
	Path string
}

// Wallet holds wallet identity metadata
type Wallet struct {
	Name      string
	Version   string
	Type      string
	Platforms []string
	AppPaths  map[string]string
	BundleID  string
}

// Automation holds per-workflow timing overrides, in seconds
type Automation struct {
	StartupWait     *float64
	ScreenshotDelay *float64
	ImplicitWait    *float64
	WaitBefore      *float64
	WaitAfter       *float64
	ScaleFactor     *float64
}

// Documentation holds metadata rendered into the guides
type Documentation struct {
	Title               string
	Description         string
	Troubleshooting     string
	ScreenshotMaxHeight int
}

// Build holds source and build instructions for the wallet
type Build struct {
	SourceURL         string
	BuildInstructions string
}

// Section is an ordered group of steps sharing a title and a lookup scope
type Section struct {
	Key         string
	Title       string
	Description string
	Crop        CropRef
	Coordinates map[string]Locator
	Crops       map[string]Rect
	Steps       []*Step
}

// Step is one documented action
type Step struct {
	Name        string
	Description string
	Action      ActionKind
	Target      TargetRef
	Value       string
	Clicks      int
	Screenshot  bool
	CropRegion  CropRef
	Hidden      bool
	Flags       []string
	Notes       string
	WaitBefore  *float64
	WaitAfter   *float64
	Coordinates map[string]Locator
	Annotations []Annotation
}

// Visible reports whether the step appears in rendered documentation
func (s *Step) Visible() bool {
	return !s.Hidden
}

// Captures reports whether the step produces a screenshot. A screenshot
// action always does.
func (s *Step) Captures() bool {
	return s.Screenshot || s.Action == ActionScreenshot
}

// HasFlag reports whether the step carries the given annotation flag
func (s *Step) HasFlag(flag string) bool {
	for _, f := range s.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Annotation flags recognised by the renderer
const (
	FlagNew        = "NEW"
	FlagChanged    = "CHANGED"
	FlagDeprecated = "DEPRECATED"
)

// Section returns the section with the given key, or nil
func (d *Definition) Section(key string) *Section {
	for _, s := range d.Sections {
		if s.Key == key {
			return s
		}
	}
	return nil
}

// SectionKeys returns section keys in declaration order
func (d *Definition) SectionKeys() []string {
	keys := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		keys = append(keys, s.Key)
	}
	return keys
}

// StepCount returns the total number of steps across all sections
func (d *Definition) StepCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Steps)
	}
	return n
}

// OrderResults returns results in step sequence order: sections as
// declared, steps by position. Results for steps no longer defined follow
// in their original order.
func (d *Definition) OrderResults(results []StepResult) []StepResult {
	rank := make(map[ResultKey]int, d.StepCount())
	i := 0
	for _, s := range d.Sections {
		for _, st := range s.Steps {
			rank[ResultKey{Section: s.Key, Step: st.Name}] = i
			i++
		}
	}

	out := append([]StepResult(nil), results...)
	sort.SliceStable(out, func(a, b int) bool {
		ra, okA := rank[out[a].Key()]
		rb, okB := rank[out[b].Key()]
		if okA && okB {
			return ra < rb
		}
		return okA && !okB
	})
	return out
}

// AppPath returns the application path declared for platform
func (d *Definition) AppPath(platform string) string {
	return d.Wallet.AppPaths[platform]
}

// Status is the outcome of executing one step
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// FailureKind classifies a step failure
type FailureKind string

const (
	FailureResolution FailureKind = "resolution"
	FailureBackend    FailureKind = "backend"
	FailureCapture    FailureKind = "capture"
)

// Failure carries detail about a failed step
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Action  string      `json:"action,omitempty"`
	Target  string      `json:"target,omitempty"`
}

// StepResult records the outcome of executing one step
type StepResult struct {
	RunID     string     `json:"run_id"`
	Section   string     `json:"section"`
	Step      string     `json:"step"`
	Position  int        `json:"position"`
	Action    ActionKind `json:"action"`
	Status    Status     `json:"status"`
	Failure   *Failure   `json:"failure,omitempty"`
	ImagePath string     `json:"image_path,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Key identifies the step a result belongs to
func (r StepResult) Key() ResultKey {
	return ResultKey{Section: r.Section, Step: r.Step}
}

// Succeeded reports whether the step completed without failure
func (r StepResult) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// ResultKey addresses a step within a workflow
type ResultKey struct {
	Section string
	Step    string
}
