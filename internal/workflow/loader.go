package workflow

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"gopkg.in/yaml.v3"
)

// DefinitionFile is the file name of a workflow inside a wallet directory
const DefinitionFile = "config.yaml"

type rawDefinition struct {
	Wallet struct {
		Name      string            `yaml:"name"`
		Version   string            `yaml:"version"`
		Type      string            `yaml:"type"`
		Platforms []string          `yaml:"platforms"`
		AppPath   map[string]string `yaml:"app_path"`
		BundleID  string            `yaml:"bundle_id"`
	} `yaml:"wallet"`

	Automation struct {
		Backend         string   `yaml:"backend"`
		StartupWait     *float64 `yaml:"startup_wait"`
		ScreenshotDelay *float64 `yaml:"screenshot_delay"`
		ImplicitWait    *float64 `yaml:"implicit_wait"`
		WaitBefore      *float64 `yaml:"wait_before"`
		WaitAfter       *float64 `yaml:"wait_after"`
		ScaleFactor     *float64 `yaml:"scale_factor"`
	} `yaml:"automation"`

	Coordinates map[string]Locator     `yaml:"coordinates"`
	Crops       map[string]Rect        `yaml:"crops"`
	Crop        CropRef                `yaml:"crop"`
	Variables   map[string]interface{} `yaml:"variables"`

	Documentation struct {
		Title               string    `yaml:"title"`
		Description         string    `yaml:"description"`
		Troubleshooting     string    `yaml:"troubleshooting"`
		ScreenshotMaxHeight int       `yaml:"screenshot_max_height"`
		Sections            yaml.Node `yaml:"sections"`
	} `yaml:"documentation"`

	Build struct {
		SourceURL         string `yaml:"source_url"`
		BuildInstructions string `yaml:"build_instructions"`
	} `yaml:"build"`
}

type rawSection struct {
	Title       string             `yaml:"title"`
	Description string             `yaml:"description"`
	Crop        CropRef            `yaml:"crop"`
	Coordinates map[string]Locator `yaml:"coordinates"`
	Crops       map[string]Rect    `yaml:"crops"`
	Steps       []rawStep          `yaml:"steps"`
}

type rawStep struct {
	Name           string             `yaml:"name"`
	Description    string             `yaml:"description"`
	Action         ActionKind         `yaml:"action"`
	Target         TargetRef          `yaml:"target"`
	Selector       string             `yaml:"selector"`
	Value          string             `yaml:"value"`
	Clicks         int                `yaml:"clicks"`
	Screenshot     bool               `yaml:"screenshot"`
	CropRegion     CropRef            `yaml:"crop_region"`
	Hidden         bool               `yaml:"hidden"`
	OmitFromOutput bool               `yaml:"omit_from_output"`
	Flags          []string           `yaml:"flags"`
	Notes          string             `yaml:"notes"`
	WaitBefore     *float64           `yaml:"wait_before"`
	WaitAfter      *float64           `yaml:"wait_after"`
	Coordinates    map[string]Locator `yaml:"coordinates"`
	Annotations    []Annotation       `yaml:"annotations"`
}

// ResolvePath maps a workflow identifier to a definition file. An existing
// file path is used as-is; otherwise the identifier is treated as a wallet
// directory name under workflowsDir.
func ResolvePath(workflowsDir, id string) (string, error) {
	if info, err := os.Stat(id); err == nil {
		if info.IsDir() {
			return filepath.Join(id, DefinitionFile), nil
		}
		return id, nil
	}

	candidates := []string{
		filepath.Join(workflowsDir, id, DefinitionFile),
		filepath.Join(workflowsDir, Slug(id), DefinitionFile),
		filepath.Join(workflowsDir, id+".yaml"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errors.ErrWorkflowNotFound, id)
}

// LoadWorkflow loads a walkthrough definition from a YAML file
func LoadWorkflow(filePath string) (*Definition, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrWorkflowNotFound, filePath)
		}
		return nil, fmt.Errorf("error reading workflow file: %w", err)
	}

	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	def.Path = filePath
	return def, nil
}

// Parse decodes a walkthrough definition. Section order follows the document.
func Parse(data []byte) (*Definition, error) {
	var raw rawDefinition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrWorkflowInvalid, err)
	}

	def := &Definition{
		Wallet: Wallet{
			Name:      raw.Wallet.Name,
			Version:   raw.Wallet.Version,
			Type:      raw.Wallet.Type,
			Platforms: raw.Wallet.Platforms,
			AppPaths:  raw.Wallet.AppPath,
			BundleID:  raw.Wallet.BundleID,
		},
		Backend: BackendKind(strings.ToLower(raw.Automation.Backend)),
		Automation: Automation{
			StartupWait:     raw.Automation.StartupWait,
			ScreenshotDelay: raw.Automation.ScreenshotDelay,
			ImplicitWait:    raw.Automation.ImplicitWait,
			WaitBefore:      raw.Automation.WaitBefore,
			WaitAfter:       raw.Automation.WaitAfter,
			ScaleFactor:     raw.Automation.ScaleFactor,
		},
		Coordinates: raw.Coordinates,
		Crops:       raw.Crops,
		Crop:        raw.Crop,
		Documentation: Documentation{
			Title:               raw.Documentation.Title,
			Description:         raw.Documentation.Description,
			Troubleshooting:     raw.Documentation.Troubleshooting,
			ScreenshotMaxHeight: raw.Documentation.ScreenshotMaxHeight,
		},
		Build: Build{
			SourceURL:         raw.Build.SourceURL,
			BuildInstructions: raw.Build.BuildInstructions,
		},
		Variables: raw.Variables,
	}

	applyDefaults(def)

	sections, err := decodeSections(&raw.Documentation.Sections)
	if err != nil {
		return nil, err
	}
	def.Sections = sections

	addSystemVariables(def)
	if err := processTemplates(def); err != nil {
		return nil, fmt.Errorf("%w: error processing templates: %v", errors.ErrWorkflowInvalid, err)
	}

	return def, nil
}

func applyDefaults(def *Definition) {
	if def.Wallet.Name == "" {
		def.Wallet.Name = "Unknown"
	}
	if def.Wallet.Type == "" {
		def.Wallet.Type = "desktop"
	}
	if len(def.Wallet.Platforms) == 0 {
		def.Wallet.Platforms = []string{"macos"}
	}
	if def.Backend == "" {
		def.Backend = BackendPointer
	}
	if def.Documentation.Title == "" {
		def.Documentation.Title = def.Wallet.Name + " Wallet User Guide"
	}
	if def.Variables == nil {
		def.Variables = make(map[string]interface{})
	}
}

// decodeSections walks the sections mapping pair by pair so declaration
// order is kept.
func decodeSections(node *yaml.Node) ([]*Section, error) {
	if node.Kind == 0 || node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: documentation.sections must be a mapping", errors.ErrWorkflowInvalid, node.Line)
	}

	var sections []*Section
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		var rs rawSection
		if err := valNode.Decode(&rs); err != nil {
			return nil, fmt.Errorf("%w: section %q: %v", errors.ErrWorkflowInvalid, keyNode.Value, err)
		}

		section := &Section{
			Key:         keyNode.Value,
			Title:       rs.Title,
			Description: rs.Description,
			Crop:        rs.Crop,
			Coordinates: rs.Coordinates,
			Crops:       rs.Crops,
		}
		if section.Title == "" {
			section.Title = titleCase(section.Key)
		}
		for _, st := range rs.Steps {
			section.Steps = append(section.Steps, st.toStep())
		}
		sections = append(sections, section)
	}
	return sections, nil
}

func (r rawStep) toStep() *Step {
	step := &Step{
		Name:        r.Name,
		Description: r.Description,
		Action:      r.Action,
		Target:      r.Target,
		Value:       r.Value,
		Clicks:      r.Clicks,
		Screenshot:  r.Screenshot,
		CropRegion:  r.CropRegion,
		Hidden:      r.Hidden || r.OmitFromOutput,
		Flags:       normaliseFlags(r.Flags),
		Notes:       r.Notes,
		WaitBefore:  r.WaitBefore,
		WaitAfter:   r.WaitAfter,
		Coordinates: r.Coordinates,
		Annotations: r.Annotations,
	}
	if r.Selector != "" && step.Target.IsZero() {
		step.Target = SelectorRef(r.Selector)
	}
	if step.Action == ActionScreenshot {
		step.Screenshot = true
	}
	if step.Clicks <= 0 {
		step.Clicks = 1
	}
	return step
}

func normaliseFlags(flags []string) []string {
	if len(flags) == 0 {
		return nil
	}
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		f = strings.ToUpper(strings.TrimSpace(f))
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// addSystemVariables adds wallet metadata to the variables map
func addSystemVariables(def *Definition) {
	def.Variables["wallet_name"] = def.Wallet.Name
	def.Variables["wallet_version"] = def.Wallet.Version
	def.Variables["wallet_slug"] = Slug(def.Wallet.Name)
}

// processTemplates expands variables in step values, descriptions and notes
func processTemplates(def *Definition) error {
	for _, section := range def.Sections {
		for _, step := range section.Steps {
			for _, field := range []*string{&step.Value, &step.Description, &step.Notes} {
				processed, err := processTemplate(*field, def.Variables)
				if err != nil {
					return fmt.Errorf("step %s/%s: %w", section.Key, step.Name, err)
				}
				*field = processed
			}
		}
	}
	return nil
}

// processTemplate processes a single template string
func processTemplate(templateString string, variables map[string]interface{}) (string, error) {
	if !strings.Contains(templateString, "{{") {
		return templateString, nil
	}

	tmpl, err := template.New("inline").Option("missingkey=error").Parse(templateString)
	if err != nil {
		return "", err
	}

	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, variables); err != nil {
		return "", err
	}

	return buffer.String(), nil
}

// Slug lower-cases a wallet name and replaces spaces with underscores
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func titleCase(key string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(key))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
