package workflow

import (
	"fmt"
	"path/filepath"

	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/fsutil"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/osutil"
	"gopkg.in/yaml.v3"
)

// ScaffoldOptions describes a new wallet workflow
type ScaffoldOptions struct {
	Name        string
	Version     string
	Platform    string
	AppPath     string
	Backend     BackendKind
	SourceURL   string
	Description string
}

type scaffoldDoc struct {
	Wallet struct {
		Name      string            `yaml:"name"`
		Version   string            `yaml:"version"`
		Type      string            `yaml:"type"`
		Platforms []string          `yaml:"platforms"`
		AppPath   map[string]string `yaml:"app_path"`
	} `yaml:"wallet"`
	Automation struct {
		Backend         string  `yaml:"backend"`
		StartupWait     float64 `yaml:"startup_wait"`
		ScreenshotDelay float64 `yaml:"screenshot_delay"`
		ImplicitWait    float64 `yaml:"implicit_wait"`
	} `yaml:"automation"`
	Documentation struct {
		Title               string     `yaml:"title"`
		Description         string     `yaml:"description"`
		ScreenshotMaxHeight int        `yaml:"screenshot_max_height"`
		Troubleshooting     string     `yaml:"troubleshooting"`
		Sections            *yaml.Node `yaml:"sections"`
	} `yaml:"documentation"`
	Build struct {
		SourceURL         string `yaml:"source_url"`
		BuildInstructions string `yaml:"build_instructions"`
	} `yaml:"build"`
}

type scaffoldSection struct {
	Title       string             `yaml:"title"`
	Description string             `yaml:"description"`
	Coordinates map[string]Locator `yaml:"coordinates,omitempty"`
	Steps       []scaffoldStep     `yaml:"steps"`
}

type scaffoldStep struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Action      ActionKind `yaml:"action"`
	Target      string     `yaml:"target,omitempty"`
	Screenshot  bool       `yaml:"screenshot,omitempty"`
	Flags       []string   `yaml:"flags,omitempty"`
}

// Scaffold renders a starter workflow definition for a new wallet
func Scaffold(opts ScaffoldOptions) ([]byte, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("%w: wallet name is required", errors.ErrInvalidArgument)
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if opts.Platform == "" {
		opts.Platform = osutil.PlatformMacOS
	}
	if opts.Backend == "" {
		opts.Backend = BackendPointer
	}
	if opts.AppPath == "" {
		opts.AppPath = defaultAppPath(opts.Name, opts.Platform)
	}
	if opts.Description == "" {
		opts.Description = fmt.Sprintf("Complete guide to setting up %s", opts.Name)
	}

	target := "create_button"
	var coords map[string]Locator
	switch opts.Backend {
	case BackendPointer:
		coords = map[string]Locator{target: PointLocator(Point{X: 400, Y: 300})}
	case BackendElement:
		coords = map[string]Locator{target: SelectorLocator("Create New Wallet")}
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownBackend, opts.Backend)
	}

	sections := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range []struct {
		key string
		val scaffoldSection
	}{
		{"setup", scaffoldSection{
			Title:       "Setup",
			Description: fmt.Sprintf("Launch %s and create a new wallet.", opts.Name),
			Coordinates: coords,
			Steps: []scaffoldStep{
				{Name: "Launch", Description: fmt.Sprintf("Open %s.", opts.Name), Action: ActionLaunch, Screenshot: true},
				{Name: "Create wallet", Description: "Click **Create New Wallet**.", Action: ActionClick, Target: target, Screenshot: true, Flags: []string{FlagNew}},
			},
		}},
		{"usage", scaffoldSection{
			Title:       "Usage",
			Description: "Everyday operations.",
			Steps: []scaffoldStep{
				{Name: "Main window", Description: "The main wallet window.", Action: ActionScreenshot, Screenshot: true},
			},
		}},
	} {
		var v yaml.Node
		if err := v.Encode(s.val); err != nil {
			return nil, err
		}
		sections.Content = append(sections.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: s.key}, &v)
	}

	var doc scaffoldDoc
	doc.Wallet.Name = opts.Name
	doc.Wallet.Version = opts.Version
	doc.Wallet.Type = "desktop"
	doc.Wallet.Platforms = []string{opts.Platform}
	doc.Wallet.AppPath = map[string]string{opts.Platform: opts.AppPath}
	doc.Automation.Backend = string(opts.Backend)
	doc.Automation.StartupWait = 3
	doc.Automation.ScreenshotDelay = 1
	doc.Automation.ImplicitWait = 10
	doc.Documentation.Title = fmt.Sprintf("%s Setup Guide", opts.Name)
	doc.Documentation.Description = opts.Description
	doc.Documentation.ScreenshotMaxHeight = 600
	doc.Documentation.Sections = sections
	doc.Build.SourceURL = opts.SourceURL

	return yaml.Marshal(&doc)
}

// WriteScaffold writes a starter workflow to <workflowsDir>/<slug>/config.yaml.
// An existing definition is only replaced when overwrite is set.
func WriteScaffold(workflowsDir string, opts ScaffoldOptions, overwrite bool) (string, error) {
	path := filepath.Join(workflowsDir, Slug(opts.Name), DefinitionFile)
	if fsutil.FileExists(path) && !overwrite {
		return "", fmt.Errorf("%w: %s", errors.ErrFileExistsError, path)
	}

	data, err := Scaffold(opts)
	if err != nil {
		return "", err
	}
	if err := fsutil.WriteFileAtomic(path, data, 0644); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrFileWriteError, err)
	}
	return path, nil
}

func defaultAppPath(name, platform string) string {
	switch platform {
	case osutil.PlatformLinux:
		return "/usr/bin/" + Slug(name)
	case osutil.PlatformWindows:
		return fmt.Sprintf(`C:\Program Files\%s\%s.exe`, name, Slug(name))
	default:
		return "/Applications/" + name + ".app"
	}
}
