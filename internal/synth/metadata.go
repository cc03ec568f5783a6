package synth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/workflow"
)

// Feature points at a flagged step
type Feature struct {
	Section      string `json:"section"`
	SectionTitle string `json:"section_title"`
	Step         string `json:"step"`
}

// SectionMeta summarises one rendered section
type SectionMeta struct {
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	File     string   `json:"file"`
	Steps    int      `json:"steps"`
	Warnings []string `json:"warnings,omitempty"`
}

// AnnotatedScreenshot records the marks drawn onto one image
type AnnotatedScreenshot struct {
	Image       string                `json:"image"`
	Annotations []workflow.Annotation `json:"annotations"`
}

// Metadata is written next to the master guide as metadata.json. The index
// and the review pipeline read it back.
type Metadata struct {
	Title                string                `json:"title"`
	Description          string                `json:"description,omitempty"`
	WalletName           string                `json:"wallet_name"`
	WalletSlug           string                `json:"wallet_slug"`
	Version              string                `json:"version,omitempty"`
	Type                 string                `json:"type,omitempty"`
	Platforms            []string              `json:"platforms"`
	GeneratedDate        string                `json:"generated_date"`
	RunIDs               []string              `json:"run_ids"`
	TotalSteps           int                   `json:"total_steps"`
	Sections             []SectionMeta         `json:"sections"`
	NewFeatures          []Feature             `json:"new_features"`
	ChangedFeatures      []Feature             `json:"changed_features"`
	Screenshots          []string              `json:"screenshots"`
	AnnotatedScreenshots []AnnotatedScreenshot `json:"annotated_screenshots"`
	SourceURL            string                `json:"source_url,omitempty"`
	BuildInstructions    string                `json:"-"`
	Troubleshooting      string                `json:"-"`
}

func newMetadata(def *workflow.Definition, results []workflow.StepResult) Metadata {
	title := def.Documentation.Title
	if title == "" {
		title = def.Wallet.Name + " User Guide"
	}

	m := Metadata{
		Title:                title,
		Description:          normalizeText(def.Documentation.Description),
		WalletName:           def.Wallet.Name,
		WalletSlug:           workflow.Slug(def.Wallet.Name),
		Version:              def.Wallet.Version,
		Type:                 def.Wallet.Type,
		Platforms:            append([]string{}, def.Wallet.Platforms...),
		GeneratedDate:        generatedDate(results),
		RunIDs:               []string{},
		NewFeatures:          []Feature{},
		ChangedFeatures:      []Feature{},
		Screenshots:          []string{},
		AnnotatedScreenshots: []AnnotatedScreenshot{},
		SourceURL:            def.Build.SourceURL,
		BuildInstructions:    normalizeText(def.Build.BuildInstructions),
		Troubleshooting:      normalizeText(def.Documentation.Troubleshooting),
	}

	seen := make(map[string]bool)
	for _, r := range results {
		if r.RunID != "" && !seen[r.RunID] {
			seen[r.RunID] = true
			m.RunIDs = append(m.RunIDs, r.RunID)
		}
	}
	return m
}

// LoadMetadata reads metadata.json from a wallet tree
func LoadMetadata(dir string) (Metadata, error) {
	var m Metadata
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return m, fmt.Errorf("%w: %s", errors.ErrFileNotFound, filepath.Join(dir, MetadataFile))
		}
		return m, fmt.Errorf("%w: %v", errors.ErrFileReadError, err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: %s: %v", errors.ErrFileReadError, MetadataFile, err)
	}
	return m, nil
}
