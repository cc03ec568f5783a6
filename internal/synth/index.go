package synth

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/fsutil"
)

// IndexFile is the cross-wallet index written at the output root
const IndexFile = "README.md"

// StagingDir holds unreviewed trees inside the output root
const StagingDir = "staging"

// DefaultIndexTitle heads the index when none is configured
const DefaultIndexTitle = "Wallet Documentation"

// IndexEntry describes one published wallet
type IndexEntry struct {
	Name        string
	Slug        string
	Path        string
	Version     string
	Platforms   []string
	TotalSteps  int
	LastUpdated string
	Description string
}

// EntryFromMetadata builds an index entry for the tree published at slug
func EntryFromMetadata(slug string, m Metadata) IndexEntry {
	name := m.WalletName
	if name == "" {
		name = slug
	}
	return IndexEntry{
		Name:        name,
		Slug:        slug,
		Path:        path.Join(slug, MasterFile),
		Version:     m.Version,
		Platforms:   m.Platforms,
		TotalSteps:  m.TotalSteps,
		LastUpdated: m.GeneratedDate,
		Description: firstLine(m.Description),
	}
}

// ScanPublished collects an entry for every published tree below outputDir.
// The staging area and hidden directories are skipped, as are directories
// without a master guide.
func ScanPublished(outputDir string) ([]IndexEntry, error) {
	if !fsutil.DirExists(outputDir) {
		return nil, nil
	}
	dirs, err := fsutil.ListDirs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDirNotFound, err)
	}

	var entries []IndexEntry
	for _, dir := range dirs {
		if dir == StagingDir || strings.HasPrefix(dir, ".") {
			continue
		}
		root := filepath.Join(outputDir, dir)
		if !fsutil.FileExists(filepath.Join(root, MasterFile)) {
			continue
		}
		m, err := LoadMetadata(root)
		if err != nil {
			logger.LogWarn("Published tree has no readable metadata", map[string]interface{}{
				"wallet": dir,
				"error":  err.Error(),
			})
		}
		entries = append(entries, EntryFromMetadata(dir, m))
	}
	return entries, nil
}

// RenderIndex renders the cross-wallet index, sorted by wallet name
func RenderIndex(title string, entries []IndexEntry) ([]byte, error) {
	if title == "" {
		title = DefaultIndexTitle
	}
	sorted := append([]IndexEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := strings.ToLower(sorted[i].Name), strings.ToLower(sorted[j].Name)
		if a != b {
			return a < b
		}
		return sorted[i].Slug < sorted[j].Slug
	})

	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, "index.md.tmpl", struct {
		Title   string
		Total   int
		Wallets []IndexEntry
	}{title, len(sorted), sorted})
	if err != nil {
		return nil, fmt.Errorf("%w: rendering index: %v", errors.ErrSynthesis, err)
	}
	return buf.Bytes(), nil
}

// WriteIndex scans outputDir and writes its index
func WriteIndex(outputDir, title string) ([]IndexEntry, error) {
	entries, err := ScanPublished(outputDir)
	if err != nil {
		return nil, err
	}
	data, err := RenderIndex(title, entries)
	if err != nil {
		return nil, err
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(outputDir, IndexFile), data, 0644); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrFileWriteError, err)
	}
	logger.LogInfo("Wrote documentation index", map[string]interface{}{
		"wallets": len(entries),
		"path":    filepath.Join(outputDir, IndexFile),
	})
	return entries, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
