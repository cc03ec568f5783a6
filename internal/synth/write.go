package synth

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/fsutil"
)

// Write stores the tree below root. Section documents left over from
// sections that no longer exist are removed; screenshots are left alone.
func (t *Tree) Write(root string) error {
	keep := make(map[string]bool, len(t.Files))
	for _, f := range t.Files {
		dst := filepath.Join(root, filepath.FromSlash(f.Path))
		if err := fsutil.WriteFileAtomic(dst, f.Data, 0644); err != nil {
			return fmt.Errorf("%w: %s: %v", errors.ErrFileWriteError, f.Path, err)
		}
		keep[f.Path] = true
	}

	entries, err := os.ReadDir(filepath.Join(root, SectionsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		rel := path.Join(SectionsDir, e.Name())
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") || keep[rel] {
			continue
		}
		if err := fsutil.DeleteFile(filepath.Join(root, SectionsDir, e.Name())); err != nil {
			return err
		}
		logger.LogDebug("Removed stale section document", map[string]interface{}{"file": rel})
	}
	return nil
}
