// Package export bundles the screenshots of a documentation tree into a PDF
// with one image per page, in guide order.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/deploymenttheory/go-app-walkthrough/internal/synth"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ScreenshotBook writes the screenshots referenced by the tree at root into
// outFile and returns the page count
func ScreenshotBook(root, outFile string) (int, error) {
	meta, err := synth.LoadMetadata(root)
	if err != nil {
		return 0, err
	}

	var images []string
	for _, rel := range meta.Screenshots {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if _, err := os.Stat(p); err != nil {
			logger.LogWarn("Referenced screenshot missing, skipping", map[string]interface{}{"image": rel})
			continue
		}
		images = append(images, p)
	}
	if len(images) == 0 {
		return 0, fmt.Errorf("%w: %s", errors.ErrNothingToExport, root)
	}

	if err := os.MkdirAll(filepath.Dir(outFile), 0755); err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrFileWriteError, err)
	}
	// ImportImagesFile appends to an existing file
	if err := os.Remove(outFile); err != nil && !os.IsNotExist(err) {
		return 0, err
	}

	conf := model.NewDefaultConfiguration()
	if err := api.ImportImagesFile(images, outFile, pdfcpu.DefaultImportConfig(), conf); err != nil {
		return 0, fmt.Errorf("pdfcpu import: %w", err)
	}

	props := map[string]string{"Title": meta.Title, "Subject": meta.WalletName}
	if meta.Version != "" {
		props["Version"] = meta.Version
	}
	if err := api.AddPropertiesFile(outFile, "", props, conf); err != nil {
		logger.LogWarn("Could not set PDF properties", map[string]interface{}{"error": err.Error()})
	}

	logger.LogInfo("Exported screenshot book", map[string]interface{}{
		"wallet": meta.WalletName,
		"pages":  len(images),
		"path":   outFile,
	})
	return len(images), nil
}
