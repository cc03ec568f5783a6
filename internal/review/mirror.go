package review

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/deploymenttheory/go-app-walkthrough/internal/config"
	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

const defaultMirrorConcurrency = 8

// GCSMirror copies published trees into a Cloud Storage bucket
type GCSMirror struct {
	client      *storage.Client
	bucket      string
	prefix      string
	concurrency int
}

// NewGCSMirror connects to Cloud Storage with the configured credentials,
// or application default credentials when none are set
func NewGCSMirror(ctx context.Context, cfg config.GCPConfig) (*GCSMirror, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: storage.gcp.bucket is required", errors.ErrConfigInvalid)
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultMirrorConcurrency
	}
	return &GCSMirror{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, concurrency: concurrency}, nil
}

// MirrorFromConfig returns the mirror selected by the storage section, or
// nil when mirroring is off
func MirrorFromConfig(ctx context.Context, cfg config.StorageConfig) (*GCSMirror, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "gcp":
		return NewGCSMirror(ctx, cfg.GCP)
	default:
		return nil, fmt.Errorf("%w: unsupported storage provider %q", errors.ErrConfigInvalid, cfg.Provider)
	}
}

// ObjectName maps a published file onto its bucket object
func (m *GCSMirror) ObjectName(wallet, rel string) string {
	return path.Join(m.prefix, wallet, rel)
}

// Upload copies files, given relative to root, with bounded concurrency
func (m *GCSMirror) Upload(ctx context.Context, wallet, root string, files []string) error {
	bucket := m.client.Bucket(m.bucket)

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(m.concurrency)
	for _, rel := range files {
		rel := rel
		eg.Go(func() error {
			src := filepath.Join(root, filepath.FromSlash(rel))
			if err := m.put(gctx, bucket, m.ObjectName(wallet, rel), src); err != nil {
				return fmt.Errorf("%s: %w", rel, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	logger.LogInfo("Mirrored published tree", map[string]interface{}{
		"wallet": wallet,
		"bucket": m.bucket,
		"files":  len(files),
	})
	return nil
}

func (m *GCSMirror) put(ctx context.Context, bucket *storage.BucketHandle, object, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bucket.Object(object).NewWriter(ctx)
	if ct := mime.TypeByExtension(path.Ext(object)); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// Close releases the storage client
func (m *GCSMirror) Close() error {
	return m.client.Close()
}
