// Package review moves generated documentation from the staging area to the
// published tree once a person has looked at it.
package review

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deploymenttheory/go-app-walkthrough/internal/capture"
	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/deploymenttheory/go-app-walkthrough/internal/store"
	"github.com/deploymenttheory/go-app-walkthrough/internal/synth"
	compression "github.com/deploymenttheory/go-app-walkthrough/internal/utils/compressionutil"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/cryptoutil"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/fsutil"
)

// stampLayout names temporary and archived trees
const stampLayout = "20060102T150405Z"

// StateStore persists review positions. *store.Store implements it.
type StateStore interface {
	ReviewState(ctx context.Context, wallet string) (store.ReviewState, bool, error)
	PutReviewState(ctx context.Context, st store.ReviewState) error
}

// Mirror receives a copy of every freshly published tree
type Mirror interface {
	Upload(ctx context.Context, wallet, root string, files []string) error
}

// Options locate the trees and tune publication
type Options struct {
	StagingDir    string
	OutputDir     string
	HistoryDir    string
	ArchiveFormat string
	KeepHistory   bool
	IndexTitle    string
	Mirror        Mirror
	Now           func() time.Time
}

// ReviewError reports a rejected or failed transition
type ReviewError struct {
	Wallet string
	Op     string
	Cause  error
}

func (e *ReviewError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", errors.ErrReview, e.Op, e.Wallet, e.Cause)
}

// Unwrap exposes both the ErrReview sentinel and the cause
func (e *ReviewError) Unwrap() []error {
	return []error{errors.ErrReview, e.Cause}
}

// Approval describes a completed publication
type Approval struct {
	Wallet      string
	Files       int
	Archive     string
	PublishedAt time.Time
	MirrorErr   error
}

// Pipeline performs review transitions
type Pipeline struct {
	state StateStore
	opts  Options
}

// New creates a review pipeline
func New(state StateStore, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ArchiveFormat == "" {
		opts.ArchiveFormat = compression.FormatXZ
	}
	return &Pipeline{state: state, opts: opts}
}

func (p *Pipeline) stagedRoot(wallet string) string {
	return filepath.Join(p.opts.StagingDir, wallet)
}

func (p *Pipeline) publishedRoot(wallet string) string {
	return filepath.Join(p.opts.OutputDir, wallet)
}

// Staged lists wallets with a staged master guide, sorted
func (p *Pipeline) Staged() ([]string, error) {
	if !fsutil.DirExists(p.opts.StagingDir) {
		return nil, nil
	}
	dirs, err := fsutil.ListDirs(p.opts.StagingDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, d := range dirs {
		if strings.HasPrefix(d, ".") {
			continue
		}
		if fsutil.FileExists(filepath.Join(p.stagedRoot(d), synth.MasterFile)) {
			out = append(out, d)
		}
	}
	return out, nil
}

// MarkStaged records that a fresh tree was written to staging
func (p *Pipeline) MarkStaged(ctx context.Context, wallet string) error {
	st, _, err := p.state.ReviewState(ctx, wallet)
	if err != nil {
		return err
	}
	st.Wallet = wallet
	st.State = store.StateStaging
	st.StagedAt = p.opts.Now().UTC()
	return p.state.PutReviewState(ctx, st)
}

// Approve publishes the staged tree of wallet. The previous published tree
// is archived first; the new tree is copied beside it, verified, and swapped
// in by rename so readers never see a half-written tree.
func (p *Pipeline) Approve(ctx context.Context, wallet string) (*Approval, error) {
	staged := p.stagedRoot(wallet)
	if !fsutil.FileExists(filepath.Join(staged, synth.MasterFile)) {
		return nil, &ReviewError{Wallet: wallet, Op: "approve", Cause: errors.ErrNoStagedTree}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := p.opts.Now().UTC()
	stamp := now.Format(stampLayout)
	published := p.publishedRoot(wallet)
	approval := &Approval{Wallet: wallet, PublishedAt: now}

	if fsutil.DirExists(published) && p.opts.KeepHistory {
		archive, err := p.archive(wallet, published, stamp)
		if err != nil {
			return nil, &ReviewError{Wallet: wallet, Op: "archive", Cause: err}
		}
		approval.Archive = archive
	}

	keep := referencedFilter(staged)
	tmp := filepath.Join(p.opts.OutputDir, "."+wallet+".publish-"+stamp)
	if err := fsutil.DeleteDirRecursive(tmp); err != nil {
		return nil, &ReviewError{Wallet: wallet, Op: "prepare", Cause: err}
	}
	if err := fsutil.CopyDirFiltered(staged, tmp, keep); err != nil {
		fsutil.DeleteDirRecursive(tmp)
		return nil, &ReviewError{Wallet: wallet, Op: "copy", Cause: fmt.Errorf("%w: %v", errors.ErrDirCopyError, err)}
	}

	files, err := verifyCopy(staged, tmp, keep)
	if err != nil {
		fsutil.DeleteDirRecursive(tmp)
		return nil, &ReviewError{Wallet: wallet, Op: "verify", Cause: err}
	}
	approval.Files = len(files)

	if err := swap(tmp, published, stamp); err != nil {
		fsutil.DeleteDirRecursive(tmp)
		return nil, &ReviewError{Wallet: wallet, Op: "publish", Cause: fmt.Errorf("%w: %v", errors.ErrDirMoveError, err)}
	}

	st, _, err := p.state.ReviewState(ctx, wallet)
	if err != nil {
		return approval, err
	}
	st.Wallet = wallet
	st.State = store.StatePublished
	st.PublishedAt = now
	if st.StagedAt.IsZero() {
		if info, err := os.Stat(filepath.Join(staged, synth.MasterFile)); err == nil {
			st.StagedAt = info.ModTime().UTC()
		}
	}
	if err := p.state.PutReviewState(ctx, st); err != nil {
		return approval, err
	}

	logger.LogInfo("Published documentation", map[string]interface{}{
		"wallet":  wallet,
		"files":   approval.Files,
		"archive": approval.Archive,
	})

	if _, err := synth.WriteIndex(p.opts.OutputDir, p.opts.IndexTitle); err != nil {
		return approval, err
	}

	if p.opts.Mirror != nil {
		if err := p.opts.Mirror.Upload(ctx, wallet, published, files); err != nil {
			approval.MirrorErr = err
			logger.LogError("Mirror upload failed", err, map[string]interface{}{"wallet": wallet})
		}
	}
	return approval, nil
}

// ApproveAll publishes every staged wallet, continuing past failures
func (p *Pipeline) ApproveAll(ctx context.Context) ([]*Approval, error) {
	wallets, err := p.Staged()
	if err != nil {
		return nil, err
	}

	var (
		approvals []*Approval
		errs      []error
	)
	for _, w := range wallets {
		if err := ctx.Err(); err != nil {
			return approvals, err
		}
		a, err := p.Approve(ctx, w)
		if err != nil {
			logger.LogError("Approval failed", err, map[string]interface{}{"wallet": w})
			errs = append(errs, err)
			continue
		}
		approvals = append(approvals, a)
	}
	return approvals, errors.Join(errs...)
}

func (p *Pipeline) archive(wallet, published, stamp string) (string, error) {
	ext, err := compression.Extension(p.opts.ArchiveFormat)
	if err != nil {
		return "", err
	}
	if err := fsutil.CreateDirIfNotExists(p.opts.HistoryDir); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrArchiveFailed, err)
	}
	dst := filepath.Join(p.opts.HistoryDir, wallet+"-"+stamp+ext)
	if err := compression.ArchiveDir(published, dst, p.opts.ArchiveFormat); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrArchiveFailed, err)
	}
	logger.LogDebug("Archived published tree", map[string]interface{}{"wallet": wallet, "archive": dst})
	return dst, nil
}

// referencedFilter keeps every document and only the screenshots named in
// the staged metadata. Without metadata everything is kept.
func referencedFilter(staged string) func(rel string) bool {
	meta, err := synth.LoadMetadata(staged)
	if err != nil {
		logger.LogWarn("Staged tree has no metadata, publishing every file", map[string]interface{}{
			"path":  staged,
			"error": err.Error(),
		})
		return func(string) bool { return true }
	}

	referenced := make(map[string]bool, len(meta.Screenshots))
	for _, s := range meta.Screenshots {
		referenced[s] = true
	}
	prefix := capture.ScreenshotsDir + "/"
	return func(rel string) bool {
		if strings.HasPrefix(rel, prefix) {
			return referenced[rel]
		}
		return true
	}
}

// verifyCopy checks the copy holds exactly the kept staged files with
// identical content, and returns their relative paths
func verifyCopy(staged, copied string, keep func(string) bool) ([]string, error) {
	want, err := cryptoutil.DigestTree(staged)
	if err != nil {
		return nil, err
	}
	got, err := cryptoutil.DigestTree(copied)
	if err != nil {
		return nil, err
	}

	files, err := fsutil.ListFilesRecursive(copied)
	if err != nil {
		return nil, err
	}
	for _, rel := range files {
		if want[rel] != got[rel] {
			return nil, fmt.Errorf("%w: %s", errors.ErrDigestMismatch, rel)
		}
	}
	for rel := range want {
		if keep(rel) {
			if _, ok := got[rel]; !ok {
				return nil, fmt.Errorf("%w: %s missing", errors.ErrDigestMismatch, rel)
			}
		}
	}
	return files, nil
}

// swap renames src over dst, restoring dst if the second rename fails
func swap(src, dst, stamp string) error {
	if !fsutil.DirExists(dst) {
		return os.Rename(src, dst)
	}
	old := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".old-"+stamp)
	if err := os.Rename(dst, old); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		if rerr := os.Rename(old, dst); rerr != nil {
			logger.LogError("Could not restore previous published tree", rerr, map[string]interface{}{"path": old})
		}
		return err
	}
	return fsutil.DeleteDirRecursive(old)
}
