package review

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/deploymenttheory/go-app-walkthrough/internal/store"
	"github.com/deploymenttheory/go-app-walkthrough/internal/synth"
	compression "github.com/deploymenttheory/go-app-walkthrough/internal/utils/compressionutil"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/fsutil"
)

// History lists the archived published trees of wallet, newest first
func (p *Pipeline) History(wallet string) ([]string, error) {
	if !fsutil.DirExists(p.opts.HistoryDir) {
		return nil, nil
	}
	entries, err := os.ReadDir(p.opts.HistoryDir)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		rest, ok := strings.CutPrefix(name, wallet+"-")
		if e.IsDir() || !ok || len(rest) < len(stampLayout) {
			continue
		}
		if _, err := time.Parse(stampLayout, rest[:len(stampLayout)]); err != nil {
			continue
		}
		full := filepath.Join(p.opts.HistoryDir, name)
		if _, err := compression.DetectArchiveFormat(full); err != nil {
			continue
		}
		out = append(out, full)
	}
	// archive names end in a sortable UTC stamp
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// Restore republishes an archived tree of wallet. archive may be a path or a
// file name inside the history directory. The current published tree is
// archived first when history is kept.
func (p *Pipeline) Restore(ctx context.Context, wallet, archive string) (*Approval, error) {
	src := archive
	if !fsutil.FileExists(src) {
		src = filepath.Join(p.opts.HistoryDir, filepath.Base(archive))
	}
	if !fsutil.FileExists(src) {
		return nil, &ReviewError{Wallet: wallet, Op: "restore", Cause: fmt.Errorf("%w: %s", errors.ErrFileNotFound, archive)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := p.opts.Now().UTC()
	stamp := now.Format(stampLayout)
	published := p.publishedRoot(wallet)
	approval := &Approval{Wallet: wallet, PublishedAt: now}

	tmp := filepath.Join(p.opts.OutputDir, "."+wallet+".restore-"+stamp)
	if err := fsutil.DeleteDirRecursive(tmp); err != nil {
		return nil, &ReviewError{Wallet: wallet, Op: "prepare", Cause: err}
	}
	if err := compression.ExtractArchive(src, tmp); err != nil {
		fsutil.DeleteDirRecursive(tmp)
		return nil, &ReviewError{Wallet: wallet, Op: "extract", Cause: fmt.Errorf("%w: %v", errors.ErrArchiveFailed, err)}
	}
	if !fsutil.FileExists(filepath.Join(tmp, synth.MasterFile)) {
		fsutil.DeleteDirRecursive(tmp)
		return nil, &ReviewError{Wallet: wallet, Op: "extract", Cause: fmt.Errorf("%w: archive holds no %s", errors.ErrInvalidArgument, synth.MasterFile)}
	}

	files, err := fsutil.ListFilesRecursive(tmp)
	if err != nil {
		fsutil.DeleteDirRecursive(tmp)
		return nil, &ReviewError{Wallet: wallet, Op: "extract", Cause: err}
	}
	approval.Files = len(files)

	if fsutil.DirExists(published) && p.opts.KeepHistory {
		prev, err := p.archive(wallet, published, stamp)
		if err != nil {
			fsutil.DeleteDirRecursive(tmp)
			return nil, &ReviewError{Wallet: wallet, Op: "archive", Cause: err}
		}
		approval.Archive = prev
	}

	if err := swap(tmp, published, stamp); err != nil {
		fsutil.DeleteDirRecursive(tmp)
		return nil, &ReviewError{Wallet: wallet, Op: "restore", Cause: fmt.Errorf("%w: %v", errors.ErrDirMoveError, err)}
	}

	st, _, err := p.state.ReviewState(ctx, wallet)
	if err != nil {
		return approval, err
	}
	st.Wallet = wallet
	st.State = store.StatePublished
	st.PublishedAt = now
	if err := p.state.PutReviewState(ctx, st); err != nil {
		return approval, err
	}

	logger.LogInfo("Restored documentation", map[string]interface{}{
		"wallet":  wallet,
		"from":    src,
		"files":   approval.Files,
		"archive": approval.Archive,
	})

	if _, err := synth.WriteIndex(p.opts.OutputDir, p.opts.IndexTitle); err != nil {
		return approval, err
	}
	return approval, nil
}
