package review

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deploymenttheory/go-app-walkthrough/internal/store"
	"github.com/deploymenttheory/go-app-walkthrough/internal/synth"
	apperrors "github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/fsutil"
)

func TestHistoryAndRestore(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if got, err := f.pipeline.History("sparrow"); err != nil || len(got) != 0 {
		t.Fatalf("expected empty history, got %v, %v", got, err)
	}

	f.stage(t, "sparrow", "# Sparrow v1\n")
	if _, err := f.pipeline.Approve(ctx, "sparrow"); err != nil {
		t.Fatal(err)
	}
	f.stage(t, "sparrow", "# Sparrow v2\n")
	second, err := f.pipeline.Approve(ctx, "sparrow")
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(f.history, "sparrow-notes.txt"), "not an archive")
	writeFile(t, filepath.Join(f.history, "sparrow-wallet-20240101T000000Z.tar.xz"), "other wallet")

	history, err := f.pipeline.History("sparrow")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 || history[0] != second.Archive {
		t.Fatalf("unexpected history %v", history)
	}

	restored, err := f.pipeline.Restore(ctx, "sparrow", filepath.Base(second.Archive))
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(f.out, "sparrow", synth.MasterFile))
	if err != nil || string(data) != "# Sparrow v1\n" {
		t.Errorf("restored guide = %q, %v", data, err)
	}
	if restored.Files != 4 || restored.Archive == "" {
		t.Errorf("unexpected restore result %+v", restored)
	}

	history, err = f.pipeline.History("sparrow")
	if err != nil || len(history) != 2 || history[0] != restored.Archive {
		t.Errorf("restore should archive the replaced tree first, got %v, %v", history, err)
	}

	st, ok, err := f.state.ReviewState(ctx, "sparrow")
	if err != nil || !ok || st.State != store.StatePublished || !st.PublishedAt.Equal(restored.PublishedAt) {
		t.Errorf("unexpected review state %+v, %v, %v", st, ok, err)
	}

	dirs, err := fsutil.ListDirs(f.out)
	if err != nil || strings.Join(dirs, ",") != "sparrow,staging" {
		t.Errorf("temporary directories left behind: %v, %v", dirs, err)
	}
}

func TestRestoreMissingArchive(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.pipeline.Restore(context.Background(), "sparrow", "sparrow-20240101T000000Z.tar.xz")
	if !errors.Is(err, apperrors.ErrFileNotFound) || !errors.Is(err, apperrors.ErrReview) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}
