package review

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/deploymenttheory/go-app-walkthrough/internal/store"
	"github.com/deploymenttheory/go-app-walkthrough/internal/synth"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/cryptoutil"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
)

// FileStatus compares a staged file against the published tree
type FileStatus string

const (
	FileNew       FileStatus = "new"
	FileChanged   FileStatus = "changed"
	FileUnchanged FileStatus = "unchanged"
)

// StagedFile is one file awaiting review
type StagedFile struct {
	Path   string
	Status FileStatus
}

// StagedTree summarises the staged documentation of one wallet
type StagedTree struct {
	Wallet    string
	Name      string
	State     store.State
	StagedAt  time.Time
	Published bool
	Warnings  int
	Files     []StagedFile
}

// Changed counts files that differ from the published tree
func (t StagedTree) Changed() int {
	n := 0
	for _, f := range t.Files {
		if f.Status != FileUnchanged {
			n++
		}
	}
	return n
}

// Review lists staged trees without changing anything. An empty wallet
// lists every staged wallet.
func (p *Pipeline) Review(ctx context.Context, wallet string) ([]StagedTree, error) {
	wallets := []string{wallet}
	if wallet == "" {
		var err error
		if wallets, err = p.Staged(); err != nil {
			return nil, err
		}
	}

	var out []StagedTree
	for _, w := range wallets {
		staged := p.stagedRoot(w)
		master := filepath.Join(staged, synth.MasterFile)
		info, err := os.Stat(master)
		if err != nil {
			return nil, &ReviewError{Wallet: w, Op: "review", Cause: errors.ErrNoStagedTree}
		}

		tree := StagedTree{Wallet: w, Name: w, StagedAt: info.ModTime().UTC(), State: store.StateStaging}
		if meta, err := synth.LoadMetadata(staged); err == nil {
			tree.Name = meta.WalletName
			for _, s := range meta.Sections {
				tree.Warnings += len(s.Warnings)
			}
		}
		st, ok, err := p.state.ReviewState(ctx, w)
		if err != nil {
			return nil, err
		}
		if ok {
			tree.State = st.State
			if !st.StagedAt.IsZero() {
				tree.StagedAt = st.StagedAt
			}
		}

		if tree.Files, err = compareTrees(staged, p.publishedRoot(w), referencedFilter(staged)); err != nil {
			return nil, err
		}
		for _, f := range tree.Files {
			if f.Status != FileNew {
				tree.Published = true
				break
			}
		}
		out = append(out, tree)
	}
	return out, nil
}

func compareTrees(staged, published string, keep func(string) bool) ([]StagedFile, error) {
	current, err := cryptoutil.DigestTree(staged)
	if err != nil {
		return nil, err
	}
	previous, err := cryptoutil.DigestTree(published)
	if err != nil {
		return nil, err
	}

	var files []StagedFile
	for rel, sum := range current {
		if !keep(rel) {
			continue
		}
		status := FileUnchanged
		switch old, ok := previous[rel]; {
		case !ok:
			status = FileNew
		case old != sum:
			status = FileChanged
		}
		files = append(files, StagedFile{Path: rel, Status: status})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	newStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	changedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB74D"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	unchangedLabel = mutedStyle.Render(string(FileUnchanged))
)

// Format renders a review listing for the terminal. Unchanged files are
// only counted unless verbose is set.
func Format(trees []StagedTree, verbose bool) string {
	if len(trees) == 0 {
		return mutedStyle.Render("Nothing staged for review.") + "\n"
	}

	var b strings.Builder
	for i, t := range trees {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%s)", t.Name, t.Wallet)))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s since %s, %d of %d files differ from published",
			t.State, t.StagedAt.Format("2006-01-02 15:04"), t.Changed(), len(t.Files))))
		b.WriteString("\n")
		if t.Warnings > 0 {
			b.WriteString(warningStyle.Render(fmt.Sprintf("  %d section warning(s), see the staged guide", t.Warnings)))
			b.WriteString("\n")
		}

		for _, f := range t.Files {
			var label string
			switch f.Status {
			case FileNew:
				label = newStyle.Render(string(f.Status))
			case FileChanged:
				label = changedStyle.Render(string(f.Status))
			default:
				if !verbose {
					continue
				}
				label = unchangedLabel
			}
			fmt.Fprintf(&b, "  %-9s %s\n", label, f.Path)
		}
	}
	return b.String()
}
