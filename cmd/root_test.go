package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if got := out.String(); got != "go-app-walkthrough v"+Version+"\n" {
		t.Errorf("unexpected version output %q", got)
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{"run", "review", "index", "new", "preview", "export", "version"}
	var have []string
	for _, c := range rootCmd.Commands() {
		have = append(have, c.Name())
	}
	joined := strings.Join(have, ",")
	for _, name := range want {
		if !strings.Contains(joined, name) {
			t.Errorf("missing subcommand %s in %v", name, have)
		}
	}

	for _, flag := range []string{"docs-only", "sections", "no-screenshots"} {
		if runCmd.Flags().Lookup(flag) == nil {
			t.Errorf("run is missing --%s", flag)
		}
	}
	if reviewCmd.Flags().Lookup("approve-all") == nil {
		t.Errorf("review is missing --approve-all")
	}
}
