package backend

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
)

func TestXPathLiteral(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Next", `"Next"`},
		{`Say "hi"`, `'Say "hi"'`},
		{`it's "x"`, `concat("it's ", '"', "x", '"', "")`},
	}
	for _, tt := range tests {
		if got := xpathLiteral(tt.in); got != tt.want {
			t.Errorf("xpathLiteral(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRodDriverRequiresSession(t *testing.T) {
	d := NewRodDriver(RodOptions{})
	if _, err := d.Find(context.Background(), "Next"); !errors.Is(err, apperrors.ErrSessionNotOpen) {
		t.Errorf("expected ErrSessionNotOpen, got %v", err)
	}
	if _, err := d.Screenshot(context.Background()); !errors.Is(err, apperrors.ErrSessionNotOpen) {
		t.Errorf("expected ErrSessionNotOpen, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close on an unopened driver should be a no-op: %v", err)
	}
}
