package plistutil

import (
	"errors"
	"path/filepath"
	"testing"

	apperrors "github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
)

func TestBundleIdentifier(t *testing.T) {
	app := filepath.Join(t.TempDir(), "Sparrow.app")
	info := map[string]interface{}{
		"CFBundleIdentifier": "com.sparrowwallet.sparrow",
		"CFBundleName":       "Sparrow",
	}
	if err := WritePlist(filepath.Join(app, "Contents", "Info.plist"), info); err != nil {
		t.Fatalf("WritePlist failed: %v", err)
	}

	id, err := BundleIdentifier(app)
	if err != nil {
		t.Fatalf("BundleIdentifier failed: %v", err)
	}
	if id != "com.sparrowwallet.sparrow" {
		t.Errorf("got bundle id %q", id)
	}
}

func TestBundleIdentifierMissing(t *testing.T) {
	_, err := BundleIdentifier(filepath.Join(t.TempDir(), "Missing.app"))
	if !errors.Is(err, apperrors.ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestGetValueNested(t *testing.T) {
	data := map[string]interface{}{
		"outer": map[string]interface{}{"inner": "value"},
	}
	if v, ok := GetValue(data, "outer.inner"); !ok || v != "value" {
		t.Errorf("GetValue(outer.inner) = %v, %v", v, ok)
	}
	if _, ok := GetValue(data, "outer.missing"); ok {
		t.Errorf("expected missing nested key to report false")
	}
	if _, ok := GetValue(data, "outer.inner.deeper"); ok {
		t.Errorf("expected traversal through a string to report false")
	}
}

func TestBundleExecutable(t *testing.T) {
	app := filepath.Join(t.TempDir(), "Exodus.app")
	info := map[string]interface{}{"CFBundleExecutable": "Exodus"}
	if err := WritePlist(filepath.Join(app, "Contents", "Info.plist"), info); err != nil {
		t.Fatalf("WritePlist failed: %v", err)
	}

	bin, err := BundleExecutable(app)
	if err != nil {
		t.Fatalf("BundleExecutable failed: %v", err)
	}
	if want := filepath.Join(app, "Contents", "MacOS", "Exodus"); bin != want {
		t.Errorf("got %s, want %s", bin, want)
	}

	if _, err := BundleIdentifier(app); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for missing identifier, got %v", err)
	}
}
