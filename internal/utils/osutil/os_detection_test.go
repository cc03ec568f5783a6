package osutil

import "testing"

func TestPlatformKeyFor(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"darwin", "macos"},
		{"linux", "linux"},
		{"windows", "windows"},
		{"freebsd", "freebsd"},
	}

	for _, tt := range tests {
		if got := PlatformKeyFor(tt.goos); got != tt.want {
			t.Errorf("PlatformKeyFor(%q) = %q, want %q", tt.goos, got, tt.want)
		}
	}
}

func TestIsDevEnvironment(t *testing.T) {
	t.Setenv("APP_WALKTHROUGH_ENV", "")
	t.Setenv("APP_WALKTHROUGH_DEV", "")
	t.Setenv("DEV", "")
	if IsDevEnvironment() {
		t.Fatalf("expected non-dev environment with no variables set")
	}

	t.Setenv("APP_WALKTHROUGH_ENV", "development")
	if !IsDevEnvironment() {
		t.Errorf("expected dev environment when APP_WALKTHROUGH_ENV=development")
	}
}
