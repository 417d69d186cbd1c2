package version

import (
	"testing"
	"time"
)

func restore(t *testing.T) {
	v, c, b := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = v, c, b })
}

func TestGet_LinkerValues(t *testing.T) {
	restore(t)
	Version = "1.4.0"
	Commit = "abc1234def"
	BuildTime = "2026-03-02T16:00:00Z"

	info := Get()
	if info.Version != "1.4.0" {
		t.Errorf("Version = %q", info.Version)
	}
	if info.Commit != "abc1234" {
		t.Errorf("Commit = %q, want truncated abc1234", info.Commit)
	}
	if !info.BuiltAt.Equal(time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)) {
		t.Errorf("BuiltAt = %v", info.BuiltAt)
	}
	if info.GoVersion == "" {
		t.Error("expected go version from build info")
	}
}

func TestGet_BadBuildTimeIgnored(t *testing.T) {
	restore(t)
	Commit = "abc1234"
	BuildTime = "yesterday"

	if info := Get(); info.Commit != "abc1234" {
		t.Errorf("Commit = %q", info.Commit)
	}
}

func TestInfo_String(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"version only", Info{Version: "dev"}, "dev"},
		{"with commit", Info{Version: "1.4.0", Commit: "abc1234"}, "1.4.0-abc1234"},
		{"dirty", Info{Version: "1.4.0", Commit: "abc1234", Dirty: true}, "1.4.0-abc1234-dirty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
