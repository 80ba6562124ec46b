package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filters.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
profiles:
  boot:
    strip_escape: true
    grep: ["init:"]
    exclude: ["svc-meta"]
  putc:
    extract_debug_putc: true
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	boot, err := f.Profile("boot")
	if err != nil {
		t.Fatalf("Profile(boot) failed: %v", err)
	}
	if !boot.StripEscape {
		t.Error("boot.StripEscape should be true")
	}
	if len(boot.Grep) != 1 || boot.Grep[0] != "init:" {
		t.Errorf("boot.Grep = %v", boot.Grep)
	}
	if len(boot.Exclude) != 1 || boot.Exclude[0] != "svc-meta" {
		t.Errorf("boot.Exclude = %v", boot.Exclude)
	}

	putc, err := f.Profile("putc")
	if err != nil {
		t.Fatalf("Profile(putc) failed: %v", err)
	}
	if !putc.ExtractDebugPutc {
		t.Error("putc.ExtractDebugPutc should be true")
	}

	if got := f.ProfileNames(); len(got) != 2 || got[0] != "boot" || got[1] != "putc" {
		t.Errorf("ProfileNames = %v", got)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		if _, err := Load(writeConfig(t, "profiles: [not a map")); err == nil {
			t.Error("expected error for invalid yaml")
		}
	})

	t.Run("no profiles", func(t *testing.T) {
		_, err := Load(writeConfig(t, "profiles: {}"))
		if err == nil || !strings.Contains(err.Error(), "no profiles defined") {
			t.Errorf("got %v, want no-profiles error", err)
		}
	})

	t.Run("empty filter substring", func(t *testing.T) {
		_, err := Load(writeConfig(t, "profiles:\n  bad:\n    grep: [\"\"]\n"))
		if err == nil || !strings.Contains(err.Error(), "empty filter substring") {
			t.Errorf("got %v, want empty-substring error", err)
		}
	})
}

func TestUnknownProfile(t *testing.T) {
	f, err := Load(writeConfig(t, "profiles:\n  boot:\n    strip_escape: true\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	_, err = f.Profile("missing")
	if err == nil || !strings.Contains(err.Error(), "available: boot") {
		t.Errorf("got %v, want unknown-profile error listing boot", err)
	}
}
