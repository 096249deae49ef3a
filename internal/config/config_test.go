package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
	if cfg.Play.Difficulty != nil {
		t.Fatalf("expected empty config")
	}
}

func TestLoadConfigPlaySection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `[play]
difficulty = "hard"
policy = "assist"
offset-ms = -150
volume = 0.5
rate = 1.25
encoding = "windows-1252"

[stats]
window = 5
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	p := cfg.Play
	if p.Difficulty == nil || *p.Difficulty != "hard" || p.Policy == nil || *p.Policy != "assist" {
		t.Fatalf("unexpected names: %+v", p)
	}
	if p.OffsetMs == nil || *p.OffsetMs != -150 || p.Volume == nil || *p.Volume != 0.5 || p.Rate == nil || *p.Rate != 1.25 {
		t.Fatalf("unexpected numbers: %+v", p)
	}
	if p.Encoding == nil || *p.Encoding != "windows-1252" {
		t.Fatalf("unexpected encoding: %+v", p)
	}
	if cfg.Stats.Window == nil || *cfg.Stats.Window != 5 {
		t.Fatalf("unexpected stats window: %+v", cfg.Stats)
	}
}

func TestLoadConfigUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[play]\nspeed = 2\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "play.speed") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	if got := DefaultConfigPath(); got != filepath.Join("/tmp/cfg", "lyritype", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/tmp/data", "lyritype", "lyritype.db") {
		t.Fatalf("unexpected db path %q", got)
	}
}
