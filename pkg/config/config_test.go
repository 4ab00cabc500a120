package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testConfig struct {
	Source struct {
		Path     string `yaml:"path"`
		Provider string `yaml:"provider"`
	} `yaml:"source"`
}

func (c *testConfig) Validate() error {
	if c.Source.Provider == "grok" {
		return fmt.Errorf("unsupported provider")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_EXPORT_PATH", "/data/conversations.json")
	path := writeConfig(t, "source:\n  path: ${TEST_EXPORT_PATH}\n  provider: claude\n")

	var cfg testConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.Path != "/data/conversations.json" {
		t.Errorf("Path = %q", cfg.Source.Path)
	}
}

func TestLoadRunsValidator(t *testing.T) {
	path := writeConfig(t, "source:\n  provider: grok\n")
	var cfg testConfig
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("err = %v, want validation failure", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var cfg testConfig
	if err := Load(filepath.Join(t.TempDir(), "absent.yaml"), &cfg); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "source: [unclosed")
	var cfg testConfig
	if err := Load(path, &cfg); err == nil {
		t.Error("expected parse error")
	}
}
