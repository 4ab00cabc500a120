package internal

import "testing"

func TestNewDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if cfg.Search.DefaultLimit != 20 || cfg.Search.SnippetWidth != 160 {
		t.Errorf("search defaults = %+v", cfg.Search)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"bogus provider":       func(c *Config) { c.Source.Provider = "grok" },
		"bogus export format":  func(c *Config) { c.Export.Format = "xml" },
		"tiny snippet width":   func(c *Config) { c.Search.SnippetWidth = 4 },
		"negative limit value": func(c *Config) { c.Search.DefaultLimit = -5 },
	}
	for name, mutate := range cases {
		cfg := NewDefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation failure", name)
		}
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Source.Provider = ""
	cfg.Export.Format = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Source.Provider != ProviderAuto {
		t.Errorf("Provider = %q, want auto default", cfg.Source.Provider)
	}
	if cfg.Export.Format != "markdown" {
		t.Errorf("Format = %q", cfg.Export.Format)
	}
}
