package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func setConfigHome(t *testing.T) string {
	t.Helper()
	ResetGlobalConfigCache()
	t.Cleanup(ResetGlobalConfigCache)
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range []string{EnvTemplate, EnvJSFile, EnvPDFRoot, EnvLogLevel} {
		t.Setenv(k, "")
	}
	return dir
}

func TestPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := Path(), "/custom/config/bibpage/config.yml"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	if got, want := Path(), filepath.Join(home, ".config", "bibpage", "config.yml"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestDefaultDBPath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/custom/cache")
	if got, want := DefaultDBPath(), "/custom/cache/bibpage/entries.db"; got != want {
		t.Errorf("DefaultDBPath() = %q, want %q", got, want)
	}
}

func TestLoad_NotFound(t *testing.T) {
	setConfigHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *cfg != (Config{}) {
		t.Errorf("Load() = %+v, want empty config", *cfg)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := setConfigHome(t)
	path := filepath.Join(dir, ConfigDir, ConfigFile)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	content := "template: /tmp/page.html\nembed_js: true\nworkers: 4\nlink_rate: 2.5\nlog_level: info\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvPDFRoot, "/papers")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Template != "/tmp/page.html" || !cfg.EmbedJS || cfg.Workers != 4 || cfg.LinkRate != 2.5 {
		t.Errorf("file values not loaded: %+v", *cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want env override debug", cfg.LogLevel)
	}
	if cfg.PDFRoot != "/papers" {
		t.Errorf("PDFRoot = %q, want env override /papers", cfg.PDFRoot)
	}

	// Cached until reset
	t.Setenv(EnvPDFRoot, "/other")
	again, _ := Load()
	if again != cfg {
		t.Error("Load() should return the cached config")
	}
}

func TestLoad_Malformed(t *testing.T) {
	dir := setConfigHome(t)
	path := filepath.Join(dir, ConfigDir, ConfigFile)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("workers: [oops"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Error("Load() expected error for malformed YAML")
	}
}

func TestSaveAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFile)
	cfg := &Config{Title: "Reading list", Workers: 2, PDFReader: "zathura"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if *got != *cfg {
		t.Errorf("ReadFile() = %+v, want %+v", *got, *cfg)
	}
}

func TestSetGet(t *testing.T) {
	pdfDir := t.TempDir()
	tests := []struct {
		key     string
		value   string
		want    string
		wantErr bool
	}{
		{"workers", "8", "8", false},
		{"workers", "-1", "", true},
		{"workers", "many", "", true},
		{"embed_js", "true", "true", false},
		{"embed_js", "maybe", "", true},
		{"link_rate", "0.5", "0.5", false},
		{"log_level", "WARN", "warn", false},
		{"log_level", "loud", "", true},
		{"pdf_reader", "skim", "skim", false},
		{"pdf_reader", "acrobat", "", true},
		{"pdf_root", pdfDir, pdfDir, false},
		{"pdf_root", filepath.Join(pdfDir, "missing"), "", true},
		{"title", "Papers", "Papers", false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			var cfg Config
			err := cfg.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Get() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnknownKey(t *testing.T) {
	var cfg Config
	if err := cfg.Set("colour", "blue"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set() error = %v, want ErrUnknownKey", err)
	}
	if _, err := cfg.Get("colour"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Get() error = %v, want ErrUnknownKey", err)
	}
	if len(cfg.Map()) != len(Keys) {
		t.Errorf("Map() has %d keys, want %d", len(cfg.Map()), len(Keys))
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		in, want string
	}{
		{"~/papers", filepath.Join(home, "papers")},
		{"~", home},
		{"/abs/path", "/abs/path"},
		{"rel/~path", "rel/~path"},
		{"~user/x", "~user/x"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExpandTilde(tt.in); got != tt.want {
			t.Errorf("ExpandTilde(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolvedDBPath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/c")
	if got := (&Config{}).ResolvedDBPath(); got != "/c/bibpage/entries.db" {
		t.Errorf("ResolvedDBPath() = %q", got)
	}
	if got := (&Config{DBPath: "/x.db"}).ResolvedDBPath(); got != "/x.db" {
		t.Errorf("ResolvedDBPath() = %q", got)
	}
}
