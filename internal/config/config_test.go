package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/digital-seeds-4/preincubation/internal/store"
)

var envKeys = []string{
	"INCUBATOR_STORE_DRIVER",
	"INCUBATOR_STORE_DSN",
	"INCUBATOR_STORE_PATH",
	"INCUBATOR_CATALOG",
	"INCUBATOR_REVIEWER",
}

// clearEnv unsets every override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, projectDir, body string) {
	t.Helper()
	dir := filepath.Join(projectDir, IncubatorDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(strings.TrimSpace(body)), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestInitIncubatorDirCreatesLayout(t *testing.T) {
	clearEnv(t)
	projectDir := t.TempDir()
	if err := InitIncubatorDir(projectDir); err != nil {
		t.Fatalf("InitIncubatorDir: %v", err)
	}
	for _, sub := range []string{"logs", "data", "exports", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(projectDir, IncubatorDir, sub)); err != nil {
			t.Fatalf("expected %s: %v", sub, err)
		}
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig on generated config: %v", err)
	}
	if cfg.Project.Store.Driver != store.DriverSQLite || cfg.Reviewer() != "mentor" {
		t.Fatalf("unexpected generated config %+v", cfg.Project)
	}
	if cfg.CatalogPath() != "" {
		t.Fatalf("expected built-in catalog, got %q", cfg.CatalogPath())
	}
}

func TestLoadProjectConfigDefaultsWhenMissing(t *testing.T) {
	clearEnv(t)
	projectDir := t.TempDir()
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", cfg.Project.Version)
	}
	opts := cfg.StoreOptions()
	if opts.Driver != store.DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", opts.Driver)
	}
	if want := filepath.Join(cfg.DataDir(), "incubator.db"); opts.Path != want {
		t.Fatalf("store path = %s, want %s", opts.Path, want)
	}
	if !strings.HasSuffix(cfg.JourneyLogPath(), filepath.Join(".incubator", "logs", "journey.log")) {
		t.Fatalf("unexpected journey log path %s", cfg.JourneyLogPath())
	}
}

func TestLoadProjectConfigParsesYaml(t *testing.T) {
	clearEnv(t)
	projectDir := t.TempDir()
	writeConfig(t, projectDir, `
version: 1
catalog: catalogs/fintech.yaml
store:
  driver: FILE
  path: shared/submissions.json
reviewer:
  name: "  Claire "
`)
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if want := filepath.Join(cfg.ProjectDir, "catalogs", "fintech.yaml"); cfg.CatalogPath() != want {
		t.Fatalf("catalog path = %s, want %s", cfg.CatalogPath(), want)
	}
	opts := cfg.StoreOptions()
	if opts.Driver != store.DriverFile {
		t.Fatalf("driver = %q, want file", opts.Driver)
	}
	if want := filepath.Join(cfg.ProjectDir, "shared", "submissions.json"); opts.Path != want {
		t.Fatalf("store path = %s, want %s", opts.Path, want)
	}
	if cfg.Reviewer() != "Claire" {
		t.Fatalf("reviewer = %q", cfg.Reviewer())
	}
}

func TestLoadProjectConfigValidation(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"unknown driver":    "store:\n  driver: postgres\n",
		"mysql without dsn": "store:\n  driver: mysql\n",
		"bad version":       "version: -1\n",
		"bad yaml":          "store: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			projectDir := t.TempDir()
			writeConfig(t, projectDir, body)
			if _, err := NewConfig(projectDir); err == nil {
				t.Fatalf("expected validation error but got none")
			}
		})
	}
}

func TestEnvironmentOverridesConfigFile(t *testing.T) {
	clearEnv(t)
	projectDir := t.TempDir()
	writeConfig(t, projectDir, `
store:
  driver: sqlite
reviewer:
  name: mentor
`)
	t.Setenv("INCUBATOR_STORE_DRIVER", "mysql")
	t.Setenv("INCUBATOR_STORE_DSN", "user:pw@tcp(db:3306)/incubator")
	t.Setenv("INCUBATOR_REVIEWER", "jury")
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	opts := cfg.StoreOptions()
	if opts.Driver != store.DriverMySQL || opts.DSN != "user:pw@tcp(db:3306)/incubator" {
		t.Fatalf("unexpected store options %+v", opts)
	}
	if opts.Path != "" {
		t.Fatalf("mysql should not get a default path, got %q", opts.Path)
	}
	if cfg.Reviewer() != "jury" {
		t.Fatalf("reviewer = %q, want jury", cfg.Reviewer())
	}
}

func TestDotEnvFileIsLoaded(t *testing.T) {
	clearEnv(t)
	projectDir := t.TempDir()
	dotenv := "INCUBATOR_STORE_DRIVER=memory\nINCUBATOR_REVIEWER=comite\n"
	if err := os.WriteFile(filepath.Join(projectDir, ".env"), []byte(dotenv), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.Project.Store.Driver != store.DriverMemory || cfg.Reviewer() != "comite" {
		t.Fatalf("dotenv values not applied: %+v", cfg.Project)
	}
}
