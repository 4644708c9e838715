// internal/config/config.go
//
// This package handles configuration and the .incubator directory structure.
// Every project folder assessed with the incubator gets a .incubator/ folder.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/digital-seeds-4/preincubation/internal/store"
)

const (
	// IncubatorDir is the name of the directory we create in each project
	IncubatorDir = ".incubator"

	defaultReviewer   = "mentor"
	sqliteFileName    = "incubator.db"
	journeyLogName    = "journey.log"
	projectConfigName = "config.yaml"
)

const defaultProjectConfigYAML = `# incubator project configuration
version: 1

# Questionnaire to run. Leave empty to use the built-in catalog.
catalog: ""

# Where submissions are kept. driver: sqlite | mysql | file | memory
store:
  driver: sqlite
  # path: .incubator/data/incubator.db
  # dsn: user:password@tcp(localhost:3306)/incubator

reviewer:
  name: mentor
`

// StoreConfig selects the submission store.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
}

// ReviewerConfig names the default evaluator identity.
type ReviewerConfig struct {
	Name string `yaml:"name"`
}

// ProjectConfig models .incubator/config.yaml.
type ProjectConfig struct {
	Version  int            `yaml:"version"`
	Catalog  string         `yaml:"catalog,omitempty"`
	Store    StoreConfig    `yaml:"store"`
	Reviewer ReviewerConfig `yaml:"reviewer"`
}

// envOverrides are read after .env files are loaded and win over config.yaml.
type envOverrides struct {
	StoreDriver string `env:"INCUBATOR_STORE_DRIVER"`
	StoreDSN    string `env:"INCUBATOR_STORE_DSN"`
	StorePath   string `env:"INCUBATOR_STORE_PATH"`
	Catalog     string `env:"INCUBATOR_CATALOG"`
	Reviewer    string `env:"INCUBATOR_REVIEWER"`
}

// Config holds the runtime configuration for one project folder.
type Config struct {
	// ProjectDir is the directory the incubator was pointed at
	ProjectDir string

	// IncubatorProjectDir is ProjectDir/.incubator
	IncubatorProjectDir string

	Project ProjectConfig
}

// InitIncubatorDir creates the .incubator directory structure in the given
// project directory.
//
// Structure created:
// .incubator/
// ├── config.yaml
// ├── logs/      <- journey.log
// ├── data/      <- sqlite database or submissions.json
// └── exports/   <- dossiers written by the export command
func InitIncubatorDir(projectDir string) error {
	incubatorDir := filepath.Join(projectDir, IncubatorDir)
	dirs := []string{
		filepath.Join(incubatorDir, "logs"),
		filepath.Join(incubatorDir, "data"),
		filepath.Join(incubatorDir, "exports"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return ensureProjectConfig(filepath.Join(incubatorDir, projectConfigName))
}

// NewConfig loads .env, config.yaml and environment overrides for projectDir.
func NewConfig(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve project dir: %w", err)
	}
	if err := loadDotEnv(abs); err != nil {
		return nil, err
	}
	cfg := &Config{
		ProjectDir:          abs,
		IncubatorProjectDir: filepath.Join(abs, IncubatorDir),
		Project:             defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.IncubatorProjectDir, "logs")
}

// DataDir returns the directory holding local store files
func (c *Config) DataDir() string {
	return filepath.Join(c.IncubatorProjectDir, "data")
}

// ExportsDir returns the default dossier output directory
func (c *Config) ExportsDir() string {
	return filepath.Join(c.IncubatorProjectDir, "exports")
}

// JourneyLogPath returns the logbook file.
func (c *Config) JourneyLogPath() string {
	return filepath.Join(c.LogsDir(), journeyLogName)
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.IncubatorProjectDir, projectConfigName)
}

// CatalogPath returns the configured catalog file, or "" for the built-in one.
func (c *Config) CatalogPath() string {
	return c.Project.Catalog
}

// Reviewer returns the default evaluator identity.
func (c *Config) Reviewer() string {
	return c.Project.Reviewer.Name
}

// StoreOptions translates the store section for store.Open, filling the
// default file location for local drivers.
func (c *Config) StoreOptions() store.Options {
	opts := store.Options{
		Driver: c.Project.Store.Driver,
		Path:   c.Project.Store.Path,
		DSN:    c.Project.Store.DSN,
	}
	if opts.Path == "" {
		switch opts.Driver {
		case store.DriverSQLite:
			opts.Path = filepath.Join(c.DataDir(), sqliteFileName)
		case store.DriverFile:
			opts.Path = filepath.Join(c.DataDir(), store.FileName)
		}
	}
	return opts
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	parsed := defaultProjectConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		parsed = ProjectConfig{}
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := parsed.applyEnv(); err != nil {
		return err
	}
	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:  1,
		Store:    StoreConfig{Driver: store.DriverSQLite},
		Reviewer: ReviewerConfig{Name: defaultReviewer},
	}
}

func (pc *ProjectConfig) applyEnv() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	if overrides.StoreDriver != "" {
		pc.Store.Driver = overrides.StoreDriver
	}
	if overrides.StoreDSN != "" {
		pc.Store.DSN = overrides.StoreDSN
	}
	if overrides.StorePath != "" {
		pc.Store.Path = overrides.StorePath
	}
	if overrides.Catalog != "" {
		pc.Catalog = overrides.Catalog
	}
	if overrides.Reviewer != "" {
		pc.Reviewer.Name = overrides.Reviewer
	}
	return nil
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Store.Driver) == "" {
		pc.Store.Driver = store.DriverSQLite
	}
	if strings.TrimSpace(pc.Reviewer.Name) == "" {
		pc.Reviewer.Name = defaultReviewer
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Catalog = resolvePath(base, pc.Catalog)
	pc.Store.Driver = strings.ToLower(strings.TrimSpace(pc.Store.Driver))
	pc.Store.Path = resolvePath(base, pc.Store.Path)
	pc.Store.DSN = strings.TrimSpace(pc.Store.DSN)
	pc.Reviewer.Name = strings.TrimSpace(pc.Reviewer.Name)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if !contains(store.Drivers, pc.Store.Driver) {
		return fmt.Errorf("store.driver must be one of %s", strings.Join(store.Drivers, ", "))
	}
	if pc.Store.Driver == store.DriverMySQL && pc.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for the mysql driver")
	}
	return nil
}

func loadDotEnv(projectDir string) error {
	path := filepath.Join(projectDir, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
