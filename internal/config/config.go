// Package config loads pkgindex configuration from defaults, the user
// config file, the project config file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/pkgindex/internal/coordinates"
)

// ProjectConfigName is the project config file looked up in the working tree.
const ProjectConfigName = ".pkgindex.yaml"

// Config represents the complete pkgindex configuration.
type Config struct {
	Version      int                `yaml:"version" json:"version"`
	Storage      StorageConfig      `yaml:"storage" json:"storage"`
	Index        IndexConfig        `yaml:"index" json:"index"`
	Parsing      ParsingConfig      `yaml:"parsing" json:"parsing"`
	Indexing     IndexingConfig     `yaml:"indexing" json:"indexing"`
	Repositories []RepositoryConfig `yaml:"repositories" json:"repositories"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`
}

// StorageConfig locates the artifact database.
type StorageConfig struct {
	// Path is the SQLite artifact database file.
	Path string `yaml:"path" json:"path"`

	// ID is the storage id used when a repository does not name one.
	ID string `yaml:"id" json:"id"`
}

// IndexConfig configures index builds.
type IndexConfig struct {
	// Dir holds one "{storage}/{repository}-index" directory per repository.
	Dir string `yaml:"dir" json:"dir"`

	// CacheDir holds one "{storage}/{repository}-cache" directory per repository.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// PageSize is the number of artifact groups per page.
	PageSize int `yaml:"page_size" json:"page_size"`

	// Workers bounds parallel entry building within a page.
	Workers int `yaml:"workers" json:"workers"`

	// Concurrency bounds the repositories indexed at once.
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	// Creators lists the document creators, in order.
	Creators []string `yaml:"creators" json:"creators"`
}

// ParsingConfig configures coordinate parsing.
type ParsingConfig struct {
	// CacheSize is the LRU size per format (0 disables caching).
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// IndexingConfig configures what becomes an index entry.
type IndexingConfig struct {
	// Denylist overrides the auxiliary-file denylist per format id.
	Denylist map[string]DenyRule `yaml:"denylist" json:"denylist"`
}

// DenyRule is a per-format denylist.
type DenyRule struct {
	Names    []string `yaml:"names" json:"names"`
	Suffixes []string `yaml:"suffixes" json:"suffixes"`
}

// RepositoryConfig declares a repository on disk.
type RepositoryConfig struct {
	StorageID string `yaml:"storage_id" json:"storage_id"`
	ID        string `yaml:"id" json:"id"`
	Format    string `yaml:"format" json:"format"`
	Path      string `yaml:"path" json:"path"`
}

// LoggingConfig configures logging. Level is the stderr threshold of
// normal runs; --debug always logs everything to the rotating file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	dataDir := DefaultDataDir()
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			Path: filepath.Join(dataDir, "artifacts.db"),
			ID:   "storage0",
		},
		Index: IndexConfig{
			Dir:         filepath.Join(dataDir, "index"),
			CacheDir:    filepath.Join(dataDir, "cache"),
			PageSize:    100,
			Workers:     workers,
			Concurrency: 2,
			Creators:    []string{"minimal", "format_fields"},
		},
		Parsing: ParsingConfig{
			CacheSize: coordinates.DefaultParseCacheSize,
		},
		Logging: LoggingConfig{
			Level:     "warn",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DefaultDataDir returns the directory holding the database and indexes.
// PKGINDEX_HOME overrides the default ~/.pkgindex.
func DefaultDataDir() string {
	if dir := os.Getenv("PKGINDEX_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".pkgindex")
	}
	return filepath.Join(home, ".pkgindex")
}

// GetUserConfigPath returns the path to the user configuration file.
// Respects XDG_CONFIG_HOME, falling back to ~/.config/pkgindex/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pkgindex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "pkgindex", "config.yaml")
	}
	return filepath.Join(home, ".config", "pkgindex", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user config file.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := &Config{}
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load loads configuration for the project in dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config ($XDG_CONFIG_HOME/pkgindex/config.yaml)
//  3. Project config (.pkgindex.yaml or .pkgindex.yml in dir)
//  4. Environment variables (PKGINDEX_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile merges .pkgindex.yaml, or .pkgindex.yml when absent.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ProjectConfigName)
	if fileExists(yamlPath) {
		return c.mergeFile(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".pkgindex.yml")
	if fileExists(ymlPath) {
		return c.mergeFile(ymlPath)
	}

	return nil
}

func (c *Config) mergeFile(path string) error {
	parsed := &Config{}
	if err := parsed.loadYAML(path); err != nil {
		return err
	}
	c.mergeWith(parsed)
	return nil
}

// loadYAML decodes path into c. Unknown keys are rejected so typos surface.
func (c *Config) loadYAML(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// mergeWith copies every non-zero value of other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}
	if other.Storage.ID != "" {
		c.Storage.ID = other.Storage.ID
	}

	if other.Index.Dir != "" {
		c.Index.Dir = other.Index.Dir
	}
	if other.Index.CacheDir != "" {
		c.Index.CacheDir = other.Index.CacheDir
	}
	if other.Index.PageSize != 0 {
		c.Index.PageSize = other.Index.PageSize
	}
	if other.Index.Workers != 0 {
		c.Index.Workers = other.Index.Workers
	}
	if other.Index.Concurrency != 0 {
		c.Index.Concurrency = other.Index.Concurrency
	}
	if len(other.Index.Creators) > 0 {
		c.Index.Creators = other.Index.Creators
	}

	if other.Parsing.CacheSize != 0 {
		c.Parsing.CacheSize = other.Parsing.CacheSize
	}

	for format, rule := range other.Indexing.Denylist {
		if c.Indexing.Denylist == nil {
			c.Indexing.Denylist = make(map[string]DenyRule)
		}
		c.Indexing.Denylist[format] = rule
	}

	if len(other.Repositories) > 0 {
		c.Repositories = other.Repositories
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies PKGINDEX_* variables. Empty or malformed
// values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PKGINDEX_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("PKGINDEX_STORAGE_ID"); v != "" {
		c.Storage.ID = v
	}
	if v := os.Getenv("PKGINDEX_INDEX_DIR"); v != "" {
		c.Index.Dir = v
	}
	if v := os.Getenv("PKGINDEX_CACHE_DIR"); v != "" {
		c.Index.CacheDir = v
	}
	envInt("PKGINDEX_PAGE_SIZE", &c.Index.PageSize)
	envInt("PKGINDEX_WORKERS", &c.Index.Workers)
	envInt("PKGINDEX_CONCURRENCY", &c.Index.Concurrency)
	envInt("PKGINDEX_PARSE_CACHE_SIZE", &c.Parsing.CacheSize)
	if v := os.Getenv("PKGINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func envInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must not be empty")
	}
	if c.Index.Dir == "" || c.Index.CacheDir == "" {
		return fmt.Errorf("index.dir and index.cache_dir must not be empty")
	}
	if c.Index.PageSize <= 0 {
		return fmt.Errorf("index.page_size must be positive, got %d", c.Index.PageSize)
	}
	if c.Index.Workers <= 0 {
		return fmt.Errorf("index.workers must be positive, got %d", c.Index.Workers)
	}
	if c.Index.Concurrency <= 0 {
		return fmt.Errorf("index.concurrency must be positive, got %d", c.Index.Concurrency)
	}
	if c.Parsing.CacheSize < 0 {
		return fmt.Errorf("parsing.cache_size must be non-negative, got %d", c.Parsing.CacheSize)
	}

	registry := coordinates.DefaultRegistry()
	for format := range c.Indexing.Denylist {
		if _, err := registry.Resolve(format); err != nil {
			return fmt.Errorf("indexing.denylist: %w", err)
		}
	}

	seen := make(map[string]bool, len(c.Repositories))
	for i, r := range c.Repositories {
		if r.ID == "" {
			return fmt.Errorf("repositories[%d].id must not be empty", i)
		}
		if _, err := registry.Resolve(r.Format); err != nil {
			return fmt.Errorf("repositories[%d] (%s): %w", i, r.ID, err)
		}
		key := c.RepositoryStorageID(r) + "/" + r.ID
		if seen[key] {
			return fmt.Errorf("repository %s is declared twice", key)
		}
		seen[key] = true
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// RepositoryStorageID returns the repository's storage id, or the default one.
func (c *Config) RepositoryStorageID(r RepositoryConfig) string {
	if r.StorageID != "" {
		return r.StorageID
	}
	return c.Storage.ID
}

// Repository returns the declared repository with the given id.
func (c *Config) Repository(id string) (RepositoryConfig, bool) {
	for _, r := range c.Repositories {
		if r.ID == id {
			return r, true
		}
	}
	return RepositoryConfig{}, false
}

// DenylistFormats returns the formats with a denylist override, sorted.
func (c *Config) DenylistFormats() []string {
	formats := make([]string, 0, len(c.Indexing.Denylist))
	for f := range c.Indexing.Denylist {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// FindProjectRoot walks up from startDir to the nearest directory holding
// a project config file or a .git directory. It returns startDir when
// neither is found.
func FindProjectRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", startDir, err)
	}

	for dir := abs; ; {
		if fileExists(filepath.Join(dir, ProjectConfigName)) ||
			fileExists(filepath.Join(dir, ".pkgindex.yml")) ||
			dirExists(filepath.Join(dir, ".git")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
