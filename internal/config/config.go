package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// MaxFileBytes is the largest file the patcher will read into memory.
	MaxFileBytes int64 `json:"max_file_bytes"`

	// DefaultValidator is used when a patch names no validator.
	// One of: auto, braces, go, json, none.
	DefaultValidator string `json:"default_validator,omitempty"`

	// DefaultMode is the occurrence policy when a patch names none.
	// One of: single, first, all.
	DefaultMode string `json:"default_mode,omitempty"`

	// DisableVersions turns off retention of pre-patch file versions.
	// Without a retained version an applied patch cannot be reverted.
	DisableVersions bool `json:"disable_versions,omitempty"`

	// AllowedExtensions lists the file extensions the patcher may touch.
	// Entries from repo config are merged into the defaults, not replacing them.
	AllowedExtensions []string `json:"allowed_extensions,omitempty"`

	// AllowedRoots is an allowlist of directories patching may touch beyond
	// the working directory subtree. Paths should be absolute (relative
	// paths are ignored).
	AllowedRoots []string `json:"allowed_roots,omitempty"`

	// AllowUnsafePaths disables directory and extension restrictions.
	// When true, any regular file is patchable (symlink checks still apply).
	// Use with caution.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// WebAddr is the bind address for the web UI.
	WebAddr string `json:"web_addr,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// All tools are enabled by default. Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// All tools belonging to disabled types are excluded from registration.
	// Known types: "patch", "ruleset". Unknown type names are logged as warnings.
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxFileBytes:     4 * 1024 * 1024,
		DefaultValidator: "auto",
		DefaultMode:      "single",
		AllowedExtensions: []string{
			".go", ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs",
			".json", ".md", ".txt", ".yaml", ".yml", ".css", ".html",
		},
		WebAddr: "127.0.0.1:7463",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.graft.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.graft) and repo (.graft) directories.
// Repo config is found by walking upward from startDir to find the nearest .graft/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	// Walk upward from startDir to find repo config
	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .graft/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".graft", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root, not found
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// File doesn't exist, return zero config
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.MaxFileBytes = overlay.MaxFileBytes
	if result.MaxFileBytes == 0 {
		result.MaxFileBytes = base.MaxFileBytes
	}

	result.DefaultValidator = overlay.DefaultValidator
	if result.DefaultValidator == "" {
		result.DefaultValidator = base.DefaultValidator
	}

	result.DefaultMode = overlay.DefaultMode
	if result.DefaultMode == "" {
		result.DefaultMode = base.DefaultMode
	}

	result.WebAddr = overlay.WebAddr
	if result.WebAddr == "" {
		result.WebAddr = base.WebAddr
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.DisableVersions = base.DisableVersions || overlay.DisableVersions
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedExtensions = mergeStringSlice(base.AllowedExtensions, overlay.AllowedExtensions)
	result.AllowedRoots = mergeStringSlice(base.AllowedRoots, overlay.AllowedRoots)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
