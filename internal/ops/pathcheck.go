package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/graftdev/graft/internal/config"
	"github.com/graftdev/graft/internal/db"
	"github.com/graftdev/graft/internal/errors"
)

// ValidateTargetPath validates a patch target path and returns its absolute form.
// It checks:
// 1. Path traversal (.. sequences)
// 2. Extension (must be in allowed_extensions)
// 3. Root restrictions (file must live under the working directory or one of allowed_roots)
// 4. Symlink safety (the file itself must not be a symlink)
//
// allow_unsafe_paths bypasses the extension and root checks but NOT the symlink
// check, because openFileNoFollow enforces O_NOFOLLOW at open time anyway.
func ValidateTargetPath(path string, cfg *config.Config) (string, error) {
	if path == "" {
		return "", errors.NewInvalidRequest("path is required")
	}

	// Reject paths containing ".." (traversal attempt)
	if containsTraversal(path) {
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	absPath, err := canonicalTargetPath(path)
	if err != nil {
		return "", err
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		ext := strings.ToLower(filepath.Ext(absPath))
		if !extensionAllowed(ext, cfg) {
			return "", errors.NewNotAllowed(fmt.Sprintf("extension %q is not in allowed_extensions", ext))
		}

		roots, err := targetRoots(cfg)
		if err != nil {
			return "", err
		}
		if !isUnderAny(absPath, roots) {
			return "", errors.NewNotAllowed("path is outside the working directory and allowed_roots")
		}
	}

	// Reject symlink targets. openFileNoFollow would catch this at open time,
	// but rejecting early gives a clearer error.
	if info, err := os.Lstat(absPath); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return "", errors.NewInvalidRequest("path must not be a symlink")
		}
	}

	return absPath, nil
}

// canonicalTargetPath resolves a path the way the journal records targets:
// absolute, with the parent directory's symlinks resolved so root comparisons
// and journal lookups hold when the working directory sits behind a symlink
// (macOS /tmp, for one).
func canonicalTargetPath(path string) (string, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}
	if resolved, err := filepath.EvalSymlinks(filepath.Dir(absPath)); err == nil {
		absPath = filepath.Join(resolved, filepath.Base(absPath))
	}
	return absPath, nil
}

// extensionAllowed checks the extension against allowed_extensions,
// falling back to the built-in defaults when none are configured.
func extensionAllowed(ext string, cfg *config.Config) bool {
	var allowed []string
	if cfg != nil {
		allowed = cfg.AllowedExtensions
	}
	if len(allowed) == 0 {
		allowed = config.DefaultConfig().AllowedExtensions
	}
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

// targetRoots returns the directories patching may touch: the working
// directory plus any absolute allowed_roots entries, symlinks resolved.
func targetRoots(cfg *config.Config) ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to get working directory: %w", err))
	}

	dirs := []string{cwd}
	if cfg != nil {
		for _, p := range cfg.AllowedRoots {
			if filepath.IsAbs(p) {
				dirs = append(dirs, filepath.Clean(p))
			}
		}
	}

	result := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if resolved, err := filepath.EvalSymlinks(d); err == nil {
			d = resolved
		}
		result = append(result, d)
	}
	return result, nil
}

// isUnderAny checks whether path is the given directory or inside it,
// for any directory in roots.
func isUnderAny(path string, roots []string) bool {
	for _, root := range roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// ValidateExportPath performs path validation for export destinations.
// It checks:
// 1. Path traversal (.. sequences)
// 2. Extension (.jsonl required)
// 3. Directory restrictions (file must be DIRECTLY in the exports directory
//    or an allowed root - no subdirectories)
// 4. Symlink safety (parent dir must not be a symlink, file must not be a symlink)
//
// The "no subdirectories" rule eliminates TOCTOU race conditions where an
// attacker could swap an intermediate directory component with a symlink
// between validation and open. Combined with O_NOFOLLOW on the final
// component, this provides complete symlink protection.
func ValidateExportPath(path string, cfg *config.Config, baseDir string) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}

	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	// Require .jsonl extension
	cleaned := filepath.Clean(path)
	if filepath.Ext(cleaned) != ".jsonl" {
		return errors.NewInvalidRequest("path must have .jsonl extension")
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	// If unsafe paths allowed, skip directory checks (but NOT symlink checks).
	if cfg != nil && cfg.AllowUnsafePaths {
		if info, err := os.Lstat(absPath); err == nil {
			if info.Mode()&os.ModeSymlink != 0 {
				return errors.NewInvalidRequest("path must not be a symlink")
			}
		}
		return nil
	}

	allowedDirs, err := exportDirs(cfg, baseDir)
	if err != nil {
		return err
	}

	// File must be DIRECTLY in an allowed directory (no subdirectories).
	parentDir := filepath.Dir(absPath)
	if !isDirectlyInAllowedDir(parentDir, allowedDirs) {
		return errors.NewInvalidRequest(
			fmt.Sprintf("file must be directly in an allowed directory (no subdirectories); allowed: %v",
				allowedDirs))
	}

	// Verify the parent directory is not a symlink (defense-in-depth).
	if info, err := os.Lstat(parentDir); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	// Reject symlink files. O_NOFOLLOW at open time would catch this too,
	// but rejecting early gives a clearer error.
	if info, err := os.Lstat(absPath); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidRequest("path must not be a symlink")
		}
	}

	return nil
}

// exportDirs returns the directories exports may be written to: the data
// directory's exports subdirectory plus absolute allowed_roots entries.
// Existing entries are resolved to catch symlinked configuration.
func exportDirs(cfg *config.Config, baseDir string) ([]string, error) {
	dirs := []string{db.ExportsDir(baseDir)}

	if cfg != nil {
		for _, p := range cfg.AllowedRoots {
			if filepath.IsAbs(p) {
				dirs = append(dirs, filepath.Clean(p))
			}
		}
	}

	result := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}

		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		result = append(result, abs)
	}

	return result, nil
}

// isDirectlyInAllowedDir checks if parentDir exactly matches one of the allowed
// directories. This is stricter than "is under" - the file must be directly in
// the allowed dir, not in a subdirectory.
func isDirectlyInAllowedDir(parentDir string, allowedDirs []string) bool {
	parentDir = filepath.Clean(parentDir)
	for _, dir := range allowedDirs {
		if parentDir == filepath.Clean(dir) {
			return true
		}
	}
	return false
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	// Check each path component
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	// Also check for forward slashes on all platforms (e.g., user input)
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}

// SanitizeForFilename sanitizes a string for safe use in a filename.
// Removes/replaces characters that could be used for path traversal or injection.
func SanitizeForFilename(s string) string {
	// Replace path separators with dashes
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")

	// Replace ".." sequences (could be embedded)
	s = strings.ReplaceAll(s, "..", "-")

	// Remove null bytes and other control characters
	var result strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 { // printable ASCII and unicode
			result.WriteRune(r)
		}
	}
	s = result.String()

	// Collapse multiple dashes
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}

	// Trim leading/trailing dashes
	s = strings.Trim(s, "-")

	// If empty after sanitization, use a safe default
	if s == "" {
		s = "unnamed"
	}

	return s
}
