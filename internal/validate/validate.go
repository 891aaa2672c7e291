// Package validate holds the structural validation gate: checks run on
// candidate file content after a pattern rewrite and before anything is
// committed to disk. A checker never modifies content; it reports the first
// structural problem found, or nil.
package validate

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AutoName resolves a checker by file extension; unknown extensions get
// NoneName so prose files are never rejected for unbalanced punctuation.
const (
	AutoName   = "auto"
	BracesName = "braces"
	GoName     = "go"
	JSONName   = "json"
	NoneName   = "none"
)

// Issue describes the first structural problem found in candidate content.
type Issue struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
	Excerpt string `json:"excerpt,omitempty"`
}

// Checker examines candidate content before commit.
type Checker struct {
	// Name is the registry key.
	Name string

	// Check returns the first problem found, or nil when the content is
	// structurally sound.
	Check func(content string) *Issue
}

// checkers is the registry of concrete checkers, keyed by name.
var checkers = map[string]*Checker{
	BracesName: {Name: BracesName, Check: checkBraces},
	GoName:     {Name: GoName, Check: checkGo},
	JSONName:   {Name: JSONName, Check: checkJSON},
	NoneName:   {Name: NoneName, Check: func(string) *Issue { return nil }},
}

// extensionCheckers maps file extensions to checker names for auto
// resolution.
var extensionCheckers = map[string]string{
	".go":   GoName,
	".json": JSONName,
	".js":   BracesName,
	".jsx":  BracesName,
	".ts":   BracesName,
	".tsx":  BracesName,
	".mjs":  BracesName,
	".cjs":  BracesName,
}

// Names lists every accepted validator name, for usage strings.
func Names() []string {
	return []string{AutoName, BracesName, GoName, JSONName, NoneName}
}

// Known reports whether name is an accepted validator name.
func Known(name string) bool {
	if name == AutoName {
		return true
	}
	_, ok := checkers[name]
	return ok
}

// Resolve maps a requested validator name and target path to a concrete
// checker. Empty and "auto" resolve by the path's extension.
func Resolve(name, path string) (*Checker, error) {
	if name == "" || name == AutoName {
		ext := strings.ToLower(filepath.Ext(path))
		if ckName, ok := extensionCheckers[ext]; ok {
			return checkers[ckName], nil
		}
		return checkers[NoneName], nil
	}
	if ck, ok := checkers[name]; ok {
		return ck, nil
	}
	return nil, fmt.Errorf("unknown validator %q (expected one of %s)", name, strings.Join(Names(), ", "))
}

// lineExcerpt returns the trimmed text of a 1-based line, capped for error
// payloads.
func lineExcerpt(content string, line int) string {
	lines := strings.Split(content, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	s := strings.TrimSpace(lines[line-1])
	runes := []rune(s)
	if len(runes) > 80 {
		s = string(runes[:80]) + "..."
	}
	return s
}
