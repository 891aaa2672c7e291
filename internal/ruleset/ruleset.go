// Package ruleset loads declarative patch rule files: an ordered list of
// pattern rewrites applied as a unit. Rules reuse the patch vocabulary
// (pattern, mode, validator); the ruleset layer adds only ordering and the
// target file per rule.
package ruleset

import "path/filepath"

// Ruleset represents a ruleset YAML file.
type Ruleset struct {
	Version int    `yaml:"version"`
	Name    string `yaml:"name,omitempty"`
	Rules   []Rule `yaml:"rules"`

	// Dir is the directory the ruleset was loaded from, used to resolve
	// relative rule paths. Not part of the YAML schema.
	Dir string `yaml:"-"`
}

// Rule defines one patch to apply. Fields mirror a patch spec plus the file
// it targets.
type Rule struct {
	Description string `yaml:"description,omitempty"`
	File        string `yaml:"file"`
	Pattern     string `yaml:"pattern"`
	Regex       bool   `yaml:"regex,omitempty"`
	Mode        string `yaml:"mode,omitempty"`
	Replacement string `yaml:"replacement"`
	Validator   string `yaml:"validator,omitempty"`
}

// ResolveFile returns the rule's target path, resolving relative paths
// against the directory the ruleset was loaded from.
func (rs *Ruleset) ResolveFile(r Rule) string {
	if filepath.IsAbs(r.File) || rs.Dir == "" {
		return r.File
	}
	return filepath.Join(rs.Dir, r.File)
}
