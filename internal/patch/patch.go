package patch

import (
	"fmt"
	"regexp"
)

// Mode selects how many occurrences of a pattern an apply may rewrite.
type Mode string

const (
	// ModeSingle requires exactly one occurrence; two or more fail as
	// ambiguous. This is the default when no mode is given.
	ModeSingle Mode = "single"

	// ModeFirst rewrites only the first occurrence.
	ModeFirst Mode = "first"

	// ModeAll rewrites every non-overlapping occurrence.
	ModeAll Mode = "all"
)

// ParseMode maps a mode string to a Mode, treating "" as ModeSingle.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeSingle:
		return ModeSingle, nil
	case ModeFirst:
		return ModeFirst, nil
	case ModeAll:
		return ModeAll, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected single, first, or all)", s)
	}
}

// Spec is a single patch rule. Constructed by the caller before invocation;
// immutable thereafter.
type Spec struct {
	// Pattern is the text to locate. Matched literally unless Regex is set,
	// in which case it is an RE2 regular expression. Patterns are written in
	// LF style; matching runs against LF-normalized content.
	Pattern string

	// Regex interprets Pattern as a regular expression.
	Regex bool

	// Mode is the occurrence policy. Empty means ModeSingle.
	Mode Mode

	// Replacement is the text that replaces each matched region. In regex
	// mode it is a template expanded with $1-style submatch references.
	// May be empty, which deletes the matched region.
	Replacement string

	// Validator names the structural check run on candidate output before
	// commit ("auto", "braces", "go", "json", "none"). Empty defers to the
	// configured default.
	Validator string

	// Description is an optional caller note recorded in the journal.
	Description string
}

// Validate checks the spec's own well-formedness. Validator names are
// resolved by the caller against the validator registry, not here.
func (s Spec) Validate() error {
	if s.Pattern == "" {
		return fmt.Errorf("pattern is required")
	}
	if _, err := ParseMode(string(s.Mode)); err != nil {
		return err
	}
	if s.Regex {
		if _, err := regexp.Compile(s.Pattern); err != nil {
			return fmt.Errorf("invalid regex pattern: %v", err)
		}
	}
	return nil
}

// Result describes the outcome of one patch attempt. Produced once per
// invocation; persistence is the journal's concern, not Result's.
type Result struct {
	// Matched reports whether the pattern was found. False means the target
	// file is byte-for-byte identical to its pre-invocation state.
	Matched bool `json:"matched"`

	// Path is the absolute path of the target file.
	Path string `json:"path"`

	// Occurrences is how many times the pattern matched.
	Occurrences int `json:"occurrences"`

	// Replaced is how many regions were rewritten (0 or 1 under single and
	// first, Occurrences under all).
	Replaced int `json:"replaced"`

	// BytesBefore and BytesAfter are the content sizes around the rewrite.
	// Equal when nothing was written.
	BytesBefore int64 `json:"bytes_before"`
	BytesAfter  int64 `json:"bytes_after"`

	// Hint carries a near-miss diagnostic when nothing matched but a
	// whitespace-insensitive variant of the pattern does appear.
	Hint string `json:"hint,omitempty"`
}

// TruncatePattern shortens a pattern for error messages and journal
// summaries. Newlines are kept; only length is capped.
func TruncatePattern(pattern string) string {
	const max = 80
	runes := []rune(pattern)
	if len(runes) <= max {
		return pattern
	}
	return string(runes[:max]) + "..."
}
