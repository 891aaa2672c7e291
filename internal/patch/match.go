package patch

import (
	"regexp"
	"strings"
	"unicode"
)

// Match is a half-open byte range [Start, End) in LF-normalized content.
type Match struct {
	Start int
	End   int

	// subs holds the full submatch index pairs for regex matches, used by
	// Render to expand $1-style references. Nil for literal matches.
	subs []int
}

// Find returns every non-overlapping occurrence of the spec's pattern in
// content, left to right. The next search resumes at the end of the previous
// match, so overlapping candidates are never double-counted. Zero-width
// regex matches are ignored.
func Find(content string, spec Spec) ([]Match, error) {
	if spec.Regex {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, err
		}
		idxs := re.FindAllStringSubmatchIndex(content, -1)
		matches := make([]Match, 0, len(idxs))
		for _, idx := range idxs {
			if idx[0] == idx[1] {
				continue
			}
			matches = append(matches, Match{Start: idx[0], End: idx[1], subs: idx})
		}
		return matches, nil
	}

	var matches []Match
	for from := 0; ; {
		i := strings.Index(content[from:], spec.Pattern)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(spec.Pattern)
		matches = append(matches, Match{Start: start, End: end})
		from = end
	}
	return matches, nil
}

// Render produces the candidate output and the number of regions replaced.
// Under ModeSingle and ModeFirst only the first match is rewritten; callers
// enforce the single-occurrence policy before rendering. Regex replacements
// are templates expanded per match with submatch references.
func Render(content string, spec Spec, matches []Match) (string, int, error) {
	if len(matches) == 0 {
		return content, 0, nil
	}

	selected := matches
	if mode, err := ParseMode(string(spec.Mode)); err != nil {
		return content, 0, err
	} else if mode != ModeAll {
		selected = matches[:1]
	}

	var re *regexp.Regexp
	if spec.Regex {
		var err error
		re, err = regexp.Compile(spec.Pattern)
		if err != nil {
			return content, 0, err
		}
	}

	var b strings.Builder
	b.Grow(len(content))
	prev := 0
	for _, m := range selected {
		b.WriteString(content[prev:m.Start])
		if re != nil && m.subs != nil {
			b.Write(re.ExpandString(nil, spec.Replacement, content, m.subs))
		} else {
			b.WriteString(spec.Replacement)
		}
		prev = m.End
	}
	b.WriteString(content[prev:])
	return b.String(), len(selected), nil
}

// LineOf returns the 1-based line number containing byte offset off.
func LineOf(content string, off int) int {
	if off > len(content) {
		off = len(content)
	}
	return strings.Count(content[:off], "\n") + 1
}

// MatchLines returns the 1-based starting line of each match, for ambiguity
// diagnostics.
func MatchLines(content string, matches []Match) []int {
	lines := make([]int, 0, len(matches))
	for _, m := range matches {
		lines = append(lines, LineOf(content, m.Start))
	}
	return lines
}

// NearMiss reports the 1-based line where a whitespace-insensitive variant
// of pattern begins in content, or 0 when there is none. Whitespace runs
// (including newlines) fold to a single space on both sides, so the hint
// fires for patterns that differ from the file only in spacing or
// indentation. Literal patterns only; regex patterns get no hint.
func NearMiss(content, pattern string) int {
	want := collapseSpaces(strings.TrimSpace(pattern))
	if want == "" {
		return 0
	}

	lines := strings.Split(content, "\n")
	span := strings.Count(strings.TrimSpace(pattern), "\n") + 1
	for i := 0; i+span <= len(lines); i++ {
		window := strings.Join(lines[i:i+span], "\n")
		if strings.Contains(collapseSpaces(window), want) {
			return i + 1
		}
	}
	return 0
}

// collapseSpaces folds every whitespace run into a single ASCII space.
// Diagnostic comparisons only; never used for real matching.
func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
