package validate

import "fmt"

// scanner states for checkBraces.
const (
	stCode = iota
	stLineComment
	stBlockComment
	stString
)

// checkBraces verifies that (), [], and {} balance, skipping string literals
// (single, double, backtick) and // and /* */ comments. Backtick strings may
// span lines; quote strings must close before the next newline. JS regex
// literals and template interpolation are not special-cased; content inside
// a backtick string is opaque until the closing backtick.
func checkBraces(content string) *Issue {
	type opener struct {
		ch   byte
		line int
	}
	var stack []opener

	state := stCode
	line := 1
	var quote byte
	openedAt := 0 // line where the current string or block comment began
	escaped := false

	for i := 0; i < len(content); i++ {
		c := content[i]

		if c == '\n' {
			if state == stLineComment {
				state = stCode
			}
			if state == stString && quote != '`' {
				return &Issue{
					Line:    openedAt,
					Message: "unterminated string literal",
					Excerpt: lineExcerpt(content, openedAt),
				}
			}
			line++
			escaped = false
			continue
		}

		switch state {
		case stLineComment:
			// skip to newline

		case stBlockComment:
			if c == '*' && i+1 < len(content) && content[i+1] == '/' {
				state = stCode
				i++
			}

		case stString:
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == quote {
				state = stCode
			}

		case stCode:
			switch c {
			case '/':
				if i+1 < len(content) {
					switch content[i+1] {
					case '/':
						state = stLineComment
						i++
					case '*':
						state = stBlockComment
						openedAt = line
						i++
					}
				}
			case '"', '\'', '`':
				state = stString
				quote = c
				openedAt = line
			case '(', '[', '{':
				stack = append(stack, opener{ch: c, line: line})
			case ')', ']', '}':
				if len(stack) == 0 {
					return &Issue{
						Line:    line,
						Message: fmt.Sprintf("unmatched %q", string(c)),
						Excerpt: lineExcerpt(content, line),
					}
				}
				top := stack[len(stack)-1]
				if closerFor(top.ch) != c {
					return &Issue{
						Line:    line,
						Message: fmt.Sprintf("mismatched %q closes %q opened on line %d", string(c), string(top.ch), top.line),
						Excerpt: lineExcerpt(content, line),
					}
				}
				stack = stack[:len(stack)-1]
			}
		}
	}

	switch state {
	case stBlockComment:
		return &Issue{
			Line:    openedAt,
			Message: "unterminated block comment",
			Excerpt: lineExcerpt(content, openedAt),
		}
	case stString:
		return &Issue{
			Line:    openedAt,
			Message: "unterminated string literal",
			Excerpt: lineExcerpt(content, openedAt),
		}
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return &Issue{
			Line:    top.line,
			Message: fmt.Sprintf("unclosed %q", string(top.ch)),
			Excerpt: lineExcerpt(content, top.line),
		}
	}
	return nil
}

func closerFor(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	default:
		return '}'
	}
}
