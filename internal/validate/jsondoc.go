package validate

import (
	"encoding/json"
	goerrors "errors"
	"strings"
)

// checkJSON requires the content to be exactly one well-formed JSON
// document. Trailing non-whitespace after the document is a problem.
func checkJSON(content string) *Issue {
	var v any
	err := json.Unmarshal([]byte(content), &v)
	if err == nil {
		return nil
	}

	line := 0
	var syntaxErr *json.SyntaxError
	if goerrors.As(err, &syntaxErr) {
		line = lineAtOffset(content, syntaxErr.Offset)
	}
	return &Issue{
		Line:    line,
		Message: err.Error(),
		Excerpt: lineExcerpt(content, line),
	}
}

// lineAtOffset converts a byte offset into a 1-based line number.
func lineAtOffset(content string, offset int64) int {
	if offset < 0 {
		return 0
	}
	if offset > int64(len(content)) {
		offset = int64(len(content))
	}
	return strings.Count(content[:offset], "\n") + 1
}
