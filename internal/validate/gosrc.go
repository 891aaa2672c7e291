package validate

import (
	"go/format"
	"strconv"
	"strings"
)

// checkGo round-trips the content through go/format. A parse failure is the
// structural problem; formatting differences are not.
func checkGo(content string) *Issue {
	if _, err := format.Source([]byte(content)); err != nil {
		line := goErrLine(err.Error())
		return &Issue{
			Line:    line,
			Message: err.Error(),
			Excerpt: lineExcerpt(content, line),
		}
	}
	return nil
}

// goErrLine pulls the line number out of a parser error like
// "3:14: expected declaration, found '}'". Zero when the shape differs.
func goErrLine(msg string) int {
	head, _, ok := strings.Cut(msg, ":")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0
	}
	return n
}
