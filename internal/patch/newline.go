package patch

import "strings"

// HasCRLF reports whether content uses CRLF line endings.
func HasCRLF(content string) bool {
	return strings.Contains(content, "\r\n")
}

// ToLF normalizes CRLF line endings to LF. Matching and replacement always
// run on LF content so patterns can be written one way.
func ToLF(content string) string {
	return strings.ReplaceAll(content, "\r\n", "\n")
}

// ToCRLF converts LF line endings back to CRLF for files that used them.
// Content is normalized first so the conversion never doubles a CR.
func ToCRLF(content string) string {
	return strings.ReplaceAll(ToLF(content), "\n", "\r\n")
}
