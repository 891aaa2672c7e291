package patch

import (
	"strings"
	"testing"
)

// duplicatedClose mirrors the shape of the bug this tool was built for: a
// copy-pasted close handler that doubled a brace line inside a setTimeout.
const duplicatedClose = `function onDismiss() {
	panel.hide();
}; // note
}; // note
}, 500)
`

func TestFind_Literal(t *testing.T) {
	content := "aaa bbb aaa ccc aaa"
	matches, err := Find(content, Spec{Pattern: "aaa"})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("len(matches) = %d, want 3", len(matches))
	}
	if matches[0].Start != 0 || matches[0].End != 3 {
		t.Errorf("matches[0] = [%d,%d), want [0,3)", matches[0].Start, matches[0].End)
	}
	if matches[2].Start != 16 {
		t.Errorf("matches[2].Start = %d, want 16", matches[2].Start)
	}
}

func TestFind_NoMatch(t *testing.T) {
	matches, err := Find("short content", Spec{Pattern: "this pattern is longer than the content itself"})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("len(matches) = %d, want 0", len(matches))
	}
}

func TestFind_OverlappingCandidates(t *testing.T) {
	// "aaaa" contains "aa" at offsets 0,1,2 but non-overlapping search must
	// report exactly two: [0,2) and [2,4).
	matches, err := Find("aaaa", Spec{Pattern: "aa"})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(matches))
	}
	if matches[1].Start != 2 {
		t.Errorf("matches[1].Start = %d, want 2", matches[1].Start)
	}
}

func TestFind_Regex(t *testing.T) {
	content := "setTimeout(fn, 500)\nsetInterval(fn, 1000)\n"
	matches, err := Find(content, Spec{Pattern: `set(Timeout|Interval)\(fn, (\d+)\)`, Regex: true})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(matches))
	}
}

func TestFind_RegexZeroWidth(t *testing.T) {
	matches, err := Find("abc", Spec{Pattern: `x*`, Regex: true})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("zero-width matches should be ignored, got %d", len(matches))
	}
}

func TestRender_SingleOccurrence(t *testing.T) {
	spec := Spec{
		Pattern:     "}; // note\n}; // note\n}, 500)",
		Replacement: "}; // note\n}, 500)",
	}
	matches, err := Find(duplicatedClose, spec)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("len(matches) = %d, want 1", len(matches))
	}

	out, replaced, err := Render(duplicatedClose, spec, matches)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if replaced != 1 {
		t.Errorf("replaced = %d, want 1", replaced)
	}
	want := "function onDismiss() {\n\tpanel.hide();\n}; // note\n}, 500)\n"
	if out != want {
		t.Errorf("Render() = %q, want %q", out, want)
	}

	// The pattern must no longer match the rendered output.
	again, err := Find(out, spec)
	if err != nil {
		t.Fatalf("Find() on output error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("pattern still matches after render: %d occurrences", len(again))
	}
}

func TestRender_PreservesSurroundings(t *testing.T) {
	content := "head\nMARKER\ntail\n"
	spec := Spec{Pattern: "MARKER", Replacement: "replaced"}
	matches, _ := Find(content, spec)
	out, _, err := Render(content, spec, matches)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.HasPrefix(out, "head\n") || !strings.HasSuffix(out, "\ntail\n") {
		t.Errorf("surrounding content not preserved: %q", out)
	}
}

func TestRender_FirstVsAll(t *testing.T) {
	content := "x=1; x=1; x=1;"
	matches, _ := Find(content, Spec{Pattern: "x=1;"})

	firstOut, firstN, err := Render(content, Spec{Pattern: "x=1;", Replacement: "x=2;", Mode: ModeFirst}, matches)
	if err != nil {
		t.Fatalf("Render(first) error = %v", err)
	}
	if firstN != 1 {
		t.Errorf("first mode replaced = %d, want 1", firstN)
	}
	if firstOut != "x=2; x=1; x=1;" {
		t.Errorf("first mode output = %q", firstOut)
	}

	allOut, allN, err := Render(content, Spec{Pattern: "x=1;", Replacement: "x=2;", Mode: ModeAll}, matches)
	if err != nil {
		t.Fatalf("Render(all) error = %v", err)
	}
	if allN != 3 {
		t.Errorf("all mode replaced = %d, want 3", allN)
	}
	if allOut != "x=2; x=2; x=2;" {
		t.Errorf("all mode output = %q", allOut)
	}
}

func TestRender_EmptyReplacementDeletes(t *testing.T) {
	content := "keep DROP keep"
	spec := Spec{Pattern: " DROP"}
	matches, _ := Find(content, spec)
	out, replaced, err := Render(content, spec, matches)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if replaced != 1 || out != "keep keep" {
		t.Errorf("Render() = (%q, %d), want (%q, 1)", out, replaced, "keep keep")
	}
}

func TestRender_RegexTemplate(t *testing.T) {
	content := "setTimeout(fn, 500)"
	spec := Spec{
		Pattern:     `setTimeout\(fn, (\d+)\)`,
		Regex:       true,
		Replacement: "setTimeout(fn, ${1}0)",
	}
	matches, err := Find(content, spec)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	out, _, err := Render(content, spec, matches)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "setTimeout(fn, 5000)" {
		t.Errorf("Render() = %q, want %q", out, "setTimeout(fn, 5000)")
	}
}

func TestRender_NoMatches(t *testing.T) {
	content := "unchanged"
	out, replaced, err := Render(content, Spec{Pattern: "missing"}, nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != content || replaced != 0 {
		t.Errorf("Render() = (%q, %d), want (%q, 0)", out, replaced, content)
	}
}

func TestLineOf(t *testing.T) {
	content := "one\ntwo\nthree\n"
	tests := []struct {
		off  int
		want int
	}{
		{0, 1},
		{3, 1},
		{4, 2},
		{8, 3},
		{len(content), 4},
		{len(content) + 10, 4}, // clamped
	}
	for _, tt := range tests {
		if got := LineOf(content, tt.off); got != tt.want {
			t.Errorf("LineOf(%d) = %d, want %d", tt.off, got, tt.want)
		}
	}
}

func TestMatchLines(t *testing.T) {
	content := "x\ny\nx\n"
	matches, _ := Find(content, Spec{Pattern: "x"})
	lines := MatchLines(content, matches)
	if len(lines) != 2 || lines[0] != 1 || lines[1] != 3 {
		t.Errorf("MatchLines() = %v, want [1 3]", lines)
	}
}

func TestNearMiss(t *testing.T) {
	tests := []struct {
		name    string
		content string
		pattern string
		want    int
	}{
		{
			name:    "indentation differs",
			content: "function f() {\n\t\treturn  1;\n}\n",
			pattern: "return 1;",
			want:    2,
		},
		{
			name:    "multi-line pattern with different indentation",
			content: "a\nif (x)  {\n  doThing();\n}\nb\n",
			pattern: "if (x) {\n\tdoThing();\n}",
			want:    2,
		},
		{
			name:    "genuinely absent",
			content: "nothing relevant here\n",
			pattern: "return 1;",
			want:    0,
		},
		{
			name:    "empty pattern",
			content: "anything",
			pattern: "   ",
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NearMiss(tt.content, tt.pattern); got != tt.want {
				t.Errorf("NearMiss() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewlines(t *testing.T) {
	crlf := "a\r\nb\r\nc"
	if !HasCRLF(crlf) {
		t.Error("HasCRLF() = false, want true")
	}
	if HasCRLF("a\nb") {
		t.Error("HasCRLF() = true, want false")
	}

	lf := ToLF(crlf)
	if lf != "a\nb\nc" {
		t.Errorf("ToLF() = %q", lf)
	}
	if got := ToCRLF(lf); got != crlf {
		t.Errorf("ToCRLF() = %q, want %q", got, crlf)
	}

	// Mixed endings normalize without doubling CRs.
	if got := ToCRLF("a\r\nb\nc"); got != "a\r\nb\r\nc" {
		t.Errorf("ToCRLF(mixed) = %q", got)
	}
}
