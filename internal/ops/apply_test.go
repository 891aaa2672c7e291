package ops

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/graftdev/graft/internal/db"
	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/patch"
)

// panelBefore carries the duplicated-close-line bug: a stray "}, 500);" that
// a naive hand-edit left behind. Removing it rebalances the file.
const panelBefore = `function attachPanel(el) {
  setTimeout(() => {
    el.teardown();
  }, 500);
  }, 500);
}
`

const panelAfter = `function attachPanel(el) {
  setTimeout(() => {
    el.teardown();
  }, 500);
}
`

const panelPattern = "  }, 500);\n  }, 500);\n}"
const panelReplacement = "  }, 500);\n}"

func stringPtr(s string) *string {
	return &s
}

func TestApply_RemovesDuplicatedLine(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "panel.js", panelBefore)

	out, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     panelPattern,
		Replacement: panelReplacement,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if !out.Matched {
		t.Error("Matched = false, want true")
	}
	if out.Occurrences != 1 {
		t.Errorf("Occurrences = %d, want 1", out.Occurrences)
	}
	if out.Replaced != 1 {
		t.Errorf("Replaced = %d, want 1", out.Replaced)
	}
	if out.Status != patch.StatusApplied {
		t.Errorf("Status = %q, want applied", out.Status)
	}
	if out.Validator != "braces" {
		t.Errorf("Validator = %q, want braces (auto for .js)", out.Validator)
	}
	if out.AttemptID == "" {
		t.Error("AttemptID should not be empty")
	}
	if out.VersionID == nil {
		t.Fatal("VersionID should be set when versions are enabled")
	}

	if got := env.readBack(t, path); got != panelAfter {
		t.Errorf("file content = %q, want %q", got, panelAfter)
	}

	// The retained version holds the pre-patch bytes.
	prev, err := ReadVersion(env.baseDir, *out.VersionID)
	if err != nil {
		t.Fatalf("ReadVersion failed: %v", err)
	}
	if string(prev) != panelBefore {
		t.Error("retained version should match the pre-patch content")
	}

	// Journaled as applied.
	a, err := db.GetAttempt(env.db, out.AttemptID)
	if err != nil {
		t.Fatalf("GetAttempt failed: %v", err)
	}
	if a.Status != patch.StatusApplied {
		t.Errorf("journal status = %q, want applied", a.Status)
	}
	if a.HashBefore == nil || a.HashAfter == nil {
		t.Error("journal should record both content hashes")
	}
}

func TestApply_NoMatchIsNoop(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "panel.js", panelAfter)

	out, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     "const missing = true;",
		Replacement: "const missing = false;",
	})
	if err != nil {
		t.Fatalf("Apply should not error on no match: %v", err)
	}

	if out.Matched {
		t.Error("Matched = true, want false")
	}
	if out.Status != patch.StatusNoop {
		t.Errorf("Status = %q, want noop", out.Status)
	}
	if out.BytesBefore != out.BytesAfter {
		t.Error("noop should report identical sizes")
	}
	if got := env.readBack(t, path); got != panelAfter {
		t.Error("noop must leave the file byte-for-byte untouched")
	}

	// No-ops are journaled too, so a caller can tell "nothing needed" apart
	// from "never ran".
	if out.AttemptID == "" {
		t.Fatal("noop should be journaled")
	}
	a, err := db.GetAttempt(env.db, out.AttemptID)
	if err != nil {
		t.Fatalf("GetAttempt failed: %v", err)
	}
	if a.Status != patch.StatusNoop {
		t.Errorf("journal status = %q, want noop", a.Status)
	}
}

func TestApply_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "panel.js", panelBefore)

	input := ApplyInput{Path: path, Pattern: panelPattern, Replacement: panelReplacement}

	first, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, input)
	if err != nil {
		t.Fatalf("first Apply failed: %v", err)
	}
	if first.Status != patch.StatusApplied {
		t.Fatalf("first Status = %q, want applied", first.Status)
	}

	second, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, input)
	if err != nil {
		t.Fatalf("second Apply failed: %v", err)
	}
	if second.Status != patch.StatusNoop {
		t.Errorf("second Status = %q, want noop", second.Status)
	}
	if got := env.readBack(t, path); got != panelAfter {
		t.Error("second apply must not change the file again")
	}
}

func TestApply_AmbiguousUnderSingleMode(t *testing.T) {
	env := newTestEnv(t)
	content := "const retries = 3;\nconst limit = 10;\nconst retries = 3;\n"
	path := env.writeTarget(t, "config.js", content)

	_, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     "const retries = 3;",
		Replacement: "const retries = 5;",
	})
	if !errors.Is(err, errors.ErrAmbiguousMatch) {
		t.Fatalf("expected AMBIGUOUS_MATCH, got %v", err)
	}

	gErr := err.(*errors.GraftError)
	if gErr.Details["occurrences"] != 2 {
		t.Errorf("occurrences detail = %v, want 2", gErr.Details["occurrences"])
	}
	lines, ok := gErr.Details["lines"].([]int)
	if !ok || len(lines) != 2 || lines[0] != 1 || lines[1] != 3 {
		t.Errorf("lines detail = %v, want [1 3]", gErr.Details["lines"])
	}

	if got := env.readBack(t, path); got != content {
		t.Error("ambiguous match must leave the file untouched")
	}

	// Journaled as ambiguous, with the match lines in the detail.
	ambiguous := patch.StatusAmbiguous
	summaries, _, err := db.ListAttempts(env.db, db.ListFilters{Status: &ambiguous}, 10, 0)
	if err != nil {
		t.Fatalf("ListAttempts failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("ambiguous journal entries = %d, want 1", len(summaries))
	}
	a, err := db.GetAttempt(env.db, summaries[0].ID)
	if err != nil {
		t.Fatalf("GetAttempt failed: %v", err)
	}
	if a.Detail == nil || !strings.Contains(*a.Detail, "lines 1, 3") {
		t.Errorf("ambiguous detail = %v, want match lines", a.Detail)
	}
}

func TestApply_ModeFirst(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "config.js", "let a = 1;\nlet b = 1;\n")

	out, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     "= 1;",
		Replacement: "= 2;",
		Mode:        "first",
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if out.Occurrences != 2 {
		t.Errorf("Occurrences = %d, want 2", out.Occurrences)
	}
	if out.Replaced != 1 {
		t.Errorf("Replaced = %d, want 1", out.Replaced)
	}
	if got := env.readBack(t, path); got != "let a = 2;\nlet b = 1;\n" {
		t.Errorf("content = %q, want only first occurrence rewritten", got)
	}
}

func TestApply_ModeAll(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "config.js", "let a = 1;\nlet b = 1;\n")

	out, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     "= 1;",
		Replacement: "= 2;",
		Mode:        "all",
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if out.Replaced != 2 {
		t.Errorf("Replaced = %d, want 2", out.Replaced)
	}
	if got := env.readBack(t, path); got != "let a = 2;\nlet b = 2;\n" {
		t.Errorf("content = %q, want both occurrences rewritten", got)
	}
}

func TestApply_ValidationFailureWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "panel.js", panelAfter)

	// Removing the closing brace leaves the output unbalanced; the gate must
	// refuse and the file must stay untouched.
	_, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     "  }, 500);\n}",
		Replacement: "  }, 500);",
	})
	if !errors.Is(err, errors.ErrValidationFailed) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}

	gErr := err.(*errors.GraftError)
	if gErr.Details["validator"] != "braces" {
		t.Errorf("validator detail = %v, want braces", gErr.Details["validator"])
	}

	if got := env.readBack(t, path); got != panelAfter {
		t.Error("validation failure must write zero bytes")
	}

	// No version is retained for a refused write.
	entries, err := os.ReadDir(db.VersionsDir(env.baseDir))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("versions dir has %d entries, want 0", len(entries))
	}

	// Journaled as validation_failed.
	failed := patch.StatusValidationFailed
	if got := env.journalCount(t, db.ListFilters{Status: &failed}); got != 1 {
		t.Errorf("validation_failed journal entries = %d, want 1", got)
	}
}

func TestApply_AutoValidatorForJSON(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "routes.json", "{\n  \"timeout\": 5000\n}\n")

	// Trailing comma after the rewrite breaks the document; the json
	// validator resolved from the extension must catch it.
	_, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     "\"timeout\": 5000",
		Replacement: "\"timeout\": 10000,",
	})
	if !errors.Is(err, errors.ErrValidationFailed) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
	gErr := err.(*errors.GraftError)
	if gErr.Details["validator"] != "json" {
		t.Errorf("validator detail = %v, want json", gErr.Details["validator"])
	}
}

func TestApply_DryRunTouchesNothing(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "panel.js", panelBefore)

	out, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     panelPattern,
		Replacement: panelReplacement,
		DryRun:      true,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if !out.DryRun {
		t.Error("DryRun = false, want true")
	}
	if out.Status != patch.StatusApplied {
		t.Errorf("Status = %q, want applied (predicted)", out.Status)
	}
	if out.AttemptID != "" {
		t.Error("dry run must not journal")
	}
	if out.VersionID != nil {
		t.Error("dry run must not retain a version")
	}
	if got := env.readBack(t, path); got != panelBefore {
		t.Error("dry run must leave the file untouched")
	}
	if got := env.journalCount(t, db.ListFilters{}); got != 0 {
		t.Errorf("journal entries = %d, want 0 after dry run", got)
	}
}

func TestApply_DryRunNoMatch(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "panel.js", panelAfter)

	out, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     "nothing here",
		Replacement: "x",
		DryRun:      true,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Status != patch.StatusNoop {
		t.Errorf("Status = %q, want noop", out.Status)
	}
	if got := env.journalCount(t, db.ListFilters{}); got != 0 {
		t.Errorf("journal entries = %d, want 0 after dry run", got)
	}
}

func TestApply_PreservesCRLF(t *testing.T) {
	env := newTestEnv(t)
	content := "const a = 1;\r\nconst retries = 3;\r\nconst b = 2;\r\n"
	path := env.writeTarget(t, "win.js", content)

	out, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     "const retries = 3;",
		Replacement: "const retries = 5;",
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !out.Matched {
		t.Fatal("pattern written in LF style should match CRLF content")
	}

	want := "const a = 1;\r\nconst retries = 5;\r\nconst b = 2;\r\n"
	if got := env.readBack(t, path); got != want {
		t.Errorf("content = %q, want CRLF endings preserved", got)
	}
}

func TestApply_NearMissHint(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "config.js", "const retries  =  3;\n")

	out, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     "const retries = 3;",
		Replacement: "const retries = 5;",
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if out.Matched {
		t.Fatal("whitespace variant must not count as a match")
	}
	if !strings.Contains(out.Hint, "line 1") {
		t.Errorf("Hint = %q, want near-miss pointing at line 1", out.Hint)
	}
}

func TestApply_RegexReplacement(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "config.js", "const retries = 3;\n")

	out, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     `retries = (\d+)`,
		Replacement: "retries = ${1}0",
		Regex:       true,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Replaced != 1 {
		t.Errorf("Replaced = %d, want 1", out.Replaced)
	}
	if got := env.readBack(t, path); got != "const retries = 30;\n" {
		t.Errorf("content = %q, want submatch expanded", got)
	}
}

func TestApply_EmptyReplacementDeletes(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "app.js", "start();\ndebugLog(state);\nfinish();\n")

	_, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     "debugLog(state);\n",
		Replacement: "",
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got := env.readBack(t, path); got != "start();\nfinish();\n" {
		t.Errorf("content = %q, want matched region deleted", got)
	}
}

func TestApply_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	_, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        env.workDir + "/missing.js",
		Pattern:     "x",
		Replacement: "y",
	})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestApply_FileTooLarge(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.MaxFileBytes = 16
	path := env.writeTarget(t, "big.js", strings.Repeat("const filler = 1;\n", 10))

	_, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     "filler",
		Replacement: "x",
	})
	if !errors.Is(err, errors.ErrFileTooLarge) {
		t.Errorf("expected FILE_TOO_LARGE, got %v", err)
	}
}

func TestApply_RejectsBinaryContent(t *testing.T) {
	env := newTestEnv(t)
	path := env.workDir + "/blob.js"
	if err := os.WriteFile(path, []byte{0x68, 0xff, 0xfe, 0x69}, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     "x",
		Replacement: "y",
	})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST for non-UTF-8 content, got %v", err)
	}
}

func TestApply_RejectsNULBytes(t *testing.T) {
	env := newTestEnv(t)
	path := env.workDir + "/nul.js"
	if err := os.WriteFile(path, []byte("const a = 1;\x00const b = 2;\n"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     "const a",
		Replacement: "const z",
	})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST for NUL bytes, got %v", err)
	}
}

func TestApply_DisableVersions(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.DisableVersions = true
	path := env.writeTarget(t, "panel.js", panelBefore)

	out, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     panelPattern,
		Replacement: panelReplacement,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if out.VersionID != nil {
		t.Error("VersionID should be nil when versions are disabled")
	}
	entries, err := os.ReadDir(db.VersionsDir(env.baseDir))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("versions dir has %d entries, want 0", len(entries))
	}
}

func TestApply_RecordsDescriptionAndSource(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "panel.js", panelBefore)

	out, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path:        path,
		Pattern:     panelPattern,
		Replacement: panelReplacement,
		Description: stringPtr("remove duplicated close handler"),
		Source:      "mcp",
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	a, err := db.GetAttempt(env.db, out.AttemptID)
	if err != nil {
		t.Fatalf("GetAttempt failed: %v", err)
	}
	if a.Description == nil || *a.Description != "remove duplicated close handler" {
		t.Errorf("Description = %v, want the caller note", a.Description)
	}
	if a.Source != "mcp" {
		t.Errorf("Source = %q, want mcp", a.Source)
	}
}
