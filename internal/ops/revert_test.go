package ops

import (
	"context"
	"os"
	"testing"

	"github.com/graftdev/graft/internal/db"
	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/patch"
)

// applyPanelFix seeds one applied patch and returns its journal entry ID and
// target path.
func applyPanelFix(t *testing.T, env *testEnv) (id, path string) {
	t.Helper()
	path = env.writeTarget(t, "panel.js", panelBefore)
	out, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path: path, Pattern: panelPattern, Replacement: panelReplacement,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	return out.AttemptID, path
}

func TestRevert_ByID(t *testing.T) {
	env := newTestEnv(t)
	id, path := applyPanelFix(t, env)

	out, err := Revert(context.Background(), env.db, env.cfg, env.baseDir, RevertInput{ID: id})
	if err != nil {
		t.Fatalf("Revert failed: %v", err)
	}

	if out.RevertedID != id {
		t.Errorf("RevertedID = %q, want %q", out.RevertedID, id)
	}
	if out.AttemptID == "" {
		t.Error("AttemptID should identify the new revert entry")
	}
	if got := env.readBack(t, path); got != panelBefore {
		t.Error("revert must restore the pre-patch content byte-for-byte")
	}

	// The original entry is marked reverted.
	original, err := db.GetAttempt(env.db, id)
	if err != nil {
		t.Fatalf("GetAttempt failed: %v", err)
	}
	if original.RevertedAt == nil {
		t.Error("original attempt should carry reverted_at")
	}

	// The revert entry links back to the original.
	entry, err := db.GetAttempt(env.db, out.AttemptID)
	if err != nil {
		t.Fatalf("GetAttempt failed: %v", err)
	}
	if entry.Action != patch.ActionRevert {
		t.Errorf("action = %q, want revert", entry.Action)
	}
	if entry.RevertsID == nil || *entry.RevertsID != id {
		t.Errorf("RevertsID = %v, want %q", entry.RevertsID, id)
	}
	if entry.Detail == nil {
		t.Error("revert entry should note the restored version")
	}
}

func TestRevert_ByPath(t *testing.T) {
	env := newTestEnv(t)
	id, path := applyPanelFix(t, env)

	out, err := Revert(context.Background(), env.db, env.cfg, env.baseDir, RevertInput{Path: path})
	if err != nil {
		t.Fatalf("Revert failed: %v", err)
	}
	if out.RevertedID != id {
		t.Errorf("RevertedID = %q, want latest applied %q", out.RevertedID, id)
	}
	if got := env.readBack(t, path); got != panelBefore {
		t.Error("revert must restore the pre-patch content")
	}
}

func TestRevert_FileChangedConflict(t *testing.T) {
	env := newTestEnv(t)
	id, path := applyPanelFix(t, env)

	// An outside edit lands after the patch.
	edited := panelAfter + "// reviewed\n"
	if err := os.WriteFile(path, []byte(edited), 0644); err != nil {
		t.Fatalf("external edit failed: %v", err)
	}

	_, err := Revert(context.Background(), env.db, env.cfg, env.baseDir, RevertInput{ID: id})
	if !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	if got := env.readBack(t, path); got != edited {
		t.Error("refused revert must not touch the file")
	}

	// Force overrides the hash check.
	if _, err := Revert(context.Background(), env.db, env.cfg, env.baseDir, RevertInput{ID: id, Force: true}); err != nil {
		t.Fatalf("forced Revert failed: %v", err)
	}
	if got := env.readBack(t, path); got != panelBefore {
		t.Error("forced revert must restore the pre-patch content")
	}
}

func TestRevert_AlreadyReverted(t *testing.T) {
	env := newTestEnv(t)
	id, path := applyPanelFix(t, env)

	if _, err := Revert(context.Background(), env.db, env.cfg, env.baseDir, RevertInput{ID: id}); err != nil {
		t.Fatalf("first Revert failed: %v", err)
	}

	if _, err := Revert(context.Background(), env.db, env.cfg, env.baseDir, RevertInput{ID: id}); !errors.Is(err, errors.ErrConflict) {
		t.Errorf("expected CONFLICT on second revert by ID, got %v", err)
	}

	// By path there is nothing revertable left.
	if _, err := Revert(context.Background(), env.db, env.cfg, env.baseDir, RevertInput{Path: path}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NOT_FOUND by path after revert, got %v", err)
	}
}

func TestRevert_NoopAttemptRejected(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "panel.js", panelAfter)

	noop, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path: path, Pattern: "absent", Replacement: "x",
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	_, err = Revert(context.Background(), env.db, env.cfg, env.baseDir, RevertInput{ID: noop.AttemptID})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST for a noop attempt, got %v", err)
	}
}

func TestRevert_RequiresExactlyOneSelector(t *testing.T) {
	env := newTestEnv(t)

	if _, err := Revert(context.Background(), env.db, env.cfg, env.baseDir, RevertInput{}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST with neither selector, got %v", err)
	}
	if _, err := Revert(context.Background(), env.db, env.cfg, env.baseDir, RevertInput{ID: "01X", Path: "a.js"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST with both selectors, got %v", err)
	}
}

func TestRevert_PreservesCRLF(t *testing.T) {
	env := newTestEnv(t)
	content := "const a = 1;\r\nconst retries = 3;\r\n"
	path := env.writeTarget(t, "win.js", content)

	out, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path: path, Pattern: "const retries = 3;", Replacement: "const retries = 5;",
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if _, err := Revert(context.Background(), env.db, env.cfg, env.baseDir, RevertInput{ID: out.AttemptID}); err != nil {
		t.Fatalf("Revert failed: %v", err)
	}
	if got := env.readBack(t, path); got != content {
		t.Errorf("content = %q, want original CRLF bytes back", got)
	}
}
