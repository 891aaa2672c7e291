package ops

import (
	"context"
	"testing"
	"time"

	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/patch"
)

func TestShow_ByID(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "panel.js", panelBefore)

	applied, err := Apply(context.Background(), env.db, env.cfg, env.baseDir, ApplyInput{
		Path: path, Pattern: panelPattern, Replacement: panelReplacement,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	out, err := Show(context.Background(), env.db, ShowInput{ID: applied.AttemptID})
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}

	if out.ID != applied.AttemptID {
		t.Errorf("ID = %q, want %q", out.ID, applied.AttemptID)
	}
	if out.Pattern != panelPattern {
		t.Errorf("Pattern = %q, want the full pattern, untruncated", out.Pattern)
	}
	if out.Status != patch.StatusApplied {
		t.Errorf("Status = %q, want applied", out.Status)
	}
	if out.VersionID == nil {
		t.Error("VersionID should be present on the full record")
	}
}

func TestShow_ByPathReturnsLatest(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeTarget(t, "panel.js", panelBefore)
	ctx := context.Background()

	if _, err := Apply(ctx, env.db, env.cfg, env.baseDir, ApplyInput{
		Path: path, Pattern: panelPattern, Replacement: panelReplacement,
	}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	// A later noop against the same file becomes the latest attempt.
	noop, err := Apply(ctx, env.db, env.cfg, env.baseDir, ApplyInput{
		Path: path, Pattern: "absent", Replacement: "x",
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	out, err := Show(ctx, env.db, ShowInput{Path: path})
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if out.ID != noop.AttemptID {
		t.Errorf("ID = %q, want latest attempt %q", out.ID, noop.AttemptID)
	}
	if out.Status != patch.StatusNoop {
		t.Errorf("Status = %q, want noop", out.Status)
	}
}

func TestShow_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	_, err := Show(context.Background(), env.db, ShowInput{ID: "01NOPE000000000000000000"})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestShow_PathWithNoAttempts(t *testing.T) {
	env := newTestEnv(t)

	_, err := Show(context.Background(), env.db, ShowInput{Path: env.workDir + "/never.js"})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestShow_RequiresExactlyOneSelector(t *testing.T) {
	env := newTestEnv(t)

	if _, err := Show(context.Background(), env.db, ShowInput{}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST with neither selector, got %v", err)
	}
	if _, err := Show(context.Background(), env.db, ShowInput{ID: "01X", Path: "a.js"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST with both selectors, got %v", err)
	}
}
