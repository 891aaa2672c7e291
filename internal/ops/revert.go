package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/graftdev/graft/internal/config"
	"github.com/graftdev/graft/internal/db"
	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/patch"
)

// RevertInput contains parameters for the Revert operation. Exactly one of ID
// and Path must be set; Path resolves to the most recent revertable attempt
// against that file.
type RevertInput struct {
	ID     string
	Path   string
	Force  bool // restore even if the file changed since the patch landed
	Source string
}

// RevertOutput contains the result of the Revert operation.
type RevertOutput struct {
	AttemptID   string `json:"attempt_id"`  // the new revert journal entry
	RevertedID  string `json:"reverted_id"` // the apply entry that was undone
	Path        string `json:"path"`
	VersionID   string `json:"version_id"` // the retained version that was restored
	BytesBefore int64  `json:"bytes_before"`
	BytesAfter  int64  `json:"bytes_after"`
}

// Revert restores the retained pre-patch content of an applied attempt. The
// current file hash is checked against the journal first so a file edited
// since the patch is not silently clobbered; Force overrides that check.
func Revert(ctx context.Context, database *sql.DB, cfg *config.Config, baseDir string, input RevertInput) (*RevertOutput, error) {
	id := strings.TrimSpace(input.ID)
	path := strings.TrimSpace(input.Path)
	if (id == "") == (path == "") {
		return nil, errors.NewInvalidRequest("exactly one of id and path is required")
	}

	var original *patch.Attempt
	var err error
	if id != "" {
		original, err = db.GetAttempt(database, id)
		if err != nil {
			return nil, err
		}
		if original.Action != patch.ActionApply {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("attempt %s is a %s entry; only apply attempts can be reverted", original.ID, original.Action))
		}
		if original.Status != patch.StatusApplied {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("attempt %s did not modify the file (status %s)", original.ID, original.Status))
		}
		if original.RevertedAt != nil {
			return nil, errors.NewConflict("attempt already reverted: " + original.ID)
		}
		if original.VersionID == nil {
			return nil, errors.NewNotFound("retained version", original.ID)
		}
	} else {
		abs, absErr := canonicalTargetPath(path)
		if absErr != nil {
			return nil, absErr
		}
		original, err = db.LatestApplied(database, abs)
		if err != nil {
			return nil, err
		}
	}

	prev, err := ReadVersion(baseDir, *original.VersionID)
	if err != nil {
		return nil, err
	}

	target, err := readTarget(original.FilePath, cfg)
	if err != nil {
		return nil, err
	}

	currentHash := hashContent(target.raw)
	if !input.Force && original.HashAfter != nil && currentHash != *original.HashAfter {
		return nil, errors.NewConflict("file changed since the patch was applied; pass force to restore anyway")
	}

	if err := writeFileAtomic(target.absPath, prev, target.mode); err != nil {
		return nil, err
	}

	if err := db.MarkReverted(database, original.ID); err != nil {
		return nil, err
	}

	revertID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	prevHash := hashContent(prev)
	detail := fmt.Sprintf("restored version %s", *original.VersionID)
	entry := &patch.Attempt{
		ID:          revertID,
		Action:      patch.ActionRevert,
		FilePath:    original.FilePath,
		Pattern:     original.Pattern,
		Regex:       original.Regex,
		Mode:        original.Mode,
		Validator:   "none",
		Status:      patch.StatusApplied,
		BytesBefore: int64(len(target.raw)),
		BytesAfter:  int64(len(prev)),
		HashBefore:  &currentHash,
		HashAfter:   &prevHash,
		RevertsID:   &original.ID,
		Source:      cleanSource(input.Source),
		Detail:      &detail,
		CreatedAt:   time.Now().Unix(),
	}
	if err := db.InsertAttempt(database, entry); err != nil {
		return nil, err
	}

	return &RevertOutput{
		AttemptID:   revertID,
		RevertedID:  original.ID,
		Path:        target.absPath,
		VersionID:   *original.VersionID,
		BytesBefore: int64(len(target.raw)),
		BytesAfter:  int64(len(prev)),
	}, nil
}
