package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/graftdev/graft/internal/db"
	"github.com/graftdev/graft/internal/errors"
)

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	OlderThan string // required retention window, e.g. "7d" or "48h"
	DryRun    bool   // count matching entries without deleting anything
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged          int    `json:"purged"`
	VersionsRemoved int    `json:"versions_removed"`
	DryRun          bool   `json:"dry_run,omitempty"`
	Message         string `json:"message"`
}

// Purge permanently deletes journal entries older than the retention window,
// along with their retained version files.
func Purge(ctx context.Context, database *sql.DB, baseDir string, input PurgeInput) (*PurgeOutput, error) {
	window, err := parseRetention(input.OlderThan)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	cutoff := time.Now().Add(-window).Unix()

	if input.DryRun {
		count, err := db.CountOlderThan(database, cutoff)
		if err != nil {
			return nil, err
		}
		return &PurgeOutput{
			Purged:  count,
			DryRun:  true,
			Message: formatPurgeMessage(count, input.OlderThan, true),
		}, nil
	}

	deleted, versionIDs, err := db.PurgeOlderThan(database, cutoff)
	if err != nil {
		return nil, err
	}

	removed := 0
	for _, id := range versionIDs {
		if err := removeVersion(baseDir, id); err == nil {
			removed++
		}
	}

	return &PurgeOutput{
		Purged:          deleted,
		VersionsRemoved: removed,
		Message:         formatPurgeMessage(deleted, input.OlderThan, false),
	}, nil
}

// parseRetention parses a retention window. Day units get a custom suffix
// since time.ParseDuration stops at hours.
func parseRetention(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("older_than is required (e.g. 7d or 48h)")
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid retention window %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	window, err := time.ParseDuration(s)
	if err != nil || window <= 0 {
		return 0, fmt.Errorf("invalid retention window %q", s)
	}
	return window, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, window string, dryRun bool) string {
	if count == 0 {
		return "No journal entries to purge"
	}

	entryWord := "entry"
	if count > 1 {
		entryWord = "entries"
	}

	if dryRun {
		return fmt.Sprintf("Would permanently delete %d %s older than %s", count, entryWord, window)
	}
	return fmt.Sprintf("Permanently deleted %d %s older than %s", count, entryWord, window)
}
