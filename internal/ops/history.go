package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/graftdev/graft/internal/db"
	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/patch"
)

var knownStatuses = map[string]bool{
	patch.StatusApplied:          true,
	patch.StatusNoop:             true,
	patch.StatusAmbiguous:        true,
	patch.StatusValidationFailed: true,
}

var knownActions = map[string]bool{
	patch.ActionApply:  true,
	patch.ActionRevert: true,
}

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	FilePath string // filter to one target file; resolved to an absolute path
	Status   string
	Action   string
	Source   string
	Limit    int
	Offset   int
}

// HistoryOutput contains journal entries with pagination metadata.
type HistoryOutput struct {
	Attempts   []patch.AttemptSummary `json:"attempts"`
	Pagination Pagination             `json:"pagination"`
}

// History lists journal entries, newest first, with optional filters.
func History(ctx context.Context, database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	f, err := parseListFilters(input.FilePath, input.Status, input.Action, input.Source)
	if err != nil {
		return nil, err
	}

	summaries, total, err := db.ListAttempts(database, f, limit, offset)
	if err != nil {
		return nil, err
	}

	return &HistoryOutput{
		Attempts: summaries,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(summaries) < total,
			Total:   total,
		},
	}, nil
}

// parseListFilters validates and assembles journal filters shared by History
// and Export. File paths are resolved to their absolute form, matching how
// the journal stores them.
func parseListFilters(filePath, status, action, source string) (db.ListFilters, error) {
	var f db.ListFilters
	if s := strings.TrimSpace(filePath); s != "" {
		abs, err := canonicalTargetPath(s)
		if err != nil {
			return f, err
		}
		f.FilePath = &abs
	}
	if s := strings.TrimSpace(status); s != "" {
		if !knownStatuses[s] {
			return f, errors.NewInvalidRequest(fmt.Sprintf("unknown status %q (expected applied, noop, ambiguous, or validation_failed)", s))
		}
		f.Status = &s
	}
	if s := strings.TrimSpace(action); s != "" {
		if !knownActions[s] {
			return f, errors.NewInvalidRequest(fmt.Sprintf("unknown action %q (expected apply or revert)", s))
		}
		f.Action = &s
	}
	if s := strings.TrimSpace(source); s != "" {
		f.Source = &s
	}
	return f, nil
}
