package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/graftdev/graft/internal/db"
	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/patch"
)

// ShowInput contains parameters for the Show operation. Exactly one of ID and
// Path must be set; Path resolves to the most recent attempt against that
// file, whatever its outcome.
type ShowInput struct {
	ID   string
	Path string
}

// ShowOutput contains one full journal record.
type ShowOutput struct {
	patch.AttemptRecord
}

// Show fetches a single journal entry by ID or by target file.
func Show(ctx context.Context, database *sql.DB, input ShowInput) (*ShowOutput, error) {
	id := strings.TrimSpace(input.ID)
	path := strings.TrimSpace(input.Path)
	if (id == "") == (path == "") {
		return nil, errors.NewInvalidRequest("exactly one of id and path is required")
	}

	var a *patch.Attempt
	var err error
	if id != "" {
		a, err = db.GetAttempt(database, id)
	} else {
		abs, absErr := canonicalTargetPath(path)
		if absErr != nil {
			return nil, absErr
		}
		a, err = db.LatestAttempt(database, abs)
	}
	if err != nil {
		return nil, err
	}

	return &ShowOutput{AttemptRecord: a.ToRecord()}, nil
}
