package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/patch"
)

// InsertAttempt stores a new journal attempt in the database.
// Attempts are inserted with reverted_at NULL; MarkReverted sets it later.
func InsertAttempt(db *sql.DB, a *patch.Attempt) error {
	// Convert nullable fields
	hashBefore := toNullString(a.HashBefore)
	hashAfter := toNullString(a.HashAfter)
	versionID := toNullString(a.VersionID)
	revertsID := toNullString(a.RevertsID)
	description := toNullString(a.Description)
	detail := toNullString(a.Detail)

	query := `
		INSERT INTO attempts (
			id, action, file_path, pattern, regex, mode, replacement,
			validator, status, occurrences, replaced, bytes_before,
			bytes_after, hash_before, hash_after, version_id, reverts_id,
			source, description, detail, created_at, reverted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err := db.Exec(query,
		a.ID, a.Action, a.FilePath, a.Pattern, a.Regex, a.Mode, a.Replacement,
		a.Validator, a.Status, a.Occurrences, a.Replaced, a.BytesBefore,
		a.BytesAfter, hashBefore, hashAfter, versionID, revertsID,
		a.Source, description, detail, a.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	return nil
}

// GetAttempt retrieves an attempt by its ULID.
func GetAttempt(db *sql.DB, id string) (*patch.Attempt, error) {
	query := `
		SELECT id, action, file_path, pattern, regex, mode, replacement,
			validator, status, occurrences, replaced, bytes_before,
			bytes_after, hash_before, hash_after, version_id, reverts_id,
			source, description, detail, created_at, reverted_at
		FROM attempts
		WHERE id = ?
	`

	row := db.QueryRow(query, id)
	a, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("attempt", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return a, nil
}

// LatestAttempt retrieves the most recent attempt recorded for a file,
// regardless of action or status.
func LatestAttempt(db *sql.DB, filePath string) (*patch.Attempt, error) {
	query := `
		SELECT id, action, file_path, pattern, regex, mode, replacement,
			validator, status, occurrences, replaced, bytes_before,
			bytes_after, hash_before, hash_after, version_id, reverts_id,
			source, description, detail, created_at, reverted_at
		FROM attempts
		WHERE file_path = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	row := db.QueryRow(query, filePath)
	a, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("attempt", filePath)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return a, nil
}

// LatestApplied retrieves the most recent revertable attempt for a file:
// an apply that succeeded, has not been reverted, and retained a version.
func LatestApplied(db *sql.DB, filePath string) (*patch.Attempt, error) {
	query := `
		SELECT id, action, file_path, pattern, regex, mode, replacement,
			validator, status, occurrences, replaced, bytes_before,
			bytes_after, hash_before, hash_after, version_id, reverts_id,
			source, description, detail, created_at, reverted_at
		FROM attempts
		WHERE file_path = ? AND action = 'apply' AND status = 'applied'
			AND reverted_at IS NULL AND version_id IS NOT NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	row := db.QueryRow(query, filePath)
	a, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("revertable attempt", filePath)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return a, nil
}

// MarkReverted records that an attempt has been undone by setting reverted_at.
func MarkReverted(db *sql.DB, id string) error {
	now := time.Now().Unix()

	query := `
		UPDATE attempts
		SET reverted_at = ?
		WHERE id = ? AND reverted_at IS NULL
	`

	result, err := db.Exec(query, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewConflict("attempt already reverted: " + id)
	}

	return nil
}

// ListFilters narrows a journal listing. Nil fields match everything.
type ListFilters struct {
	FilePath *string
	Status   *string
	Action   *string
	Source   *string
}

// where builds the WHERE clause and arguments for the active filters.
func (f ListFilters) where() (string, []any) {
	var clauses []string
	var args []any

	if f.FilePath != nil {
		clauses = append(clauses, "file_path = ?")
		args = append(args, *f.FilePath)
	}
	if f.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, *f.Status)
	}
	if f.Action != nil {
		clauses = append(clauses, "action = ?")
		args = append(args, *f.Action)
	}
	if f.Source != nil {
		clauses = append(clauses, "source = ?")
		args = append(args, *f.Source)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListAttempts returns a page of attempt summaries matching the filters,
// newest first, along with the total match count for pagination.
func ListAttempts(db *sql.DB, f ListFilters, limit, offset int) ([]patch.AttemptSummary, int, error) {
	where, args := f.where()

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM attempts"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT id, action, file_path, pattern, regex, mode, replacement,
			validator, status, occurrences, replaced, bytes_before,
			bytes_after, hash_before, hash_after, version_id, reverts_id,
			source, description, detail, created_at, reverted_at
		FROM attempts` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	summaries := []patch.AttemptSummary{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		summaries = append(summaries, a.ToSummary())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return summaries, total, nil
}

// StreamForExport returns a cursor over attempts matching the filters in
// chronological order. The caller owns the rows and must Close them.
func StreamForExport(ctx context.Context, db *sql.DB, f ListFilters) (*sql.Rows, error) {
	where, args := f.where()

	query := `
		SELECT id, action, file_path, pattern, regex, mode, replacement,
			validator, status, occurrences, replaced, bytes_before,
			bytes_after, hash_before, hash_after, version_id, reverts_id,
			source, description, detail, created_at, reverted_at
		FROM attempts` + where + `
		ORDER BY created_at ASC, id ASC
	`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return rows, nil
}

// ScanAttemptFromRows scans the current row of an export cursor.
func ScanAttemptFromRows(rows *sql.Rows) (*patch.Attempt, error) {
	return scanAttempt(rows)
}

// CountOlderThan counts attempts created before the cutoff timestamp.
func CountOlderThan(db *sql.DB, cutoff int64) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM attempts WHERE created_at < ?", cutoff).Scan(&count)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}

// PurgeOlderThan deletes attempts created before the cutoff timestamp.
// It returns the number of rows deleted and the version IDs those rows
// referenced, so the caller can remove the retained files.
func PurgeOlderThan(db *sql.DB, cutoff int64) (int, []string, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, nil, errors.NewInternal(err)
	}
	defer tx.Rollback()

	rows, err := tx.Query("SELECT version_id FROM attempts WHERE created_at < ? AND version_id IS NOT NULL", cutoff)
	if err != nil {
		return 0, nil, errors.NewInternal(err)
	}

	var versionIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, nil, errors.NewInternal(err)
		}
		versionIDs = append(versionIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, nil, errors.NewInternal(err)
	}
	rows.Close()

	result, err := tx.Exec("DELETE FROM attempts WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, nil, errors.NewInternal(err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, nil, errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, errors.NewInternal(err)
	}

	return int(deleted), versionIDs, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanAttempt scans a single row into an Attempt struct.
func scanAttempt(row rowScanner) (*patch.Attempt, error) {
	var (
		a           patch.Attempt
		hashBefore  sql.NullString
		hashAfter   sql.NullString
		versionID   sql.NullString
		revertsID   sql.NullString
		source      sql.NullString
		description sql.NullString
		detail      sql.NullString
		revertedAt  sql.NullInt64
	)

	err := row.Scan(
		&a.ID, &a.Action, &a.FilePath, &a.Pattern, &a.Regex, &a.Mode,
		&a.Replacement, &a.Validator, &a.Status, &a.Occurrences, &a.Replaced,
		&a.BytesBefore, &a.BytesAfter, &hashBefore, &hashAfter,
		&versionID, &revertsID, &source, &description, &detail,
		&a.CreatedAt, &revertedAt,
	)
	if err != nil {
		return nil, err
	}

	// Convert nullable fields
	a.HashBefore = fromNullString(hashBefore)
	a.HashAfter = fromNullString(hashAfter)
	a.VersionID = fromNullString(versionID)
	a.RevertsID = fromNullString(revertsID)
	a.Source = source.String
	a.Description = fromNullString(description)
	a.Detail = fromNullString(detail)

	// Convert reverted_at
	if revertedAt.Valid {
		a.RevertedAt = &revertedAt.Int64
	}

	return &a, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
