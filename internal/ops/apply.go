package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/graftdev/graft/internal/config"
	"github.com/graftdev/graft/internal/db"
	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/patch"
	"github.com/graftdev/graft/internal/validate"
)

// ApplyInput contains parameters for the Apply operation.
type ApplyInput struct {
	Path        string  // required: the file to patch
	Pattern     string  // required: literal text, or a regular expression when Regex is set
	Replacement string  // replacement text; empty deletes the matched region
	Regex       bool
	Mode        string  // single, first, all (default from config)
	Validator   string  // auto, braces, go, json, none (default from config)
	Description *string // optional note recorded in the journal
	DryRun      bool    // report the outcome without writing or journaling
	Source      string  // surface attribution; defaults to "cli"
}

// ApplyOutput contains the result of the Apply operation.
type ApplyOutput struct {
	patch.Result
	AttemptID string  `json:"attempt_id,omitempty"`
	Status    string  `json:"status"`
	Mode      string  `json:"mode"`
	Validator string  `json:"validator"`
	VersionID *string `json:"version_id,omitempty"`
	DryRun    bool    `json:"dry_run,omitempty"`
}

// Apply runs the full patch pipeline against one file: locate the pattern,
// render the candidate content, gate it through the validator, then commit
// with an atomic write. A file that does not match is left byte-for-byte
// untouched and reported as a noop. Every attempt that reaches the matching
// stage is journaled unless DryRun is set.
func Apply(ctx context.Context, database *sql.DB, cfg *config.Config, baseDir string, input ApplyInput) (*ApplyOutput, error) {
	spec, err := buildSpec(cfg, input.Pattern, input.Replacement, input.Regex, input.Mode, input.Validator, input.Description)
	if err != nil {
		return nil, err
	}

	checker, err := validate.Resolve(spec.Validator, input.Path)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	target, err := readTarget(input.Path, cfg)
	if err != nil {
		return nil, err
	}

	matches, err := patch.Find(target.content, spec)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	source := cleanSource(input.Source)
	bytesBefore := int64(len(target.raw))

	// No match: the file stays untouched and repeated invocations are
	// idempotent. A near-miss hint is attached when a whitespace-insensitive
	// variant of the pattern does appear.
	if len(matches) == 0 {
		hint := ""
		if !spec.Regex {
			if line := patch.NearMiss(target.content, spec.Pattern); line > 0 {
				hint = fmt.Sprintf("no exact match, but text differing only in whitespace appears at line %d", line)
			}
		}

		out := &ApplyOutput{
			Result: patch.Result{
				Matched:     false,
				Path:        target.absPath,
				BytesBefore: bytesBefore,
				BytesAfter:  bytesBefore,
				Hint:        hint,
			},
			Status:    patch.StatusNoop,
			Mode:      string(spec.Mode),
			Validator: checker.Name,
			DryRun:    input.DryRun,
		}
		if !input.DryRun {
			out.AttemptID = journalUnchanged(database, spec, target, checker.Name, patch.StatusNoop, source, input.Description, 0, hint)
		}
		return out, nil
	}

	occurrences := len(matches)
	lines := patch.MatchLines(target.content, matches)

	// More than one occurrence under the default mode is a refusal, not a
	// guess: the caller must pick first or all explicitly.
	if occurrences > 1 && spec.Mode == patch.ModeSingle {
		if !input.DryRun {
			detail := fmt.Sprintf("pattern matches at lines %s", formatLines(lines))
			journalUnchanged(database, spec, target, checker.Name, patch.StatusAmbiguous, source, input.Description, occurrences, detail)
		}
		return nil, errors.NewAmbiguousMatch(occurrences, lines)
	}

	rendered, replaced, err := patch.Render(target.content, spec, matches)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	// Validation gate: refuse to write output that is provably broken, even
	// though the pattern matched.
	if issue := checker.Check(rendered); issue != nil {
		if !input.DryRun {
			detail := fmt.Sprintf("line %d: %s", issue.Line, issue.Message)
			journalUnchanged(database, spec, target, checker.Name, patch.StatusValidationFailed, source, input.Description, occurrences, detail)
		}
		vErr := errors.NewValidationFailed(checker.Name, issue.Line, issue.Message)
		if issue.Excerpt != "" {
			vErr.Details["excerpt"] = issue.Excerpt
		}
		return nil, vErr
	}

	newRaw := target.restore(rendered)
	bytesAfter := int64(len(newRaw))

	out := &ApplyOutput{
		Result: patch.Result{
			Matched:     true,
			Path:        target.absPath,
			Occurrences: occurrences,
			Replaced:    replaced,
			BytesBefore: bytesBefore,
			BytesAfter:  bytesAfter,
		},
		Status:    patch.StatusApplied,
		Mode:      string(spec.Mode),
		Validator: checker.Name,
		DryRun:    input.DryRun,
	}
	if input.DryRun {
		return out, nil
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	// Retain the pre-patch content before touching the target so a revert
	// is possible even if the process dies right after the rename.
	var versionID *string
	if cfg == nil || !cfg.DisableVersions {
		if err := retainVersion(baseDir, id, target.raw); err != nil {
			return nil, err
		}
		versionID = &id
	}

	if err := writeFileAtomic(target.absPath, newRaw, target.mode); err != nil {
		if versionID != nil {
			_ = removeVersion(baseDir, id)
		}
		return nil, err
	}

	hashBefore := hashContent(target.raw)
	hashAfter := hashContent(newRaw)
	a := &patch.Attempt{
		ID:          id,
		Action:      patch.ActionApply,
		FilePath:    target.absPath,
		Pattern:     spec.Pattern,
		Regex:       spec.Regex,
		Mode:        string(spec.Mode),
		Replacement: spec.Replacement,
		Validator:   checker.Name,
		Status:      patch.StatusApplied,
		Occurrences: occurrences,
		Replaced:    replaced,
		BytesBefore: bytesBefore,
		BytesAfter:  bytesAfter,
		HashBefore:  &hashBefore,
		HashAfter:   &hashAfter,
		VersionID:   versionID,
		Source:      source,
		Description: input.Description,
		CreatedAt:   time.Now().Unix(),
	}
	if err := db.InsertAttempt(database, a); err != nil {
		return nil, err
	}

	out.AttemptID = id
	out.VersionID = versionID
	return out, nil
}

// journalUnchanged records an attempt that left the file untouched: a noop,
// an ambiguity refusal, or a validation failure. These rows are best-effort;
// an insert problem never masks the primary outcome.
func journalUnchanged(database *sql.DB, spec patch.Spec, target *targetFile, checkerName, status, source string, description *string, occurrences int, detail string) string {
	id, err := generateULID()
	if err != nil {
		return ""
	}

	hashBefore := hashContent(target.raw)
	size := int64(len(target.raw))

	var detailPtr *string
	if detail != "" {
		detailPtr = &detail
	}

	a := &patch.Attempt{
		ID:          id,
		Action:      patch.ActionApply,
		FilePath:    target.absPath,
		Pattern:     spec.Pattern,
		Regex:       spec.Regex,
		Mode:        string(spec.Mode),
		Replacement: spec.Replacement,
		Validator:   checkerName,
		Status:      status,
		Occurrences: occurrences,
		BytesBefore: size,
		BytesAfter:  size,
		HashBefore:  &hashBefore,
		Source:      source,
		Description: description,
		Detail:      detailPtr,
		CreatedAt:   time.Now().Unix(),
	}
	if err := db.InsertAttempt(database, a); err != nil {
		return ""
	}
	return id
}

// formatLines renders match line numbers for journal details.
func formatLines(lines []int) string {
	parts := make([]string, len(lines))
	for i, n := range lines {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
