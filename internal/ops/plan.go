package ops

import (
	"context"
	"fmt"

	"github.com/graftdev/graft/internal/config"
	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/patch"
	"github.com/graftdev/graft/internal/validate"
)

// PlanInput contains parameters for the Plan operation.
type PlanInput struct {
	Path        string
	Pattern     string
	Replacement string
	Regex       bool
	Mode        string
	Validator   string
}

// PlanOutput predicts what an apply with the same arguments would do. Unlike
// a dry-run apply, ambiguity and validation problems are reported as data
// rather than errors, so callers can inspect a patch before committing to it.
type PlanOutput struct {
	Path         string          `json:"path"`
	Matched      bool            `json:"matched"`
	Occurrences  int             `json:"occurrences"`
	Lines        []int           `json:"lines,omitempty"`
	WouldReplace int             `json:"would_replace"`
	Status       string          `json:"status"`
	Mode         string          `json:"mode"`
	Validator    string          `json:"validator"`
	Issue        *validate.Issue `json:"issue,omitempty"`
	Hint         string          `json:"hint,omitempty"`
	BytesBefore  int64           `json:"bytes_before"`
	BytesAfter   int64           `json:"bytes_after"`
}

// Plan runs the match and validation stages without writing or journaling.
// Status carries the journal status an apply would record.
func Plan(ctx context.Context, cfg *config.Config, input PlanInput) (*PlanOutput, error) {
	spec, err := buildSpec(cfg, input.Pattern, input.Replacement, input.Regex, input.Mode, input.Validator, nil)
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

	out := &PlanOutput{
		Path:        target.absPath,
		Occurrences: len(matches),
		Mode:        string(spec.Mode),
		Validator:   checker.Name,
		BytesBefore: int64(len(target.raw)),
		BytesAfter:  int64(len(target.raw)),
	}

	if len(matches) == 0 {
		out.Status = patch.StatusNoop
		if !spec.Regex {
			if line := patch.NearMiss(target.content, spec.Pattern); line > 0 {
				out.Hint = fmt.Sprintf("no exact match, but text differing only in whitespace appears at line %d", line)
			}
		}
		return out, nil
	}

	out.Matched = true
	out.Lines = patch.MatchLines(target.content, matches)

	if len(matches) > 1 && spec.Mode == patch.ModeSingle {
		out.Status = patch.StatusAmbiguous
		return out, nil
	}

	rendered, replaced, err := patch.Render(target.content, spec, matches)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	out.WouldReplace = replaced

	if issue := checker.Check(rendered); issue != nil {
		out.Status = patch.StatusValidationFailed
		out.Issue = issue
		return out, nil
	}

	out.Status = patch.StatusApplied
	out.BytesAfter = int64(len(target.restore(rendered)))
	return out, nil
}
