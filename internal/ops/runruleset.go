package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/graftdev/graft/internal/config"
	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/patch"
	"github.com/graftdev/graft/internal/ruleset"
)

// RunRulesetInput contains parameters for the RunRuleset operation.
type RunRulesetInput struct {
	Path      string // ruleset file
	DryRun    bool   // propagated to every rule
	KeepGoing bool   // continue past failed rules instead of stopping
}

// RuleResult is the outcome of one rule in a ruleset run.
type RuleResult struct {
	File        string `json:"file"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"` // applied, noop, or failed
	AttemptID   string `json:"attempt_id,omitempty"`
	Replaced    int    `json:"replaced,omitempty"`
	Error       string `json:"error,omitempty"`
}

// RunRulesetOutput contains the result of the RunRuleset operation.
type RunRulesetOutput struct {
	Name    string       `json:"name"`
	Results []RuleResult `json:"results"`
	Applied int          `json:"applied"`
	Noops   int          `json:"noops"`
	Failed  int          `json:"failed"`
	DryRun  bool         `json:"dry_run,omitempty"`
}

// CheckRulesetOutput contains the result of the CheckRuleset operation.
type CheckRulesetOutput struct {
	Name     string   `json:"name"`
	Rules    int      `json:"rules"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

// RunRuleset applies each rule of a ruleset file in order through the apply
// pipeline. A failed rule stops the run unless KeepGoing is set; no-ops are
// not failures. Failures are reported in the output rather than as an error
// so partial results survive.
func RunRuleset(ctx context.Context, database *sql.DB, cfg *config.Config, baseDir string, input RunRulesetInput) (*RunRulesetOutput, error) {
	rs, err := loadRuleset(input.Path)
	if err != nil {
		return nil, err
	}

	source := "ruleset:" + rs.Name
	out := &RunRulesetOutput{
		Name:    rs.Name,
		Results: make([]RuleResult, 0, len(rs.Rules)),
		DryRun:  input.DryRun,
	}

	for _, r := range rs.Rules {
		select {
		case <-ctx.Done():
			return nil, errors.NewCancelled("ruleset run")
		default:
		}

		var desc *string
		if r.Description != "" {
			d := r.Description
			desc = &d
		}

		applyOut, err := Apply(ctx, database, cfg, baseDir, ApplyInput{
			Path:        rs.ResolveFile(r),
			Pattern:     r.Pattern,
			Replacement: r.Replacement,
			Regex:       r.Regex,
			Mode:        r.Mode,
			Validator:   r.Validator,
			Description: desc,
			DryRun:      input.DryRun,
			Source:      source,
		})

		res := RuleResult{File: r.File, Description: r.Description}
		if err != nil {
			res.Status = "failed"
			res.Error = err.Error()
			out.Failed++
			out.Results = append(out.Results, res)
			if !input.KeepGoing {
				break
			}
			continue
		}

		res.Status = applyOut.Status
		res.AttemptID = applyOut.AttemptID
		res.Replaced = applyOut.Replaced
		if applyOut.Status == patch.StatusApplied {
			out.Applied++
		} else {
			out.Noops++
		}
		out.Results = append(out.Results, res)
	}

	return out, nil
}

// CheckRuleset loads and validates a ruleset file without applying anything.
// Unlike RunRuleset, problems come back as data so a CI step can print all
// of them.
func CheckRuleset(ctx context.Context, input RunRulesetInput) (*CheckRulesetOutput, error) {
	rs, err := ruleset.Load(input.Path)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	problems := rs.Validate()
	return &CheckRulesetOutput{
		Name:     rs.Name,
		Rules:    len(rs.Rules),
		Valid:    len(problems) == 0,
		Problems: problems,
	}, nil
}

// loadRuleset loads and validates a ruleset, folding validation problems
// into a single invalid-request error.
func loadRuleset(path string) (*ruleset.Ruleset, error) {
	rs, err := ruleset.Load(path)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	if problems := rs.Validate(); len(problems) > 0 {
		return nil, errors.NewInvalidRequest("invalid ruleset: " + strings.Join(problems, "; "))
	}
	return rs, nil
}
