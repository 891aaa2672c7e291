package ruleset

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/graftdev/graft/internal/patch"
	"github.com/graftdev/graft/internal/validate"
)

// Load reads and parses a ruleset file. Validation is a separate step so
// callers can surface every problem at once.
func Load(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ruleset %s: %w", path, err)
	}

	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing ruleset %s: %w", path, err)
	}

	if rs.Name == "" {
		base := filepath.Base(path)
		rs.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	rs.Dir = filepath.Dir(path)
	return &rs, nil
}

// Validate checks the ruleset for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func (rs *Ruleset) Validate() []string {
	var errs []string

	if rs.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d (only version 1 is supported)", rs.Version))
	}

	if len(rs.Rules) == 0 {
		errs = append(errs, "at least one rule is required")
	}

	for i, r := range rs.Rules {
		prefix := fmt.Sprintf("rule[%d]", i)
		if r.File != "" {
			prefix = fmt.Sprintf("rule[%d] %s", i, r.File)
		}

		if r.File == "" {
			errs = append(errs, fmt.Sprintf("%s: 'file' is required", prefix))
		}
		if r.Pattern == "" {
			errs = append(errs, fmt.Sprintf("%s: 'pattern' is required", prefix))
		}
		if _, err := patch.ParseMode(r.Mode); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", prefix, err))
		}
		if r.Validator != "" && !validate.Known(r.Validator) {
			errs = append(errs, fmt.Sprintf("%s: unknown validator %q (expected one of %s)", prefix, r.Validator, strings.Join(validate.Names(), ", ")))
		}
		if r.Regex && r.Pattern != "" {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				errs = append(errs, fmt.Sprintf("%s: invalid regex pattern: %v", prefix, err))
			}
		}
	}

	return errs
}
