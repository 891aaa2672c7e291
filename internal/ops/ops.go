package ops

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/graftdev/graft/internal/config"
	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/patch"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// buildSpec assembles a patch.Spec from request fields, filling mode and
// validator defaults from config and rejecting malformed specs.
func buildSpec(cfg *config.Config, pattern, replacement string, regex bool, mode, validator string, description *string) (patch.Spec, error) {
	mode = strings.TrimSpace(mode)
	if mode == "" && cfg != nil {
		mode = cfg.DefaultMode
	}
	parsedMode, err := patch.ParseMode(mode)
	if err != nil {
		return patch.Spec{}, errors.NewInvalidRequest(err.Error())
	}

	validator = strings.TrimSpace(validator)
	if validator == "" && cfg != nil {
		validator = cfg.DefaultValidator
	}

	desc := ""
	if description != nil {
		desc = *description
	}

	spec := patch.Spec{
		Pattern:     pattern,
		Regex:       regex,
		Mode:        parsedMode,
		Replacement: replacement,
		Validator:   validator,
		Description: desc,
	}
	if err := spec.Validate(); err != nil {
		return patch.Spec{}, errors.NewInvalidRequest(err.Error())
	}
	return spec, nil
}

// cleanSource normalizes the attributed source surface, defaulting to "cli".
func cleanSource(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "cli"
	}
	return s
}

// hashContent returns the SHA-256 hex digest of content.
func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
