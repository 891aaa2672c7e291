package ops

import (
	"context"
	"strings"

	"github.com/graftdev/graft/internal/config"
	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/patch"
)

// ExtractInput contains parameters for the Extract operation.
type ExtractInput struct {
	Path string
	From string // optional literal anchor; extraction starts after its first occurrence
}

// ExtractOutput carries a literal lifted out of a source file.
type ExtractOutput struct {
	Path  string `json:"path"`
	Line  int    `json:"line"`
	Raw   string `json:"raw"`
	Value any    `json:"value"`
}

// Extract parses the first object or array literal in a file, optionally
// anchored after a marker string, and returns both the raw span and the
// decoded value. The literal is parsed by grammar, never executed, so
// extraction is safe on untrusted source.
func Extract(ctx context.Context, cfg *config.Config, input ExtractInput) (*ExtractOutput, error) {
	target, err := readTarget(input.Path, cfg)
	if err != nil {
		return nil, err
	}

	from := 0
	if input.From != "" {
		i := strings.Index(target.content, input.From)
		if i < 0 {
			return nil, errors.NewNotFound("anchor", patch.TruncatePattern(input.From))
		}
		from = i + len(input.From)
	}

	raw, value, line, err := patch.ExtractLiteral(target.content, from)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	return &ExtractOutput{
		Path:  target.absPath,
		Line:  line,
		Raw:   raw,
		Value: value,
	}, nil
}
