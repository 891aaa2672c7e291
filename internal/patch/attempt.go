package patch

// Actions recorded in the attempt journal.
const (
	ActionApply  = "apply"
	ActionRevert = "revert"
)

// Statuses recorded in the attempt journal. Every invocation that reached
// the matching stage gets exactly one.
const (
	StatusApplied          = "applied"
	StatusNoop             = "noop"
	StatusAmbiguous        = "ambiguous"
	StatusValidationFailed = "validation_failed"
)

// Attempt is one journaled patch invocation against a file.
type Attempt struct {
	// ID is a ULID that uniquely identifies this attempt
	ID string

	// Action is what the invocation did: apply or revert
	Action string

	// FilePath is the absolute path of the target file
	FilePath string

	// Pattern is the match pattern as supplied
	Pattern string

	// Regex records whether the pattern was a regular expression
	Regex bool

	// Mode is the occurrence policy that was in effect (single, first, all)
	Mode string

	// Replacement is the replacement text as supplied
	Replacement string

	// Validator is the resolved validator name that gated the write
	Validator string

	// Status is the outcome: applied, noop, ambiguous, or validation_failed
	Status string

	// Occurrences is how many times the pattern matched
	Occurrences int

	// Replaced is how many regions were rewritten
	Replaced int

	// BytesBefore and BytesAfter are the content sizes around the rewrite
	BytesBefore int64
	BytesAfter  int64

	// HashBefore and HashAfter are SHA-256 hex digests of the content,
	// recorded when the file was read and written (nullable)
	HashBefore *string
	HashAfter  *string

	// VersionID names the retained pre-image under versions/ (nullable)
	VersionID *string

	// RevertsID links a revert attempt to the attempt it undid (nullable)
	RevertsID *string

	// Source is the surface that ran the attempt: cli, mcp, web, or
	// ruleset:<name>
	Source string

	// Description is an optional caller note (nullable)
	Description *string

	// Detail carries failure diagnostics: the validator problem or the
	// ambiguity line numbers (nullable)
	Detail *string

	// CreatedAt is the Unix timestamp when the attempt ran
	CreatedAt int64

	// RevertedAt is the Unix timestamp when this attempt was undone (nullable)
	RevertedAt *int64
}
