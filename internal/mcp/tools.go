package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool definitions for the MCP surface. Parameter names match the JSON tags
// of the request types in handlers.go.

var applyToolDef = mcp.NewTool("patch_apply",
	mcp.WithDescription("Apply a single-shot patch to a source file: find the pattern, replace it, validate the result, and write atomically. Every attempt is journaled and the pre-patch content is retained for revert."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("File to patch. Must resolve inside an allowed root and carry an allowed extension."),
	),
	mcp.WithString("pattern",
		mcp.Required(),
		mcp.Description("Literal text to find, or a Go regular expression when regex is true."),
	),
	mcp.WithString("replacement",
		mcp.Description("Replacement text. Empty deletes the matched region."),
	),
	mcp.WithBoolean("regex",
		mcp.Description("Treat pattern as a Go regular expression."),
	),
	mcp.WithString("mode",
		mcp.Description("How multiple occurrences are handled: single requires exactly one match, first replaces the first, all replaces every occurrence. Defaults from config."),
		mcp.Enum("single", "first", "all"),
	),
	mcp.WithString("validator",
		mcp.Description("Validation gate run on the patched content before writing. Defaults from config."),
		mcp.Enum("auto", "braces", "go", "json", "none"),
	),
	mcp.WithString("description",
		mcp.Description("Optional note recorded in the journal."),
	),
	mcp.WithBoolean("dry_run",
		mcp.Description("Report the outcome without writing or journaling."),
	),
)

var planToolDef = mcp.NewTool("patch_plan",
	mcp.WithDescription("Preview what a patch would do without touching the file or the journal. Ambiguity and validation problems are reported as data rather than errors."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("File the patch would target."),
	),
	mcp.WithString("pattern",
		mcp.Required(),
		mcp.Description("Literal text to find, or a Go regular expression when regex is true."),
	),
	mcp.WithString("replacement",
		mcp.Description("Replacement text. Empty deletes the matched region."),
	),
	mcp.WithBoolean("regex",
		mcp.Description("Treat pattern as a Go regular expression."),
	),
	mcp.WithString("mode",
		mcp.Description("How multiple occurrences are handled. Defaults from config."),
		mcp.Enum("single", "first", "all"),
	),
	mcp.WithString("validator",
		mcp.Description("Validation gate to evaluate. Defaults from config."),
		mcp.Enum("auto", "braces", "go", "json", "none"),
	),
)

var extractToolDef = mcp.NewTool("patch_extract",
	mcp.WithDescription("Parse the first object or array literal in a file and return its raw text and decoded value. The literal is parsed by grammar, never executed."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("File to read."),
	),
	mcp.WithString("from",
		mcp.Description("Literal anchor; extraction starts after its first occurrence."),
	),
)

var historyToolDef = mcp.NewTool("patch_history",
	mcp.WithDescription("List journal entries, newest first, with optional filters and pagination."),
	mcp.WithString("file_path",
		mcp.Description("Only entries targeting this file."),
	),
	mcp.WithString("status",
		mcp.Description("Only entries with this outcome."),
		mcp.Enum("applied", "noop", "ambiguous", "validation_failed"),
	),
	mcp.WithString("action",
		mcp.Description("Only entries of this kind."),
		mcp.Enum("apply", "revert"),
	),
	mcp.WithString("source",
		mcp.Description("Only entries attributed to this surface, e.g. cli or mcp."),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum entries to return (default 20, max 100)."),
	),
	mcp.WithNumber("offset",
		mcp.Description("Entries to skip, for pagination."),
	),
)

var showToolDef = mcp.NewTool("patch_show",
	mcp.WithDescription("Fetch one full journal entry, including the complete pattern and replacement. Provide exactly one of id or path; path resolves to the most recent entry for that file."),
	mcp.WithString("id",
		mcp.Description("Journal entry ID (ULID)."),
	),
	mcp.WithString("path",
		mcp.Description("Target file; resolves to its most recent entry."),
	),
)

var revertToolDef = mcp.NewTool("patch_revert",
	mcp.WithDescription("Restore the retained pre-patch content of an applied attempt. Refuses when the file changed since the patch landed unless force is set. Provide exactly one of id or path; path resolves to the latest applied attempt for that file."),
	mcp.WithString("id",
		mcp.Description("Journal entry ID of the applied attempt to undo."),
	),
	mcp.WithString("path",
		mcp.Description("Target file; reverts its latest applied attempt."),
	),
	mcp.WithBoolean("force",
		mcp.Description("Restore even if the file changed since the patch landed."),
	),
)

var purgeToolDef = mcp.NewTool("patch_purge",
	mcp.WithDescription("Permanently delete journal entries older than a retention window, along with their retained version files."),
	mcp.WithString("older_than",
		mcp.Required(),
		mcp.Description("Retention window, e.g. 7d or 48h."),
	),
	mcp.WithBoolean("dry_run",
		mcp.Description("Count matching entries without deleting anything."),
	),
)

var exportToolDef = mcp.NewTool("patch_export",
	mcp.WithDescription("Stream journal entries to a JSONL file: one header line, then one record per attempt in chronological order."),
	mcp.WithString("path",
		mcp.Description("Destination .jsonl file. Defaults to a timestamped file in the exports directory."),
	),
	mcp.WithString("file_path",
		mcp.Description("Only entries targeting this file."),
	),
	mcp.WithString("status",
		mcp.Description("Only entries with this outcome."),
		mcp.Enum("applied", "noop", "ambiguous", "validation_failed"),
	),
	mcp.WithString("action",
		mcp.Description("Only entries of this kind."),
		mcp.Enum("apply", "revert"),
	),
	mcp.WithString("source",
		mcp.Description("Only entries attributed to this surface."),
	),
)

var rulesetRunToolDef = mcp.NewTool("ruleset_run",
	mcp.WithDescription("Apply each rule of a YAML ruleset in order through the patch pipeline. A failed rule stops the run unless keep_going is set; no-ops are not failures."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Ruleset file to run."),
	),
	mcp.WithBoolean("dry_run",
		mcp.Description("Predict every rule's outcome without writing or journaling."),
	),
	mcp.WithBoolean("keep_going",
		mcp.Description("Continue past failed rules instead of stopping."),
	),
)

var rulesetCheckToolDef = mcp.NewTool("ruleset_check",
	mcp.WithDescription("Validate a ruleset file without applying anything. Reports every problem found."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Ruleset file to check."),
	),
)
