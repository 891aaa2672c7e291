package mcp

import (
	"database/sql"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/graftdev/graft/internal/config"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"patch", "ruleset"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"patch_apply": {
		def:     applyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleApply },
	},
	"patch_plan": {
		def:     planToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlan },
	},
	"patch_extract": {
		def:     extractToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExtract },
	},
	"patch_history": {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
	"patch_show": {
		def:     showToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleShow },
	},
	"patch_revert": {
		def:     revertToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRevert },
	},
	"patch_purge": {
		def:     purgeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePurge },
	},
	"patch_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"ruleset_run": {
		def:     rulesetRunToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRulesetRun },
	},
	"ruleset_check": {
		def:     rulesetCheckToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRulesetCheck },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "patch_apply" → "patch").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	// Build set of types for O(1) lookup
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	// Collect tools belonging to disabled types
	tools := make([]string, 0)
	for name := range toolRegistry {
		typ := GetTypeForTool(name)
		if typeSet[typ] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with Graft tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, baseDir, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"graft",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, baseDir)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, baseDir, version string) error {
	s := NewServer(db, cfg, baseDir, version)
	return server.ServeStdio(s)
}
