package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/graftdev/graft/internal/config"
	"github.com/graftdev/graft/internal/errors"
	"github.com/graftdev/graft/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db      *sql.DB
	cfg     *config.Config
	baseDir string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, baseDir string) *Handlers {
	return &Handlers{db: db, cfg: cfg, baseDir: baseDir}
}

// Request types for each tool

// ApplyRequest represents the arguments for patch_apply.
type ApplyRequest struct {
	Path        string  `json:"path"`
	Pattern     string  `json:"pattern"`
	Replacement string  `json:"replacement,omitempty"`
	Regex       bool    `json:"regex,omitempty"`
	Mode        string  `json:"mode,omitempty"`
	Validator   string  `json:"validator,omitempty"`
	Description *string `json:"description,omitempty"`
	DryRun      bool    `json:"dry_run,omitempty"`
}

// PlanRequest represents the arguments for patch_plan.
type PlanRequest struct {
	Path        string `json:"path"`
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement,omitempty"`
	Regex       bool   `json:"regex,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Validator   string `json:"validator,omitempty"`
}

// ExtractRequest represents the arguments for patch_extract.
type ExtractRequest struct {
	Path string `json:"path"`
	From string `json:"from,omitempty"`
}

// HistoryRequest represents the arguments for patch_history.
type HistoryRequest struct {
	FilePath string `json:"file_path,omitempty"`
	Status   string `json:"status,omitempty"`
	Action   string `json:"action,omitempty"`
	Source   string `json:"source,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// ShowRequest represents the arguments for patch_show.
type ShowRequest struct {
	ID   string `json:"id,omitempty"`
	Path string `json:"path,omitempty"`
}

// RevertRequest represents the arguments for patch_revert.
type RevertRequest struct {
	ID    string `json:"id,omitempty"`
	Path  string `json:"path,omitempty"`
	Force bool   `json:"force,omitempty"`
}

// PurgeRequest represents the arguments for patch_purge.
type PurgeRequest struct {
	OlderThan string `json:"older_than"`
	DryRun    bool   `json:"dry_run,omitempty"`
}

// ExportRequest represents the arguments for patch_export.
type ExportRequest struct {
	Path     string `json:"path,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Status   string `json:"status,omitempty"`
	Action   string `json:"action,omitempty"`
	Source   string `json:"source,omitempty"`
}

// RulesetRunRequest represents the arguments for ruleset_run.
type RulesetRunRequest struct {
	Path      string `json:"path"`
	DryRun    bool   `json:"dry_run,omitempty"`
	KeepGoing bool   `json:"keep_going,omitempty"`
}

// RulesetCheckRequest represents the arguments for ruleset_check.
type RulesetCheckRequest struct {
	Path string `json:"path"`
}

// Handler implementations

// HandleApply handles the patch_apply tool call.
func (h *Handlers) HandleApply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ApplyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Apply(ctx, h.db, h.cfg, h.baseDir, ops.ApplyInput{
		Path:        input.Path,
		Pattern:     input.Pattern,
		Replacement: input.Replacement,
		Regex:       input.Regex,
		Mode:        input.Mode,
		Validator:   input.Validator,
		Description: input.Description,
		DryRun:      input.DryRun,
		Source:      "mcp",
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePlan handles the patch_plan tool call.
func (h *Handlers) HandlePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PlanRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Plan(ctx, h.cfg, ops.PlanInput{
		Path:        input.Path,
		Pattern:     input.Pattern,
		Replacement: input.Replacement,
		Regex:       input.Regex,
		Mode:        input.Mode,
		Validator:   input.Validator,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExtract handles the patch_extract tool call.
func (h *Handlers) HandleExtract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExtractRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Extract(ctx, h.cfg, ops.ExtractInput{
		Path: input.Path,
		From: input.From,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHistory handles the patch_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.History(ctx, h.db, ops.HistoryInput{
		FilePath: input.FilePath,
		Status:   input.Status,
		Action:   input.Action,
		Source:   input.Source,
		Limit:    input.Limit,
		Offset:   input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleShow handles the patch_show tool call.
func (h *Handlers) HandleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ShowRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Show(ctx, h.db, ops.ShowInput{
		ID:   input.ID,
		Path: input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRevert handles the patch_revert tool call.
func (h *Handlers) HandleRevert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RevertRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Revert(ctx, h.db, h.cfg, h.baseDir, ops.RevertInput{
		ID:     input.ID,
		Path:   input.Path,
		Force:  input.Force,
		Source: "mcp",
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePurge handles the patch_purge tool call.
func (h *Handlers) HandlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PurgeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Purge(ctx, h.db, h.baseDir, ops.PurgeInput{
		OlderThan: input.OlderThan,
		DryRun:    input.DryRun,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the patch_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.db, h.cfg, h.baseDir, ops.ExportInput{
		Path:     input.Path,
		FilePath: input.FilePath,
		Status:   input.Status,
		Action:   input.Action,
		Source:   input.Source,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRulesetRun handles the ruleset_run tool call.
func (h *Handlers) HandleRulesetRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RulesetRunRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RunRuleset(ctx, h.db, h.cfg, h.baseDir, ops.RunRulesetInput{
		Path:      input.Path,
		DryRun:    input.DryRun,
		KeepGoing: input.KeepGoing,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRulesetCheck handles the ruleset_check tool call.
func (h *Handlers) HandleRulesetCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RulesetCheckRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.CheckRuleset(ctx, ops.RunRulesetInput{
		Path: input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if graftErr, ok := err.(*errors.GraftError); ok {
		errorObj := map[string]any{
			"code":    graftErr.Code,
			"message": graftErr.Message,
			"status":  graftErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if graftErr.Code != errors.ErrInternal && graftErr.Details != nil {
			errorObj["details"] = graftErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
