package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/nutrilog/internal/config"
	"github.com/hpungsan/nutrilog/internal/errors"
	"github.com/hpungsan/nutrilog/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	src ops.Sources
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance. A nil src.Config is filled
// from cfg.
func NewHandlers(database *sql.DB, src ops.Sources, cfg *config.Config) *Handlers {
	if src.Config == nil {
		src.Config = cfg
	}
	return &Handlers{db: database, src: src, cfg: cfg}
}

// windowArgs is embedded by every request that selects a date window.
type windowArgs struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Period string `json:"period,omitempty"`
}

func (w windowArgs) input() ops.WindowInput {
	return ops.WindowInput{From: w.From, To: w.To, Period: w.Period}
}

// AddRequest represents the arguments for log_add.
type AddRequest struct {
	Kind     string   `json:"kind,omitempty"`
	ItemName string   `json:"item_name,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`
	Value    *float64 `json:"value,omitempty"`
	Date     string   `json:"date,omitempty"`
	Time     string   `json:"time,omitempty"`
}

// HistoryRequest represents the arguments for log_history.
type HistoryRequest struct {
	windowArgs
	Kind           string `json:"kind,omitempty"`
	MealPeriod     string `json:"meal_period,omitempty"`
	NameContains   string `json:"name_contains,omitempty"`
	ClassifiedOnly bool   `json:"classified_only,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
}

// RollupRequest represents the arguments for log_rollup.
type RollupRequest struct {
	windowArgs
	Kind      string `json:"kind,omitempty"`
	Aggregate string `json:"aggregate,omitempty"`
}

// SummaryRequest represents the arguments for log_summary.
type SummaryRequest struct {
	windowArgs
	Kind string `json:"kind,omitempty"`
	Date string `json:"date,omitempty"`
}

// TopRequest represents the arguments for log_top.
type TopRequest struct {
	windowArgs
	Kind  string `json:"kind,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// MealsRequest represents the arguments for log_meals.
type MealsRequest struct {
	windowArgs
	MealPeriod string `json:"meal_period,omitempty"`
}

// LatestRequest represents the arguments for log_latest.
type LatestRequest struct {
	Kind string `json:"kind,omitempty"`
}

// DeleteRequest represents the arguments for log_delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// ExportRequest represents the arguments for log_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for log_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// CatalogSetRequest represents the arguments for catalog_set.
type CatalogSetRequest struct {
	ItemName           string   `json:"item_name"`
	CaloriesPer100g    *float64 `json:"calories_per_100g,omitempty"`
	CaloriesPerPortion *float64 `json:"calories_per_portion,omitempty"`
}

// CatalogGetRequest represents the arguments for catalog_get.
type CatalogGetRequest struct {
	ItemName string `json:"item_name"`
}

// HandleAdd handles the log_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.LogRecord(ctx, h.db, h.cfg, ops.LogInput{
		Kind:     input.Kind,
		ItemName: input.ItemName,
		Quantity: input.Quantity,
		Value:    input.Value,
		Date:     input.Date,
		Time:     input.Time,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleHistory handles the log_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.History(ctx, h.src, ops.HistoryInput{
		Kind:           input.Kind,
		Window:         input.input(),
		MealPeriod:     input.MealPeriod,
		NameContains:   input.NameContains,
		ClassifiedOnly: input.ClassifiedOnly,
		Limit:          input.Limit,
		Offset:         input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRollup handles the log_rollup tool call.
func (h *Handlers) HandleRollup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RollupRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Rollup(ctx, h.src, ops.RollupInput{
		Kind:      input.Kind,
		Window:    input.input(),
		Aggregate: input.Aggregate,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSummary handles the log_summary tool call.
func (h *Handlers) HandleSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SummaryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Summary(ctx, h.src, ops.SummaryInput{
		Kind:   input.Kind,
		Window: input.input(),
		Date:   input.Date,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTop handles the log_top tool call.
func (h *Handlers) HandleTop(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TopRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Top(ctx, h.src, ops.TopInput{
		Kind:   input.Kind,
		Window: input.input(),
		Limit:  input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleMeals handles the log_meals tool call.
func (h *Handlers) HandleMeals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MealsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.MealBreakdown(ctx, h.src, ops.MealBreakdownInput{
		Window:     input.input(),
		MealPeriod: input.MealPeriod,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleLatest handles the log_latest tool call.
func (h *Handlers) HandleLatest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LatestRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Latest(ctx, h.src, ops.LatestInput{Kind: input.Kind})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDelete handles the log_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.DeleteRecord(ctx, h.db, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the log_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.db, h.cfg, ops.ExportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the log_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.db, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCatalogSet handles the catalog_set tool call.
func (h *Handlers) HandleCatalogSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CatalogSetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SetCatalog(ctx, h.db, ops.CatalogSetInput{
		ItemName:           input.ItemName,
		CaloriesPer100g:    input.CaloriesPer100g,
		CaloriesPerPortion: input.CaloriesPerPortion,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCatalogGet handles the catalog_get tool call.
func (h *Handlers) HandleCatalogGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CatalogGetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.GetCatalog(ctx, h.src, ops.CatalogGetInput{ItemName: input.ItemName})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCatalogList handles the catalog_list tool call.
func (h *Handlers) HandleCatalogList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListCatalog(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var nErr *errors.NutriError
	if stderrors.As(err, &nErr) {
		message := nErr.Message
		switch {
		case nErr.Code == errors.ErrInternal:
			message = "an internal error occurred"
		case err != error(nErr):
			// Keep wrapper context such as "line 3: ..."
			message = err.Error()
		}
		errorObj := map[string]any{
			"code":    nErr.Code,
			"message": message,
			"status":  nErr.Status,
		}
		if nErr.Code != errors.ErrInternal && nErr.Details != nil {
			errorObj["details"] = nErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
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
