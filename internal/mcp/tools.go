package mcp

import "github.com/mark3labs/mcp-go/mcp"

const (
	periodHelp = `Relative window ending today: "last week", "last month", "last 3 months" or "last year". Mutually exclusive with from/to.`
	fromHelp   = "Window start (DD-MM-YYYY, DD-MM-YY or YYYY-MM-DD). To defaults to today."
	toHelp     = "Window end, inclusive. Requires from."
	kindHelp   = `Record kind: "consumption", "weight" or "water".`
)

// windowOptions are shared by every tool that reads a date window.
func windowOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("from", mcp.Description(fromHelp)),
		mcp.WithString("to", mcp.Description(toHelp)),
		mcp.WithString("period", mcp.Description(periodHelp),
			mcp.Enum("last week", "last month", "last 3 months", "last year")),
	}
}

func readTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	all := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithReadOnlyHintAnnotation(true),
	}
	all = append(all, opts...)
	return mcp.NewTool(name, all...)
}

func windowTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	return readTool(name, description, append(windowOptions(), opts...)...)
}

var addToolDef = mcp.NewTool("log_add",
	mcp.WithDescription("Log a food, weight or water entry. Consumption calories are computed from the catalog when value is omitted."),
	mcp.WithString("kind", mcp.Description(kindHelp+" Default: consumption."),
		mcp.Enum("consumption", "weight", "water")),
	mcp.WithString("item_name", mcp.Description("Food name. Required for consumption.")),
	mcp.WithNumber("quantity", mcp.Description("Grams or portions for food, ml for water.")),
	mcp.WithNumber("value", mcp.Description("Calories, body weight in kg or water in ml.")),
	mcp.WithString("date", mcp.Description("Entry date. Default: today.")),
	mcp.WithString("time", mcp.Description("Entry time as HH:MM. Default: now.")),
)

var historyToolDef = windowTool("log_history",
	"List log entries newest first. Without from/to/period the whole history is listed.",
	mcp.WithString("kind", mcp.Description(kindHelp+" Default: consumption.")),
	mcp.WithString("meal_period", mcp.Description(`Breakfast, Mid-Morning, Lunch, Snack, Dinner, Other or All.`)),
	mcp.WithString("name_contains", mcp.Description("Case-insensitive item name substring.")),
	mcp.WithBoolean("classified_only", mcp.Description("Keep only entries whose item is in the catalog.")),
	mcp.WithNumber("limit", mcp.Description("Page size. Default: 20, max: 100.")),
	mcp.WithNumber("offset", mcp.Description("Entries to skip.")),
)

var rollupToolDef = windowTool("log_rollup",
	"One aggregated value per day in the window, oldest first. Defaults to the configured period.",
	mcp.WithString("kind", mcp.Description(kindHelp+" Default: consumption.")),
	mcp.WithString("aggregate", mcp.Description("Default: average for weight, sum otherwise."),
		mcp.Enum("sum", "average", "min", "max", "count")),
)

var summaryToolDef = windowTool("log_summary",
	"Totals, averages, active days and coverage for a window, a single date or the whole history.",
	mcp.WithString("kind", mcp.Description(kindHelp+" Default: consumption.")),
	mcp.WithString("date", mcp.Description("Summarize one day. Mutually exclusive with from/to/period.")),
)

var topToolDef = windowTool("log_top",
	"Most frequently logged foods in the window.",
	mcp.WithString("kind", mcp.Description("Only consumption is supported. Default: consumption.")),
	mcp.WithNumber("limit", mcp.Description("Items to return. Default from config, max: 100.")),
)

var mealsToolDef = windowTool("log_meals",
	"Consumption totals per meal period. Entries without a catalog match are counted as unclassified.",
	mcp.WithString("meal_period", mcp.Description("Restrict to one meal period; All for every period.")),
)

var latestToolDef = readTool("log_latest",
	"Most recent entry of a kind, such as the latest weight.",
	mcp.WithString("kind", mcp.Description(kindHelp+" Default: weight.")),
)

var deleteToolDef = mcp.NewTool("log_delete",
	mcp.WithDescription("Permanently delete a log entry."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Entry ID.")),
)

var exportToolDef = mcp.NewTool("log_export",
	mcp.WithDescription("Export the catalog and every log entry to a JSONL file."),
	mcp.WithString("path", mcp.Description("Target .jsonl path. Default: ~/.nutrilog/exports/nutrilog-<timestamp>.jsonl")),
)

var importToolDef = mcp.NewTool("log_import",
	mcp.WithDescription("Import a JSONL export. Catalog entries are always upserted."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Source .jsonl path.")),
	mcp.WithString("mode", mcp.Description("ID collisions: error aborts, replace overwrites, skip keeps the stored entry."),
		mcp.Enum("error", "replace", "skip")),
)

var catalogSetToolDef = mcp.NewTool("catalog_set",
	mcp.WithDescription("Create or replace a catalog entry. Give calories per 100g or per portion."),
	mcp.WithString("item_name", mcp.Required(), mcp.Description("Food name.")),
	mcp.WithNumber("calories_per_100g", mcp.Description("Calories per 100 grams.")),
	mcp.WithNumber("calories_per_portion", mcp.Description("Calories per portion. Takes precedence.")),
)

var catalogGetToolDef = readTool("catalog_get",
	"Look up a catalog entry. Names match case-insensitively.",
	mcp.WithString("item_name", mcp.Required(), mcp.Description("Food name.")),
)

var catalogListToolDef = readTool("catalog_list",
	"List every catalog entry ordered by name.",
)
