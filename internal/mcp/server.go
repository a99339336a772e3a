package mcp

import (
	"database/sql"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/nutrilog/internal/config"
	"github.com/hpungsan/nutrilog/internal/ops"
)

// toolEntry pairs a tool definition with its handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// KnownTypes lists the tool groups that can be disabled with disabled_types.
var KnownTypes = []string{"log", "catalog"}

// toolRegistry maps tool names to their definitions and handlers.
// Single source of truth for tool registration and validation.
var toolRegistry = map[string]toolEntry{
	"log_add": {
		def:     addToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAdd },
	},
	"log_history": {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
	"log_rollup": {
		def:     rollupToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRollup },
	},
	"log_summary": {
		def:     summaryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummary },
	},
	"log_top": {
		def:     topToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTop },
	},
	"log_meals": {
		def:     mealsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMeals },
	},
	"log_latest": {
		def:     latestToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLatest },
	},
	"log_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"log_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"log_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"catalog_set": {
		def:     catalogSetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCatalogSet },
	},
	"catalog_get": {
		def:     catalogGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCatalogGet },
	},
	"catalog_list": {
		def:     catalogListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCatalogList },
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

// GetTypeForTool extracts the type name from a tool name
// ("log_summary" → "log").
func GetTypeForTool(toolName string) string {
	typ, _, found := strings.Cut(toolName, "_")
	if !found || typ == "" {
		return ""
	}
	return typ
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates an MCP server exposing the nutrition log tools. database
// receives writes; src serves every read, so a Postgres record source can
// back the reports while new entries still land in the local store.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes are
// not registered.
func NewServer(database *sql.DB, src ops.Sources, cfg *config.Config, version string) *server.MCPServer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := server.NewMCPServer(
		"nutrilog",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(database, src, cfg)

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run serves the MCP tools over stdio until stdin closes.
func Run(database *sql.DB, src ops.Sources, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(database, src, cfg, version))
}
