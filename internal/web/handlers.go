package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/nutrilog/internal/ops"
	"github.com/hpungsan/nutrilog/internal/report"
)

// Handlers contains HTTP route handlers for the web UI and JSON API.
type Handlers struct {
	src      ops.Sources
	renderer *Renderer
}

// HandleHistory handles GET /history, the log table.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	f := parseFilters(r)
	input := historyInput(r, f)

	result, err := ops.History(r.Context(), h.src, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data := HistoryPageData{
		PageData: PageData{
			Title:   "History",
			Version: h.renderer.version,
			Nav:     "history",
		},
		Filters:    f,
		Result:     result,
		PrevOffset: max(result.Pagination.Offset-result.Pagination.Limit, 0),
		NextOffset: result.Pagination.Offset + result.Pagination.Limit,
	}
	h.renderer.renderPage(w, "history", data)
}

// HandleReport handles GET /report, the markdown report rendered to HTML.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	f := parseFilters(r)

	d, err := report.Build(r.Context(), h.src, report.Input{
		Kind:   f.Kind,
		Window: f.window(),
		Top:    parseIntParam(r, "top", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "report", ReportPageData{
		PageData: PageData{
			Title:   "Report",
			Version: h.renderer.version,
			Nav:     "report",
		},
		Filters:      f,
		RenderedHTML: h.renderer.renderMarkdown(report.Markdown(d)),
	})
}

// HandleAPIHistory handles GET /api/history.
func (h *Handlers) HandleAPIHistory(w http.ResponseWriter, r *http.Request) {
	result, err := ops.History(r.Context(), h.src, historyInput(r, parseFilters(r)))
	h.respond(w, r, result, err)
}

// HandleAPIRollup handles GET /api/rollup.
func (h *Handlers) HandleAPIRollup(w http.ResponseWriter, r *http.Request) {
	f := parseFilters(r)
	result, err := ops.Rollup(r.Context(), h.src, ops.RollupInput{
		Kind:      f.Kind,
		Window:    f.window(),
		Aggregate: r.URL.Query().Get("aggregate"),
	})
	h.respond(w, r, result, err)
}

// HandleAPISummary handles GET /api/summary.
func (h *Handlers) HandleAPISummary(w http.ResponseWriter, r *http.Request) {
	f := parseFilters(r)
	result, err := ops.Summary(r.Context(), h.src, ops.SummaryInput{
		Kind:   f.Kind,
		Window: f.window(),
		Date:   r.URL.Query().Get("date"),
	})
	h.respond(w, r, result, err)
}

// HandleAPITop handles GET /api/top.
func (h *Handlers) HandleAPITop(w http.ResponseWriter, r *http.Request) {
	f := parseFilters(r)
	result, err := ops.Top(r.Context(), h.src, ops.TopInput{
		Kind:   f.Kind,
		Window: f.window(),
		Limit:  parseIntParam(r, "limit", 0),
	})
	h.respond(w, r, result, err)
}

// HandleAPIMeals handles GET /api/meals.
func (h *Handlers) HandleAPIMeals(w http.ResponseWriter, r *http.Request) {
	f := parseFilters(r)
	result, err := ops.MealBreakdown(r.Context(), h.src, ops.MealBreakdownInput{
		Window:     f.window(),
		MealPeriod: f.Meal,
	})
	h.respond(w, r, result, err)
}

func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, result any, err error) {
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

func parseFilters(r *http.Request) Filters {
	q := r.URL.Query()
	return Filters{
		Kind:   strings.TrimSpace(q.Get("kind")),
		From:   strings.TrimSpace(q.Get("from")),
		To:     strings.TrimSpace(q.Get("to")),
		Period: strings.TrimSpace(q.Get("period")),
		Meal:   strings.TrimSpace(q.Get("meal")),
		Query:  strings.TrimSpace(q.Get("q")),
	}
}

func (f Filters) window() ops.WindowInput {
	return ops.WindowInput{From: f.From, To: f.To, Period: f.Period}
}

func historyInput(r *http.Request, f Filters) ops.HistoryInput {
	return ops.HistoryInput{
		Kind:           f.Kind,
		Window:         f.window(),
		MealPeriod:     f.Meal,
		NameContains:   f.Query,
		ClassifiedOnly: parseBoolParam(r, "classified"),
		Limit:          parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:         parseIntParam(r, "offset", 0),
	}
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1" || s == "on"
}
