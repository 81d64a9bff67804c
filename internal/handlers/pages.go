package handlers

import (
	"bytes"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/config"
	"github.com/bobmcallan/niftyscope/internal/models"
)

// PageHandler serves static assets and simple HTML pages rendered with Go templates.
type PageHandler struct {
	logger    *common.Logger
	templates *template.Template
	devMode   bool
}

// NewPageHandler creates a new page handler that loads templates from the pages directory.
func NewPageHandler(logger *common.Logger, devMode bool) *PageHandler {
	return &PageHandler{
		logger:    logger,
		templates: mustLoadTemplates(),
		devMode:   devMode,
	}
}

// FindPagesDir locates the pages directory.
func FindPagesDir() string {
	dirs := []string{
		"./pages",
		"../pages",
		"../../pages",
		".",
	}

	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, _ := filepath.Abs(dir)
			return abs
		}
	}

	return "."
}

// templateFuncs are available to every page.
var templateFuncs = template.FuncMap{
	"rupees":   common.FormatRupees,
	"pct":      common.FormatSignedPct,
	"rangeOf":  common.FormatRange,
	"pctClass": pctClass,
	"interval": func(row models.SummaryRow, label string) models.IntervalChange {
		return row.Interval(label)
	},
	"sortMark": sortMark,
	"upper":    strings.ToUpper,
}

// mustLoadTemplates parses pages/*.html and pages/partials/*.html.
func mustLoadTemplates() *template.Template {
	pagesDir := FindPagesDir()

	templates := template.Must(template.New("").Funcs(templateFuncs).ParseGlob(filepath.Join(pagesDir, "*.html")))
	template.Must(templates.ParseGlob(filepath.Join(pagesDir, "partials", "*.html")))
	return templates
}

// pctClass returns the CSS class for a percent change.
func pctClass(p decimal.NullDecimal) string {
	switch {
	case !p.Valid:
		return "na"
	case p.Decimal.IsPositive():
		return "up"
	case p.Decimal.IsNegative():
		return "down"
	default:
		return "flat"
	}
}

// sortMark returns the arrow shown next to the active sort column.
func sortMark(cfg models.SortConfig, key string) string {
	if cfg.Key != key {
		return ""
	}
	if cfg.Direction == models.SortDescending {
		return "▼"
	}
	return "▲"
}

// baseData is shared by every page template.
func baseData(page string, devMode bool) map[string]interface{} {
	return map[string]interface{}{
		"Page":          page,
		"DevMode":       devMode,
		"PortalVersion": config.GetVersion(),
	}
}

// render executes a template, writing a 500 on failure.
func render(w http.ResponseWriter, logger *common.Logger, templates *template.Template, status int, name string, data map[string]interface{}) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		if logger != nil {
			logger.Error().Str("template", name).Str("error", err.Error()).Msg("failed to render page")
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// ServePage creates a handler function for serving a specific page template.
func (h *PageHandler) ServePage(templateName string, pageName string, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, h.logger, h.templates, status, templateName, baseData(pageName, h.devMode))
	}
}

// StaticFileHandler serves static files (CSS, JS, images).
func (h *PageHandler) StaticFileHandler(w http.ResponseWriter, r *http.Request) {
	pagesDir := FindPagesDir()
	staticDir := filepath.Join(pagesDir, "static")

	// Remove /static/ prefix from URL path
	path := strings.TrimPrefix(r.URL.Path, "/static/")
	fullPath := filepath.Join(staticDir, path)

	// Security: prevent directory traversal
	absStaticDir, _ := filepath.Abs(staticDir)
	absFullPath, _ := filepath.Abs(fullPath)
	if absFullPath != absStaticDir && !strings.HasPrefix(absFullPath, absStaticDir+string(filepath.Separator)) {
		http.NotFound(w, r)
		return
	}

	if h.devMode {
		w.Header().Set("Cache-Control", "no-store")
	}
	http.ServeFile(w, r, fullPath)
}
