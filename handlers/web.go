package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-themes/config"
	"github.com/nijaru/yt-themes/middleware"
	"github.com/nijaru/yt-themes/models"
	"github.com/nijaru/yt-themes/render"
	"github.com/nijaru/yt-themes/themes"
	"github.com/nijaru/yt-themes/validation"
)

const (
	pageTitle    = "Theme Classification (Zero Shot Classifiers)"
	pageSubtitle = "Analyze Themes in Subtitles or Scripts"
	maxFormBytes = 64 << 10
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type rowView struct {
	Theme string
	Score string
}

type pageData struct {
	Title         string
	Subtitle      string
	Themes        string
	SubtitlesPath string
	SavePath      string
	Error         string
	Success       bool
	Chart         template.HTML
	Rows          []rowView
}

// WebHandler serves the analysis form and its results.
type WebHandler struct {
	service   ThemeService
	validator *validation.Validator
	defaults  config.FormDefaults
	logger    *logrus.Logger
}

func NewWebHandler(service ThemeService, validator *validation.Validator, defaults config.FormDefaults, logger *logrus.Logger) *WebHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WebHandler{
		service:   service,
		validator: validator,
		defaults:  defaults,
		logger:    logger,
	}
}

// HandleIndex handles GET /
func (h *WebHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.render(w, r, http.StatusOK, h.newPage(h.defaults.Themes, h.defaults.SubtitlesPath, h.defaults.SavePath))
}

// HandleAnalyze handles POST /analyze
func (h *WebHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "WebHandler.HandleAnalyze"
	logger := middleware.GetLogger(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		logger.WithError(err).Warn("Failed to parse form data")
		page := h.newPage(h.defaults.Themes, h.defaults.SubtitlesPath, h.defaults.SavePath)
		page.Error = "Failed to parse form data"
		h.render(w, r, http.StatusBadRequest, page)
		return
	}

	req := themes.Request{
		Themes:        r.PostFormValue("themes"),
		SubtitlesPath: r.PostFormValue("subtitles_path"),
		SavePath:      r.PostFormValue("save_path"),
	}
	page := h.newPage(req.Themes, req.SubtitlesPath, req.SavePath)

	if err := h.validator.ValidateThemesRequest(req); err != nil {
		page.Error = themes.UserMessage(err)
		h.render(w, r, http.StatusOK, page)
		return
	}

	run, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		logger.WithError(err).WithField("operation", op).Warn("Theme analysis failed")
		page.Error = themes.UserMessage(err)
		h.render(w, r, http.StatusOK, page)
		return
	}

	page.Success = true
	page.Rows = rowViews(run.Scores)
	if len(run.Scores) > 0 {
		svg, err := render.BarChartSVG(run.Scores)
		if err != nil {
			logger.WithError(err).Warn("Failed to render chart")
		} else {
			page.Chart = template.HTML(svg)
		}
	}

	logger.WithFields(logrus.Fields{
		"run_id": run.ID,
		"rows":   len(run.Scores),
	}).Info("Theme analysis rendered")
	h.render(w, r, http.StatusOK, page)
}

func (h *WebHandler) newPage(themeList, subtitlesPath, savePath string) *pageData {
	return &pageData{
		Title:         pageTitle,
		Subtitle:      pageSubtitle,
		Themes:        themeList,
		SubtitlesPath: subtitlesPath,
		SavePath:      savePath,
	}
}

func (h *WebHandler) render(w http.ResponseWriter, r *http.Request, code int, page *pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		middleware.GetLogger(r.Context()).WithError(err).Error("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}

func rowViews(scores []models.ThemeScore) []rowView {
	rows := make([]rowView, len(scores))
	for i, s := range scores {
		rows[i] = rowView{Theme: s.Theme, Score: render.FormatScore(s.Score)}
	}
	return rows
}
