package handlers

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-themes/errors"
	"github.com/nijaru/yt-themes/middleware"
	"github.com/nijaru/yt-themes/models"
	"github.com/nijaru/yt-themes/render"
	"github.com/nijaru/yt-themes/themes"
	"github.com/nijaru/yt-themes/validation"
)

const maxJSONBytes = 64 << 10

type ThemesHandler struct {
	service   ThemeService
	validator *validation.Validator
	logger    *logrus.Logger
}

func NewThemesHandler(service ThemeService, validator *validation.Validator, logger *logrus.Logger) *ThemesHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ThemesHandler{service: service, validator: validator, logger: logger}
}

// HandleAnalyze handles POST /api/v1/themes
func (h *ThemesHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := h.validator.ValidateRequest(r, validation.RequestValidationOpts{
		MaxContentLength: maxJSONBytes,
		AllowedMethods:   []string{http.MethodPost},
		RequireJSON:      true,
	}); err != nil {
		respondError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	var body models.ThemesRequest
	if err := readJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	req := themes.Request{
		Themes:        body.Themes,
		SubtitlesPath: body.SubtitlesPath,
		SavePath:      body.SavePath,
	}
	if err := h.validator.ValidateThemesRequest(req); err != nil {
		respondError(w, r, err)
		return
	}

	run, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).WithField("run_id", run.ID).Info("Theme analysis completed")

	rows := run.Scores
	if rows == nil {
		rows = []models.ThemeScore{}
	}
	respondJSON(w, r, http.StatusOK, models.ThemesResponse{ID: run.ID, Rows: rows})
}

// HandleChart handles GET /api/v1/themes/chart.svg?id=
func (h *ThemesHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	const op = "ThemesHandler.HandleChart"

	run, err := h.service.Run(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !run.IsCompleted() || len(run.Scores) == 0 {
		respondError(w, r, errors.E(op, nil, "Run has no scores to chart", http.StatusConflict))
		return
	}

	svg, err := render.BarChartSVG(run.Scores)
	if err != nil {
		respondError(w, r, errors.Internal(op, err, "Failed to render chart"))
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(svg)
}

// HandleListRuns handles GET /api/v1/runs
func (h *ThemesHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	const op = "ThemesHandler.HandleListRuns"

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, r, errors.InvalidInput(op, err, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	runs, err := h.service.Runs(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	summaries := make([]models.RunSummary, len(runs))
	for i, run := range runs {
		summaries[i] = models.NewRunSummary(run)
	}
	respondJSON(w, r, http.StatusOK, summaries)
}

// HandleGetRun handles GET /api/v1/runs/{id}
func (h *ThemesHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, run)
}
