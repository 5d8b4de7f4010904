// Package themes turns raw form input into aggregated per-theme scores.
package themes

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-themes/classifier"
	"github.com/nijaru/yt-themes/errors"
	"github.com/nijaru/yt-themes/models"
	"github.com/nijaru/yt-themes/report"
	"github.com/nijaru/yt-themes/repository"
)

// dialogueTheme is always scored by the classifier but never reported.
const dialogueTheme = "dialogue"

var ErrMissingInput = stderrors.New("Please provide themes and subtitles path.")

type Request struct {
	Themes        string
	SubtitlesPath string
	SavePath      string
}

type Score = models.ThemeScore

// Table is the two-column result: Theme and Score.
type Table struct {
	Rows []Score `json:"rows"`
}

func (t *Table) Themes() []string {
	names := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		names[i] = row.Theme
	}
	return names
}

type Classifier interface {
	Themes(ctx context.Context, subtitlesPath, savePath string) (*classifier.Table, error)
}

// Factory builds a classifier for an ordered theme list.
type Factory func(themes []string) (Classifier, error)

// NewScriptFactory returns a Factory producing script-backed classifiers.
func NewScriptFactory(runner classifier.Runner, opts classifier.Options) Factory {
	return func(themes []string) (Classifier, error) {
		c, err := classifier.New(themes, runner, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// ParseThemes splits a comma-separated list and trims each entry. Entries
// that are empty after trimming are dropped.
func ParseThemes(s string) []string {
	parts := strings.Split(s, ",")
	themes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			themes = append(themes, p)
		}
	}
	return themes
}

type Service struct {
	factory Factory
	runs    repository.RunRepository
	logger  *logrus.Logger
}

// NewService creates the theme service. runs may be nil, in which case
// analyses are not recorded.
func NewService(factory Factory, runs repository.RunRepository, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{factory: factory, runs: runs, logger: logger}
}

// Score runs one analysis. Every failure, including a panic inside the
// classifier, comes back as an *errors.AppError whose Message is safe to show.
func (s *Service) Score(ctx context.Context, req Request) (*Table, error) {
	const op = "ThemeService.Score"

	if strings.TrimSpace(req.Themes) == "" || strings.TrimSpace(req.SubtitlesPath) == "" {
		return nil, errors.InvalidInput(op, ErrMissingInput, ErrMissingInput.Error())
	}

	themeList := ParseThemes(req.Themes)
	subtitlesPath, savePath := req.SubtitlesPath, req.SavePath

	logger := s.logger.WithFields(logrus.Fields{
		"operation":      op,
		"themes":         themeList,
		"subtitles_path": subtitlesPath,
		"save_path":      savePath,
	})
	logger.Info("Starting theme analysis")

	var table *Table
	err := capturePanic(logger, func() error {
		var err error
		table, err = s.score(ctx, themeList, subtitlesPath, savePath)
		return err
	})
	if err != nil {
		logger.WithError(err).Error("Theme analysis failed")
		report.Error(err, map[string]string{"operation": op})
		return nil, errors.E(op, err, "Error: "+err.Error(), http.StatusUnprocessableEntity)
	}

	logger.WithField("rows", len(table.Rows)).Info("Theme analysis completed")
	return table, nil
}

func (s *Service) score(ctx context.Context, themeList []string, subtitlesPath, savePath string) (*Table, error) {
	c, err := s.factory(themeList)
	if err != nil {
		return nil, err
	}

	output, err := c.Themes(ctx, subtitlesPath, savePath)
	if err != nil {
		return nil, err
	}
	if output == nil {
		return nil, stderrors.New("classifier returned no result")
	}

	table := &Table{Rows: make([]Score, 0, len(themeList))}
	for _, theme := range themeList {
		if theme == dialogueTheme {
			continue
		}
		sum, err := output.Sum(theme)
		if err != nil {
			return nil, err
		}
		table.Rows = append(table.Rows, Score{Theme: theme, Score: sum})
	}
	return table, nil
}

// Analyze scores req and records the outcome as a run. The returned run is
// populated on both success and failure; recording errors are only logged.
func (s *Service) Analyze(ctx context.Context, req Request) (*models.Run, error) {
	now := time.Now().UTC()
	run := &models.Run{
		ID:            uuid.New().String(),
		Themes:        ParseThemes(req.Themes),
		SubtitlesPath: req.SubtitlesPath,
		SavePath:      req.SavePath,
		CreatedAt:     now,
	}

	table, err := s.Score(ctx, req)
	run.UpdatedAt = time.Now().UTC()
	if err != nil {
		if errors.IsInvalidInput(err) {
			return nil, err
		}
		run.Status = models.StatusFailed
		run.Error = UserMessage(err)
	} else {
		run.Status = models.StatusCompleted
		run.Scores = table.Rows
	}

	s.record(ctx, run)
	return run, err
}

// Run returns a recorded analysis.
func (s *Service) Run(ctx context.Context, id string) (*models.Run, error) {
	const op = "ThemeService.Run"

	if id == "" {
		return nil, errors.InvalidInput(op, nil, "ID is required")
	}
	if s.runs == nil {
		return nil, errors.NotFound(op, nil, "Run not found")
	}
	return s.runs.Find(ctx, id)
}

// Runs lists recent analyses, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]*models.Run, error) {
	if s.runs == nil {
		return []*models.Run{}, nil
	}
	return s.runs.List(ctx, limit)
}

func (s *Service) record(ctx context.Context, run *models.Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Save(context.WithoutCancel(ctx), run); err != nil {
		s.logger.WithError(err).WithField("run_id", run.ID).Warn("Failed to record run")
	}
}

func capturePanic(logger *logrus.Entry, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("stack", string(debug.Stack())).Error("Recovered from classifier panic")
			err = fmt.Errorf("%v", r)
		}
	}()
	return fn()
}

// UserMessage returns the text of err that is safe to show to a user.
func UserMessage(err error) string {
	if appErr, ok := errors.As(err); ok {
		return appErr.Message
	}
	return "Error: " + err.Error()
}
