package models

import (
	"strings"
	"time"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ThemeScore is one row of an analysis result.
type ThemeScore struct {
	Theme string  `json:"theme"`
	Score float64 `json:"score"`
}

// Run is one recorded theme analysis.
type Run struct {
	ID            string       `json:"id"`
	Themes        []string     `json:"themes"`
	SubtitlesPath string       `json:"subtitles_path"`
	SavePath      string       `json:"save_path,omitempty"`
	Status        Status       `json:"status"`
	Scores        []ThemeScore `json:"scores,omitempty"`
	Error         string       `json:"error,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (r *Run) IsCompleted() bool { return r.Status == StatusCompleted }
func (r *Run) IsFailed() bool    { return r.Status == StatusFailed }

// RunSummary is the list view of a run.
type RunSummary struct {
	ID        string    `json:"id"`
	Themes    string    `json:"themes"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func NewRunSummary(r *Run) RunSummary {
	return RunSummary{
		ID:        r.ID,
		Themes:    strings.Join(r.Themes, ","),
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

// ThemesRequest is the JSON body of an analysis request.
type ThemesRequest struct {
	Themes        string `json:"themes"`
	SubtitlesPath string `json:"subtitles_path"`
	SavePath      string `json:"save_path"`
}

// ThemesResponse is the JSON result of an analysis.
type ThemesResponse struct {
	ID   string       `json:"id,omitempty"`
	Rows []ThemeScore `json:"rows"`
}
