package render

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/nijaru/yt-themes/models"
)

func TestBarChartSVG(t *testing.T) {
	svg, err := BarChartSVG([]models.ThemeScore{
		{Theme: "action", Score: 0.7},
		{Theme: "friendship", Score: 1.25},
	})
	if err != nil {
		t.Fatalf("BarChartSVG() error = %v", err)
	}
	out := string(svg)
	if !strings.HasPrefix(strings.TrimSpace(out), "<svg") {
		t.Errorf("expected svg document, got %.40q", out)
	}
	for _, label := range []string{"action", "friendship", chartTitle} {
		if !strings.Contains(out, label) {
			t.Errorf("chart missing %q", label)
		}
	}
}

func TestBarChartSVGEscapesLabels(t *testing.T) {
	svg, err := BarChartSVG([]models.ThemeScore{
		{Theme: "<b>", Score: 0.3},
		{Theme: "a&b", Score: 0.6},
	})
	if err != nil {
		t.Fatalf("BarChartSVG() error = %v", err)
	}
	out := string(svg)
	if strings.Contains(out, "<b>") || strings.Contains(out, "a&b") {
		t.Errorf("labels not escaped:\n%s", out)
	}
	for _, want := range []string{"&lt;b&gt;", "a&amp;b"} {
		if !strings.Contains(out, want) {
			t.Errorf("chart missing escaped label %q", want)
		}
	}
}

func TestBarChartSVGZeroScores(t *testing.T) {
	if _, err := BarChartSVG([]models.ThemeScore{{Theme: "action", Score: 0}, {Theme: "love", Score: math.NaN()}}); err != nil {
		t.Fatalf("BarChartSVG() error = %v", err)
	}
}

func TestBarChartSVGEmpty(t *testing.T) {
	if _, err := BarChartSVG(nil); err == nil {
		t.Error("expected error for empty rows")
	}
}

func TestYMax(t *testing.T) {
	if got := yMax(0); got != 1 {
		t.Errorf("yMax(0) = %v, want 1", got)
	}
	if got := yMax(2); math.Abs(got-2.2) > 1e-9 {
		t.Errorf("yMax(2) = %v, want 2.2", got)
	}
}

func TestTextTable(t *testing.T) {
	out := TextTable([]models.ThemeScore{{Theme: "action", Score: 0.7}})
	for _, want := range []string{"Theme", "Score", "action", "0.7000"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRunsTable(t *testing.T) {
	if RunsTable(nil) != "" {
		t.Error("expected empty output for no runs")
	}
	out := RunsTable([]models.RunSummary{{ID: "abc", Themes: "action,love", Status: models.StatusCompleted, CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}})
	for _, want := range []string{"abc", "action,love", "completed", "2024-05-01 12:00:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
