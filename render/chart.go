// Package render draws analysis results as charts and text tables.
package render

import (
	"bytes"
	"fmt"
	"html"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/nijaru/yt-themes/models"
)

const (
	chartTitle  = "Series Themes"
	chartHeight = 400
	barWidth    = 60
	barSpacing  = 40
	minWidth    = 512
)

// BarChartSVG renders one bar per theme. The y axis starts at zero.
func BarChartSVG(rows []models.ThemeScore) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no scores to chart")
	}

	bars := make([]chart.Value, 0, len(rows))
	maxScore := 0.0
	for _, row := range rows {
		v := row.Score
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		if v > maxScore {
			maxScore = v
		}
		// go-chart writes labels into the SVG verbatim.
		bars = append(bars, chart.Value{Label: html.EscapeString(row.Theme), Value: v})
	}

	graph := chart.BarChart{
		Title:      chartTitle,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      chartWidth(len(bars)),
		Height:     chartHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: yMax(maxScore)},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

func chartWidth(bars int) int {
	w := bars*(barWidth+barSpacing) + 160
	if w < minWidth {
		return minWidth
	}
	return w
}

// yMax leaves headroom above the tallest bar and avoids an empty range when
// every score is zero.
func yMax(maxScore float64) float64 {
	if maxScore <= 0 {
		return 1
	}
	return maxScore * 1.1
}
