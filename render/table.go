package render

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/nijaru/yt-themes/models"
)

// FormatScore prints a score the same way in the CLI table and the web page.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// TextTable renders the Theme/Score table for terminal output.
func TextTable(rows []models.ThemeScore) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Theme", "Score"})

	for _, row := range rows {
		tw.AppendRow(table.Row{row.Theme, FormatScore(row.Score)})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// RunsTable renders a run history listing.
func RunsTable(runs []models.RunSummary) string {
	if len(runs) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Themes", "Status", "Created"})
	for _, r := range runs {
		tw.AppendRow(table.Row{r.ID, r.Themes, string(r.Status), r.CreatedAt.Format("2006-01-02 15:04:05")})
	}
	return tw.Render()
}
