// Package static renders non-interactive terminal output: tables of
// publications and workspace trees.
package static

import (
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/REZICS/PolyPress/internal/publication"
	"github.com/REZICS/PolyPress/internal/ui/styles"
)

// PublicationHeaders are the columns of PublicationRow.
var PublicationHeaders = []string{"", "PLATFORM", "SUBMITTED", "REMOTE URL"}

// RenderTable renders rows under headers without borders, columns
// padded to their widest cell. No rows renders nothing.
func RenderTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})

	var b strings.Builder
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}

// PublicationRow formats one record. Submission times are shown in loc.
func PublicationRow(rec publication.Record, loc *time.Location) []string {
	url := rec.RemoteURL()
	submitted := "never"
	if rec.Submitted() {
		submitted = rec.SubmittedAt().In(loc).Format("2006-01-02 15:04:05")
	}
	shownURL := url
	if shownURL == "" {
		shownURL = styles.MutedStyle.Render("-")
	}
	return []string{
		styles.PublicationSymbol(url != "", rec.Submitted()),
		rec.PlatformName,
		submitted,
		shownURL,
	}
}

// RenderPublications renders a file's publications as a table.
func RenderPublications(records []publication.Record, loc *time.Location) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, PublicationRow(rec, loc))
	}
	return RenderTable(PublicationHeaders, rows)
}
