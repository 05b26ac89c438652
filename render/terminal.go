package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/spektr-org/salesdash/dashboard"
	"github.com/spektr-org/salesdash/engine"
)

// ============================================================================
// TERMINAL OUTPUT — The dashboard as styled text
// ============================================================================

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numStyle    = cellStyle.Align(lipgloss.Right)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8b949e"))
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4F46E5"))
)

// TerminalOptions tunes the text rendering.
type TerminalOptions struct {
	BarWidth   int // widest bar in cells
	MaxRecords int // 0 prints every record
}

// DefaultTerminalOptions fit an 80-column terminal.
func DefaultTerminalOptions() TerminalOptions {
	return TerminalOptions{BarWidth: 40, MaxRecords: 20}
}

// Terminal writes the dashboard as text: headline cards, one block per
// panel and the records table.
func Terminal(w io.Writer, d *dashboard.Dashboard, opts TerminalOptions) error {
	if opts.BarWidth <= 0 {
		opts.BarWidth = DefaultTerminalOptions().BarWidth
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(d.Title) + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s · %s of %s records · %s",
		d.Period, engine.FormatInt(d.Matched), engine.FormatInt(d.Total), d.Source)) + "\n\n")

	cards := make([]string, 0, len(d.Metrics))
	for _, m := range d.Metrics {
		cards = append(cards, cardStyle.Render(m.Value+"\n"+mutedStyle.Render(m.Label)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...) + "\n")

	for _, tab := range d.Tabs {
		b.WriteString("\n" + titleStyle.Render("== "+tab.Title+" ==") + "\n")
		for _, p := range tab.Panels {
			b.WriteString("\n" + headerStyle.Render(p.Title) + "\n")
			writePanelText(&b, p, opts)
		}
	}

	if d.Records != nil {
		b.WriteString("\n" + titleStyle.Render(d.Records.Title) + "\n")
		b.WriteString(TableText(d.Records, opts.MaxRecords) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writePanelText(b *strings.Builder, p *engine.Result, opts TerminalOptions) {
	switch {
	case p.Empty():
		b.WriteString(mutedStyle.Render("  No data") + "\n")
	case p.ChartConfig != nil:
		b.WriteString(BarsText(p.ChartConfig, opts.BarWidth))
	case p.TableData != nil:
		b.WriteString(TableText(p.TableData, 0) + "\n")
	case p.Metric != nil:
		b.WriteString("  " + p.Metric.Value + "\n")
	}
}

// BarsText draws a chart as horizontal text bars, one line per label. Multi
// series charts prefix the series name; geo charts use the location labels.
func BarsText(c *engine.ChartConfig, width int) string {
	type row struct {
		label string
		value float64
	}
	var rows []row
	switch {
	case len(c.Points) > 0:
		for _, p := range c.Points {
			rows = append(rows, row{p.Label, p.Value})
		}
	case len(c.Series) == 1:
		for _, p := range c.Series[0].Data {
			rows = append(rows, row{p.Label, p.Value})
		}
	default:
		for _, s := range c.Series {
			for _, p := range s.Data {
				rows = append(rows, row{s.Name + " " + p.Label, p.Value})
			}
		}
	}

	labelW := 0
	for _, r := range rows {
		if n := lipgloss.Width(r.label); n > labelW {
			labelW = n
		}
	}

	max := c.MaxValue()
	var b strings.Builder
	for _, r := range rows {
		n := 0
		if max > 0 && r.value > 0 {
			n = int(float64(width) * r.value / max)
		}
		fmt.Fprintf(&b, "  %s %s %s\n",
			lipgloss.NewStyle().Width(labelW).Render(r.label),
			barStyle.Render(strings.Repeat("█", n)),
			engine.FormatNumber(r.value, ""))
	}
	return b.String()
}

// TableText renders table data with lipgloss/table. limit caps the rows
// shown; a note reports how many were left out.
func TableText(t *engine.TableData, limit int) string {
	rows := t.Rows
	hidden := 0
	if limit > 0 && len(rows) > limit {
		hidden = len(rows) - limit
		rows = rows[:limit]
	}
	if s := summaryCells(t); s != nil {
		rows = append(rows[:len(rows):len(rows)], s)
	}

	cols := t.Columns
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(t.Headers()...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col < len(cols) && cols[col].Align == "right" {
				return numStyle
			}
			return cellStyle
		})

	out := tbl.Render()
	if hidden > 0 {
		out += "\n" + mutedStyle.Render(fmt.Sprintf("  … %d more rows", hidden))
	}
	return out
}
