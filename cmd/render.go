package cmd

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorBorder = lipgloss.Color("#282726")
	colorText   = lipgloss.Color("#FFFCF0")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorRed    = lipgloss.Color("#D14D41")
	colorMuted  = lipgloss.Color("#6F6E69")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	amountStyle = lipgloss.NewStyle().Foreground(colorGreen)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	warnStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

type table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Right marks columns aligned right.
	Right map[int]bool
}

func renderTable(t table) string {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	cell := func(i int, s string, style lipgloss.Style) string {
		align := lipgloss.Left
		if t.Right[i] {
			align = lipgloss.Right
		}
		return style.Width(widths[i]).Align(align).Render(s)
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(titleStyle.Render(t.Title))
		b.WriteString("\n\n")
	}

	head := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		head[i] = cell(i, h, headerStyle)
	}
	b.WriteString(strings.Join(head, "  "))
	b.WriteString("\n")

	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			style := lipgloss.NewStyle()
			if t.Right[i] {
				style = amountStyle
			}
			cells[i] = cell(i, c, style)
		}
		b.WriteString(strings.Join(cells, "  "))
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Render(strings.TrimRight(b.String(), "\n"))
}
