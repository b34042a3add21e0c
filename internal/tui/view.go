package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/eventdesk/internal/designer"
)

// styles
var (
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	dimStyle   = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func (a *App) View() string {
	left := a.renderEvents()
	right := lipgloss.JoinVertical(lipgloss.Left, a.renderTickets(), a.renderDesigner())
	body := lipgloss.JoinHorizontal(lipgloss.Top, panelStyle.Render(left), panelStyle.Render(right))

	help := "[↑/↓] Move  [/] Search  [o] Open designer  [x] Close designer  [r] Refresh  [R] Reset  [q] Quit"
	if a.state == viewSearch {
		help = "Type to filter  [enter] Done  [esc] Clear"
	}
	out := body + "\n" + dimStyle.Render(help)
	if a.modal == modalConfirmReset {
		out += "\n\n" + titleStyle.Render("Reset database?") + "\nThis deletes every event and ticket type.\n[y] Yes  [n] No"
	}
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderEvents() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Events - " + a.owner))
	b.WriteString("\n")
	if a.state == viewSearch || a.query != "" {
		fmt.Fprintf(&b, "Search: %s\n", a.query)
	}
	if len(a.visible) == 0 {
		b.WriteString(dimStyle.Render("(no events)"))
		return b.String()
	}
	for i, ev := range a.visible {
		marker := " "
		if i == a.cursor {
			marker = "▶"
		}
		fmt.Fprintf(&b, "%s %s  %-32s  %s\n", marker, ev.StartsAt.In(a.tz).Format(a.dateFormat()), ev.Name, ev.Location)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) renderTickets() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Ticket types"))
	if len(a.tickets) == 0 {
		b.WriteString("\n" + dimStyle.Render("(none)"))
		return b.String()
	}
	for _, t := range a.tickets {
		approval := ""
		if t.RequiresApproval {
			approval = "  approval"
		}
		fmt.Fprintf(&b, "\n%-20s $%8.2f  x%d%s", t.Name, float64(t.PriceCents)/100, t.Quantity, approval)
	}
	return b.String()
}

func (a *App) renderDesigner() string {
	var b strings.Builder
	b.WriteString("\n" + titleStyle.Render("Seating designer"))
	st := a.designer
	if st == nil || !st.Open {
		b.WriteString("\n" + dimStyle.Render("closed  [o] to open"))
		return b.String()
	}
	fmt.Fprintf(&b, "\nChart:     %s", st.ChartKey)
	fmt.Fprintf(&b, "\nRegion:    %s (%s)", st.Region, st.Fallback)
	fmt.Fprintf(&b, "\nScript:    %s", st.LoadState)
	if len(st.Attempts) > 0 {
		fmt.Fprintf(&b, "\nFailed:    %s", regionList(st.Attempts))
	}
	rendered := "no"
	if st.Rendered {
		rendered = "yes"
	}
	fmt.Fprintf(&b, "\nRendered:  %s", rendered)
	if len(st.Selection) > 0 {
		fmt.Fprintf(&b, "\nSelected:  %s", strings.Join(st.Selection, ", "))
	}
	if st.Error != "" {
		b.WriteString("\n" + errStyle.Render(st.Error))
	}
	return b.String()
}

func (a *App) dateFormat() string {
	if a.cfg.UI.DateFormat != "" {
		return a.cfg.UI.DateFormat
	}
	return "2006-01-02"
}

func regionList(rs []designer.Region) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = string(r)
	}
	return strings.Join(parts, " → ")
}
