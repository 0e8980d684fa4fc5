package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/specvizitor/internal/viewer"
)

// FlagState is one checkbox of the review panel.
type FlagState struct {
	Key   int // 1-based hotkey
	Label string
	Set   bool
}

// Field is one catalogue column of the current object.
type Field struct {
	Name  string
	Value string
}

// ObjectView renders the review fields, catalogue columns, widget statuses
// and subset position of the current object.
type ObjectView struct {
	Starred     bool
	Flags       []FlagState
	Comment     string
	Redshift    float64
	HasRedshift bool
	Columns     []Field
	Widgets     []viewer.WidgetStatus
	Subset      string
	Width       int
}

// View renders the panel.
func (v ObjectView) View() string {
	var sections []string
	sections = append(sections, v.reviewSection())
	if len(v.Columns) > 0 {
		sections = append(sections, v.columnSection())
	}
	sections = append(sections, v.widgetSection())
	if v.Subset != "" {
		sections = append(sections, styleSectionTitle.Render("Subset")+"\n"+styleValue.Render(v.Subset))
	}
	return lipgloss.JoinVertical(lipgloss.Left, strings.Join(sections, "\n\n"))
}

func (v ObjectView) reviewSection() string {
	var b strings.Builder
	b.WriteString(styleSectionTitle.Render("Review"))
	b.WriteByte('\n')
	if v.Starred {
		b.WriteString(styleStar.Render(iconStar + " starred"))
	} else {
		b.WriteString(styleDim.Render(iconNoStar + " not starred"))
	}
	for _, f := range v.Flags {
		box := iconBlank
		if f.Set {
			box = iconChecked
		}
		fmt.Fprintf(&b, "\n%s %s %s", styleDim.Render(fmt.Sprintf("%d", f.Key)), styleValue.Render(box), styleLabel.Render(f.Label))
	}
	if v.HasRedshift {
		fmt.Fprintf(&b, "\n%s %s", styleLabel.Render("z:"), styleValue.Render(formatRedshift(v.Redshift)))
	}
	comment := v.Comment
	if comment == "" {
		comment = styleDim.Render("(no comment)")
	} else {
		comment = styleValue.Render(TruncateWithEllipsis(comment, max(v.Width-10, 20)))
	}
	fmt.Fprintf(&b, "\n%s %s", styleLabel.Render("comment:"), comment)
	return b.String()
}

func formatRedshift(z float64) string {
	if z < 0 {
		return "-"
	}
	return fmt.Sprintf("%.4f", z)
}

func (v ObjectView) columnSection() string {
	w := 0
	for _, f := range v.Columns {
		w = max(w, len(f.Name))
	}
	lines := []string{styleSectionTitle.Render("Catalogue")}
	for _, f := range v.Columns {
		lines = append(lines, styleLabel.Render(fmt.Sprintf("%-*s", w, f.Name))+"  "+styleValue.Render(f.Value))
	}
	return strings.Join(lines, "\n")
}

func (v ObjectView) widgetSection() string {
	lines := []string{styleSectionTitle.Render("Widgets")}
	if len(v.Widgets) == 0 {
		return lines[0] + "\n" + styleDim.Render("(nothing loaded)")
	}
	limit := max(v.Width-6, 20)
	for _, w := range v.Widgets {
		if w.Active {
			lines = append(lines, styleWidgetActive.Render(iconActive+" "+w.Title)+"  "+styleDim.Render(truncateLeft(w.Path, limit-len(w.Title))))
			continue
		}
		reason := "no data"
		if w.Err != nil {
			reason = w.Err.Error()
		}
		lines = append(lines, styleWidgetDisabled.Render(iconDisabled+" "+w.Title)+"  "+styleDim.Render(TruncateWithEllipsis(reason, limit-len(w.Title))))
	}
	return strings.Join(lines, "\n")
}

// truncateLeft keeps the tail of a path, which names the file.
func truncateLeft(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return ""
	}
	return "..." + string(r[len(r)-maxLen+3:])
}
