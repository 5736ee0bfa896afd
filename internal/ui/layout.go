package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"classgen/internal/backend/llvm"
)

// typeColumn caps the width of IR type strings in layout tables.
const typeColumn = 48

var (
	classTitle = lipgloss.NewStyle().Bold(true)
	dimmed     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderLayout renders the layout report of each class as a table of
// struct slots followed by its dispatch table and interface bindings.
func RenderLayout(reports []llvm.ClassReport) string {
	var b strings.Builder
	for i, r := range reports {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(renderClass(r))
	}
	return b.String()
}

func renderClass(r llvm.ClassReport) string {
	var b strings.Builder
	title := fmt.Sprintf("%s (%s, %d bytes", r.Name, r.Kind, r.Size)
	if r.HasUnions {
		title += ", unions"
	}
	if r.Flags != 0 {
		title += fmt.Sprintf(", flags %#x", r.Flags)
	}
	b.WriteString(classTitle.Render(title + ")"))
	b.WriteString("\n")

	rows := make([][]string, 0, len(r.Slots))
	for _, s := range r.Slots {
		rows = append(rows, []string{
			strconv.Itoa(s.Index),
			strconv.Itoa(s.Offset),
			truncate(s.Type, typeColumn),
			slotLabel(r, s),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("slot", "offset", "type", "fields").
		Rows(rows...)
	b.WriteString(t.String())
	b.WriteString("\n")

	if len(r.Vtbl) > 0 {
		b.WriteString(dimmed.Render("vtbl:"))
		b.WriteString("\n")
		for i, e := range r.Vtbl {
			fmt.Fprintf(&b, "  [%d] %s\n", i, e)
		}
	}
	if len(r.Interfaces) > 0 {
		b.WriteString(dimmed.Render("interfaces:"))
		b.WriteString("\n")
		for _, in := range r.Interfaces {
			fmt.Fprintf(&b, "  %s at slot %d, this offset %d\n", in.Interface, in.Slot, in.ThisOffset)
		}
	}
	return b.String()
}

func slotLabel(r llvm.ClassReport, s llvm.SlotReport) string {
	if len(s.Fields) > 0 {
		return strings.Join(s.Fields, " | ")
	}
	switch {
	case s.Index == 0:
		return "<vtbl>"
	case s.Index == 1:
		return "<monitor>"
	}
	for _, in := range r.Interfaces {
		if in.Slot == s.Index {
			return "<" + in.Interface + ">"
		}
	}
	return "<padding>"
}
