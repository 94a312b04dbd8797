package main

import "github.com/charmbracelet/lipgloss"

var styles = struct {
	Reply    lipgloss.Style
	Diagram  lipgloss.Style
	Label    lipgloss.Style
	ToolNote lipgloss.Style
	Err      lipgloss.Style
}{
	Reply: lipgloss.NewStyle().
		Padding(0, 1),

	Diagram: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("86")).
		Padding(0, 1),

	Label: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")),

	ToolNote: lipgloss.NewStyle().
		Foreground(lipgloss.Color("243")),

	Err: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("196")),
}
