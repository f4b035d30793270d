package main

import "github.com/charmbracelet/lipgloss"

// Output styles, initialized once settings are known.
var (
	stylePass  lipgloss.Style
	styleFail  lipgloss.Style
	styleWarn  lipgloss.Style
	styleName  lipgloss.Style
	styleMuted lipgloss.Style
)

func initStyles(noColor bool) {
	if noColor {
		plain := lipgloss.NewStyle()
		stylePass, styleFail, styleWarn, styleName, styleMuted = plain, plain, plain, plain, plain
		return
	}
	stylePass = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	styleFail = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleName = lipgloss.NewStyle().Bold(true)
	styleMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
}
