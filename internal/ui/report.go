package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	cyan  = lipgloss.Color("86")
	green = lipgloss.Color("82")
	pink  = lipgloss.Color("205")

	reportTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(pink).
				MarginBottom(1)

	statStyle = lipgloss.NewStyle().
			Foreground(green).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(cyan)
)

// TableCount is one line of a table summary
type TableCount struct {
	Table string
	Rows  int
}

// PrintTableCounts prints a styled summary of row counts per table
func PrintTableCounts(title string, counts []TableCount) {
	width := 0
	for _, c := range counts {
		if len(c.Table) > width {
			width = len(c.Table)
		}
	}

	fmt.Println()
	fmt.Println(reportTitleStyle.Render(title))
	for _, c := range counts {
		label := c.Table + strings.Repeat(" ", width-len(c.Table))
		fmt.Printf("  %s  %s\n", labelStyle.Render(label), statStyle.Render(fmt.Sprintf("%d", c.Rows)))
	}
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	successStyle := lipgloss.NewStyle().
		Foreground(green).
		Bold(true)
	fmt.Println(successStyle.Render(message))
}

// PrintError prints an error message
func PrintError(message string) {
	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)
	fmt.Println(errorStyle.Render("Error: " + message))
}
