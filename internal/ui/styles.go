package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the TUI.
var (
	ColorRed     = lipgloss.Color("#FF5F5F")
	ColorGreen   = lipgloss.Color("#5FD75F")
	ColorYellow  = lipgloss.Color("#FFD75F")
	ColorCyan    = lipgloss.Color("#00D7FF")
	ColorGray    = lipgloss.Color("#808080")
	ColorDimGray = lipgloss.Color("#4E4E4E")
	ColorWhite   = lipgloss.Color("#FFFFFF")
)

// Base styles reused by the pages.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	StepStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	SectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorWhite)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DisabledStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	RequiredStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	PassStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	FailStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	SuccessTextStyle = lipgloss.NewStyle().
				Foreground(ColorGreen)

	InfoCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDimGray).
			Padding(0, 1)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(ColorDimGray).
			Padding(0, 1)

	ButtonActiveStyle = lipgloss.NewStyle().
				Foreground(ColorWhite).
				Background(lipgloss.Color("#005F87")).
				Bold(true).
				Padding(0, 1)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	SavingStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)
)
