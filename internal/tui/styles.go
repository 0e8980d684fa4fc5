package tui

import "github.com/charmbracelet/lipgloss"

// Semantic color palette.
var (
	colorPrimary    = lipgloss.Color("#00BFFF") // Cyan, primary accent
	colorAccent     = lipgloss.Color("#FFD700") // Gold, starred/attention
	colorSuccess    = lipgloss.Color("#00E676") // Green, widget loaded
	colorDanger     = lipgloss.Color("#FF5252") // Red, errors
	colorMuted      = lipgloss.Color("#636363") // Gray, de-emphasized
	colorMutedLight = lipgloss.Color("#8C8C8C") // Lighter gray, normal text
	colorWhite      = lipgloss.Color("#EEEEEE") // Off-white, primary text
	colorSurface    = lipgloss.Color("#1E1E2E") // Dark surface, status bar bg
	colorSurfaceDim = lipgloss.Color("#181825") // Darkest surface, footer bg
	colorBlue       = lipgloss.Color("#5B8DEF") // Blue, loading
)

// Status icons.
const (
	iconActive   = "●"
	iconDisabled = "○"
	iconStar     = "★"
	iconNoStar   = "☆"
	iconChecked  = "[x]"
	iconBlank    = "[ ]"
)

// Status bar styles.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(colorSurface).
			Foreground(colorWhite).
			Bold(true).
			Padding(0, 1)

	styleStatusLoading = lipgloss.NewStyle().
				Background(colorSurface).
				Foreground(colorBlue)

	styleStatusBadge = lipgloss.NewStyle().
				Background(colorSurface).
				Foreground(colorAccent)
)

// Section styles.
var (
	styleSectionTitle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	styleLabel = lipgloss.NewStyle().
			Foreground(colorMutedLight)

	styleValue = lipgloss.NewStyle().
			Foreground(colorWhite)

	styleDim = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleStar = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	styleWidgetActive = lipgloss.NewStyle().
				Foreground(colorSuccess)

	styleWidgetDisabled = lipgloss.NewStyle().
				Foreground(colorDanger)
)

// Prompt styles.
var stylePrompt = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorAccent).
	Padding(0, 1)

// Log line styles keyed by severity.
var (
	styleLogInfo  = lipgloss.NewStyle().Foreground(colorMutedLight)
	styleLogWarn  = lipgloss.NewStyle().Foreground(colorAccent)
	styleLogError = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
)

// Footer styles.
var (
	styleFooter = lipgloss.NewStyle().
			Foreground(colorMuted).
			Background(colorSurfaceDim).
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(colorMuted)

	styleFooterKey = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleFooterSep = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleFooterDesc = lipgloss.NewStyle().
			Foreground(colorMutedLight)
)
