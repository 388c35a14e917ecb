package tui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// UI styles and layout settings
// Color palette "Blue Moon" from https://gogh-co.github.io/Gogh/
const (
	colorGray     = "#353b52"
	colorWhite    = "#ffffff"
	colorGreen    = "#acfab4"
	colorGreenDim = "#b4c4b4"
	colorRed      = "#e61f44"
	colorRedDim   = "#d06178"
	colorPurple   = "#b9a3eb"
	colorBlue     = "#89ddff"

	noticeDuration = 3 * time.Second

	bordersAndPaddingWidth = 4
	humanDateLayout        = "Monday, January 2, 2006"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color(colorBlue)).
			Background(lipgloss.Color(colorGray)).
			Padding(0, 2).Align(lipgloss.Center)
	subtitleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color(colorBlue))
	entryTitleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color(colorWhite))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorWhite))
	textRedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed))
	tagStyle     = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray)).
			Background(lipgloss.Color(colorPurple)).
			Padding(0, 1)
	fieldLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorBlue))
	focusedLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(colorGray)).
				Background(lipgloss.Color(colorGreen))
	disabledActionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(colorGray)).
				Strikethrough(true)

	mainPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color(colorGray)).
			Padding(1, 2)
	sidePanelStyle = lipgloss.NewStyle().Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray))
)

// noticeKind selects the color of the notice line.
type noticeKind int

const (
	noticeInfo noticeKind = iota
	noticeSuccess
	noticeFailure
)

// Colorize the notice line based on its kind
func colorizeNotice(text string, kind noticeKind) string {
	switch kind {
	case noticeSuccess:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreenDim)).Render(text)
	case noticeFailure:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorRedDim)).Render(text)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorPurple)).Render(text)
	}
}

// Main column takes two thirds of the width, the side column the rest
func (m model) columnWidths() (int, int) {
	mainWidth := (m.width * 2) / 3
	return mainWidth, m.width - mainWidth
}
