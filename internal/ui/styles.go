package ui

import "github.com/charmbracelet/lipgloss"

// Palette as ANSI 256 color codes.
const (
	ColorTeal     = "37"
	ColorTealDim  = "30"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
	ColorAmber    = "214"
)

// Styles holds the lipgloss styles shared by the plain and interactive
// renderers.
type Styles struct {
	Header  lipgloss.Style
	Stage   lipgloss.Style
	Active  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Label   lipgloss.Style
	Count   lipgloss.Style
	Border  lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorWhite)),
		Stage:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorTeal)),
		Active:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorTeal)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorTeal)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAmber)),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Count:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorTealDim)),
		Border:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
	}
}

// NoColorStyles returns styles that render text unchanged.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:  plain,
		Stage:   plain,
		Active:  plain,
		Success: plain,
		Warning: plain,
		Error:   plain,
		Dim:     plain,
		Label:   plain,
		Count:   plain,
		Border:  plain,
	}
}

// GetStyles returns DefaultStyles, or NoColorStyles when noColor is set.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}

// stageStyle picks the style for a stage tag.
func (s Styles) stageStyle(stage Stage) lipgloss.Style {
	if stage == StageComplete {
		return s.Success
	}
	return s.Stage
}
