package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/inkops/warelog/internal/types"
)

// Palette. Adaptive colors keep the output readable on both light and
// dark backgrounds.
var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "25", Dark: "39"}
	ColorPass   = lipgloss.AdaptiveColor{Light: "28", Dark: "42"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "130", Dark: "214"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "124", Dark: "196"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "245", Dark: "240"}
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorPass)

	WarnStyle = lipgloss.NewStyle().
			Foreground(ColorWarn)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorFail)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorAccent).
				Padding(0, 1)

	TableCellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	TableBorderStyle = lipgloss.NewStyle().
				Foreground(ColorMuted)
)

// LevelStyle maps an expiration warning level to its display style.
func LevelStyle(level types.WarningLevel) lipgloss.Style {
	switch level {
	case types.LevelExpired, types.LevelCritical:
		return ErrorStyle
	case types.LevelWarning:
		return WarnStyle
	case types.LevelCaution:
		return WarnStyle
	default:
		return SuccessStyle
	}
}

// SeverityStyle maps an alert severity to its display style.
func SeverityStyle(severity types.Severity) lipgloss.Style {
	switch severity {
	case types.SeverityCritical:
		return ErrorStyle
	case types.SeverityWarning:
		return WarnStyle
	default:
		return MutedStyle
	}
}

// StatusStyle maps a batch or delivery-note status string to a style.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case string(types.BatchActive), string(types.DNDelivered), string(types.DNInvoiced):
		return SuccessStyle
	case string(types.BatchDepleted), string(types.DNDraft):
		return MutedStyle
	case string(types.BatchScrap), string(types.DNCancelled):
		return ErrorStyle
	case string(types.DNIssued):
		return WarnStyle
	default:
		return lipgloss.NewStyle()
	}
}
