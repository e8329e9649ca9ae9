package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Amber accent for the Lectern wordmark.
const lecternAmber = "#D99518"

// Lectern ASCII wordmark (filled block style).
var lecternArt = []string{
	"  ██╗     ███████╗ ██████╗████████╗███████╗██████╗ ███╗   ██╗",
	"  ██║     ██╔════╝██╔════╝╚══██╔══╝██╔════╝██╔══██╗████╗  ██║",
	"  ██║     █████╗  ██║        ██║   █████╗  ██████╔╝██╔██╗ ██║",
	"  ██║     ██╔══╝  ██║        ██║   ██╔══╝  ██╔══██╗██║╚██╗██║",
	"  ███████╗███████╗╚██████╗   ██║   ███████╗██║  ██║██║ ╚████║",
	"  ╚══════╝╚══════╝ ╚═════╝   ╚═╝   ╚══════╝╚═╝  ╚═╝╚═╝  ╚═══╝",
}

// Styles contains all lipgloss styles for the TUI.
type Styles struct {
	Banner    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Tips      lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Separator lipgloss.Style
	StatusBar lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(lecternAmber)),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		System:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Tips:      lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}

// RenderBanner returns the Lectern wordmark as a styled string.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, line := range lecternArt {
		_, _ = b.WriteString(s.Banner.Render(line))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

// welcomeTips contains getting started tips displayed under the banner.
var welcomeTips = []string{
	"Tips for getting started:",
	"  • Ask about any loaded course - answers cite their sources",
	"  • Use /courses to see what materials are available",
	"  • Use /help to see all commands",
	"  • Press Ctrl+C to cancel, Ctrl+D to exit",
}

// RenderWelcomeTips returns styled welcome tips.
func (s Styles) RenderWelcomeTips() string {
	var b strings.Builder
	for _, tip := range welcomeTips {
		_, _ = b.WriteString(s.Tips.Render(tip))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}
