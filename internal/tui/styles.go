package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jpalmerr/agentpulse"
)

// Color palette
var (
	colorGreen  = lipgloss.Color("42")
	colorYellow = lipgloss.Color("214")
	colorRed    = lipgloss.Color("196")
	colorBlue   = lipgloss.Color("39")
	colorGray   = lipgloss.Color("245")
	colorWhite  = lipgloss.Color("255")
)

// Styles defines the visual styles for the watch view.
type Styles struct {
	Title  lipgloss.Style
	Header lipgloss.Style
	Muted  lipgloss.Style
	Error  lipgloss.Style

	BadgeLive    lipgloss.Style
	BadgeStale   lipgloss.Style
	BadgeStopped lipgloss.Style

	StateBusy    lipgloss.Style
	StateIdle    lipgloss.Style
	StateError   lipgloss.Style
	StateUnknown lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGray),
		Muted: lipgloss.NewStyle().
			Foreground(colorGray),
		Error: lipgloss.NewStyle().
			Foreground(colorRed),

		BadgeLive: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGreen),
		BadgeStale: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorYellow),
		BadgeStopped: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGray),

		StateBusy:    lipgloss.NewStyle().Foreground(colorGreen),
		StateIdle:    lipgloss.NewStyle().Foreground(colorBlue),
		StateError:   lipgloss.NewStyle().Foreground(colorRed),
		StateUnknown: lipgloss.NewStyle().Foreground(colorGray),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:        plain,
		Header:       plain,
		Muted:        plain,
		Error:        plain,
		BadgeLive:    plain,
		BadgeStale:   plain,
		BadgeStopped: plain,
		StateBusy:    plain,
		StateIdle:    plain,
		StateError:   plain,
		StateUnknown: plain,
	}
}

// forState returns the style used for an agent state.
func (s Styles) forState(state agentpulse.State) lipgloss.Style {
	switch state {
	case agentpulse.StateBusy:
		return s.StateBusy
	case agentpulse.StateIdle:
		return s.StateIdle
	case agentpulse.StateError:
		return s.StateError
	default:
		return s.StateUnknown
	}
}
