// Package styles holds the terminal palette and lipgloss styles used by the
// biochat command-line driver.
package styles

import (
	"charm.land/lipgloss/v2"
)

// Color palette - ANSI 256 colors
var (
	ColorAccent = lipgloss.Color("43") // teal

	ColorText      = lipgloss.Color("252")
	ColorTextMuted = lipgloss.Color("245")

	ColorError   = lipgloss.Color("196")
	ColorWarning = lipgloss.Color("214")
	ColorSuccess = lipgloss.Color("42")

	ColorBorder = lipgloss.Color("37")
)

// Text styles
var (
	// TextStyle for normal text
	TextStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	// TextMutedStyle for hints and secondary text
	TextMutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true)
)

// Conversation styles
var (
	// PromptStyle for the input prompt
	PromptStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	// SpeakerStyle for the "Chatbot:" label in front of answers
	SpeakerStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	// SpinnerStyle for the progress indicator while a reply is generated
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorAccent)
)

// Feedback styles
var (
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true)
)

// Welcome banner styles
var (
	WelcomeBorderStyle = lipgloss.NewStyle().
				Foreground(ColorBorder)

	WelcomeTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("219")).
				Bold(true)

	// WelcomeKeyStyle for commands listed in the banner
	WelcomeKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")).
			Bold(true)

	WelcomeHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("248"))

	// WelcomeVersionStyle for version info (dimmed)
	WelcomeVersionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))
)
