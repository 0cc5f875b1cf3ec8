package cli

import (
	"fmt"
	"strings"

	"biochat/pkg/ui/styles"
	"biochat/pkg/version"

	"charm.land/lipgloss/v2"
	"github.com/mattn/go-runewidth"
)

const bannerWidth = 62 // inner width

// Banner returns the welcome box printed when the loop starts. With color
// off the box is plain text.
func Banner(model string, color bool) string {
	paint := func(style lipgloss.Style, s string) string {
		if !color {
			return s
		}
		return style.Render(s)
	}

	makeLine := func(content string, visualWidth int) string {
		pad := bannerWidth - visualWidth
		if pad < 0 {
			pad = 0
		}
		return paint(styles.WelcomeBorderStyle, "│") + content + strings.Repeat(" ", pad) + paint(styles.WelcomeBorderStyle, "│")
	}
	centered := func(text string, style lipgloss.Style) string {
		w := runewidth.StringWidth(text)
		left := (bannerWidth - w) / 2
		return makeLine(strings.Repeat(" ", left)+paint(style, text), left+w)
	}

	top := paint(styles.WelcomeBorderStyle, "╭"+strings.Repeat("─", bannerWidth)+"╮")
	bottom := paint(styles.WelcomeBorderStyle, "╰"+strings.Repeat("─", bannerWidth)+"╯")
	empty := makeLine("", 0)

	lines := []string{"", top, centered("Bio-Medical Chatbot", styles.WelcomeTitleStyle), empty}

	if model != "" {
		label := "  Model: "
		maxModel := bannerWidth - runewidth.StringWidth(label) - 2
		model = runewidth.Truncate(model, maxModel, "…")
		lines = append(lines, makeLine(paint(styles.WelcomeHeaderStyle, label)+paint(styles.TextStyle, model),
			runewidth.StringWidth(label)+runewidth.StringWidth(model)))
		lines = append(lines, empty)
	}

	header := "  Commands:"
	lines = append(lines, makeLine(paint(styles.WelcomeHeaderStyle, header), runewidth.StringWidth(header)))
	commands := []struct{ key, desc string }{
		{"exit, quit", "End the conversation"},
		{copyCommand, "Copy the last answer to the clipboard"},
	}
	for _, c := range commands {
		key := fmt.Sprintf("    %-12s", c.key)
		lines = append(lines, makeLine(paint(styles.WelcomeKeyStyle, key)+paint(styles.TextStyle, c.desc),
			runewidth.StringWidth(key)+runewidth.StringWidth(c.desc)))
	}

	lines = append(lines, empty)
	lines = append(lines, centered(version.Summary(), styles.WelcomeVersionStyle))
	lines = append(lines, bottom, "")

	return strings.Join(lines, "\n") + "\n"
}
