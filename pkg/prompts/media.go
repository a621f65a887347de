package prompts

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeAction folds compatibility characters (full-width letters and
// digits, half-width kana) and collapses whitespace so the same action typed
// two ways produces the same prompt.
func NormalizeAction(action string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(action)), " ")
}

// ImagePrompt builds the illustration prompt. A visual summary takes the
// kamishibai framing; otherwise the detailed prompt is used as is. The
// storybook prefix always leads, followed by the configured global style
// unless it only repeats the prefix. The genre suffix goes last.
func ImagePrompt(prompt, visualSummary, genreSuffix, globalStyle string) string {
	subject := strings.TrimSpace(prompt)
	if vs := strings.TrimSpace(visualSummary); vs != "" {
		subject = kamishibaiFraming + vs
	}
	if subject == "" {
		return ""
	}

	parts := []string{ImageStylePrefix}
	if style := strings.TrimSpace(globalStyle); style != "" && !strings.EqualFold(style, ImageStylePrefix) {
		parts = append(parts, style)
	}
	parts = append(parts, subject)
	if s := strings.TrimSpace(genreSuffix); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

// AudioPrompt appends the configured suffix to an ambient audio description.
func AudioPrompt(prompt, suffix string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ""
	}
	if s := strings.TrimSpace(suffix); s != "" {
		return prompt + ", " + s
	}
	return prompt
}
