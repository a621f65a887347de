package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/gem-engine/pkg/chat"
	"github.com/jwebster45206/gem-engine/pkg/session"
	"github.com/jwebster45206/gem-engine/pkg/turn"
	"github.com/jwebster45206/gem-engine/pkg/world"
)

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(3)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("214")).
			Padding(0, 1)

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

// renderStory writes the transcript, oldest first, wrapped to width.
func renderStory(history []chat.ChatMessage, width int) string {
	if width < 10 {
		width = 10
	}
	var b strings.Builder
	for _, msg := range history {
		switch msg.Role {
		case chat.ChatRoleUser:
			b.WriteString(userStyle.Render("▶ ") + wordwrap.String(msg.Content, width-2) + "\n\n")
		default:
			b.WriteString(narratorStyle.Render(wordwrap.String(msg.Content, width)) + "\n\n")
		}
	}
	return b.String()
}

// renderChoices numbers the available actions from 1.
func renderChoices(choices []string, width int) string {
	if len(choices) == 0 {
		return ""
	}
	var b strings.Builder
	for i, c := range choices {
		line := fmt.Sprintf("%d. %s", i+1, c)
		b.WriteString(choiceStyle.Render(wordwrap.String(line, width)) + "\n")
	}
	return b.String()
}

// renderStatus is the side panel: genre stats with their icons and maxima,
// then inventory, situation and model badges.
func renderStatus(s session.State, genre world.GenreConfig) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(genre.Label) + "\n")
	b.WriteString(promptStyle.Render(fmt.Sprintf("ターン %d", s.TurnCount)) + "\n\n")

	resp := s.CurrentResponse
	if resp == nil {
		b.WriteString(loadingStyle.Render("物語を準備しています…") + "\n")
		return b.String()
	}

	for _, key := range genre.StatKeys() {
		def := genre.Stats[key]
		v, ok := resp.Status.Stat(key)
		value := "?"
		if ok {
			value = fmt.Sprintf("%g", v)
		}
		b.WriteString(fmt.Sprintf("%s %s: %s/%d\n", def.Icon, def.Label, value, def.Max))
	}
	b.WriteString("\n")

	inventoryLabel := genre.InventoryLabel
	if inventoryLabel == "" {
		inventoryLabel = "持ち物"
	}
	b.WriteString(inventoryLabel + ":\n")
	if len(resp.Status.Inventory) == 0 {
		b.WriteString("  なし\n")
	}
	for _, item := range resp.Status.Inventory {
		b.WriteString("• " + item + "\n")
	}
	b.WriteString("\n")

	if resp.Status.Situation != "" {
		situationLabel := genre.SituationLabel
		if situationLabel == "" {
			situationLabel = "状況"
		}
		b.WriteString(situationLabel + ":\n" + resp.Status.Situation + "\n\n")
	}

	b.WriteString(renderBadges(resp))
	return b.String()
}

func renderBadges(resp *turn.Response) string {
	var b strings.Builder
	if resp.ModelName != "" {
		b.WriteString(promptStyle.Render("model: "+resp.ModelName) + "\n")
	}
	if resp.IsBackup {
		b.WriteString(badgeStyle.Render("BACKUP") + "\n")
	}
	b.WriteString(mediaLine("画像", resp.ImageURL) + "\n")
	b.WriteString(mediaLine("音声", resp.AudioURL) + "\n")
	return b.String()
}

func mediaLine(label, url string) string {
	if url == "" {
		return promptStyle.Render(label + ": 生成中")
	}
	return label + ": 準備完了"
}

// sortedGenres returns the config's genre keys ordered by label.
func sortedGenres(cfg *world.WorldConfig) []string {
	keys := cfg.GenreKeys()
	sort.SliceStable(keys, func(i, j int) bool {
		return cfg.Genres[keys[i]].Label < cfg.Genres[keys[j]].Label
	})
	return keys
}

func renderMenu(title string, items []string, selected int, hint string) string {
	var b strings.Builder
	b.WriteString(modalTitleStyle.Render(title) + "\n\n")
	for i, item := range items {
		if i == selected {
			b.WriteString(modalSelectedItemStyle.Render("▶ "+item) + "\n")
		} else {
			b.WriteString(modalItemStyle.Render("  "+item) + "\n")
		}
	}
	if hint != "" {
		b.WriteString("\n" + promptStyle.Render(hint))
	}
	return b.String()
}

// parseChoice maps "1".."n" to the matching choice.
func parseChoice(input string, choices []string) (string, bool) {
	var n int
	if _, err := fmt.Sscanf(strings.TrimSpace(input), "%d", &n); err != nil {
		return "", false
	}
	if fmt.Sprint(n) != strings.TrimSpace(input) || n < 1 || n > len(choices) {
		return "", false
	}
	return choices[n-1], true
}

const helpText = `コマンド:
• 1-4 / Enter  選択肢を選ぶ
• 自由入力      行動を入力して Enter
• /restart     最初からやり直す
• /copy        現在の場面をクリップボードにコピー
• /help        このヘルプ
• Esc / Ctrl+C 終了`
