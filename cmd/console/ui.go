package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jwebster45206/gem-engine/pkg/client"
	"github.com/jwebster45206/gem-engine/pkg/session"
	"github.com/jwebster45206/gem-engine/pkg/world"
)

const PlaceHolderText = "行動を入力、または番号で選択..."

type screen int

const (
	screenMethod screen = iota
	screenGenre
	screenSetting
	screenCandidates
	screenPlay
)

type startMethod int

const (
	methodCustom startMethod = iota
	methodSamples
	methodGenerated
	methodRandom
)

var methodLabels = []string{
	"ジャンルと舞台を自分で選ぶ",
	"おすすめの3つから選ぶ",
	"AIに3つの舞台を考えてもらう",
	"おまかせで今すぐ始める",
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config *ConsoleConfig
	api    *client.Client
	ctrl   *session.Controller
	world  *world.WorldConfig
	rng    *rand.Rand
	logger *slog.Logger

	screen     screen
	cursor     int
	genreKey   string
	genre      world.GenreConfig
	candidates []world.Candidate
	busy       bool
	err        error

	state        session.State
	notice       string
	viewport     viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	progressTick int

	showQuitModal bool
}

type stateMsg session.State

type turnDoneMsg struct {
	state session.State
	err   error
}

type candidatesMsg struct {
	candidates []world.Candidate
	err        error
}

type copiedMsg struct{ err error }

type progressTickMsg struct{}

func NewConsoleUI(cfg *ConsoleConfig, api *client.Client, ctrl *session.Controller, wc *world.WorldConfig, logger *slog.Logger) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false

	vp := viewport.New(50, 20)
	vp.MouseWheelEnabled = true

	return ConsoleUI{
		config:   cfg,
		api:      api,
		ctrl:     ctrl,
		world:    wc,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		logger:   logger,
		screen:   screenMethod,
		viewport: vp,
		textarea: ta,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.ctrl.Updates()), textarea.Blink)
}

func waitForUpdate(ch <-chan session.State) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ch)
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refresh()
		return m, nil

	case stateMsg:
		m.state = session.State(msg)
		if m.state.Phase == session.PhaseGenreSelect {
			m.screen = screenMethod
			m.cursor = 0
		}
		m.refresh()
		return m, waitForUpdate(m.ctrl.Updates())

	case turnDoneMsg:
		m.state = msg.state
		if msg.err != nil {
			m.logger.Warn("Turn failed", "error", msg.err)
		}
		if m.state.Phase == session.PhaseGenreSelect {
			m.screen = screenMethod
			m.cursor = 0
		}
		m.refresh()
		return m, nil

	case candidatesMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.candidates = msg.candidates
		m.screen = screenCandidates
		m.cursor = 0
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.notice = errorStyle.Render("コピーに失敗しました: " + msg.err.Error())
		} else {
			m.notice = promptStyle.Render("場面をクリップボードにコピーしました")
		}
		m.refresh()
		return m, nil

	case progressTickMsg:
		if m.state.IsLoading {
			m.progressTick++
			m.refresh()
			return m, progressTick()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.showQuitModal = true
			return m, nil
		}
		switch m.screen {
		case screenMethod:
			return m.updateMethod(msg)
		case screenGenre:
			return m.updateGenre(msg)
		case screenCandidates:
			return m.updateCandidates(msg)
		case screenSetting:
			return m.updateSetting(msg)
		default:
			return m.updatePlay(msg)
		}
	}

	var tiCmd, vpCmd tea.Cmd
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m ConsoleUI) updateMethod(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch msg.Type {
	case tea.KeyUp:
		m.cursor = max(m.cursor-1, 0)
	case tea.KeyDown:
		m.cursor = min(m.cursor+1, len(methodLabels)-1)
	case tea.KeyEnter:
		m.err = nil
		switch startMethod(m.cursor) {
		case methodCustom:
			m.screen = screenGenre
			m.cursor = 0
		case methodSamples:
			m.candidates = world.SampleCandidates(m.world, world.CandidateCount, m.rng)
			m.screen = screenCandidates
			m.cursor = 0
		case methodGenerated:
			m.busy = true
			return m, m.generateCandidates()
		case methodRandom:
			c, ok := world.RandomCandidate(m.world, m.rng)
			if !ok {
				m.err = fmt.Errorf("no sample settings configured")
				return m, nil
			}
			return m.startGame(c.GenreKey, c.GenreConfig, c.Setting())
		}
	}
	return m, nil
}

func (m ConsoleUI) updateGenre(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := sortedGenres(m.world)
	switch msg.Type {
	case tea.KeyUp:
		m.cursor = max(m.cursor-1, 0)
	case tea.KeyDown:
		m.cursor = min(m.cursor+1, len(keys)-1)
	case tea.KeyBackspace:
		m.screen = screenMethod
		m.cursor = 0
	case tea.KeyEnter:
		if len(keys) == 0 {
			return m, nil
		}
		m.genreKey = keys[m.cursor]
		m.genre = m.world.GenreOrDefault(m.genreKey)
		m.screen = screenSetting
		m.textarea.Reset()
		m.textarea.Focus()
		return m, textarea.Blink
	}
	return m, nil
}

func (m ConsoleUI) updateSetting(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd
	}

	input := strings.TrimSpace(m.textarea.Value())
	if picked, ok := parseChoice(input, m.genre.SampleSettings); ok {
		input = picked
	}
	if input == "" {
		return m, nil
	}
	m.textarea.Reset()
	return m.startGame(m.genreKey, m.genre, input)
}

func (m ConsoleUI) updateCandidates(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		m.cursor = max(m.cursor-1, 0)
	case tea.KeyDown:
		m.cursor = min(m.cursor+1, len(m.candidates)-1)
	case tea.KeyBackspace:
		m.screen = screenMethod
		m.cursor = 0
	case tea.KeyEnter:
		if len(m.candidates) == 0 {
			return m, nil
		}
		c := m.candidates[m.cursor]
		return m.startGame(c.GenreKey, c.GenreConfig, c.Setting())
	}
	return m, nil
}

func (m ConsoleUI) startGame(genreKey string, genre world.GenreConfig, setting string) (tea.Model, tea.Cmd) {
	m.genreKey = genreKey
	m.genre = genre
	m.screen = screenPlay
	m.notice = ""
	m.state = session.State{Phase: session.PhasePlaying, WorldSetting: setting, GenreKey: genreKey, IsLoading: true}
	m.progressTick = 0
	m.resize()
	m.refresh()

	ctrl := m.ctrl
	seed := m.rng.Int64()
	m.logger.Info("Starting game", "genre", genreKey, "setting", setting)
	start := func() tea.Msg {
		s, err := ctrl.Start(context.Background(), setting, genreKey, seed)
		return turnDoneMsg{state: s, err: err}
	}
	return m, tea.Batch(start, progressTick(), textarea.Blink)
}

func (m ConsoleUI) updatePlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		var tiCmd, vpCmd tea.Cmd
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.viewport, vpCmd = m.viewport.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd)
	}
	if m.state.IsLoading {
		return m, nil
	}

	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}
	m.textarea.Reset()
	m.notice = ""

	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}
	if picked, ok := parseChoice(input, session.Choices(m.state)); ok {
		input = picked
	}
	return m.submit(input)
}

func (m ConsoleUI) submit(action string) (tea.Model, tea.Cmd) {
	ctrl := m.ctrl
	m.state.IsLoading = true
	m.progressTick = 0
	m.refresh()
	send := func() tea.Msg {
		s, err := ctrl.SubmitAction(context.Background(), action)
		return turnDoneMsg{state: s, err: err}
	}
	return m, tea.Batch(send, progressTick())
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/help":
		m.notice = helpText
	case "/restart":
		ctrl := m.ctrl
		return m, func() tea.Msg {
			s, err := ctrl.Restart(context.Background())
			return turnDoneMsg{state: s, err: err}
		}
	case "/copy":
		if m.state.CurrentResponse == nil {
			m.notice = promptStyle.Render("コピーする場面がありません")
			break
		}
		text := m.state.CurrentResponse.ScenarioText
		return m, func() tea.Msg {
			return copiedMsg{err: clipboard.WriteAll(text)}
		}
	default:
		m.notice = errorStyle.Render("不明なコマンドです。/help を参照してください")
	}
	m.refresh()
	return m, nil
}

func (m ConsoleUI) generateCandidates() tea.Cmd {
	keys := make([]string, 0, world.CandidateCount)
	for _, c := range world.SampleCandidates(m.world, world.CandidateCount, m.rng) {
		keys = append(keys, c.GenreKey)
	}
	api := m.api
	return func() tea.Msg {
		cands, err := api.Candidates(context.Background(), keys)
		return candidatesMsg{candidates: cands, err: err}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}
	return m, nil
}

func (m *ConsoleUI) layout() (chatWidth, metaWidth int) {
	chatWidth = int(float64(m.width)*0.72) - 4
	metaWidth = m.width - chatWidth - 6
	return chatWidth, metaWidth
}

func (m *ConsoleUI) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	chatWidth, _ := m.layout()
	m.viewport.Width = chatWidth - 2
	m.viewport.Height = m.height - 6
	m.textarea.SetWidth(chatWidth - 4)
	m.ready = true
}

// refresh rebuilds the story viewport from the current state.
func (m *ConsoleUI) refresh() {
	width := m.viewport.Width - 4
	var b strings.Builder
	b.WriteString(titleStyle.Render("GEM ENGINE") + "  " + promptStyle.Render(m.state.WorldSetting) + "\n\n")
	b.WriteString(renderStory(m.state.History, width))

	if m.state.Error != "" {
		b.WriteString(errorStyle.Render("エラー: "+m.state.Error) + "\n")
		b.WriteString(promptStyle.Render("もう一度選択するか、別の行動を入力してください") + "\n\n")
	}
	if m.state.IsLoading {
		b.WriteString(m.renderProgressBar() + "\n")
	} else if choices := session.Choices(m.state); len(choices) > 0 {
		if m.state.Phase == session.PhaseEnding {
			b.WriteString(titleStyle.Render("― 完 ―") + "\n")
		}
		b.WriteString(renderChoices(choices, width) + "\n")
	}
	if m.notice != "" {
		b.WriteString(m.notice + "\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderModal(modalTitleStyle.Render("Quit Game?") + "\n\n" +
			"進行状況は保存されています。終了しますか？\n\n" +
			promptStyle.Render("Y で終了、N で続ける"))
	}
	if m.width == 0 || m.height == 0 {
		return "\n  Initializing..."
	}

	switch m.screen {
	case screenMethod:
		content := renderMenu("GEM ENGINE - 始め方を選んでください", methodLabels, m.cursor, "↑/↓ で移動、Enter で決定、Esc で終了")
		if m.busy {
			content += "\n\n" + loadingStyle.Render("AIが舞台を考えています…")
		}
		if m.err != nil {
			content += "\n\n" + errorStyle.Render(m.err.Error())
		}
		return m.renderModal(content)

	case screenGenre:
		keys := sortedGenres(m.world)
		labels := make([]string, len(keys))
		for i, k := range keys {
			labels[i] = m.world.Genres[k].Label
		}
		return m.renderModal(renderMenu("ジャンルを選んでください", labels, m.cursor, "Enter で決定、Backspace で戻る"))

	case screenCandidates:
		items := make([]string, len(m.candidates))
		for i, c := range m.candidates {
			items[i] = c.Label + " ― " + c.Setting()
		}
		return m.renderModal(renderMenu("舞台を選んでください", items, m.cursor, "Enter で決定、Backspace で戻る"))

	case screenSetting:
		var b strings.Builder
		b.WriteString(modalTitleStyle.Render(m.genre.Label+" - 舞台を入力") + "\n\n")
		for i, s := range m.genre.SampleSettings {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, s))
		}
		b.WriteString("\n" + m.textarea.View() + "\n")
		b.WriteString(promptStyle.Render("番号で例を選ぶか、自由に入力して Enter"))
		return m.renderModal(b.String())
	}

	chatWidth, metaWidth := m.layout()
	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.viewport.View(),
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.textarea.View(),
		),
	)
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(renderStatus(m.state, m.genre))
	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

func (m ConsoleUI) renderModal(content string) string {
	width := 64
	if m.width > 0 && m.width-4 < width {
		width = m.width - 4
	}
	modal := modalStyle.Width(width).Render(content)
	if m.width == 0 || m.height == 0 {
		return modal
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.viewport.Width - 6
	if usable > 60 {
		usable = 60
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		switch {
		case i < filled:
			bar.WriteString("█")
		case i == filled && frame%4 < 2:
			bar.WriteString("▓")
		default:
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
