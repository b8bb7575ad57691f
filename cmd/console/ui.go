package main

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/story-graph/pkg/player"
	"github.com/jwebster45206/story-graph/pkg/story"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ConsoleUI is the BubbleTea model that runs the player.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	backend      backend
	state        *playState
	chatViewport viewport.Model
	metaViewport viewport.Model
	ready        bool
	width        int
	height       int
	err          error
	status       string
	loading      bool

	// Choice cursor for the current choice step
	selectedChoice int

	// Story selection state
	showStoryModal bool
	entries        []string
	selectedEntry  int
	loadingEntries bool

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type playStateMsg struct {
	state *playState
	err   error
}

type entriesLoadedMsg struct {
	entries []string
	err     error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narrationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")). // green
			Italic(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

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
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

var titleCaser = cases.Title(language.English)

func NewConsoleUI(b backend) ConsoleUI {
	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		backend:        b,
		chatViewport:   chatVp,
		metaViewport:   metaVp,
		showStoryModal: true,
		loadingEntries: true,
	}
}

// kindLabel turns a step type such as "sceneTransition" into "Scene Transition".
func kindLabel(kind story.StepType) string {
	var words strings.Builder
	for i, r := range string(kind) {
		if i > 0 && unicode.IsUpper(r) {
			words.WriteRune(' ')
		}
		words.WriteRune(r)
	}
	return titleCaser.String(words.String())
}

func writeMetadata(ps *playState, source string) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("PLAY STATE") + "\n\n")

	s := ps.Session
	content.WriteString("Session:\n")
	content.WriteString(s.ID.String()[:8] + "...\n\n")

	content.WriteString("Source:\n")
	content.WriteString(source + "\n\n")

	if s.StoryID != "" {
		content.WriteString("Story:\n")
		content.WriteString(s.StoryID + "\n\n")
	}

	content.WriteString("Scene:\n")
	content.WriteString(s.SceneName + "\n\n")

	if ps.View != nil {
		content.WriteString("Step:\n")
		content.WriteString(fmt.Sprintf("%s (%s)\n\n", ps.View.StepID, kindLabel(ps.View.Kind)))
	}

	if names := s.Vars.Names(); len(names) > 0 {
		content.WriteString("Variables:\n")
		for _, name := range names {
			v, _ := s.Vars.Get(name)
			content.WriteString(fmt.Sprintf("• %s: %s\n", name, v))
		}
	} else {
		content.WriteString("Variables:\nNone set\n")
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• Enter: Continue\n")
	content.WriteString("• ↑/↓, 1-9: Choose\n")
	content.WriteString("• c: Copy transcript\n")
	content.WriteString("• r: Restart\n")
	content.WriteString("• Esc: Quit\n")

	return content.String()
}

// transcript renders the history without styling, for the clipboard.
func transcript(ps *playState) string {
	if ps == nil {
		return ""
	}
	var out strings.Builder
	for _, entry := range ps.Session.History {
		out.WriteString(plainEntry(entry) + "\n\n")
	}
	return strings.TrimSpace(out.String())
}

func plainEntry(entry player.HistoryEntry) string {
	switch {
	case entry.Image != "":
		if entry.Text != "" {
			return fmt.Sprintf("[image: %s] %s", entry.Image, entry.Text)
		}
		return fmt.Sprintf("[image: %s]", entry.Image)
	case entry.IsAction:
		return "> " + entry.Text
	case entry.Speaker != "":
		return entry.Speaker + ": " + entry.Text
	}
	return entry.Text
}

func formatEntry(entry player.HistoryEntry, width int) string {
	switch {
	case entry.Image != "":
		line := promptStyle.Render("[image: "+entry.Image+"]")
		if entry.Text != "" {
			line += " " + wordwrap.String(entry.Text, width)
		}
		return line
	case entry.IsAction:
		return userStyle.Render("> ") + wordwrap.String(entry.Text, width-2)
	case entry.Speaker != "":
		prefix := entry.Speaker + ": "
		return speakerStyle.Render(prefix) + wordwrap.String(entry.Text, width-len(prefix))
	}
	return wordwrap.String(entry.Text, width)
}

// formatView renders the step waiting for the player.
func (m ConsoleUI) formatView(v *player.View, width int) string {
	var content strings.Builder
	switch v.Kind {
	case story.StepDialogue:
		prefix := v.Speaker + ": "
		content.WriteString(speakerStyle.Render(prefix) + wordwrap.String(v.Text, width-len(prefix)))
	case story.StepDescription:
		content.WriteString(narrationStyle.Render(wordwrap.String(v.Text, width)))
	case story.StepImage:
		if v.Image != nil {
			content.WriteString(promptStyle.Render("[image: " + v.Image.Path + "]"))
			if v.Image.Caption != "" {
				content.WriteString("\n" + wordwrap.String(v.Image.Caption, width))
			}
		}
	case story.StepSceneTransition:
		content.WriteString(loadingStyle.Render("→ " + v.NextScene))
	case story.StepChoice:
		if v.Text != "" {
			content.WriteString(wordwrap.String(v.Text, width) + "\n\n")
		}
		for i, c := range v.Choices {
			line := fmt.Sprintf("%d. %s", i+1, c.Text)
			if i == m.selectedChoice {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + line))
			} else {
				content.WriteString(modalItemStyle.Render("  " + line))
			}
			content.WriteString("\n")
		}
	}
	return content.String()
}

// writeChatContent builds the transcript for the current viewport width
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding
	if chatWidth < 10 {
		chatWidth = 10
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("STORY GRAPH") + "\n\n")
	content.WriteString("Press Enter to continue, pick choices with ↑/↓ or their number.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	if m.state != nil {
		for _, entry := range m.state.Session.History {
			content.WriteString(formatEntry(entry, chatWidth) + "\n\n")
		}
		switch {
		case m.state.Session.Ended:
			content.WriteString(titleStyle.Render("The End") + "\n\n")
			content.WriteString(promptStyle.Render("Press r to play again") + "\n")
		case m.state.View != nil:
			content.WriteString(m.formatView(m.state.View, chatWidth) + "\n")
		}
	}

	if m.loading {
		content.WriteString(m.renderProgressBar() + "\n")
	}
	if m.err != nil {
		content.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	if m.status != "" {
		content.WriteString(promptStyle.Render(m.status) + "\n")
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) resize() {
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6
	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 5
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
}

func (m *ConsoleUI) refresh() {
	m.writeChatContent()
	if m.state != nil {
		m.metaViewport.SetContent(writeMetadata(m.state, m.backend.Source()))
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadEntries()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle story modal first
	if m.showStoryModal && !m.showQuitModal {
		return m.updateStoryModal(msg)
	}

	// Handle quit modal second
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.showQuitModal = true
			return m, nil
		}
		if m.loading || m.state == nil {
			return m, nil
		}
		return m.handleKey(msg)

	case playStateMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.state = msg.state
			m.selectedChoice = 0
		}
		m.refresh()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(vpCmd, mvCmd)
}

func (m ConsoleUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	view := m.state.View
	m.status = ""

	switch msg.String() {
	case "r":
		m.state = nil
		m.err = nil
		m.showStoryModal = true
		m.loadingEntries = true
		return m, m.loadEntries()
	case "c":
		if err := clipboard.WriteAll(transcript(m.state)); err != nil {
			m.err = fmt.Errorf("copy failed: %w", err)
		} else {
			m.status = "Transcript copied to clipboard"
		}
		m.writeChatContent()
		return m, nil
	case "up", "k":
		if view != nil && m.selectedChoice > 0 {
			m.selectedChoice--
			m.writeChatContent()
		}
		return m, nil
	case "down", "j":
		if view != nil && m.selectedChoice < len(view.Choices)-1 {
			m.selectedChoice++
			m.writeChatContent()
		}
		return m, nil
	case "enter", " ":
		if m.state.Session.Ended || view == nil {
			return m, nil
		}
		if view.Kind == story.StepChoice {
			if len(view.Choices) == 0 {
				return m, nil
			}
			return m.begin(m.choose(m.selectedChoice))
		}
		return m.begin(m.advance())
	}

	if len(msg.Runes) == 1 && msg.Runes[0] >= '1' && msg.Runes[0] <= '9' && view != nil && view.Kind == story.StepChoice {
		index := int(msg.Runes[0] - '1')
		if index < len(view.Choices) {
			m.selectedChoice = index
			return m.begin(m.choose(index))
		}
	}

	var cmd tea.Cmd
	m.chatViewport, cmd = m.chatViewport.Update(msg)
	return m, cmd
}

func (m ConsoleUI) begin(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.loading = true
	m.progressTick = 0
	m.writeChatContent()
	return m, tea.Batch(cmd, progressTick())
}

func (m ConsoleUI) advance() tea.Cmd {
	s := m.state.Session
	return func() tea.Msg {
		ps, err := m.backend.Advance(s)
		return playStateMsg{ps, err}
	}
}

func (m ConsoleUI) choose(index int) tea.Cmd {
	s := m.state.Session
	return func() tea.Msg {
		ps, err := m.backend.Choose(s, index)
		return playStateMsg{ps, err}
	}
}

func (m ConsoleUI) loadEntries() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.backend.Entries()
		return entriesLoadedMsg{entries, err}
	}
}

func (m ConsoleUI) start(entry string) tea.Cmd {
	return func() tea.Msg {
		ps, err := m.backend.Start(entry)
		return playStateMsg{ps, err}
	}
}

func (m ConsoleUI) updateStoryModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case entriesLoadedMsg:
		m.loadingEntries = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.entries = msg.entries
			if m.selectedEntry >= len(m.entries) {
				m.selectedEntry = 0
			}
		}

	case playStateMsg:
		// Regardless of outcome, we're no longer in the start loading phase
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.state = msg.state
		m.selectedChoice = 0
		m.showStoryModal = false
		if m.width > 0 && m.height > 0 {
			m.resize()
		}
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.loadingEntries {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedEntry > 0 {
				m.selectedEntry--
			}
		case tea.KeyDown:
			if m.selectedEntry < len(m.entries)-1 {
				m.selectedEntry++
			}
		case tea.KeyEnter:
			if len(m.entries) > 0 && !m.loading {
				m.err = nil
				m.loading = true
				return m, m.start(m.entries[m.selectedEntry])
			}
		}
	}

	return m, nil
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
				if !m.showStoryModal && m.ready {
					m.resize()
					m.refresh()
				}
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave the story?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderStoryModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingEntries:
		content.WriteString(modalTitleStyle.Render("Loading Stories..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait while we fetch available stories..."))
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Starting..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Opening the first scene..."))
	default:
		content.WriteString(modalTitleStyle.Render("Select a Story"))
		content.WriteString("\n\n")

		for i, entry := range m.entries {
			if i == m.selectedEntry {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", entry)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", entry)))
			}
			content.WriteString("\n")
		}
		if m.err != nil {
			content.WriteString("\n")
			content.WriteString(errorStyle.Render(wordwrap.String(m.err.Error(), 54)))
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if m.showStoryModal {
		return m.renderStoryModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		m.chatViewport.View(),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
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
