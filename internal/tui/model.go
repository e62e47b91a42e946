package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"finrag/internal/domain"
	"finrag/internal/llm"
)

// Retriever is the TUI-facing retrieval port.
type Retriever interface {
	Retrieve(owner, query string, topK int) ([]domain.SearchResult, error)
}

// Completer is the TUI-facing chat completion port.
type Completer interface {
	Complete(messages []llm.Message) (string, error)
}

// Model is the Bubble Tea model for the interactive ask session: each
// query retrieves the owner's top chunks and asks the completion
// service for a summary. Tab flips between the answer and the raw
// ranked matches.
type Model struct {
	retriever Retriever
	completer Completer
	owner     string
	topK      int
	input     textinput.Model
	viewport  viewport.Model
	results   []domain.SearchResult
	answer    string
	showRaw   bool
	status    string
	ready     bool
}

// New creates a new ask-session model scoped to one owner.
func New(retriever Retriever, completer Completer, owner string, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about " + owner + " and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		retriever: retriever,
		completer: completer,
		owner:     owner,
		topK:      topK,
		input:     ti,
		viewport:  vp,
		status:    "Ready. Type a question.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 1
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m.runQuery(q)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		case "tab":
			if len(m.results) > 0 {
				m.showRaw = !m.showRaw
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) runQuery(query string) {
	m.answer = ""
	m.showRaw = false
	results, err := m.retriever.Retrieve(m.owner, query, m.topK)
	if err != nil {
		m.status = "Error: " + err.Error()
		m.results = nil
		return
	}
	m.results = results
	if len(results) == 0 {
		m.status = "No relevant data found in reports."
		return
	}
	answer, err := m.completer.Complete(llm.SummaryPrompt(results, query))
	if err != nil {
		// The session survives a failed completion; the raw matches
		// are still available behind tab.
		m.status = "Error fetching AI response: " + err.Error()
		m.showRaw = true
		return
	}
	m.answer = answer
	m.status = fmt.Sprintf("Answer for %q (%d matches, tab for raw results)", query, len(results))
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("finrag · " + m.owner)
	content := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + content + "\n" + input + "\n" + status
}

func (m Model) renderContent() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	if m.showRaw || m.answer == "" {
		return m.renderRawResults()
	}
	return m.answer
}

func (m Model) renderRawResults() string {
	var b strings.Builder
	for i, r := range m.results {
		b.WriteString(scoreStyle.Render(fmt.Sprintf("%d. Page %d | Score: %.2f", i+1, r.Page, r.Score)))
		b.WriteString("\n")
		b.WriteString(r.Text)
		if i < len(m.results)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	scoreStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
