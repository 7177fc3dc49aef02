package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/services/chat"
)

// Asker is the TUI-facing subset of the document service
type Asker interface {
	Ask(ctx context.Context, question string, modality *models.Modality) (*chat.Answer, error)
	Plot(ctx context.Context, question string, modality *models.Modality) (*chat.Answer, error)
}

// entry is one exchange in the scrollback
type entry struct {
	question string
	answer   string
	sources  []int
	failed   bool
}

type answerMsg struct {
	question string
	answer   *chat.Answer
	err      error
}

// Model is the Bubble Tea model for the chat client
type Model struct {
	asker     Asker
	outputDir string
	timeout   time.Duration
	input     textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	history   []entry
	summary   string
	status    string
	modality  *models.Modality
	busy      bool
	ready     bool
}

// New creates a chat model. Charts are written to outputDir.
func New(asker Asker, summary, outputDir string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the document, /plot <what>, /text, /vision, /all, /quit"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		asker:     asker,
		outputDir: outputDir,
		timeout:   timeout,
		input:     ti,
		viewport:  viewport.New(0, 0),
		spinner:   sp,
		summary:   summary,
		status:    "Ready.",
	}
}

// Init initializes the model (text input cursor blink)
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := historyBoxStyle.GetFrameSize()
		_, qh := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		m.history = append(m.history, m.toEntry(msg))
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = "Ready."
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
		if msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles the typed line: a slash command or a question
func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" || m.busy {
		return m, nil
	}
	m.input.SetValue("")

	plot := false
	switch {
	case line == "/quit" || line == "/exit":
		return m, tea.Quit
	case line == "/text" || line == "/vision":
		modality := models.Modality(strings.TrimPrefix(line, "/"))
		m.modality = &modality
		m.status = fmt.Sprintf("Retrieval restricted to %s records.", modality)
		return m, nil
	case line == "/all":
		m.modality = nil
		m.status = "Retrieval over all records."
		return m, nil
	case strings.HasPrefix(line, "/plot "):
		line = strings.TrimSpace(strings.TrimPrefix(line, "/plot "))
		plot = true
	case strings.HasPrefix(line, "/"):
		m.status = fmt.Sprintf("Unknown command %s", line)
		return m, nil
	}

	m.busy = true
	m.status = "Thinking about: " + line
	return m, tea.Batch(m.spinner.Tick, m.ask(line, plot))
}

func (m Model) ask(question string, plot bool) tea.Cmd {
	asker, modality, timeout := m.asker, m.modality, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		fn := asker.Ask
		if plot {
			fn = asker.Plot
		}
		answer, err := fn(ctx, question, modality)
		return answerMsg{question: question, answer: answer, err: err}
	}
}

// toEntry turns an answer into scrollback, saving any chart to disk
func (m Model) toEntry(msg answerMsg) entry {
	e := entry{question: msg.question}
	if msg.err != nil {
		e.answer = msg.err.Error()
		e.failed = true
		return e
	}

	a := msg.answer
	for _, src := range a.Sources {
		e.sources = appendPage(e.sources, src.Page)
	}

	if a.Chart == nil {
		e.answer = a.Text
		return e
	}

	path, err := SaveChart(m.outputDir, a.Chart)
	if err != nil {
		e.answer = "Chart rendered but not saved: " + err.Error()
		e.failed = true
		return e
	}
	title := a.Chart.Spec.Title
	if title == "" {
		title = "Untitled chart"
	}
	e.answer = fmt.Sprintf("%s (%s chart, %d points) saved to %s", title, a.Chart.Kind, len(a.Chart.Spec.DataPoints), path)
	return e
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

// View renders the header, scrollback, input box and status line
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("mmrag")
	if m.modality != nil {
		header += " " + dimStyle.Render("["+string(*m.modality)+" only]")
	}
	summary := dimStyle.Render(m.summary)
	history := historyBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())

	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + summary + "\n" + history + "\n" + input + "\n" + status
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return dimStyle.Render("No questions yet.")
	}

	var sb strings.Builder
	for i, e := range m.history {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(questionStyle.Render("Q: " + e.question))
		sb.WriteString("\n")
		if e.failed {
			sb.WriteString(errorStyle.Render(e.answer))
		} else {
			sb.WriteString(e.answer)
		}
		if len(e.sources) > 0 {
			pages := make([]string, len(e.sources))
			for j, p := range e.sources {
				pages[j] = fmt.Sprintf("%d", p)
			}
			sb.WriteString("\n")
			sb.WriteString(dimStyle.Render("pages " + strings.Join(pages, ", ")))
		}
	}
	return sb.String()
}

// SaveChart writes a rendered chart into dir and returns its path
func SaveChart(dir string, c *models.Chart) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("chart-%s.pdf", time.Now().Format("20060102-150405.000")))
	if err := os.WriteFile(path, c.Data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func appendPage(pages []int, page int) []int {
	for _, p := range pages {
		if p == page {
			return pages
		}
	}
	return append(pages, page)
}

var (
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle     = lipgloss.NewStyle().Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
