package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	appChat "github.com/pdfchat/pdfchat/internal/application/chat"
	domainChat "github.com/pdfchat/pdfchat/internal/domain/chat"
)

// ChatBackend TUI 使用的问答能力
type ChatBackend interface {
	AskStream(ctx context.Context, sessionID, question string, onDelta func(string)) (*appChat.Answer, error)
}

// deltaMsg 流式回答的增量文本
type deltaMsg struct{ text string }

// doneMsg 一轮问答结束
type doneMsg struct {
	answer *appChat.Answer
	err    error
}

// entry 对话区中的一条记录
type entry struct {
	role      domainChat.Role
	text      string
	citations []domainChat.Citation
}

// Model 对话界面的 Bubble Tea 模型
type Model struct {
	backend   ChatBackend
	sessionID string
	input     textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	entries   []entry
	status    string
	ready     bool

	// 进行中的一轮问答
	busy   bool
	cancel context.CancelFunc
	stream <-chan tea.Msg
}

// New 创建对话界面，history 为已加载会话的历史记录
func New(backend ChatBackend, sessionID string, history []domainChat.Turn) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		backend:   backend,
		sessionID: sessionID,
		input:     ti,
		viewport:  viewport.New(0, 0),
		spinner:   sp,
		status:    "Session " + sessionID + ". Ctrl+C cancels an answer, Ctrl+D quits.",
	}
	for _, t := range history {
		m.entries = append(m.entries, entry{role: t.Role, text: t.Content, citations: t.Citations})
	}
	return m
}

// Init 初始化光标闪烁
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update 处理按键、窗口与流式消息
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input box, spacer
		vh := msg.Height - reserved - rh
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = vh
		m.refresh()
		return m, nil

	case deltaMsg:
		if n := len(m.entries); n > 0 {
			m.entries[n-1].text += msg.text
		}
		m.refresh()
		return m, m.next()

	case doneMsg:
		m.finish(msg)
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
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.busy {
				m.cancel()
				m.status = "Cancelling..."
				return m, nil
			}
			return m, tea.Quit
		case tea.KeyCtrlD:
			if m.busy {
				m.cancel()
			}
			return m, tea.Quit
		}
		if msg.String() == "enter" {
			if m.busy {
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			if q == "exit" || q == "quit" {
				return m, tea.Quit
			}
			m.input.Reset()
			return m, m.ask(q)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask 在后台协程中发起一轮流式问答，消息通过通道送回 Update
func (m *Model) ask(question string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan tea.Msg, 64)

	m.busy = true
	m.cancel = cancel
	m.stream = ch
	m.status = "Thinking..."
	m.entries = append(m.entries,
		entry{role: domainChat.RoleUser, text: question},
		entry{role: domainChat.RoleAssistant},
	)
	m.refresh()

	backend, sessionID := m.backend, m.sessionID
	go func() {
		defer close(ch)
		answer, err := backend.AskStream(ctx, sessionID, question, func(delta string) {
			select {
			case ch <- deltaMsg{text: delta}:
			case <-ctx.Done():
			}
		})
		ch <- doneMsg{answer: answer, err: err}
	}()

	return tea.Batch(m.next(), m.spinner.Tick)
}

// next 读取下一条流式消息
func (m Model) next() tea.Cmd {
	ch := m.stream
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *Model) finish(msg doneMsg) {
	if m.cancel != nil {
		m.cancel()
	}
	m.busy = false
	m.cancel = nil
	m.stream = nil

	n := len(m.entries)
	switch {
	case msg.err != nil:
		// 失败的一轮不会写入历史，界面上也一并移除
		if n >= 2 {
			m.entries = m.entries[:n-2]
		}
		if errors.Is(msg.err, context.Canceled) {
			m.status = "Cancelled."
		} else {
			m.status = "Error: " + msg.err.Error()
		}
	case msg.answer != nil && n > 0:
		m.entries[n-1].text = msg.answer.Text
		m.entries[n-1].citations = msg.answer.Citations
		m.status = "Ready."
	default:
		m.status = "Ready."
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View 渲染界面
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("PDF Chat")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + transcript + "\n" + input + "\n" + statusStyle.Render(status)
}

func (m Model) renderTranscript() string {
	if len(m.entries) == 0 {
		return mutedStyle.Render("No messages yet.")
	}
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if e.role == domainChat.RoleUser {
			b.WriteString(userStyle.Render("You: "))
		} else {
			b.WriteString(assistantStyle.Render("Assistant: "))
		}
		b.WriteString(e.text)
		if len(e.citations) > 0 {
			b.WriteString("\n" + mutedStyle.Render("Sources:"))
			for j, c := range e.citations {
				b.WriteString("\n" + mutedStyle.Render(fmt.Sprintf("  %d. %s (Page %d)", j+1, c.FileName, c.Page)))
			}
		}
	}
	return b.String()
}

var (
	headerStyle        = lipgloss.NewStyle().Bold(true)
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	mutedStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Run 启动全屏对话界面，直到用户退出
func Run(backend ChatBackend, sessionID string, history []domainChat.Turn) error {
	_, err := tea.NewProgram(New(backend, sessionID, history), tea.WithAltScreen()).Run()
	return err
}
