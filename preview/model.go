// Package preview 以终端动画的方式实时展示排版结果：每一帧重新提取剪影并排版。
package preview

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ByLCY/codeshape/frames"
	"github.com/ByLCY/codeshape/layout"
	"github.com/ByLCY/codeshape/segment"
	"github.com/ByLCY/codeshape/shape"
)

// Options 配置实时预览。Parts 为预先生成的片段，每帧复制一份独立的序列排版。
type Options struct {
	Source   frames.Source
	Parts    []string
	Shape    shape.Options
	Layout   layout.Options
	Interval time.Duration
	Frames   int // 0 表示不限
	// AutoWidth 为 true 时随终端宽度调整 RenderWidth（按字符格计算）。
	AutoWidth bool
	// Copy 写入剪贴板，默认使用系统剪贴板。
	Copy func(string) error
}

type tickMsg struct{}

type keyMap struct {
	Quit  key.Binding
	Pause key.Binding
	Copy  key.Binding
}

var keys = keyMap{
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "退出")),
	Pause: key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("空格", "暂停")),
	Copy:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "复制")),
}

var (
	statusStyle = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

type Model struct {
	opts Options

	frame   int
	text    string
	res     *layout.Result
	err     error
	status  string
	paused  bool
	ticking bool
	width   int
	height  int
}

var _ tea.Model = (*Model)(nil)

func New(opts Options) *Model {
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	return &Model{opts: opts}
}

// Init 立即渲染第一帧。
func (m *Model) Init() tea.Cmd {
	m.ticking = true
	return func() tea.Msg { return tickMsg{} }
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.opts.AutoWidth && msg.Width > 0 {
			m.opts.Layout.RenderWidth = float64(msg.Width) * m.opts.Layout.CharWidth
		}
		return m, nil
	case tickMsg:
		m.ticking = false
		if m.paused || m.err != nil || m.finished() {
			return m, nil
		}
		if err := m.step(); err != nil {
			m.err = err
			return m, nil
		}
		if m.finished() {
			m.status = fmt.Sprintf("已完成 %d 帧", m.frame)
			return m, nil
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit
	case key.Matches(msg, keys.Pause):
		m.paused = !m.paused
		if m.paused {
			m.status = "已暂停"
			return nil
		}
		m.status = ""
		if !m.ticking && m.err == nil && !m.finished() {
			return m.tick()
		}
	case key.Matches(msg, keys.Copy):
		if m.text == "" {
			return nil
		}
		if err := m.opts.Copy(m.text); err != nil {
			m.status = fmt.Sprintf("复制失败: %v", err)
			return nil
		}
		m.status = "已复制到剪贴板"
	}
	return nil
}

func (m *Model) tick() tea.Cmd {
	m.ticking = true
	return tea.Tick(m.opts.Interval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *Model) finished() bool {
	return m.opts.Frames > 0 && m.frame >= m.opts.Frames
}

// step 取一帧、提取剪影并用新的序列排版，上一帧的结果直接丢弃。
func (m *Model) step() error {
	if m.opts.Source == nil {
		return fmt.Errorf("缺少帧来源")
	}
	img, err := m.opts.Source.Frame()
	if err != nil {
		return fmt.Errorf("第 %d 帧: %w", m.frame, err)
	}
	data := shape.Extract(img, m.opts.Shape)
	res, err := layout.Build(segment.NewSequence(m.opts.Parts), data, m.opts.Layout)
	if err != nil {
		return fmt.Errorf("第 %d 帧排版失败: %w", m.frame, err)
	}
	m.frame++
	m.res = res
	m.text = res.Text
	return nil
}

func (m *Model) View() string {
	var b strings.Builder
	body := m.text
	if m.height > 1 {
		lines := strings.Split(strings.TrimSuffix(body, "\n"), "\n")
		if len(lines) > m.height-1 {
			lines = lines[:m.height-1]
		}
		body = strings.Join(lines, "\n") + "\n"
	}
	b.WriteString(body)
	b.WriteString(m.statusLine())
	return b.String()
}

func (m *Model) statusLine() string {
	if m.err != nil {
		return errorStyle.Render("错误: "+m.err.Error()) + "\n"
	}
	info := fmt.Sprintf("帧 %d", m.frame)
	if m.res != nil {
		info += fmt.Sprintf(" · 遍数 %d · 切分 %d", m.res.Passes, m.res.Splits)
	}
	for _, b := range []key.Binding{keys.Pause, keys.Copy, keys.Quit} {
		info += fmt.Sprintf(" · %s %s", b.Help().Key, b.Help().Desc)
	}
	line := statusStyle.Render(info)
	if m.status != "" {
		style := statusStyle
		if m.paused {
			style = pausedStyle
		}
		line += "  " + style.Render(m.status)
	}
	return line + "\n"
}

// Text 返回当前帧的排版文本。
func (m *Model) Text() string { return m.text }

// Err 返回使预览停止的错误。
func (m *Model) Err() error { return m.err }

// Run 启动全屏预览，返回退出时最后一帧的文本。
func Run(opts Options) (string, error) {
	m := New(opts)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return "", err
	}
	return m.Text(), m.Err()
}
