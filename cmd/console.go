// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	statusRefreshInterval = 2 * time.Second
	consoleQueryTimeout   = 3 * time.Second
	maxConsoleEntries     = 100
)

var consoleSocket string

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive TUI for a running controller",
	Long: `Control a running controller from an interactive terminal UI.

The heater state is refreshed every two seconds. Commands typed at the prompt
are sent to the command socket and their replies are shown in the event log.

Keys: Enter sends the command, Esc or Ctrl+C quits.`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().StringVarP(&consoleSocket, "socket", "s", "", "Command socket path (default from config)")
}

func runConsole(cmd *cobra.Command, args []string) error {
	path := cfg.Socket
	if consoleSocket != "" {
		path = consoleSocket
	}

	p := tea.NewProgram(initialConsoleModel(path), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

type consoleEntry struct {
	timestamp time.Time
	command   string
	reply     string
	isError   bool
}

type consoleModel struct {
	socket string

	input   textinput.Model
	entries []consoleEntry

	status      string
	statusErr   error
	lastRefresh time.Time

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type consoleTickMsg time.Time

type statusMsg struct {
	text string
	err  error
}

type replyMsg struct {
	command string
	text    string
	err     error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialConsoleModel(socket string) consoleModel {
	ti := textinput.New()
	ti.Placeholder = "heater spa on"
	ti.Prompt = "> "
	ti.CharLimit = 80
	ti.Width = 40
	ti.Focus()

	return consoleModel{
		socket: socket,
		input:  ti,
		width:  80,
		height: 24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.fetchStatus(), consoleTickCmd())
}

func consoleTickCmd() tea.Cmd {
	return tea.Tick(statusRefreshInterval, func(t time.Time) tea.Msg {
		return consoleTickMsg(t)
	})
}

func (m consoleModel) fetchStatus() tea.Cmd {
	socket := m.socket
	return func() tea.Msg {
		text, err := queryController(socket, "status", consoleQueryTimeout)
		return statusMsg{text: text, err: err}
	}
}

func (m consoleModel) sendCommand(line string) tea.Cmd {
	socket := m.socket
	return func() tea.Msg {
		text, err := queryController(socket, line, consoleQueryTimeout)
		return replyMsg{command: line, text: text, err: err}
	}
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			return m, m.sendCommand(line)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case consoleTickMsg:
		return m, tea.Batch(m.fetchStatus(), consoleTickCmd())

	case statusMsg:
		m.status = msg.text
		m.statusErr = msg.err
		m.lastRefresh = time.Now()
		return m, nil

	case replyMsg:
		m.addEntry(msg)
		// Show the effect of the command without waiting for the next tick
		return m, m.fetchStatus()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *consoleModel) addEntry(msg replyMsg) {
	entry := consoleEntry{
		timestamp: time.Now(),
		command:   msg.command,
		reply:     strings.TrimRight(msg.text, "\n"),
	}
	if msg.err != nil {
		entry.reply = msg.err.Error()
		entry.isError = true
	}

	m.entries = append(m.entries, entry)
	if len(m.entries) > maxConsoleEntries {
		m.entries = m.entries[len(m.entries)-maxConsoleEntries:]
	}
}

//////////////////////////////////////////////////////////////
// Rendering
//////////////////////////////////////////////////////////////

func (m consoleModel) View() string {
	if m.quitting {
		return "Bye.\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("AQUASTAT CONSOLE"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | Enter=send Esc=quit", m.socket)))
	s.WriteString("\n\n")

	s.WriteString(m.renderStatus(labelStyle, headerStyle, errorStyle, boxStyle))
	s.WriteString("\n")
	s.WriteString(m.renderEntries(labelStyle, headerStyle, errorStyle, boxStyle))
	s.WriteString("\n")
	s.WriteString(m.input.View())
	s.WriteString("\n")

	return s.String()
}

func (m consoleModel) renderStatus(labelStyle, headerStyle, errorStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("HEATER"))
	if !m.lastRefresh.IsZero() {
		s.WriteString(headerStyle.Render("  updated " + m.lastRefresh.Format("15:04:05")))
	}
	s.WriteString("\n")

	switch {
	case m.statusErr != nil:
		s.WriteString(errorStyle.Render(m.statusErr.Error()))
	case m.status == "":
		s.WriteString(headerStyle.Render("  (waiting for controller)"))
	default:
		s.WriteString(strings.TrimRight(m.status, "\n"))
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

func (m consoleModel) renderEntries(labelStyle, headerStyle, errorStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("COMMANDS"))
	s.WriteString("\n")

	if len(m.entries) == 0 {
		s.WriteString(headerStyle.Render("  (type \"help\" for the command list)"))
		return boxStyle.Width(m.width - 4).Render(s.String())
	}

	shown := m.entries[max(0, len(m.entries)-6):]
	for _, e := range shown {
		reply := e.reply
		if e.isError {
			reply = errorStyle.Render(reply)
		}
		s.WriteString(fmt.Sprintf("%s %s\n%s\n",
			headerStyle.Render(e.timestamp.Format("15:04:05")),
			labelStyle.Render(e.command),
			reply))
	}

	return boxStyle.Width(m.width - 4).Render(strings.TrimRight(s.String(), "\n"))
}
