// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestConsoleModel_Entries(t *testing.T) {
	m := initialConsoleModel("/tmp/test.sock")

	for i := 0; i < maxConsoleEntries+5; i++ {
		m.addEntry(replyMsg{command: "status", text: "ok\n"})
	}
	if len(m.entries) != maxConsoleEntries {
		t.Errorf("Expected %d entries, got %d", maxConsoleEntries, len(m.entries))
	}
	if m.entries[0].reply != "ok" {
		t.Errorf("Trailing newline should be trimmed: %q", m.entries[0].reply)
	}

	m.addEntry(replyMsg{command: "heater", err: errors.New("boom")})
	if last := m.entries[len(m.entries)-1]; !last.isError || last.reply != "boom" {
		t.Errorf("Error entry = %+v", last)
	}
}

func TestConsoleModel_StatusView(t *testing.T) {
	m := initialConsoleModel("/tmp/test.sock")

	if !strings.Contains(m.View(), "waiting for controller") {
		t.Error("Empty status should show placeholder")
	}

	next, _ := m.Update(statusMsg{text: "heater_on                = 1\n"})
	if !strings.Contains(next.View(), "heater_on") {
		t.Errorf("Status not rendered:\n%s", next.View())
	}
}

func TestConsoleModel_Quit(t *testing.T) {
	m := initialConsoleModel("/tmp/test.sock")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !next.(consoleModel).quitting || cmd == nil {
		t.Error("Esc should quit")
	}
}
