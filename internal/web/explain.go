// Package web provides HTTP handlers and utilities for the web interface.
package web

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/cabewaldrop/bplusviz/internal/algorithm"
	"github.com/cabewaldrop/bplusviz/internal/command"
	"github.com/cabewaldrop/bplusviz/internal/replay"
	"github.com/cabewaldrop/bplusviz/internal/session"
)

// OperationTrace summarizes the command log of one operation for display.
type OperationTrace struct {
	Entry       int                  `json:"entry"`
	Operation   string               `json:"operation"`
	Key         int                  `json:"key"`
	Success     bool                 `json:"success"`
	Error       string               `json:"error,omitempty"`
	Steps       int                  `json:"steps"`
	Breakpoints []int                `json:"breakpoints"`
	Counts      map[command.Kind]int `json:"counts"`
	Stats       algorithm.Stats      `json:"stats"`
	Narration   []string             `json:"narration"`
	Created     []string             `json:"created"`
	Deleted     []string             `json:"deleted"`
}

// BuildTrace walks an entry's commands and collects what a reader wants to
// know before watching the replay.
func BuildTrace(e session.HistoryEntry) *OperationTrace {
	steps := replay.Split(e.Commands)
	t := &OperationTrace{
		Entry:       e.ID,
		Operation:   e.Operation,
		Key:         e.Key,
		Success:     e.Success,
		Error:       e.Error,
		Steps:       len(steps),
		Breakpoints: replay.Breakpoints(steps),
		Counts:      command.Count(e.Commands),
		Stats:       e.Stats,
		Narration:   []string{},
		Created:     []string{},
		Deleted:     []string{},
	}
	for _, c := range e.Commands {
		switch c := c.(type) {
		case command.SetMessage:
			if c.Text != "" {
				t.Narration = append(t.Narration, c.Text)
			}
		case command.CreateNode:
			t.Created = append(t.Created, c.ID)
		case command.DeleteNode:
			t.Deleted = append(t.Deleted, c.ID)
		}
	}
	return t
}

func (t *OperationTrace) title() string {
	if t.Operation == "clear" {
		return "clear"
	}
	return fmt.Sprintf("%s %d", t.Operation, t.Key)
}

// sortedKinds returns the kinds present in Counts in declaration order.
func (t *OperationTrace) sortedKinds() []command.Kind {
	order := make(map[command.Kind]int, len(command.Kinds))
	for i, k := range command.Kinds {
		order[k] = i
	}
	kinds := make([]command.Kind, 0, len(t.Counts))
	for k := range t.Counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return order[kinds[i]] < order[kinds[j]] })
	return kinds
}

// FormatText formats the trace as plain text.
func (t *OperationTrace) FormatText() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("=== #%d %s ===\n", t.Entry, t.title()))
	if !t.Success {
		sb.WriteString(fmt.Sprintf("Failed: %s\n", t.Error))
	}
	sb.WriteString(fmt.Sprintf("Steps: %d\n", t.Steps))
	if len(t.Breakpoints) > 0 {
		bps := make([]string, len(t.Breakpoints))
		for i, b := range t.Breakpoints {
			bps[i] = fmt.Sprint(b)
		}
		sb.WriteString(fmt.Sprintf("Breakpoints: %s\n", strings.Join(bps, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Splits: %d  Borrows: %d  Merges: %d  Collapses: %d\n",
		t.Stats.Splits, t.Stats.BorrowsLeft+t.Stats.BorrowsRight, t.Stats.Merges, t.Stats.Collapses))

	if kinds := t.sortedKinds(); len(kinds) > 0 {
		sb.WriteString("Commands:\n")
		for _, k := range kinds {
			sb.WriteString(fmt.Sprintf("  %-17s %d\n", k, t.Counts[k]))
		}
	}
	if len(t.Created) > 0 {
		sb.WriteString(fmt.Sprintf("Created: %s\n", strings.Join(t.Created, " ")))
	}
	if len(t.Deleted) > 0 {
		sb.WriteString(fmt.Sprintf("Deleted: %s\n", strings.Join(t.Deleted, " ")))
	}
	if len(t.Narration) > 0 {
		sb.WriteString("Narration:\n")
		for i, line := range t.Narration {
			sb.WriteString(fmt.Sprintf("  [%d] %s\n", i+1, line))
		}
	}
	return sb.String()
}

// FormatHTML formats the trace as an HTML fragment.
func (t *OperationTrace) FormatHTML() string {
	var sb strings.Builder

	sb.WriteString(`<div class="trace">`)
	sb.WriteString(fmt.Sprintf(`<h4>#%d %s</h4>`, t.Entry, html.EscapeString(t.title())))

	row := func(label, value string) {
		sb.WriteString(`<div class="trace-row">`)
		sb.WriteString(fmt.Sprintf(`<span class="trace-label">%s:</span>`, label))
		sb.WriteString(fmt.Sprintf(`<span class="trace-value">%s</span>`, html.EscapeString(value)))
		sb.WriteString(`</div>`)
	}
	if !t.Success {
		row("Failed", t.Error)
	}
	row("Steps", fmt.Sprint(t.Steps))
	row("Splits", fmt.Sprint(t.Stats.Splits))
	row("Merges", fmt.Sprint(t.Stats.Merges))

	if len(t.Narration) > 0 {
		sb.WriteString(`<ol class="trace-narration">`)
		for _, line := range t.Narration {
			sb.WriteString(fmt.Sprintf(`<li>%s</li>`, html.EscapeString(line)))
		}
		sb.WriteString(`</ol>`)
	}

	sb.WriteString(`</div>`)
	return sb.String()
}
