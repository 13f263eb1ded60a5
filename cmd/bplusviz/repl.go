package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cabewaldrop/bplusviz/internal/render"
	"github.com/cabewaldrop/bplusviz/internal/script"
	"github.com/cabewaldrop/bplusviz/internal/session"
	"github.com/cabewaldrop/bplusviz/internal/web"
	"github.com/cockroachdb/errors"
	"github.com/kr/pretty"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const banner = `
  _           _
 | |__  _ __ | |_   _ ___  __   _(_)____
 | '_ \| '_ \| | | | / __| \ \ / / |_  /
 | |_) | |_) | | |_| \__ \  \ V /| |/ /
 |_.__/| .__/|_|\__,_|___/   \_/ |_/___|
       |_|

  B+ Tree Visualizer - Version %s
  Type '.help' for usage hints or '.quit' to exit.
`

// dotCommands are special commands starting with '.'
var dotCommands = map[string]string{
	".help":    "Show this help message",
	".quit":    "Exit the program",
	".exit":    "Exit the program (alias for .quit)",
	".tree":    "Draw the tree",
	".history": "List the recent operations",
	".trace":   "Summarize an operation: .trace [entry]",
	".nodes":   "Dump every node with its keys and children",
	".order":   "Start over with a new order: .order N",
	".clear":   "Clear the screen",
}

func newReplCmd(a *app) *cobra.Command {
	var order int
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Drive a tree interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("order") {
				order = a.cfg.Tree.Order
			}
			return runRepl(cmd, a, order)
		},
	}
	cmd.Flags().IntVar(&order, "order", 4, "tree order (maximum children per node)")
	return cmd
}

func runRepl(cmd *cobra.Command, a *app, order int) error {
	log := a.log
	if a.logLevel == "" {
		// Per-operation info lines would drown the prompt.
		log = log.Level(zerolog.WarnLevel)
	}
	sh, err := newShell(cmd.InOrStdin(), cmd.OutOrStdout(), log, a.cfg.History.MaxEntries, order)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, banner, version)
	fmt.Fprintf(sh.out, "Order %d tree ready.\n\n", order)
	return sh.run(cmd.Context())
}

// shell is one interactive session over a single tree.
type shell struct {
	in  *bufio.Reader
	out io.Writer
	reg *session.Registry
	s   *session.Session
}

func newShell(in io.Reader, out io.Writer, log zerolog.Logger, maxHistory, order int) (*shell, error) {
	reg := session.NewRegistry(session.WithLogger(log), session.WithMaxHistory(maxHistory))
	s, err := reg.Create("repl", order)
	if err != nil {
		return nil, err
	}
	return &shell{in: bufio.NewReader(in), out: out, reg: reg, s: s}, nil
}

// run implements the Read-Eval-Print Loop. Statements accumulate until a
// line ends with a semicolon.
func (sh *shell) run(ctx context.Context) error {
	var inputBuffer strings.Builder

	for {
		if inputBuffer.Len() == 0 {
			fmt.Fprint(sh.out, "bplusviz> ")
		} else {
			fmt.Fprint(sh.out, "     ...> ")
		}

		line, err := sh.in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(sh.out, "\nGoodbye!")
				return nil
			}
			return errors.Wrap(err, "reading input")
		}
		line = strings.TrimRight(line, "\n\r")

		if strings.TrimSpace(line) == "" {
			continue
		}

		if inputBuffer.Len() == 0 && strings.HasPrefix(strings.TrimSpace(line), ".") {
			if quit := sh.dotCommand(strings.TrimSpace(line)); quit {
				fmt.Fprintln(sh.out, "Goodbye!")
				return nil
			}
			continue
		}

		inputBuffer.WriteString(line)
		input := strings.TrimSpace(inputBuffer.String())
		if !strings.HasSuffix(input, ";") {
			inputBuffer.WriteString(" ")
			continue
		}
		inputBuffer.Reset()

		sh.execute(ctx, input)
	}
}

// execute runs one or more statements and prints their outcomes. The tree is
// redrawn once at the end if anything changed it.
func (sh *shell) execute(ctx context.Context, input string) {
	out, err := sh.s.RunScript(ctx, input)
	if err != nil {
		fmt.Fprintf(sh.out, "Error: %v\n", err)
		if hint := web.GetErrorHint(err); hint != "" {
			fmt.Fprintf(sh.out, "Hint: %s\n", hint)
		}
		return
	}

	changed := false
	for _, o := range out {
		fmt.Fprint(sh.out, formatOutcome(o))
		if len(o.Commands) > 0 {
			changed = true
		}
	}
	if changed {
		fmt.Fprintln(sh.out)
		fmt.Fprintln(sh.out, render.Text(sh.s.Projection()))
	}
}

// formatOutcome renders one outcome as one or more lines.
func formatOutcome(o script.Outcome) string {
	if o.Err != nil {
		msg := fmt.Sprintf("%s %d: %v\n", o.Op, o.Key, o.Err)
		if o.Op == script.OpCheck {
			msg = fmt.Sprintf("check: %v\n", o.Err)
		}
		return msg
	}

	switch o.Op {
	case script.OpInsert, script.OpDelete:
		return fmt.Sprintf("%s %d: ok\n", o.Op, o.Key)
	case script.OpFind:
		return fmt.Sprintf("%d: %t\n", o.Key, o.Found)
	case script.OpKeys:
		if len(o.Keys) == 0 {
			return "(empty)\n"
		}
		keys := make([]string, len(o.Keys))
		for i, k := range o.Keys {
			keys[i] = strconv.Itoa(k)
		}
		return strings.Join(keys, " ") + "\n"
	case script.OpShow:
		if len(o.Nodes) == 0 {
			return "(empty)\n"
		}
		var sb strings.Builder
		for _, n := range o.Nodes {
			sb.WriteString(strings.Repeat("  ", o.Nodes[0].Level-n.Level))
			sb.WriteString(n.String())
			sb.WriteString("\n")
		}
		return sb.String()
	case script.OpCheck:
		return "check: ok\n"
	case script.OpClear:
		return "cleared\n"
	}
	return fmt.Sprintf("%s\n", o.Op)
}

// dotCommand processes special dot commands. It reports whether the REPL
// should exit.
func (sh *shell) dotCommand(cmd string) bool {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false
	}

	switch parts[0] {
	case ".help":
		fmt.Fprintln(sh.out, "\nAvailable commands:")
		names := make([]string, 0, len(dotCommands))
		for name := range dotCommands {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(sh.out, "  %-12s %s\n", name, dotCommands[name])
		}
		fmt.Fprintln(sh.out, "\nStatements (end with ';'):")
		fmt.Fprintln(sh.out, "  INSERT key[, key...]")
		fmt.Fprintln(sh.out, "  DELETE key[, key...]")
		fmt.Fprintln(sh.out, "  FIND key")
		fmt.Fprintln(sh.out, "  KEYS | SHOW | CHECK | CLEAR")
		fmt.Fprintln(sh.out)

	case ".quit", ".exit":
		return true

	case ".tree":
		fmt.Fprintln(sh.out, render.Text(sh.s.Projection()))

	case ".history":
		sh.printHistory()

	case ".trace":
		sh.printTrace(parts[1:])

	case ".nodes":
		nodes := sh.s.Nodes()
		if len(nodes) == 0 {
			fmt.Fprintln(sh.out, "(empty)")
			break
		}
		for _, n := range nodes {
			fmt.Fprintf(sh.out, "%# v\n", pretty.Formatter(n))
		}

	case ".order":
		if len(parts) != 2 {
			fmt.Fprintln(sh.out, "Usage: .order N")
			break
		}
		order, err := strconv.Atoi(parts[1])
		if err == nil {
			err = web.ValidateOrder(order)
		}
		if err != nil {
			fmt.Fprintf(sh.out, "Error: %v\n", err)
			break
		}
		s, err := sh.reg.Create("repl", order)
		if err != nil {
			fmt.Fprintf(sh.out, "Error: %v\n", err)
			break
		}
		_ = sh.reg.Delete(sh.s.ID())
		sh.s = s
		fmt.Fprintf(sh.out, "Order %d tree ready.\n", order)

	case ".clear":
		// ANSI escape code to clear screen
		fmt.Fprint(sh.out, "\033[H\033[2J")

	default:
		fmt.Fprintf(sh.out, "Unknown command: %s\n", parts[0])
		fmt.Fprintln(sh.out, "Type '.help' for available commands.")
	}
	return false
}

func (sh *shell) printHistory() {
	entries := sh.s.History()
	if len(entries) == 0 {
		fmt.Fprintln(sh.out, "No operations yet.")
		return
	}

	tbl := tablewriter.NewWriter(sh.out)
	tbl.SetHeader([]string{"#", "Op", "Key", "Result", "Commands", "Splits", "Merges", "Took"})
	for _, e := range entries {
		result := "ok"
		if !e.Success {
			result = e.Error
		}
		key := strconv.Itoa(e.Key)
		if e.Operation == "clear" {
			key = ""
		}
		tbl.Append([]string{
			strconv.Itoa(e.ID),
			e.Operation,
			key,
			result,
			strconv.Itoa(len(e.Commands)),
			strconv.Itoa(e.Stats.Splits),
			strconv.Itoa(e.Stats.Merges),
			e.Duration.String(),
		})
	}
	tbl.Render()
}

func (sh *shell) printTrace(args []string) {
	var (
		entry session.HistoryEntry
		ok    bool
	)
	if len(args) == 0 {
		entry, ok = sh.s.Last()
	} else if n, err := strconv.Atoi(args[0]); err == nil {
		entry, ok = sh.s.Entry(n)
	}
	if !ok {
		fmt.Fprintln(sh.out, "No such operation. Use .history to list them.")
		return
	}
	fmt.Fprint(sh.out, web.BuildTrace(entry).FormatText())
}
