package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cabewaldrop/bplusviz/internal/algorithm"
	"github.com/cabewaldrop/bplusviz/internal/command"
	"github.com/cabewaldrop/bplusviz/internal/logging"
	"github.com/cabewaldrop/bplusviz/internal/render"
	"github.com/cabewaldrop/bplusviz/internal/replay"
	"github.com/cabewaldrop/bplusviz/internal/script"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

type playOptions struct {
	order    int
	speedMS  int
	record   bool
	clear    bool
	finalize bool
}

func newPlayCmd(a *app) *cobra.Command {
	var opts playOptions
	cmd := &cobra.Command{
		Use:   "play [script-file]",
		Short: "Run a script and animate it in the terminal",
		Long: `Run a script (from a file, or stdin when no file or "-" is given) and
replay the recorded command log step by step, redrawing the tree after each
step. Ctrl-C stops the animation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("order") {
				opts.order = a.cfg.Tree.Order
			}
			if !flags.Changed("speed") {
				opts.speedMS = a.cfg.Replay.SpeedMS
			}
			if !flags.Changed("record") {
				opts.record = a.cfg.Tree.Record
			}
			if !flags.Changed("clear") {
				opts.clear = logging.IsTerminal(cmd.OutOrStdout())
			}

			src, err := readScript(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return play(ctx, a, cmd.OutOrStdout(), src, opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.order, "order", 4, "tree order (maximum children per node)")
	f.IntVar(&opts.speedMS, "speed", 500, "delay between steps in milliseconds")
	f.BoolVar(&opts.record, "record", true, "record and animate the command log")
	f.BoolVar(&opts.clear, "clear", false, "clear the screen before each frame (default: on a terminal)")
	f.BoolVar(&opts.finalize, "final", false, "skip the animation and draw only the final tree")
	return cmd
}

func readScript(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), errors.Wrap(err, "reading script from stdin")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", errors.Wrapf(err, "reading script %s", args[0])
	}
	return string(data), nil
}

// play runs src on a fresh engine, prints each outcome, then replays the
// combined command log onto an empty picture.
func play(ctx context.Context, a *app, out io.Writer, src string, opts playOptions) error {
	bt, err := algorithm.New(opts.order,
		algorithm.WithRecording(opts.record),
		algorithm.WithLogger(a.log),
	)
	if err != nil {
		return err
	}

	outcomes, err := script.Run(ctx, script.Engine{BPlusTree: bt}, src)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		fmt.Fprint(out, formatOutcome(o))
	}

	if !opts.record {
		fmt.Fprintln(out)
		for _, n := range bt.GetAllNodes() {
			fmt.Fprintln(out, n.String())
		}
		return nil
	}

	cmds := script.Commands(outcomes)
	proj := render.NewProjection()
	if opts.finalize {
		if err := proj.ApplyAll(cmds); err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, render.Text(proj))
		return nil
	}

	var total int
	ctl := replay.NewController(proj,
		replay.WithSpeedBounds(a.cfg.Replay.MinSpeedMS, a.cfg.Replay.MaxSpeedMS),
		replay.WithSpeed(opts.speedMS),
		replay.WithCallbacks(replay.Callbacks{
			OnStepChange: func(step int, _ command.Command) {
				if opts.clear {
					fmt.Fprint(out, "\033[H\033[2J")
				} else {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "step %d/%d\n", step, total)
				fmt.Fprintln(out, render.Text(proj))
			},
		}),
	)
	ctl.LoadCommands(cmds)
	total = ctl.State().TotalSteps
	a.log.Debug().Int("steps", total).Int("commands", len(cmds)).Msg("playing")

	if err := ctl.PlayAll(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(out, "stopped")
			return nil
		}
		return err
	}
	return nil
}
