package session

import (
	"context"

	"github.com/cabewaldrop/bplusviz/internal/bptree"
	"github.com/cabewaldrop/bplusviz/internal/command"
	"github.com/cabewaldrop/bplusviz/internal/script"
)

// RunScript runs a script against the session. Every mutation is recorded in
// the history as if it had been called directly.
func (s *Session) RunScript(ctx context.Context, src string) ([]script.Outcome, error) {
	return script.Run(ctx, scriptTarget{s}, src)
}

type scriptTarget struct{ s *Session }

func (t scriptTarget) Insert(key int) ([]command.Command, error) {
	res, err := t.s.Insert(key)
	return res.Commands, err
}

func (t scriptTarget) Delete(key int) ([]command.Command, error) {
	res, err := t.s.Delete(key)
	return res.Commands, err
}

func (t scriptTarget) Clear() []command.Command {
	res, _ := t.s.Clear()
	return res.Commands
}

func (t scriptTarget) Find(key int) bool { return t.s.Find(key) }
func (t scriptTarget) Keys() []int       { return t.s.Keys() }
func (t scriptTarget) Check() error      { return t.s.Check() }

func (t scriptTarget) Nodes() []bptree.NodeInfo { return t.s.Nodes() }
