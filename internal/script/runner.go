package script

import (
	"context"

	"github.com/cabewaldrop/bplusviz/internal/algorithm"
	"github.com/cabewaldrop/bplusviz/internal/bptree"
	"github.com/cabewaldrop/bplusviz/internal/command"
	"github.com/cockroachdb/errors"
)

// Target is what a script runs against.
type Target interface {
	Insert(key int) ([]command.Command, error)
	Delete(key int) ([]command.Command, error)
	Find(key int) bool
	Keys() []int
	Nodes() []bptree.NodeInfo
	Check() error
	Clear() []command.Command
}

// Engine adapts an algorithm.BPlusTree to Target.
type Engine struct {
	*algorithm.BPlusTree
}

func (e Engine) Insert(key int) ([]command.Command, error) { return e.InsertElement(key) }
func (e Engine) Delete(key int) ([]command.Command, error) { return e.DeleteElement(key) }
func (e Engine) Keys() []int                               { return e.GetAllKeys() }
func (e Engine) Nodes() []bptree.NodeInfo                  { return e.GetAllNodes() }
func (e Engine) Check() error                              { return e.Tree().Check() }

// Outcome is the result of one operation. An INSERT or DELETE with several
// keys produces one outcome per key.
type Outcome struct {
	Statement int               `json:"statement"`
	Op        Op                `json:"op"`
	Key       int               `json:"key"`
	Commands  []command.Command `json:"commands,omitempty"`
	Found     bool              `json:"found,omitempty"`
	Keys      []int             `json:"keys,omitempty"`
	Nodes     []bptree.NodeInfo `json:"nodes,omitempty"`
	Err       error             `json:"-"`
	Error     string            `json:"error,omitempty"`
}

// Run parses src and runs every statement against t. Operation errors such as
// a duplicate key are recorded in the outcome and do not stop the script; a
// syntax error stops it before anything runs. Run also stops when ctx is done.
func Run(ctx context.Context, t Target, src string) ([]Outcome, error) {
	stmts, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Exec(ctx, t, stmts)
}

// Exec runs already parsed statements.
func Exec(ctx context.Context, t Target, stmts []Statement) ([]Outcome, error) {
	var out []Outcome
	for i, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return out, errors.Wrapf(err, "statement %d", i+1)
		}
		out = append(out, execStatement(t, i, stmt)...)
	}
	return out, nil
}

func execStatement(t Target, i int, stmt Statement) []Outcome {
	base := Outcome{Statement: i, Op: stmt.Op}
	switch stmt.Op {
	case OpInsert, OpDelete:
		out := make([]Outcome, 0, len(stmt.Keys))
		for _, k := range stmt.Keys {
			o := base
			o.Key = k
			if stmt.Op == OpInsert {
				o.Commands, o.Err = t.Insert(k)
			} else {
				o.Commands, o.Err = t.Delete(k)
			}
			out = append(out, finish(o))
		}
		return out
	case OpFind:
		o := base
		o.Key = stmt.Keys[0]
		o.Found = t.Find(o.Key)
		return []Outcome{o}
	case OpKeys:
		o := base
		o.Keys = t.Keys()
		return []Outcome{o}
	case OpShow:
		o := base
		o.Nodes = t.Nodes()
		return []Outcome{o}
	case OpCheck:
		o := base
		o.Err = t.Check()
		return []Outcome{finish(o)}
	case OpClear:
		o := base
		o.Commands = t.Clear()
		return []Outcome{o}
	}
	o := base
	o.Err = errors.Newf("unknown op %q", stmt.Op)
	return []Outcome{finish(o)}
}

func finish(o Outcome) Outcome {
	if o.Err != nil {
		o.Error = o.Err.Error()
	}
	return o
}

// Commands concatenates the command logs of outcomes in order.
func Commands(out []Outcome) []command.Command {
	var cmds []command.Command
	for _, o := range out {
		cmds = append(cmds, o.Commands...)
	}
	return cmds
}
