// Package session keeps named trees alive between requests.
//
// EDUCATIONAL NOTES:
// ------------------
// The engine itself is single-writer: one caller, one tree, no locks. A
// server has many callers, so a Session wraps one engine with:
// - a mutex, so concurrent requests take turns
// - a projection that follows the tree, so a new viewer can be shown the
//   current picture without replaying everything
// - a bounded operation history, each entry holding the command log of that
//   operation and the picture before it, so any recent operation can be
//   replayed on its own
//
// The Registry is the "catalog" of sessions: it maps ids to sessions and
// nothing more.

package session

import (
	"sync"
	"time"

	"github.com/cabewaldrop/bplusviz/internal/algorithm"
	"github.com/cabewaldrop/bplusviz/internal/bptree"
	"github.com/cabewaldrop/bplusviz/internal/command"
	"github.com/cabewaldrop/bplusviz/internal/render"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// DefaultMaxHistory bounds the history when no limit is configured.
const DefaultMaxHistory = 100

// Observer is told about every operation. metrics.Metrics implements it.
type Observer interface {
	ObserveOperation(op string, stats algorithm.Stats, err error)
	SessionsChanged(n int)
}

// HistoryEntry records one operation.
type HistoryEntry struct {
	ID        int               `json:"id"`
	Operation string            `json:"operation"`
	Key       int               `json:"key"`
	Timestamp time.Time         `json:"timestamp"`
	Keys      []int             `json:"keys"`
	Commands  []command.Command `json:"-"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Duration  time.Duration     `json:"duration"`
	Stats     algorithm.Stats   `json:"stats"`

	before *render.Projection
}

// Baseline returns the picture as it was before the operation ran.
func (e HistoryEntry) Baseline() *render.Projection {
	if e.before == nil {
		return render.NewProjection()
	}
	return e.before.Clone()
}

// Result is what a mutation hands back to the caller.
type Result struct {
	Commands []command.Command `json:"commands"`
	Stats    algorithm.Stats   `json:"stats"`
	Keys     []int             `json:"keys"`
	Entry    int               `json:"entry"`
}

// Info describes a session.
type Info struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Order      int       `json:"order"`
	Keys       []int     `json:"keys"`
	Height     int       `json:"height"`
	Nodes      int       `json:"nodes"`
	Operations int       `json:"operations"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Session is one named tree.
type Session struct {
	id      string
	name    string
	created time.Time
	log     zerolog.Logger
	obs     Observer
	limit   int

	mu      sync.Mutex
	bt      *algorithm.BPlusTree
	proj    *render.Projection
	history []HistoryEntry
	seq     int
}

func newSession(id, name string, order int, o options) (*Session, error) {
	log := o.log.With().Str("session", id).Logger()
	bt, err := algorithm.New(order, algorithm.WithLogger(log))
	if err != nil {
		return nil, err
	}
	limit := o.maxHistory
	if limit <= 0 {
		limit = DefaultMaxHistory
	}
	return &Session{
		id:      id,
		name:    name,
		created: time.Now(),
		log:     log,
		obs:     o.observer,
		limit:   limit,
		bt:      bt,
		proj:    render.NewProjection(),
	}, nil
}

func (s *Session) ID() string   { return s.id }
func (s *Session) Name() string { return s.name }
func (s *Session) Order() int   { return s.bt.Order() }

// Info returns a summary of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr := s.bt.Tree()
	return Info{
		ID:         s.id,
		Name:       s.name,
		Order:      s.bt.Order(),
		Keys:       s.bt.GetAllKeys(),
		Height:     tr.Height(),
		Nodes:      tr.NodeCount(),
		Operations: s.seq,
		CreatedAt:  s.created,
	}
}

// Insert adds key to the tree.
func (s *Session) Insert(key int) (Result, error) {
	return s.mutate("insert", key, func() ([]command.Command, error) {
		return s.bt.InsertElement(key)
	})
}

// Delete removes key from the tree.
func (s *Session) Delete(key int) (Result, error) {
	return s.mutate("delete", key, func() ([]command.Command, error) {
		return s.bt.DeleteElement(key)
	})
}

// Clear empties the tree.
func (s *Session) Clear() (Result, error) {
	return s.mutate("clear", 0, func() ([]command.Command, error) {
		return s.bt.Clear(), nil
	})
}

// Find reports whether key is in the tree.
func (s *Session) Find(key int) bool {
	s.mu.Lock()
	found := s.bt.Find(key)
	s.mu.Unlock()
	if s.obs != nil {
		s.obs.ObserveOperation("find", algorithm.Stats{}, nil)
	}
	return found
}

// Keys returns every key in ascending order.
func (s *Session) Keys() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bt.GetAllKeys()
}

// Nodes returns a pre-order snapshot of the tree.
func (s *Session) Nodes() []bptree.NodeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bt.GetAllNodes()
}

// Projection returns a copy of the current picture.
func (s *Session) Projection() *render.Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proj.Clone()
}

// History returns the retained entries, oldest first.
func (s *Session) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HistoryEntry(nil), s.history...)
}

// Entry returns the history entry with the given id.
func (s *Session) Entry(id int) (HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.history {
		if e.ID == id {
			return e, true
		}
	}
	return HistoryEntry{}, false
}

// Last returns the most recent successful mutation, if any is retained.
func (s *Session) Last() (HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Success {
			return s.history[i], true
		}
	}
	return HistoryEntry{}, false
}

// Check validates the tree's invariants.
func (s *Session) Check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bt.Tree().Check()
}

func (s *Session) mutate(op string, key int, run func() ([]command.Command, error)) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.proj.Clone()
	start := time.Now()
	cmds, err := run()
	if err == nil {
		if aerr := s.proj.ApplyAll(cmds); aerr != nil {
			// The engine and its picture disagree; rebuild the picture
			// from scratch so later operations start from a sane state.
			s.proj = render.NewProjection()
			err = errors.WithAssertionFailure(aerr)
		}
	}
	stats := s.bt.LastStats()
	if err != nil {
		stats = algorithm.Stats{Operation: op, Key: key}
	}

	s.seq++
	entry := HistoryEntry{
		ID:        s.seq,
		Operation: op,
		Key:       key,
		Timestamp: start,
		Keys:      s.bt.GetAllKeys(),
		Commands:  cmds,
		Success:   err == nil,
		Duration:  time.Since(start),
		Stats:     stats,
		before:    before,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.history = append(s.history, entry)
	if len(s.history) > s.limit {
		s.history = append([]HistoryEntry(nil), s.history[len(s.history)-s.limit:]...)
	}

	if s.obs != nil {
		s.obs.ObserveOperation(op, stats, err)
	}
	ev := s.log.Info()
	if err != nil {
		ev = s.log.Warn().Err(err)
	}
	ev.Str("op", op).Int("key", key).Int("commands", len(cmds)).Dur("took", entry.Duration).Msg("tree operation")

	if err != nil {
		return Result{Entry: entry.ID}, err
	}
	return Result{Commands: cmds, Stats: stats, Keys: entry.Keys, Entry: entry.ID}, nil
}
