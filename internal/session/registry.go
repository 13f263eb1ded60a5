package session

import (
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

type options struct {
	log        zerolog.Logger
	observer   Observer
	maxHistory int
}

// Option configures a Registry.
type Option func(*options)

// WithLogger sets the logger handed to every session.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithObserver sets the operation observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithMaxHistory bounds each session's history.
func WithMaxHistory(n int) Option {
	return func(o *options) { o.maxHistory = n }
}

// Registry maps session ids to sessions.
type Registry struct {
	opts options

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	o := options{log: zerolog.Nop(), maxHistory: DefaultMaxHistory}
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{opts: o, sessions: make(map[string]*Session)}
}

// Create starts a new session with an empty tree of the given order. An empty
// name defaults to "tree-" plus the first block of the id.
func (r *Registry) Create(name string, order int) (*Session, error) {
	id := uuid.NewString()
	if strings.TrimSpace(name) == "" {
		name = "tree-" + id[:8]
	}
	s, err := newSession(id, name, order, r.opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()

	if r.opts.observer != nil {
		r.opts.observer.SessionsChanged(n)
	}
	r.opts.log.Info().Str("session", id).Str("name", name).Int("order", order).Msg("session created")
	return s, nil
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "session %q", id)
	}
	return s, nil
}

// Delete removes a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	if _, ok := r.sessions[id]; !ok {
		r.mu.Unlock()
		return errors.Wrapf(ErrSessionNotFound, "session %q", id)
	}
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if r.opts.observer != nil {
		r.opts.observer.SessionsChanged(n)
	}
	r.opts.log.Info().Str("session", id).Msg("session deleted")
	return nil
}

// List returns every session, oldest first.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if !list[i].created.Equal(list[j].created) {
			return list[i].created.Before(list[j].created)
		}
		return list[i].id < list[j].id
	})
	return list
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
