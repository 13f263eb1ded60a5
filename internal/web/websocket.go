package web

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cabewaldrop/bplusviz/internal/command"
	"github.com/cabewaldrop/bplusviz/internal/render"
	"github.com/cabewaldrop/bplusviz/internal/replay"
	"github.com/cabewaldrop/bplusviz/internal/session"
	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Replay actions sent by the browser.
const (
	actionPlay           = "play"
	actionResume         = "resume"
	actionPause          = "pause"
	actionStop           = "stop"
	actionForward        = "forward"
	actionBackward       = "backward"
	actionJump           = "jump"
	actionNextBreakpoint = "next_breakpoint"
	actionPrevBreakpoint = "prev_breakpoint"
	actionSpeed          = "speed"
)

// replayRequest is one control message from the browser.
type replayRequest struct {
	Action string `json:"action"`
	Value  int    `json:"value"`
}

// replayMessage is one update pushed to the browser.
type replayMessage struct {
	Type        string          `json:"type"` // ready, step, state, complete, error
	Step        int             `json:"step"`
	Command     command.Command `json:"command,omitempty"`
	State       *replay.State   `json:"state,omitempty"`
	View        *render.View    `json:"view,omitempty"`
	Breakpoints []int           `json:"breakpoints,omitempty"`
	Entry       int             `json:"entry,omitempty"`
	Operation   string          `json:"operation,omitempty"`
	Key         int             `json:"key,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// lockedSink lets callbacks read the picture while the play loop writes it.
type lockedSink struct {
	mu   sync.Mutex
	sink *replay.ProjectionSink
}

func (l *lockedSink) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink.Reset()
}

func (l *lockedSink) Apply(c command.Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.Apply(c)
}

func (l *lockedSink) view() *render.View {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := l.sink.Projection().Snapshot()
	return &v
}

// replayStream serializes writes to one websocket.
type replayStream struct {
	mu   sync.Mutex
	conn *websocket.Conn
	log  zerolog.Logger
}

func (s *replayStream) send(msg replayMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.log.Debug().Err(err).Str("type", msg.Type).Msg("replay write failed")
	}
}

// replayEntry picks the operation to replay: ?entry=N, or the latest
// successful one. ok is false when the tree has no history yet.
func replayEntry(r *http.Request, sess *session.Session) (session.HistoryEntry, bool, error) {
	if q := r.URL.Query().Get("entry"); q != "" && q != "0" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return session.HistoryEntry{}, false, errors.Wrapf(ErrInvalidInput, "entry %q", q)
		}
		e, ok := sess.Entry(n)
		if !ok {
			return session.HistoryEntry{}, false, errors.Wrapf(ErrEntryNotFound, "entry %d", n)
		}
		return e, true, nil
	}
	e, ok := sess.Last()
	return e, ok, nil
}

// handleReplay streams the replay of one operation over a websocket.
// GET /api/trees/{id}/replay?entry=N
//
// The operation is replayed over the picture as it was before it ran, so
// stepping backward shows the tree returning to its earlier shape.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	sess := GetSession(r)
	entry, ok, err := replayEntry(r, sess)
	if err != nil {
		writeErr(w, err)
		return
	}

	base := sess.Projection()
	if ok {
		base = entry.Baseline()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.log.Warn().Err(err).Msg("replay upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopOnShutdown := context.AfterFunc(s.streams, cancel)
	defer stopOnShutdown()

	log := s.log.With().Str("tree", sess.ID()).Int("entry", entry.ID).Logger()
	stream := &replayStream{conn: conn, log: log}
	sink := &lockedSink{sink: replay.NewProjectionSink(base)}

	ctl := replay.NewController(sink,
		replay.WithSpeedBounds(s.cfg.Replay.MinSpeedMS, s.cfg.Replay.MaxSpeedMS),
		replay.WithSpeed(s.cfg.Replay.SpeedMS),
		replay.WithCallbacks(replay.Callbacks{
			OnStepChange: func(step int, cmd command.Command) {
				stream.send(replayMessage{Type: "step", Step: step, Command: cmd, View: sink.view()})
			},
			OnStateChange: func(st replay.State) {
				stream.send(replayMessage{Type: "state", Step: st.CurrentStep, State: &st})
			},
			OnComplete: func() {
				stream.send(replayMessage{Type: "complete"})
			},
			OnError: func(err error) {
				log.Error().Err(err).Msg("replay step failed")
				stream.send(replayMessage{Type: "error", Error: err.Error()})
			},
		}),
	)
	if ok {
		ctl.LoadOperation(entry.Operation, entry.Key, entry.Commands)
	}

	st := ctl.State()
	stream.send(replayMessage{
		Type:        "ready",
		State:       &st,
		View:        sink.view(),
		Breakpoints: ctl.StepBreakpoints(),
		Entry:       entry.ID,
		Operation:   entry.Operation,
		Key:         entry.Key,
	})
	log.Debug().Int("steps", st.TotalSteps).Msg("replay stream opened")

	var wg sync.WaitGroup
	play := func(fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				log.Debug().Err(err).Msg("playback ended")
			}
		}()
	}

	defer func() {
		cancel()
		ctl.Stop()
		wg.Wait()
		log.Debug().Msg("replay stream closed")
	}()

	for {
		var req replayRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("replay read failed")
			}
			return
		}

		var actErr error
		switch req.Action {
		case actionPlay:
			play(ctl.PlayAll)
		case actionResume:
			play(ctl.Resume)
		case actionPause:
			ctl.Pause()
		case actionStop:
			ctl.Stop()
		case actionForward:
			actErr = ctl.StepForward()
		case actionBackward:
			actErr = ctl.StepBackward()
		case actionJump:
			actErr = ctl.JumpToStep(req.Value)
		case actionNextBreakpoint:
			actErr = ctl.JumpToNextBreakpoint()
		case actionPrevBreakpoint:
			actErr = ctl.JumpToPreviousBreakpoint()
		case actionSpeed:
			ctl.SetSpeed(req.Value)
		default:
			actErr = errors.Wrapf(ErrInvalidInput, "unknown action %q", req.Action)
		}
		// Step failures already reach the browser through OnError.
		if errors.Is(actErr, ErrInvalidInput) || errors.Is(actErr, replay.ErrStepOutOfRange) {
			stream.send(replayMessage{Type: "error", Error: actErr.Error()})
		}
	}
}
