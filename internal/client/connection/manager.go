package connection

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yungbote/studysync-backend/internal/platform/logger"
)

type State int

const (
	StateUninitialized State = iota
	StateAttempting
	StateConnected
	StateDisconnected
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAttempting:
		return "attempting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	ReasonConfigurationMissing = "configuration_missing"
	ReasonUnavailable          = "realtime_unavailable"
)

const (
	DefaultAttemptTimeout = 2 * time.Second
	DefaultReconnectDelay = time.Second
)

// Frame is one inbound message from the broadcast transport.
type Frame struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// Conn is an established, subscribed transport.
type Conn interface {
	SocketID() string
	// Next blocks for the next frame. Any error means the transport is gone.
	Next() (Frame, error)
	Close() error
}

// Dialer opens a transport to one candidate. It must give up when ctx is
// cancelled.
type Dialer interface {
	Dial(ctx context.Context, c Candidate) (Conn, error)
}

type DialerFunc func(ctx context.Context, c Candidate) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, c Candidate) (Conn, error) { return f(ctx, c) }

// Status is a snapshot of the manager. Attempt is the candidate index while
// searching; Candidate is the winner once connected.
type Status struct {
	State     State
	Attempt   int
	Candidate *Candidate
	SocketID  string
	Reason    string
}

type Config struct {
	Resolved       Resolved
	Dialer         Dialer
	AttemptTimeout time.Duration
	ReconnectDelay time.Duration
	// OnStatus and OnFrame must not call Close.
	OnStatus func(Status)
	OnFrame  func(Frame)
	Log      *logger.Logger
}

type eventKind int

const (
	evStart eventKind = iota
	evAttemptResult
	evTimeout
	evDropped
	evReconnect
	evTeardown
)

type event struct {
	kind eventKind
	gen  uint64
	conn Conn
	err  error
}

// Manager runs the connection state machine. Every transition happens on one
// goroutine in response to an event; timers and dials only post events, each
// stamped with the generation it belongs to so late ones are ignored.
type Manager struct {
	cfg        Config
	log        *logger.Logger
	candidates []Candidate

	events   chan event
	stopping chan struct{}
	stopped  chan struct{}
	start    sync.Once
	close    sync.Once

	// gate lets the loop wait out senders before its final drain.
	gate   sync.RWMutex
	halted bool

	// Owned by the loop goroutine.
	state      State
	gen        uint64
	idx        int
	dialing    bool
	reconnect  bool
	winner     *Candidate
	conn       Conn
	timer      *time.Timer
	cancelDial context.CancelFunc

	current atomic.Uint64
	alive   atomic.Bool

	mu     sync.Mutex
	status Status
}

// New builds a manager and starts its event loop. Call Start to connect and
// Close to release it.
func New(cfg Config) *Manager {
	m := newManager(cfg)
	go m.run()
	return m
}

func newManager(cfg Config) *Manager {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}
	m := &Manager{
		cfg:        cfg,
		log:        log.With("component", "ConnectionManager"),
		candidates: Candidates(cfg.Resolved),
		events:     make(chan event, 16),
		stopping:   make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	m.alive.Store(true)
	return m
}

func (m *Manager) Candidates() []Candidate {
	return append([]Candidate(nil), m.candidates...)
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Start begins the candidate search. Only the first call has an effect.
func (m *Manager) Start() {
	m.start.Do(func() { m.post(event{kind: evStart}) })
}

// Close tears the connection down and waits for the loop to exit. Callbacks
// still in flight afterwards are dropped.
func (m *Manager) Close() {
	m.close.Do(func() {
		m.alive.Store(false)
		m.post(event{kind: evTeardown})
	})
	<-m.stopped
}

func (m *Manager) post(ev event) {
	m.gate.RLock()
	defer m.gate.RUnlock()
	if m.halted {
		m.discard(ev)
		return
	}
	select {
	case m.events <- ev:
	case <-m.stopping:
		m.discard(ev)
	}
}

func (m *Manager) discard(ev event) {
	if ev.conn != nil {
		_ = ev.conn.Close()
	}
}

func (m *Manager) run() {
	defer close(m.stopped)
	for ev := range m.events {
		if m.handle(ev) {
			m.halt()
			return
		}
	}
}

// halt refuses further events and releases any connection that was queued
// behind the teardown.
func (m *Manager) halt() {
	close(m.stopping)
	m.gate.Lock()
	m.halted = true
	m.gate.Unlock()
	for {
		select {
		case ev := <-m.events:
			m.discard(ev)
		default:
			return
		}
	}
}

func (m *Manager) handle(ev event) bool {
	switch ev.kind {
	case evStart:
		if m.state != StateUninitialized {
			return false
		}
		if m.cfg.Resolved.Missing() || len(m.candidates) == 0 {
			m.log.Warn("Realtime disabled, no app key configured")
			m.transition(StateFailed, ReasonConfigurationMissing)
			return false
		}
		m.idx = 0
		m.dial(false)

	case evAttemptResult:
		if ev.gen != m.gen || !m.dialing {
			if ev.conn != nil {
				_ = ev.conn.Close()
			}
			return false
		}
		m.stopTimer()
		m.cancel()
		m.dialing = false
		if ev.err != nil {
			m.log.Debug("Realtime attempt failed", "candidate", m.target().String(), "error", ev.err)
			m.retry()
			return false
		}
		c := m.target()
		m.winner = &c
		m.conn = ev.conn
		m.reconnect = false
		m.log.Info("Realtime connected", "candidate", c.String(), "socket_id", ev.conn.SocketID())
		m.transition(StateConnected, "")
		go m.read(m.gen, ev.conn)

	case evTimeout:
		if ev.gen != m.gen || !m.dialing {
			return false
		}
		m.dialing = false
		m.cancel()
		m.log.Debug("Realtime attempt timed out", "candidate", m.target().String())
		m.retry()

	case evDropped:
		if ev.gen != m.gen || m.state != StateConnected {
			return false
		}
		_ = m.conn.Close()
		m.conn = nil
		m.log.Warn("Realtime connection dropped", "candidate", m.winner.String())
		m.transition(StateDisconnected, "")
		m.scheduleReconnect()

	case evReconnect:
		if ev.gen != m.gen || m.state != StateDisconnected {
			return false
		}
		m.dial(true)

	case evTeardown:
		m.gen++
		m.current.Store(m.gen)
		m.stopTimer()
		m.cancel()
		if m.conn != nil {
			_ = m.conn.Close()
			m.conn = nil
		}
		m.dialing = false
		m.transition(StateClosed, "")
		return true
	}
	return false
}

// target is the endpoint of the current dial.
func (m *Manager) target() Candidate {
	if m.reconnect && m.winner != nil {
		return *m.winner
	}
	return m.candidates[m.idx]
}

func (m *Manager) dial(reconnect bool) {
	m.gen++
	m.current.Store(m.gen)
	m.reconnect = reconnect
	m.dialing = true
	if !reconnect {
		m.transition(StateAttempting, "")
	}

	gen, c := m.gen, m.target()
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelDial = cancel
	m.timer = time.AfterFunc(m.cfg.AttemptTimeout, func() {
		m.post(event{kind: evTimeout, gen: gen})
	})
	go func() {
		conn, err := m.cfg.Dialer.Dial(ctx, c)
		m.post(event{kind: evAttemptResult, gen: gen, conn: conn, err: err})
	}()
}

// retry moves on after a failed or timed out dial: the next candidate while
// searching, the same endpoint again after a drop.
func (m *Manager) retry() {
	m.cancel()
	if m.reconnect {
		m.scheduleReconnect()
		return
	}
	m.idx++
	if m.idx >= len(m.candidates) {
		m.log.Warn("Realtime unavailable", "attempts", len(m.candidates))
		m.transition(StateFailed, ReasonUnavailable)
		return
	}
	m.dial(false)
}

func (m *Manager) scheduleReconnect() {
	m.gen++
	m.current.Store(m.gen)
	gen := m.gen
	m.timer = time.AfterFunc(m.cfg.ReconnectDelay, func() {
		m.post(event{kind: evReconnect, gen: gen})
	})
}

func (m *Manager) read(gen uint64, conn Conn) {
	for {
		f, err := conn.Next()
		if err != nil {
			m.post(event{kind: evDropped, gen: gen})
			return
		}
		if !m.alive.Load() || m.current.Load() != gen {
			return
		}
		if m.cfg.OnFrame != nil {
			m.cfg.OnFrame(f)
		}
	}
}

func (m *Manager) stopTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) cancel() {
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
}

func (m *Manager) transition(to State, reason string) {
	m.state = to
	st := Status{State: to, Attempt: m.idx, Reason: reason}
	if to == StateConnected || to == StateDisconnected {
		c := *m.winner
		st.Candidate = &c
	}
	if to == StateConnected && m.conn != nil {
		st.SocketID = m.conn.SocketID()
	}
	m.mu.Lock()
	m.status = st
	m.mu.Unlock()
	if m.cfg.OnStatus != nil {
		m.cfg.OnStatus(st)
	}
}
