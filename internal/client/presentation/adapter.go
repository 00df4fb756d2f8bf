package presentation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studysync-backend/internal/client/connection"
	"github.com/yungbote/studysync-backend/internal/navigation"
	"github.com/yungbote/studysync-backend/internal/platform/logger"
)

const eventStateUpdated = "state.updated"

var ErrNotLeader = errors.New("only the leader can change the presentation")

type Role int

const (
	RoleViewer Role = iota
	RoleLeader
)

func (r Role) String() string {
	if r == RoleLeader {
		return "leader"
	}
	return "viewer"
}

// Options configures an Adapter. OnChange sees every new local state along
// with the action that produced it.
type Options struct {
	WeekID   uuid.UUID
	Role     Role
	Log      *logger.Logger
	OnChange func(navigation.State, navigation.Action)
}

// AttachOptions configures the broadcast subscription. Explicit settings
// take priority over what the server reflects.
type AttachOptions struct {
	Explicit       connection.Settings
	Dialer         connection.Dialer
	AttemptTimeout time.Duration
	ReconnectDelay time.Duration
	OnStatus       func(connection.Status)
}

// Adapter keeps one screen's copy of a week's presentation state in sync.
// A leader sends mutations over the API and merges the answers; every role
// replaces its state with each broadcast snapshot.
type Adapter struct {
	api    *API
	weekID uuid.UUID
	role   Role
	log    *logger.Logger

	onChange func(navigation.State, navigation.Action)

	mu    sync.Mutex
	state navigation.State
	mgr   *connection.Manager

	// attachMu serialises Attach and Detach so at most one manager exists.
	attachMu sync.Mutex
}

func NewAdapter(api *API, opts Options) *Adapter {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Adapter{
		api:      api,
		weekID:   opts.WeekID,
		role:     opts.Role,
		log:      log.With("component", "PresentationAdapter", "week_id", opts.WeekID, "role", opts.Role.String()),
		onChange: opts.OnChange,
		state:    navigation.Default(),
	}
}

// Channel is the broadcast topic of the adapter's week.
func (a *Adapter) Channel() string {
	return "presentation." + a.weekID.String()
}

func (a *Adapter) State() navigation.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Clone()
}

// Connection reports the subscription status. A detached adapter is
// uninitialized.
func (a *Adapter) Connection() connection.Status {
	a.mu.Lock()
	mgr := a.mgr
	a.mu.Unlock()
	if mgr == nil {
		return connection.Status{State: connection.StateUninitialized}
	}
	return mgr.Status()
}

// Load replaces the local state with the server's current snapshot.
func (a *Adapter) Load(ctx context.Context) error {
	st, err := a.api.State(ctx, a.weekID)
	if err != nil {
		a.log.Warn("Load state failed", "error", err)
		return err
	}
	a.update(navigation.ActionUpdate, func(*navigation.State) navigation.State { return st })
	return nil
}

// Attach subscribes to the week's broadcasts, releasing any previous
// subscription first. An unreachable config endpoint is not an error; the
// explicit settings and the API origin are used instead.
func (a *Adapter) Attach(ctx context.Context, opts AttachOptions) {
	a.attachMu.Lock()
	defer a.attachMu.Unlock()
	a.release()

	meta, err := a.api.RealtimeConfig(ctx)
	if err != nil {
		a.log.Warn("Realtime config unavailable", "error", err)
		meta = nil
	}
	resolved := connection.Resolve(opts.Explicit, meta, a.api.Origin())

	dialer := opts.Dialer
	if dialer == nil {
		dialer = connection.NewWebsocketDialer(resolved.AppKey, a.Channel())
	}
	mgr := connection.New(connection.Config{
		Resolved:       resolved,
		Dialer:         dialer,
		AttemptTimeout: opts.AttemptTimeout,
		ReconnectDelay: opts.ReconnectDelay,
		OnStatus:       opts.OnStatus,
		OnFrame:        a.onFrame,
		Log:            a.log,
	})

	a.mu.Lock()
	prev := a.mgr
	a.mgr = mgr
	a.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	mgr.Start()
}

// Detach tears down the subscription, if any. It waits for an Attach in
// progress.
func (a *Adapter) Detach() {
	a.attachMu.Lock()
	defer a.attachMu.Unlock()
	a.release()
}

func (a *Adapter) release() {
	a.mu.Lock()
	mgr := a.mgr
	a.mgr = nil
	a.mu.Unlock()
	if mgr != nil {
		mgr.Close()
	}
}

func (a *Adapter) Advance(ctx context.Context) error {
	return a.moveCursor(ctx, navigation.ActionNext, func(sid string) (navigation.Cursor, error) {
		return a.api.Next(ctx, a.weekID, sid)
	})
}

func (a *Adapter) Retreat(ctx context.Context) error {
	return a.moveCursor(ctx, navigation.ActionPrevious, func(sid string) (navigation.Cursor, error) {
		return a.api.Previous(ctx, a.weekID, sid)
	})
}

func (a *Adapter) JumpTo(ctx context.Context, section, item int) error {
	return a.moveCursor(ctx, navigation.ActionUpdate, func(sid string) (navigation.Cursor, error) {
		return a.api.Jump(ctx, a.weekID, sid, section, item)
	})
}

func (a *Adapter) ToggleReveal(ctx context.Context, section, item int) error {
	if err := a.requireLeader(); err != nil {
		return err
	}
	refs, err := a.api.ToggleReveal(ctx, a.weekID, a.socketID(), section, item)
	if err != nil {
		return a.failed(navigation.ActionToggleReveal, err)
	}
	a.update(navigation.ActionToggleReveal, func(s *navigation.State) navigation.State {
		s.RevealedRefs = refs
		return *s
	})
	return nil
}

// SetHighlight highlights one prompt of the current item; nil clears it.
func (a *Adapter) SetHighlight(ctx context.Context, prompt *int) error {
	if err := a.requireLeader(); err != nil {
		return err
	}
	got, err := a.api.Highlight(ctx, a.weekID, a.socketID(), prompt)
	if err != nil {
		return a.failed(navigation.ActionSetHighlight, err)
	}
	a.update(navigation.ActionSetHighlight, func(s *navigation.State) navigation.State {
		s.HighlightedPromptIndex = got
		return *s
	})
	return nil
}

// UpdateFields overwrites the fields set in f.
func (a *Adapter) UpdateFields(ctx context.Context, f navigation.SetFields) error {
	if err := a.requireLeader(); err != nil {
		return err
	}
	st, err := a.api.UpdateState(ctx, a.weekID, a.socketID(), f)
	if err != nil {
		return a.failed(navigation.ActionUpdate, err)
	}
	a.update(navigation.ActionUpdate, func(*navigation.State) navigation.State { return st })
	return nil
}

func (a *Adapter) moveCursor(ctx context.Context, action navigation.Action, send func(socketID string) (navigation.Cursor, error)) error {
	if err := a.requireLeader(); err != nil {
		return err
	}
	c, err := send(a.socketID())
	if err != nil {
		return a.failed(action, err)
	}
	a.update(action, func(s *navigation.State) navigation.State {
		s.SectionIndex = c.SectionIndex
		s.ItemIndex = c.ItemIndex
		s.RevealedRefs = c.RevealedRefs
		s.HighlightedPromptIndex = c.HighlightedPromptIndex
		return *s
	})
	return nil
}

func (a *Adapter) requireLeader() error {
	if a.role != RoleLeader {
		return ErrNotLeader
	}
	return nil
}

func (a *Adapter) failed(action navigation.Action, err error) error {
	a.log.Warn("Presentation request failed", "action", action, "error", err)
	return err
}

// socketID is the current broadcast socket, so the server can skip echoing
// our own change back to us.
func (a *Adapter) socketID() string {
	return a.Connection().SocketID
}

func (a *Adapter) onFrame(f connection.Frame) {
	if f.Event != eventStateUpdated || f.Channel != a.Channel() {
		return
	}
	var payload struct {
		Action navigation.Action `json:"action"`
		State  navigation.State  `json:"state"`
	}
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		a.log.Warn("Malformed state update", "error", err)
		return
	}
	a.update(payload.Action, func(*navigation.State) navigation.State { return payload.State })
}

// update applies fn to a copy of the state under the lock, then notifies
// outside of it.
func (a *Adapter) update(action navigation.Action, fn func(*navigation.State) navigation.State) {
	a.mu.Lock()
	cur := a.state.Clone()
	next := fn(&cur).Clone()
	a.state = next
	a.mu.Unlock()
	if a.onChange != nil {
		a.onChange(next.Clone(), action)
	}
}
