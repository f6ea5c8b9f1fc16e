package session

import (
	"context"

	"github.com/google/uuid"
)

// Lane groups flows that supersede each other. Acquiring a token for a lane
// cancels the lane's previous token.
type Lane int

const (
	LaneUpload Lane = iota
	LaneConvert
	LaneSummary
	LaneSummaryAudio
	LaneDownload
)

func (l Lane) String() string {
	return [...]string{"upload", "convert", "summary", "summary_audio", "download"}[l]
}

// Token is the cancellation handle of one flow. Its context is done when the
// flow is superseded, the session is replaced, or the caller's context ends.
type Token struct {
	ID   string
	Lane Lane

	ctx    context.Context
	cancel context.CancelFunc
	stop   func() bool
}

// Context returns the flow's context
func (t *Token) Context() context.Context {
	return t.ctx
}

// Cancelled reports whether the token can no longer mutate state
func (t *Token) Cancelled() bool {
	return t.ctx.Err() != nil
}

func (t *Token) release() {
	if t.stop != nil {
		t.stop()
	}
	t.cancel()
}

// Registry owns the session token and one token per lane. It is not safe
// for concurrent use.
type Registry struct {
	base    context.Context
	session *Token
	lanes   map[Lane]*Token
}

// NewRegistry creates a registry whose tokens all derive from base
func NewRegistry(base context.Context) *Registry {
	r := &Registry{base: base, lanes: make(map[Lane]*Token)}
	r.NewSession()
	return r
}

// NewSession cancels every outstanding token and starts a new session scope
func (r *Registry) NewSession() {
	r.CancelAll()
	ctx, cancel := context.WithCancel(r.base)
	r.session = &Token{ID: uuid.NewString(), ctx: ctx, cancel: cancel}
}

// CancelAll cancels the session token and all lane tokens
func (r *Registry) CancelAll() {
	for lane, t := range r.lanes {
		t.release()
		delete(r.lanes, lane)
	}
	if r.session != nil {
		r.session.release()
	}
}

// Acquire returns a fresh token for lane, cancelling the lane's previous
// token. The token ends with parent or with the current session.
func (r *Registry) Acquire(parent context.Context, lane Lane) *Token {
	if old, ok := r.lanes[lane]; ok {
		old.release()
	}

	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(r.session.ctx, cancel)
	t := &Token{
		ID:     uuid.NewString(),
		Lane:   lane,
		ctx:    ctx,
		cancel: cancel,
		stop:   stop,
	}
	r.lanes[lane] = t
	return t
}

// Current reports whether t is still the live token of its lane
func (r *Registry) Current(t *Token) bool {
	return t != nil && r.lanes[t.Lane] == t && !t.Cancelled()
}

// Release ends t. It is a no-op for tokens that were already superseded.
func (r *Registry) Release(t *Token) {
	if r.lanes[t.Lane] == t {
		delete(r.lanes, t.Lane)
	}
	t.release()
}

// Active returns the lanes that have a live token
func (r *Registry) Active() []Lane {
	var lanes []Lane
	for lane, t := range r.lanes {
		if !t.Cancelled() {
			lanes = append(lanes, lane)
		}
	}
	return lanes
}

// Holds reports whether t is still registered for its lane, even if its
// context already ended. Callers use it to unwind state for a flow whose own
// caller gave up, as opposed to one that was superseded.
func (r *Registry) Holds(t *Token) bool {
	return t != nil && r.lanes[t.Lane] == t
}
