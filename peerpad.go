// Package peerpad is a collaborative-document synchronization core: many
// participants edit a shared text and converge without a central arbiter of
// ordering. The package tracks causality with per-participant version
// vectors, gates remote operations on their causal prerequisites and fans
// out change events to subscribers. Transport, persistence scheduling and
// rendering are the host's business; this core only produces operations for
// the transport to carry and snapshots for the persistence layer to keep.
package peerpad

import (
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/peerpad/peerpad/utils"
)

type Options struct {
	Logger utils.Logger

	// MaxPending ops held per session waiting for missing causal history.
	// Zero keeps the strict behavior: inadmissible remote ops are dropped.
	MaxPending int

	// DedupeWindow is how many recently applied op ids are remembered to
	// suppress transport redelivery.
	DedupeWindow int
}

func (o *Options) SetDefaults() {
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
	if o.DedupeWindow <= 0 {
		o.DedupeWindow = 8192
	}
}

// Engine is an explicit store of live sessions. It is not a singleton:
// whoever composes the core owns an instance, which keeps independent
// engines (and tests) isolated.
type Engine struct {
	log  utils.Logger
	opts Options

	sessions *xsync.MapOf[string, *liveSession]
	subs     *xsync.MapOf[string, *subscriberSet]
	seen     *lru.Cache[string, struct{}]

	hlock sync.Mutex
	hoses map[string]toyqueue.DrainCloser
}

func New(opts Options) *Engine {
	opts.SetDefaults()
	seen, _ := lru.New[string, struct{}](opts.DedupeWindow)
	return &Engine{
		log:      opts.Logger,
		opts:     opts,
		sessions: xsync.NewMapOf[string, *liveSession](),
		subs:     xsync.NewMapOf[string, *subscriberSet](),
		seen:     seen,
		hoses:    make(map[string]toyqueue.DrainCloser),
	}
}

// Close tears down every session and detaches all feeds.
func (e *Engine) Close() error {
	e.sessions.Range(func(id string, _ *liveSession) bool {
		e.CloseSession(id)
		return true
	})
	e.hlock.Lock()
	for name, hose := range e.hoses {
		_ = hose.Close()
		delete(e.hoses, name)
	}
	e.hlock.Unlock()
	return nil
}

// Session returns a copy of the session record.
func (e *Engine) Session(sessionID string) (Session, bool) {
	ls, ok := e.sessions.Load(sessionID)
	if !ok {
		return Session{}, false
	}
	return ls.snapshot(), true
}

// Content returns the session document's current text.
func (e *Engine) Content(sessionID string) (string, bool) {
	ls, ok := e.sessions.Load(sessionID)
	if !ok {
		return "", false
	}
	return ls.doc.Content(), true
}

// Document returns the live document for direct inspection (version, clock,
// log, digest). Mutation still only happens through applies.
func (e *Engine) Document(sessionID string) (*Document, bool) {
	ls, ok := e.sessions.Load(sessionID)
	if !ok {
		return nil, false
	}
	return ls.doc, true
}

// Sessions lists the ids of all live sessions.
func (e *Engine) Sessions() []string {
	ids := make([]string, 0, e.sessions.Size())
	e.sessions.Range(func(id string, _ *liveSession) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}
