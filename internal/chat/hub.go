package chat

import (
	"context"
	"sync"
	"time"

	"github.com/suPer8Hu/profile-assistant/internal/session"
)

const defaultLoadTimeout = 10 * time.Second

// Hub keeps one Controller per session. Sessions never share state.
type Hub struct {
	profiles    ProfileStore
	store       ConversationStore
	opts        Options
	idleTimeout time.Duration

	mu          sync.Mutex
	controllers map[string]*hubEntry
	closed      bool
}

type hubEntry struct {
	c      *Controller
	loaded chan struct{}
}

func NewHub(profiles ProfileStore, store ConversationStore, opts Options, idleTimeout time.Duration) *Hub {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Hub{
		profiles:    profiles,
		store:       store,
		opts:        opts.withDefaults(),
		idleTimeout: idleTimeout,
		controllers: make(map[string]*hubEntry),
	}
}

// Controller returns the loaded controller for sessionID, creating and loading
// it on first use. Concurrent callers for a new session wait for the one load.
func (h *Hub) Controller(ctx context.Context, sessionID string) (*Controller, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	e, ok := h.controllers[sessionID]
	if !ok {
		e = &hubEntry{
			c:      NewController(session.Context{ID: sessionID}, h.profiles, h.store, h.opts),
			loaded: make(chan struct{}),
		}
		h.controllers[sessionID] = e
		n := len(h.controllers)
		h.mu.Unlock()
		h.opts.Observer.ControllersLive(n)

		// the load outlives the request that triggered it
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultLoadTimeout)
		e.c.Load(lctx)
		cancel()
		close(e.loaded)
		return e.c, nil
	}
	select {
	case <-e.loaded:
		// mark it active before the janitor can see it idle
		e.c.touch()
	default:
	}
	h.mu.Unlock()

	select {
	case <-e.loaded:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	e.c.touch()
	// a reload retries a profile fetch that failed earlier
	e.c.ensureProfile(ctx)
	return e.c, nil
}

// Detached returns a loaded controller that the hub does not keep. The caller
// closes it. Used for session ids that could not be remembered.
func (h *Hub) Detached(ctx context.Context, sessionID string) *Controller {
	c := NewController(session.Context{ID: sessionID}, h.profiles, h.store, h.opts)
	c.Load(ctx)
	return c
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.controllers)
}

// StartJanitor closes and forgets controllers idle for longer than the idle
// timeout. Busy controllers are left alone.
func (h *Hub) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.evictIdle()
			}
		}
	}()
}

func (h *Hub) evictIdle() {
	now := time.Now()
	var evicted []*Controller

	h.mu.Lock()
	for id, e := range h.controllers {
		select {
		case <-e.loaded:
		default:
			continue
		}
		last, busy := e.c.idleSince()
		if busy || now.Sub(last) < h.idleTimeout {
			continue
		}
		delete(h.controllers, id)
		evicted = append(evicted, e.c)
	}
	n := len(h.controllers)
	h.mu.Unlock()

	for _, c := range evicted {
		c.Close()
	}
	if len(evicted) > 0 {
		h.opts.Observer.ControllersLive(n)
	}
}

// Close tears down every controller. Later Controller calls fail with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	entries := h.controllers
	h.controllers = make(map[string]*hubEntry)
	h.mu.Unlock()

	for _, e := range entries {
		e.c.Close()
	}
	h.opts.Observer.ControllersLive(0)
}
