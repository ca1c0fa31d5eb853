package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/rivo/uniseg"
	"github.com/suPer8Hu/profile-assistant/internal/common"
	"github.com/suPer8Hu/profile-assistant/internal/intent"
	"github.com/suPer8Hu/profile-assistant/internal/profile"
	"github.com/suPer8Hu/profile-assistant/internal/session"
)

type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateReady     State = "ready"
	StateSending   State = "sending"
	StateRevealing State = "revealing"
	StateClearing  State = "clearing"
)

const DefaultRevealInterval = 30 * time.Millisecond

// ErrClosed is returned by Send on a controller that has been torn down.
var ErrClosed = errors.New("chat: controller closed")

type ProfileStore interface {
	Get(ctx context.Context, key string) (*profile.Record, error)
}

type ConversationStore interface {
	ListBySession(ctx context.Context, sessionID string) ([]Message, error)
	Insert(ctx context.Context, m *Message) (string, error)
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}

type Options struct {
	RevealInterval time.Duration
	ProfileKey     string
	Events         EventSink
	Observer       Observer
}

func (o Options) withDefaults() Options {
	if o.RevealInterval <= 0 {
		o.RevealInterval = DefaultRevealInterval
	}
	if o.ProfileKey == "" {
		o.ProfileKey = profile.DefaultKey
	}
	if o.Events == nil {
		o.Events = nopSink{}
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	return o
}

// Frame is one step of a send as seen by the presentation layer: the stored
// user message once, then successive prefixes of the assistant reply.
type Frame struct {
	MessageID string `json:"id"`
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`
	Done      bool   `json:"done"`
}

// View is a copy of the controller state for rendering.
type View struct {
	SessionID     string    `json:"session_id"`
	State         State     `json:"state"`
	Busy          bool      `json:"busy"`
	ProfileLoaded bool      `json:"profile_loaded"`
	Input         string    `json:"input"`
	RevealingID   string    `json:"revealing_id,omitempty"`
	History       []Message `json:"history"`
}

// Controller owns the in-memory conversation of one session. The store holds
// the durable copy; every change is written to the store first and mirrored
// in memory only once the write succeeded.
type Controller struct {
	sess     session.Context
	profiles ProfileStore
	store    ConversationStore
	opts     Options

	mu          sync.Mutex
	state       State
	busy        bool
	profile     *profile.Record
	history     []Message
	input       string
	revealingID string
	lastActive  time.Time

	// pubMu serialises frame publication with Close.
	pubMu     sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

func NewController(sess session.Context, profiles ProfileStore, store ConversationStore, opts Options) *Controller {
	return &Controller{
		sess:       sess,
		profiles:   profiles,
		store:      store,
		opts:       opts.withDefaults(),
		state:      StateIdle,
		lastActive: time.Now(),
		closed:     make(chan struct{}),
	}
}

func (c *Controller) SessionID() string { return c.sess.ID }

// Load fetches the profile and the session history concurrently. Failures are
// logged: a missing profile leaves the controller answering "still loading",
// a failed history fetch leaves the history empty.
func (c *Controller) Load(ctx context.Context) {
	c.mu.Lock()
	if c.busy || c.isClosed() {
		c.mu.Unlock()
		return
	}
	c.busy = true
	c.state = StateLoading
	c.mu.Unlock()

	var (
		wg      sync.WaitGroup
		prof    *profile.Record
		history []Message
		histErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		p, err := c.profiles.Get(ctx, c.opts.ProfileKey)
		if err != nil {
			if errors.Is(err, profile.ErrNotFound) {
				log.Printf("[Load] profile %q not seeded session=%s", c.opts.ProfileKey, c.sess.ID)
			} else {
				log.Printf("[Load] profile fetch failed session=%s err=%v", c.sess.ID, err)
			}
			return
		}
		prof = p
	}()
	go func() {
		defer wg.Done()
		history, histErr = c.store.ListBySession(ctx, c.sess.ID)
		if histErr != nil {
			log.Printf("[Load] history fetch failed session=%s err=%v", c.sess.ID, histErr)
		}
	}()
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if prof != nil {
		c.profile = prof
	}
	if histErr == nil {
		c.history = history
	}
	c.busy = false
	c.state = StateReady
	c.lastActive = time.Now()
}

func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
	c.lastActive = time.Now()
}

// Submit sends the current input draft.
func (c *Controller) Submit(ctx context.Context, onFrame func(Frame)) (*Message, error) {
	c.mu.Lock()
	text := c.input
	c.mu.Unlock()
	return c.Send(ctx, text, onFrame)
}

// Send stores text as a user message, answers it and reveals the answer one
// grapheme per tick through onFrame. It returns the stored assistant message.
//
// Blank text or a send while another action is in flight are no-ops and
// return (nil, nil). A closed controller returns ErrClosed so the caller can
// retry on a fresh one. A failed store write is logged and returned; nothing
// is mirrored for the failed write.
func (c *Controller) Send(ctx context.Context, text string, onFrame func(Frame)) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	c.mu.Lock()
	if c.isClosed() {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.busy || c.state == StateIdle {
		c.mu.Unlock()
		return nil, nil
	}
	c.busy = true
	c.state = StateSending
	c.lastActive = time.Now()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.state = StateReady
		c.revealingID = ""
		c.lastActive = time.Now()
		c.mu.Unlock()
	}()

	userMsg := &Message{
		SessionID: c.sess.ID,
		Sender:    SenderUser,
		Text:      text,
		Timestamp: time.Now(),
	}
	if _, err := c.store.Insert(ctx, userMsg); err != nil {
		log.Printf("[Send] store user message failed session=%s err=%v", c.sess.ID, err)
		return nil, fmt.Errorf("store user message: %w", err)
	}
	c.mirror(*userMsg)
	c.opts.Observer.MessageStored(SenderUser)
	c.emit(ctx, Event{Kind: EventMessageCreated, SessionID: c.sess.ID, MessageID: &userMsg.ID, Sender: SenderUser})
	c.publish(onFrame, Frame{MessageID: userMsg.ID, Sender: SenderUser, Text: userMsg.Text, Done: true})

	reply := intent.Respond(c.ensureProfile(ctx), text)
	c.opts.Observer.IntentMatched(reply.Topic, reply.Language)

	assistantMsg := &Message{
		SessionID: c.sess.ID,
		Sender:    SenderAssistant,
		Text:      reply.Text,
		Timestamp: time.Now(),
	}
	if _, err := c.store.Insert(ctx, assistantMsg); err != nil {
		log.Printf("[Send] store assistant message failed session=%s err=%v", c.sess.ID, err)
		return nil, fmt.Errorf("store assistant message: %w", err)
	}
	c.opts.Observer.MessageStored(SenderAssistant)
	c.emit(ctx, Event{
		Kind:      EventMessageCreated,
		SessionID: c.sess.ID,
		MessageID: &assistantMsg.ID,
		Sender:    SenderAssistant,
		Topic:     string(reply.Topic),
		Language:  string(reply.Language),
	})

	shown := *assistantMsg
	shown.Text = ""
	c.mu.Lock()
	c.history = append(c.history, shown)
	c.revealingID = assistantMsg.ID
	c.state = StateRevealing
	c.mu.Unlock()

	start := time.Now()
	completed := c.reveal(ctx, assistantMsg.ID, reply.Text, onFrame)
	c.opts.Observer.RevealFinished(time.Since(start), completed)

	if completed {
		c.mu.Lock()
		c.input = ""
		c.mu.Unlock()
	}
	return assistantMsg, nil
}

// reveal grows the displayed text of message id from empty to full, one
// grapheme cluster per tick. It stops early when ctx is done or the controller
// is closed; the in-memory copy then snaps to the full text, which is what the
// store already holds. It reports whether the reveal ran to the end.
func (c *Controller) reveal(ctx context.Context, id, full string, onFrame func(Frame)) bool {
	units := graphemes(full)
	if len(units) == 0 {
		return c.publish(onFrame, Frame{MessageID: id, Sender: SenderAssistant, Done: true})
	}

	ticker := time.NewTicker(c.opts.RevealInterval)
	defer ticker.Stop()

	var b strings.Builder
	for i, u := range units {
		b.WriteString(u)
		prefix := b.String()
		last := i == len(units)-1

		c.setText(id, prefix)
		if !c.publish(onFrame, Frame{MessageID: id, Sender: SenderAssistant, Text: prefix, Done: last}) {
			c.setText(id, full)
			return false
		}
		if last {
			break
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			c.setText(id, full)
			return false
		case <-c.closed:
			c.setText(id, full)
			return false
		}
	}
	return true
}

func graphemes(s string) []string {
	var out []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}

// publish hands f to onFrame unless the controller has been closed.
func (c *Controller) publish(onFrame func(Frame), f Frame) bool {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if c.isClosed() {
		return false
	}
	if onFrame != nil {
		onFrame(f)
	}
	return true
}

func (c *Controller) mirror(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, m)
}

func (c *Controller) setText(id, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.history) - 1; i >= 0; i-- {
		if c.history[i].ID == id {
			c.history[i].Text = text
			return
		}
	}
}

// Clear deletes the session's messages from the store and empties the
// in-memory history, even when the delete failed part way. It is a no-op while
// busy or when there is nothing to clear.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	if c.busy || c.isClosed() || len(c.history) == 0 {
		c.mu.Unlock()
		return nil
	}
	c.busy = true
	c.state = StateClearing
	c.mu.Unlock()

	deleted, err := c.store.DeleteBySession(ctx, c.sess.ID)
	if err != nil {
		log.Printf("[Clear] delete failed session=%s deleted=%d err=%v", c.sess.ID, deleted, err)
	}

	c.mu.Lock()
	c.history = nil
	c.busy = false
	c.state = StateReady
	c.lastActive = time.Now()
	c.mu.Unlock()

	c.opts.Observer.HistoryCleared(deleted)
	c.emit(ctx, Event{Kind: EventSessionCleared, SessionID: c.sess.ID, Deleted: deleted})
	if err != nil {
		return fmt.Errorf("clear session %s: %w", c.sess.ID, err)
	}
	return nil
}

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		SessionID:     c.sess.ID,
		State:         c.state,
		Busy:          c.busy,
		ProfileLoaded: c.profile != nil,
		Input:         c.input,
		RevealingID:   c.revealingID,
		History:       append([]Message(nil), c.history...),
	}
}

// Profile returns the loaded profile, nil when absent.
func (c *Controller) Profile() *profile.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// ensureProfile returns the loaded profile, fetching it again when an earlier
// fetch failed. nil means the profile is still unavailable.
func (c *Controller) ensureProfile(ctx context.Context) *profile.Record {
	c.mu.Lock()
	prof := c.profile
	c.mu.Unlock()
	if prof != nil {
		return prof
	}

	p, err := c.profiles.Get(ctx, c.opts.ProfileKey)
	if err != nil || p == nil {
		log.Printf("[ensureProfile] profile still unavailable session=%s err=%v", c.sess.ID, err)
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profile == nil {
		c.profile = p
	}
	return c.profile
}

func (c *Controller) touch() {
	c.mu.Lock()
	c.lastActive = time.Now()
	c.mu.Unlock()
}

func (c *Controller) idleSince() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive, c.busy
}

// Close tears the controller down. An in-flight reveal stops and no frame is
// published once Close has returned.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
	c.pubMu.Lock()
	c.pubMu.Unlock()
}

func (c *Controller) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Controller) emit(ctx context.Context, e Event) {
	id, err := common.NewULID()
	if err != nil {
		log.Printf("[emit] event id failed session=%s err=%v", c.sess.ID, err)
		return
	}
	e.ID = id
	e.OccurredAt = time.Now()
	if err := c.opts.Events.Publish(ctx, e); err != nil {
		log.Printf("[emit] publish failed session=%s kind=%s err=%v", c.sess.ID, e.Kind, err)
	}
}
