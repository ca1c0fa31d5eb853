package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/suPer8Hu/profile-assistant/internal/profile"
	"github.com/suPer8Hu/profile-assistant/internal/session"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Message{}, &Event{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type profileStub struct {
	rec *profile.Record
	err error
}

func (p profileStub) Get(context.Context, string) (*profile.Record, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.rec, nil
}

func testProfile() *profile.Record {
	return &profile.Record{
		Basics: profile.Basics{Name: "Sincher", Title: "Senior UX Designer"},
		Skills: []string{"UX Research", "Prototyping"},
	}
}

// flakyStore fails Insert for the given senders.
type flakyStore struct {
	*Repo
	failInsert map[Sender]bool
	failDelete bool
}

func (s *flakyStore) Insert(ctx context.Context, m *Message) (string, error) {
	if s.failInsert[m.Sender] {
		return "", errors.New("store unavailable")
	}
	return s.Repo.Insert(ctx, m)
}

func (s *flakyStore) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	if s.failDelete {
		return 0, errors.New("store unavailable")
	}
	return s.Repo.DeleteBySession(ctx, sessionID)
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) kinds() []EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventKind, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Kind)
	}
	return out
}

type frameLog struct {
	mu     sync.Mutex
	frames []Frame
}

func (l *frameLog) add(f Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = append(l.frames, f)
}

func (l *frameLog) snapshot() []Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Frame(nil), l.frames...)
}

func newLoaded(t *testing.T, store ConversationStore, prof ProfileStore, opts Options) *Controller {
	t.Helper()
	if opts.RevealInterval == 0 {
		opts.RevealInterval = time.Millisecond
	}
	c := NewController(session.Context{ID: "sess-1"}, prof, store, opts)
	c.Load(context.Background())
	t.Cleanup(c.Close)
	return c
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Snapshot().State == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("controller never reached state %q (now %q)", want, c.Snapshot().State)
}

func TestSend_PersistsAndReveals(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	sink := &recordingSink{}
	c := newLoaded(t, repo, profileStub{rec: testProfile()}, Options{Events: sink})

	c.SetInput("What are her skills?")
	var log frameLog
	msg, err := c.Submit(context.Background(), log.add)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if msg == nil || msg.ID == "" {
		t.Fatalf("expected stored assistant message, got %+v", msg)
	}
	want := "Sincher's skills include: UX Research, Prototyping"
	if msg.Text != want {
		t.Fatalf("unexpected reply %q", msg.Text)
	}

	stored, err := repo.ListBySession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(stored))
	}
	if stored[0].Sender != SenderUser || stored[0].Text != "What are her skills?" {
		t.Fatalf("unexpected user msg: %+v", stored[0])
	}
	if stored[1].Sender != SenderAssistant || stored[1].Text != want {
		t.Fatalf("assistant message must be stored in full: %+v", stored[1])
	}

	v := c.Snapshot()
	if v.State != StateReady || v.Busy {
		t.Fatalf("expected ready and idle, got state=%s busy=%v", v.State, v.Busy)
	}
	if v.Input != "" {
		t.Fatalf("input should be cleared after reveal, got %q", v.Input)
	}
	if len(v.History) != 2 || v.History[1].Text != want || v.History[1].ID != stored[1].ID {
		t.Fatalf("memory does not mirror store: %+v", v.History)
	}

	kinds := sink.kinds()
	if len(kinds) != 2 || kinds[0] != EventMessageCreated || kinds[1] != EventMessageCreated {
		t.Fatalf("unexpected events: %v", kinds)
	}
}

func TestSend_RevealIsMonotonicPrefixSequence(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	c := newLoaded(t, repo, profileStub{rec: testProfile()}, Options{})

	var log frameLog
	msg, err := c.Send(context.Background(), "他有什么技能？", log.add)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	frames := log.snapshot()
	if len(frames) < 2 || frames[0].Sender != SenderUser {
		t.Fatalf("expected user frame first, got %+v", frames)
	}
	reveal := frames[1:]
	prev := ""
	for i, f := range reveal {
		if f.MessageID != msg.ID {
			t.Fatalf("frame %d targets %s, want %s", i, f.MessageID, msg.ID)
		}
		if len(f.Text) <= len(prev) || !strings.HasPrefix(f.Text, prev) || !strings.HasPrefix(msg.Text, f.Text) {
			t.Fatalf("frame %d %q does not extend %q", i, f.Text, prev)
		}
		if f.Done != (i == len(reveal)-1) {
			t.Fatalf("frame %d done=%v", i, f.Done)
		}
		prev = f.Text
	}
	if prev != msg.Text {
		t.Fatalf("reveal ended at %q, want %q", prev, msg.Text)
	}
	if len(reveal) != len([]rune(msg.Text)) {
		t.Fatalf("expected one frame per character, got %d for %d", len(reveal), len([]rune(msg.Text)))
	}
}

func TestSend_BlankInputIsNoop(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	c := newLoaded(t, repo, profileStub{rec: testProfile()}, Options{})

	for _, in := range []string{"", "   ", "\n\t"} {
		msg, err := c.Send(context.Background(), in, nil)
		if msg != nil || err != nil {
			t.Fatalf("Send(%q) = %v, %v; want no-op", in, msg, err)
		}
	}
	stored, _ := repo.ListBySession(context.Background(), "sess-1")
	if len(stored) != 0 {
		t.Fatalf("blank input must not hit the store, got %d messages", len(stored))
	}
}

func TestSend_RejectedWhileRevealing(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	c := newLoaded(t, repo, profileStub{rec: testProfile()}, Options{RevealInterval: 2 * time.Millisecond})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := c.Send(context.Background(), "hello", nil); err != nil {
			t.Errorf("first send: %v", err)
		}
	}()
	waitForState(t, c, StateRevealing)

	msg, err := c.Send(context.Background(), "skills", nil)
	if msg != nil || err != nil {
		t.Fatalf("send while busy should be a no-op, got %v, %v", msg, err)
	}
	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("clear while busy: %v", err)
	}
	<-done

	stored, _ := repo.ListBySession(context.Background(), "sess-1")
	if len(stored) != 2 {
		t.Fatalf("expected only the first exchange stored, got %d", len(stored))
	}
}

func TestSend_ProfileMissingAnswersLoading(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	c := newLoaded(t, repo, profileStub{err: profile.ErrNotFound}, Options{})

	if c.Snapshot().ProfileLoaded {
		t.Fatalf("profile should be absent")
	}
	if c.Snapshot().State != StateReady {
		t.Fatalf("missing profile must not block ready")
	}
	msg, err := c.Send(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Text != "Loading profile data, please try again later..." {
		t.Fatalf("unexpected reply %q", msg.Text)
	}
}

func TestSend_UserWriteFailureMirrorsNothing(t *testing.T) {
	store := &flakyStore{Repo: NewRepo(openTestDB(t)), failInsert: map[Sender]bool{SenderUser: true}}
	c := newLoaded(t, store, profileStub{rec: testProfile()}, Options{})

	var log frameLog
	msg, err := c.Send(context.Background(), "skills", log.add)
	if err == nil || msg != nil {
		t.Fatalf("expected failure, got %v, %v", msg, err)
	}
	v := c.Snapshot()
	if len(v.History) != 0 || len(log.snapshot()) != 0 {
		t.Fatalf("nothing should be shown for a failed write: %+v", v.History)
	}
	if v.State != StateReady || v.Busy {
		t.Fatalf("expected ready after failure, got %s busy=%v", v.State, v.Busy)
	}
}

func TestSend_AssistantWriteFailureKeepsOnlyConfirmedMessages(t *testing.T) {
	store := &flakyStore{Repo: NewRepo(openTestDB(t)), failInsert: map[Sender]bool{SenderAssistant: true}}
	c := newLoaded(t, store, profileStub{rec: testProfile()}, Options{})
	c.SetInput("skills")

	if _, err := c.Submit(context.Background(), nil); err == nil {
		t.Fatalf("expected assistant write failure")
	}
	v := c.Snapshot()
	if len(v.History) != 1 || v.History[0].Sender != SenderUser {
		t.Fatalf("only the stored user message may be mirrored: %+v", v.History)
	}
	if v.Input != "skills" {
		t.Fatalf("input must survive a failed send, got %q", v.Input)
	}
	stored, _ := store.ListBySession(context.Background(), "sess-1")
	if len(stored) != 1 || stored[0].ID != v.History[0].ID {
		t.Fatalf("memory and store disagree: %+v vs %+v", stored, v.History)
	}
}

func TestClear_ThenReloadIsEmpty(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	sink := &recordingSink{}
	c := newLoaded(t, repo, profileStub{rec: testProfile()}, Options{Events: sink})

	for _, q := range []string{"hello", "skills"} {
		if _, err := c.Send(context.Background(), q, nil); err != nil {
			t.Fatalf("send %q: %v", q, err)
		}
	}
	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n := len(c.Snapshot().History); n != 0 {
		t.Fatalf("history should be empty, has %d", n)
	}

	reloaded := newLoaded(t, repo, profileStub{rec: testProfile()}, Options{})
	if n := len(reloaded.Snapshot().History); n != 0 {
		t.Fatalf("reloaded history should be empty, has %d", n)
	}
	kinds := sink.kinds()
	if kinds[len(kinds)-1] != EventSessionCleared {
		t.Fatalf("expected clear event last, got %v", kinds)
	}
}

func TestClear_DeleteFailureStillEmptiesMemory(t *testing.T) {
	store := &flakyStore{Repo: NewRepo(openTestDB(t))}
	c := newLoaded(t, store, profileStub{rec: testProfile()}, Options{})
	if _, err := c.Send(context.Background(), "hello", nil); err != nil {
		t.Fatalf("send: %v", err)
	}

	store.failDelete = true
	if err := c.Clear(context.Background()); err == nil {
		t.Fatalf("expected delete error to be reported")
	}
	if n := len(c.Snapshot().History); n != 0 {
		t.Fatalf("memory must be cleared unconditionally, has %d", n)
	}
}

func TestLoad_RestoresHistoryInOrder(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	base := time.Now().Add(-time.Hour)
	for i, text := range []string{"first", "second", "third"} {
		m := &Message{SessionID: "sess-1", Sender: SenderUser, Text: text, Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if _, err := repo.Insert(context.Background(), m); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	other := &Message{SessionID: "sess-2", Sender: SenderUser, Text: "elsewhere"}
	if _, err := repo.Insert(context.Background(), other); err != nil {
		t.Fatalf("seed other: %v", err)
	}

	c := newLoaded(t, repo, profileStub{rec: testProfile()}, Options{})
	h := c.Snapshot().History
	if len(h) != 3 || h[0].Text != "first" || h[2].Text != "third" {
		t.Fatalf("unexpected history: %+v", h)
	}
}

func TestClose_StopsRevealAndSnapsFullText(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	c := newLoaded(t, repo, profileStub{rec: testProfile()}, Options{RevealInterval: 5 * time.Millisecond})

	var log frameLog
	type result struct {
		msg *Message
		err error
	}
	res := make(chan result, 1)
	go func() {
		m, err := c.Send(context.Background(), "hello", log.add)
		res <- result{m, err}
	}()
	waitForState(t, c, StateRevealing)

	c.Close()
	after := len(log.snapshot())
	r := <-res
	if r.err != nil {
		t.Fatalf("send: %v", r.err)
	}
	if got := len(log.snapshot()); got != after {
		t.Fatalf("frames published after Close: %d -> %d", after, got)
	}
	v := c.Snapshot()
	if last := v.History[len(v.History)-1]; last.Text != r.msg.Text {
		t.Fatalf("in-memory text should snap to full reply, got %q", last.Text)
	}
	if v.Busy {
		t.Fatalf("closed controller should not stay busy")
	}
	if m, err := c.Send(context.Background(), "skills", nil); m != nil || !errors.Is(err, ErrClosed) {
		t.Fatalf("send after close should return ErrClosed, got %v %v", m, err)
	}
}

func TestSend_ContextCancelEndsReveal(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	c := newLoaded(t, repo, profileStub{rec: testProfile()}, Options{RevealInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	msg, err := c.Send(ctx, "hello", func(f Frame) {
		if f.Sender == SenderAssistant {
			once.Do(cancel)
		}
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	v := c.Snapshot()
	if v.State != StateReady || v.History[len(v.History)-1].Text != msg.Text {
		t.Fatalf("cancelled reveal should leave full text and ready state: %+v", v)
	}
	if v.Input != "" {
		t.Fatalf("input was never set, got %q", v.Input)
	}
}

func TestSend_BeforeLoadIsNoop(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	c := NewController(session.Context{ID: "sess-1"}, profileStub{rec: testProfile()}, repo, Options{})
	defer c.Close()
	if m, err := c.Send(context.Background(), "hello", nil); m != nil || err != nil {
		t.Fatalf("send before load should be a no-op")
	}
	if c.Snapshot().State != StateIdle {
		t.Fatalf("expected idle state")
	}
}
