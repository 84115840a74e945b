package livefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bazarmarket/bazar/feed"
	"github.com/bazarmarket/bazar/types"
)

type fakeService struct {
	mu sync.Mutex

	messages   map[string]types.Message
	createErr  error
	createGate chan struct{}

	created   []types.CreateMessage
	markReads []types.MarkConversationRead
}

func newFakeService() *fakeService {
	return &fakeService{messages: map[string]types.Message{}}
}

func (s *fakeService) put(msg types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ID] = msg
}

func (s *fakeService) Message(_ context.Context, in types.RetrieveMessage) (types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[in.MessageID]
	if !ok {
		return msg, errors.New("message not found")
	}
	return msg, nil
}

func (s *fakeService) CreateMessage(_ context.Context, in types.CreateMessage) (types.Message, error) {
	if s.createGate != nil {
		<-s.createGate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return types.Message{}, s.createErr
	}

	s.created = append(s.created, in)
	msg := types.Message{
		ID:             "srv_" + in.MessageText,
		ConversationID: in.ConversationID,
		SenderID:       "viewer",
		MessageText:    in.MessageText,
		CreatedAt:      time.Now(),
	}
	s.messages[msg.ID] = msg
	return msg, nil
}

func (s *fakeService) MarkConversationRead(_ context.Context, in types.MarkConversationRead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markReads = append(s.markReads, in)
	return nil
}

func (s *fakeService) markReadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markReads)
}

type fakeSubscription struct {
	ch           chan feed.Event
	unsubscribed bool
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{ch: make(chan feed.Event, 16)}
}

func (s *fakeSubscription) Events() <-chan feed.Event { return s.ch }

func (s *fakeSubscription) Unsubscribe() error {
	s.unsubscribed = true
	return nil
}

func newTestListener(t *testing.T, svc *fakeService, sub *fakeSubscription) *Listener {
	t.Helper()

	l := New(Config{
		Service:        svc,
		Subscription:   sub,
		ConversationID: "conv1",
		Viewer:         types.User{ID: "viewer", Username: "viewer"},
		ReadDebounce:   20 * time.Millisecond,
	})
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestListener_InsertEvent(t *testing.T) {
	svc := newFakeService()
	sub := newFakeSubscription()
	l := newTestListener(t, svc, sub)

	svc.put(types.Message{ID: "m1", ConversationID: "conv1", SenderID: "other", MessageText: "hey", CreatedAt: time.Now()})
	sub.ch <- feed.Event{Op: feed.OpInsert, MessageID: "m1"}

	waitFor(t, func() bool { return len(l.Transcript()) == 1 })

	got := l.Transcript()[0]
	if got.ID != "m1" || got.Pending {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestListener_DuplicateInsertKeepsOneEntry(t *testing.T) {
	svc := newFakeService()
	sub := newFakeSubscription()
	l := newTestListener(t, svc, sub)

	svc.put(types.Message{ID: "m1", ConversationID: "conv1", SenderID: "other", MessageText: "hey", CreatedAt: time.Now()})
	sub.ch <- feed.Event{Op: feed.OpInsert, MessageID: "m1"}
	sub.ch <- feed.Event{Op: feed.OpInsert, MessageID: "m1"}
	sub.ch <- feed.Event{Op: feed.OpInsert, MessageID: "m1"}

	waitFor(t, func() bool { return len(l.Transcript()) >= 1 })
	time.Sleep(50 * time.Millisecond)

	if got := len(l.Transcript()); got != 1 {
		t.Fatalf("want exactly 1 entry, got %d", got)
	}
}

func TestListener_SendReplacesPendingEcho(t *testing.T) {
	svc := newFakeService()
	sub := newFakeSubscription()
	l := newTestListener(t, svc, sub)

	if err := l.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Confirmed synchronously; the pending placeholder must be gone.
	entries := l.Transcript()
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d: %+v", len(entries), entries)
	}
	if entries[0].Pending || entries[0].ID != "srv_hello" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}

	// The feed echoes the same insert; still one entry.
	sub.ch <- feed.Event{Op: feed.OpInsert, MessageID: "srv_hello"}
	time.Sleep(50 * time.Millisecond)

	if got := len(l.Transcript()); got != 1 {
		t.Fatalf("want 1 entry after echo, got %d", got)
	}
}

func TestListener_FeedEchoBeforeSendReturns(t *testing.T) {
	svc := newFakeService()
	sub := newFakeSubscription()
	l := newTestListener(t, svc, sub)

	// The confirmed row arrives via the feed as if it beat the send
	// call's return: merge must not double-insert afterwards.
	msg := types.Message{ID: "srv_hello", ConversationID: "conv1", SenderID: "viewer", MessageText: "hello", CreatedAt: time.Now()}
	svc.put(msg)
	sub.ch <- feed.Event{Op: feed.OpInsert, MessageID: "srv_hello"}
	waitFor(t, func() bool { return len(l.Transcript()) == 1 })

	if err := l.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	entries := l.Transcript()
	if len(entries) != 1 || entries[0].Pending {
		t.Fatalf("want 1 confirmed entry, got %+v", entries)
	}
}

func TestListener_CounterpartInsertKeepsPendingEcho(t *testing.T) {
	svc := newFakeService()
	svc.createGate = make(chan struct{})
	sub := newFakeSubscription()
	l := newTestListener(t, svc, sub)

	sendDone := make(chan error, 1)
	go func() { sendDone <- l.Send(context.Background(), "hello") }()
	waitFor(t, func() bool { return len(l.Transcript()) == 1 })

	// The counterpart's message lands while the send is still in flight;
	// the pending echo must survive it.
	svc.put(types.Message{ID: "m1", ConversationID: "conv1", SenderID: "other", MessageText: "hey", CreatedAt: time.Now()})
	sub.ch <- feed.Event{Op: feed.OpInsert, MessageID: "m1"}
	waitFor(t, func() bool { return len(l.Transcript()) == 2 })

	var pending int
	for _, e := range l.Transcript() {
		if e.Pending {
			pending++
		}
	}
	if pending != 1 {
		t.Fatalf("want the pending echo intact, got %d pending entries", pending)
	}

	close(svc.createGate)
	if err := <-sendDone; err != nil {
		t.Fatalf("send: %v", err)
	}

	entries := l.Transcript()
	if len(entries) != 2 {
		t.Fatalf("want 2 entries after confirmation, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Pending {
			t.Fatalf("placeholder left behind: %+v", e)
		}
	}
}

func TestListener_FailedSendRestoresDraft(t *testing.T) {
	svc := newFakeService()
	svc.createErr = errors.New("store down")
	sub := newFakeSubscription()
	l := newTestListener(t, svc, sub)

	err := l.Send(context.Background(), "my draft")
	if err == nil {
		t.Fatal("want error")
	}

	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("want *SendError, got %T", err)
	}
	if sendErr.Draft != "my draft" {
		t.Fatalf("want draft restored, got %q", sendErr.Draft)
	}

	if got := len(l.Transcript()); got != 0 {
		t.Fatalf("placeholder should be removed, transcript has %d entries", got)
	}
}

func TestListener_UpdateEventFlipsReadFlagOnly(t *testing.T) {
	svc := newFakeService()
	sub := newFakeSubscription()
	l := newTestListener(t, svc, sub)

	svc.put(types.Message{ID: "m1", ConversationID: "conv1", SenderID: "viewer", MessageText: "hey", CreatedAt: time.Now()})
	sub.ch <- feed.Event{Op: feed.OpInsert, MessageID: "m1"}
	waitFor(t, func() bool { return len(l.Transcript()) == 1 })

	sub.ch <- feed.Event{Op: feed.OpUpdate, MessageID: "m1", IsRead: true}
	waitFor(t, func() bool { return l.Transcript()[0].IsRead })

	got := l.Transcript()[0]
	if got.MessageText != "hey" || got.SenderID != "viewer" {
		t.Fatalf("update mutated more than the read flag: %+v", got)
	}
}

func TestListener_CounterpartInsertTriggersOneMarkRead(t *testing.T) {
	svc := newFakeService()
	sub := newFakeSubscription()
	l := newTestListener(t, svc, sub)

	for i, id := range []string{"m1", "m2", "m3"} {
		svc.put(types.Message{ID: id, ConversationID: "conv1", SenderID: "other", MessageText: "hey", CreatedAt: time.Now().Add(time.Duration(i) * time.Millisecond)})
		sub.ch <- feed.Event{Op: feed.OpInsert, MessageID: id}
	}

	waitFor(t, func() bool { return len(l.Transcript()) == 3 })
	waitFor(t, func() bool { return svc.markReadCount() >= 1 })
	time.Sleep(60 * time.Millisecond)

	// The burst must collapse into a single debounced sync.
	if got := svc.markReadCount(); got != 1 {
		t.Fatalf("want 1 mark-read call, got %d", got)
	}
}

func TestListener_OwnMessageDoesNotMarkRead(t *testing.T) {
	svc := newFakeService()
	sub := newFakeSubscription()
	l := newTestListener(t, svc, sub)

	svc.put(types.Message{ID: "m1", ConversationID: "conv1", SenderID: "viewer", MessageText: "hey", CreatedAt: time.Now()})
	sub.ch <- feed.Event{Op: feed.OpInsert, MessageID: "m1"}
	waitFor(t, func() bool { return len(l.Transcript()) == 1 })

	time.Sleep(60 * time.Millisecond)
	if got := svc.markReadCount(); got != 0 {
		t.Fatalf("own messages must not trigger a read sync, got %d calls", got)
	}
}

func TestListener_OrderedByCreationTime(t *testing.T) {
	svc := newFakeService()
	sub := newFakeSubscription()
	l := newTestListener(t, svc, sub)

	base := time.Now()
	svc.put(types.Message{ID: "m2", ConversationID: "conv1", SenderID: "other", MessageText: "second", CreatedAt: base.Add(2 * time.Second)})
	svc.put(types.Message{ID: "m1", ConversationID: "conv1", SenderID: "other", MessageText: "first", CreatedAt: base.Add(1 * time.Second)})

	// Delivered newest first; the transcript must still sort oldest first.
	sub.ch <- feed.Event{Op: feed.OpInsert, MessageID: "m2"}
	sub.ch <- feed.Event{Op: feed.OpInsert, MessageID: "m1"}

	waitFor(t, func() bool { return len(l.Transcript()) == 2 })

	entries := l.Transcript()
	if entries[0].ID != "m1" || entries[1].ID != "m2" {
		t.Fatalf("out of order: %+v", entries)
	}
}

func TestListener_CloseStopsEventProcessing(t *testing.T) {
	svc := newFakeService()
	sub := newFakeSubscription()

	l := New(Config{
		Service:        svc,
		Subscription:   sub,
		ConversationID: "conv1",
		Viewer:         types.User{ID: "viewer"},
		ReadDebounce:   20 * time.Millisecond,
	})

	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !sub.unsubscribed {
		t.Fatal("subscription was not released")
	}

	svc.put(types.Message{ID: "m1", ConversationID: "conv1", SenderID: "other", MessageText: "late", CreatedAt: time.Now()})
	sub.ch <- feed.Event{Op: feed.OpInsert, MessageID: "m1"}
	time.Sleep(50 * time.Millisecond)

	if got := len(l.Transcript()); got != 0 {
		t.Fatalf("events processed after teardown: %d entries", got)
	}
	if got := svc.markReadCount(); got != 0 {
		t.Fatalf("read sync fired after teardown: %d calls", got)
	}
}
