// Package livefeed reconciles change-feed events for one open
// conversation into a local transcript: confirmed rows replace
// optimistic echoes, duplicate deliveries are dropped, and incoming
// counterpart messages trigger a debounced read-state sync.
package livefeed

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bazarmarket/bazar/auth"
	"github.com/bazarmarket/bazar/feed"
	"github.com/bazarmarket/bazar/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	defaultReadDebounce = 400 * time.Millisecond
	defaultCallTimeout  = 10 * time.Second
)

type Service interface {
	Message(ctx context.Context, in types.RetrieveMessage) (types.Message, error)
	CreateMessage(ctx context.Context, in types.CreateMessage) (types.Message, error)
	MarkConversationRead(ctx context.Context, in types.MarkConversationRead) error
}

type Subscription interface {
	Events() <-chan feed.Event
	Unsubscribe() error
}

// Entry is one transcript line. Pending marks an optimistic echo that
// the store has not confirmed yet.
type Entry struct {
	types.Message
	Pending bool
}

// SendError reports a failed send. Draft carries the text back so the
// viewer's input can be restored for a retry.
type SendError struct {
	Draft string
	Err   error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send message: %v", e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

type Config struct {
	Service        Service
	Subscription   Subscription
	ConversationID string
	Viewer         types.User
	BaseCtx        context.Context
	ReadDebounce   time.Duration
	CallTimeout    time.Duration
}

// Listener consumes one conversation's change feed on behalf of one
// viewer. It owns the transcript until Close.
type Listener struct {
	svc            Service
	sub            Subscription
	conversationID string
	viewer         types.User
	baseCtx        context.Context
	readDebounce   time.Duration
	callTimeout    time.Duration

	mu        sync.Mutex
	entries   []Entry
	seen      map[string]bool
	readTimer *time.Timer
	closed    bool

	done chan struct{}
	wg   sync.WaitGroup
	errs chan error
}

func New(cfg Config) *Listener {
	baseCtx := cfg.BaseCtx
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	l := &Listener{
		svc:            cfg.Service,
		sub:            cfg.Subscription,
		conversationID: cfg.ConversationID,
		viewer:         cfg.Viewer,
		baseCtx:        auth.ContextWithUser(baseCtx, cfg.Viewer),
		readDebounce:   cfg.ReadDebounce,
		callTimeout:    cfg.CallTimeout,
		seen:           map[string]bool{},
		done:           make(chan struct{}),
		errs:           make(chan error, 1),
	}

	if l.readDebounce <= 0 {
		l.readDebounce = defaultReadDebounce
	}
	if l.callTimeout <= 0 {
		l.callTimeout = defaultCallTimeout
	}

	l.wg.Go(l.loop)

	return l
}

// Errs surfaces asynchronous failures (event fetches, read syncs).
// Synchronous send failures come back from Send itself.
func (l *Listener) Errs() <-chan error {
	return l.errs
}

// Transcript returns a copy of the current entries, oldest first.
func (l *Listener) Transcript() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// Send renders an optimistic echo, then persists the message. On
// failure the echo is removed and the returned *SendError carries the
// draft for restoration. The confirmed row may arrive via the feed
// before or after CreateMessage returns; merge handles both orders.
func (l *Listener) Send(ctx context.Context, text string) error {
	placeholderID := "pending_" + gonanoid.Must(12)

	l.mu.Lock()
	l.entries = append(l.entries, Entry{
		Message: types.Message{
			ID:             placeholderID,
			ConversationID: l.conversationID,
			SenderID:       l.viewer.ID,
			MessageText:    text,
			CreatedAt:      time.Now(),
		},
		Pending: true,
	})
	l.mu.Unlock()

	in := types.CreateMessage{
		ConversationID: l.conversationID,
		MessageText:    text,
	}

	msg, err := l.svc.CreateMessage(auth.ContextWithUser(ctx, l.viewer), in)
	if err != nil {
		l.mu.Lock()
		l.entries = slices.DeleteFunc(l.entries, func(e Entry) bool {
			return e.ID == placeholderID
		})
		l.mu.Unlock()
		return &SendError{Draft: text, Err: err}
	}

	l.merge(msg)
	return nil
}

// Close releases the subscription and stops event processing. No events
// are reconciled and no read sync fires after it returns.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	if l.readTimer != nil {
		l.readTimer.Stop()
	}
	l.mu.Unlock()

	close(l.done)
	err := l.sub.Unsubscribe()
	l.wg.Wait()
	// errs stays open: a mark-read timer that already fired may still
	// report, and a send on a closed channel would panic.
	return err
}

func (l *Listener) loop() {
	for {
		select {
		case <-l.done:
			return
		case ev, ok := <-l.sub.Events():
			if !ok {
				return
			}

			switch ev.Op {
			case feed.OpInsert:
				l.handleInsert(ev)
			case feed.OpUpdate:
				l.handleUpdate(ev)
			}
		}
	}
}

func (l *Listener) handleInsert(ev feed.Event) {
	l.mu.Lock()
	dup := l.seen[ev.MessageID]
	l.mu.Unlock()
	if dup {
		return
	}

	ctx, cancel := context.WithTimeout(l.baseCtx, l.callTimeout)
	defer cancel()

	msg, err := l.svc.Message(ctx, types.RetrieveMessage{MessageID: ev.MessageID})
	if err != nil {
		l.report(fmt.Errorf("fetch inserted message %s: %w", ev.MessageID, err))
		return
	}

	l.merge(msg)

	if msg.SenderID != l.viewer.ID {
		l.scheduleMarkRead()
	}
}

// handleUpdate overwrites the read flag of the local row; nothing else
// is mutable via this path.
func (l *Listener) handleUpdate(ev feed.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].ID == ev.MessageID {
			l.entries[i].IsRead = ev.IsRead
			return
		}
	}
}

// merge folds a confirmed row into the transcript: pending echoes are
// dropped first, duplicate ids are skipped, and the row lands in
// creation-time order.
func (l *Listener) merge(msg types.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// The sender's pending echoes go first, even when the row itself
	// turns out to be a duplicate: the confirmed copy may already be on
	// screen while the placeholder is still waiting for its send call to
	// return. A counterpart's row must not touch the viewer's echoes.
	l.entries = slices.DeleteFunc(l.entries, func(e Entry) bool {
		return e.Pending && e.SenderID == msg.SenderID
	})

	if l.seen[msg.ID] {
		return
	}

	idx := len(l.entries)
	for i := range l.entries {
		if msg.CreatedAt.Before(l.entries[i].CreatedAt) {
			idx = i
			break
		}
	}

	l.entries = slices.Insert(l.entries, idx, Entry{Message: msg})
	l.seen[msg.ID] = true
}

// scheduleMarkRead (re)arms the debounce so a burst of incoming
// messages collapses into one read sync.
func (l *Listener) scheduleMarkRead() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	if l.readTimer != nil {
		l.readTimer.Stop()
	}

	l.readTimer = time.AfterFunc(l.readDebounce, l.markRead)
}

func (l *Listener) markRead() {
	select {
	case <-l.done:
		return
	default:
	}

	ctx, cancel := context.WithTimeout(l.baseCtx, l.callTimeout)
	defer cancel()

	in := types.MarkConversationRead{ConversationID: l.conversationID}
	if err := l.svc.MarkConversationRead(ctx, in); err != nil {
		l.report(fmt.Errorf("mark conversation read: %w", err))
	}
}

func (l *Listener) report(err error) {
	select {
	case l.errs <- err:
	default:
	}
}
