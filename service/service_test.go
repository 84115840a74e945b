package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bazarmarket/bazar/auth"
	"github.com/bazarmarket/bazar/errs"
	"github.com/bazarmarket/bazar/id"
	"github.com/bazarmarket/bazar/types"
	"github.com/bazarmarket/bazar/validator"
)

// newTestService builds a service with no store or feed wired. Good
// enough for exercising the auth and validation guards, which return
// before either is touched.
func newTestService(t *testing.T) *Service {
	t.Helper()

	svc := New(&Config{
		BaseCtx:           context.Background(),
		BackgroundTimeout: time.Second,
	})
	t.Cleanup(func() { _ = svc.Close() })

	return svc
}

func TestUnauthenticated(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tt := []struct {
		name string
		call func() error
	}{
		{"ResolveConversation", func() error {
			_, err := svc.ResolveConversation(ctx, types.ResolveConversation{OtherUserID: id.Generate()})
			return err
		}},
		{"Conversation", func() error {
			_, err := svc.Conversation(ctx, types.RetrieveConversation{ConversationID: id.Generate()})
			return err
		}},
		{"Conversations", func() error {
			_, err := svc.Conversations(ctx, types.ListConversations{})
			return err
		}},
		{"SetConversationPinned", func() error {
			return svc.SetConversationPinned(ctx, types.SetConversationPinned{ConversationID: id.Generate()})
		}},
		{"CreateMessage", func() error {
			_, err := svc.CreateMessage(ctx, types.CreateMessage{ConversationID: id.Generate(), MessageText: "hey"})
			return err
		}},
		{"Message", func() error {
			_, err := svc.Message(ctx, types.RetrieveMessage{MessageID: id.Generate()})
			return err
		}},
		{"Messages", func() error {
			_, err := svc.Messages(ctx, types.ListMessages{ConversationID: id.Generate()})
			return err
		}},
		{"MarkConversationRead", func() error {
			return svc.MarkConversationRead(ctx, types.MarkConversationRead{ConversationID: id.Generate()})
		}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); !errors.Is(err, errs.Unauthenticated) {
				t.Fatalf("got %v, want %v", err, errs.Unauthenticated)
			}
		})
	}
}

func TestInvalidInput(t *testing.T) {
	svc := newTestService(t)
	ctx := auth.ContextWithUser(context.Background(), types.User{ID: id.Generate(), Username: "maria"})

	tt := []struct {
		name string
		call func() error
	}{
		{"ResolveConversation", func() error {
			_, err := svc.ResolveConversation(ctx, types.ResolveConversation{OtherUserID: "nope"})
			return err
		}},
		{"CreateMessage", func() error {
			_, err := svc.CreateMessage(ctx, types.CreateMessage{ConversationID: id.Generate(), MessageText: "  "})
			return err
		}},
		{"Messages", func() error {
			_, err := svc.Messages(ctx, types.ListMessages{ConversationID: ""})
			return err
		}},
		{"MarkConversationRead", func() error {
			return svc.MarkConversationRead(ctx, types.MarkConversationRead{ConversationID: "nope"})
		}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			var v *validator.Validator
			if !errors.As(err, &v) {
				t.Fatalf("got %v, want validator error", err)
			}
		})
	}
}

func TestResolveConversationWithSelf(t *testing.T) {
	svc := newTestService(t)

	user := types.User{ID: id.Generate(), Username: "maria"}
	ctx := auth.ContextWithUser(context.Background(), user)

	_, err := svc.ResolveConversation(ctx, types.ResolveConversation{OtherUserID: user.ID})
	var v *validator.Validator
	if !errors.As(err, &v) {
		t.Fatalf("got %v, want validator error", err)
	}
}
