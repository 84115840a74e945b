package service

import (
	"context"

	"github.com/bazarmarket/bazar/auth"
	"github.com/bazarmarket/bazar/errs"
	"github.com/bazarmarket/bazar/types"
)

// MarkConversationRead flips every unread message addressed to the
// caller in one atomic server-side call, so rapid repeated focus events
// cannot interleave a client-side select-then-update loop. Calling it
// with nothing unread is a no-op success.
func (svc *Service) MarkConversationRead(ctx context.Context, in types.MarkConversationRead) error {
	if err := in.Validate(); err != nil {
		return err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	flipped, err := svc.Postgres.MarkMessagesRead(ctx, in)
	if err != nil {
		return err
	}

	if svc.Feed != nil && len(flipped) != 0 {
		conversationID := in.ConversationID
		svc.background(func(ctx context.Context) error {
			return svc.Feed.PublishRead(conversationID, flipped)
		})
	}

	return nil
}
