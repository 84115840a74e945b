package service

import (
	"context"

	"github.com/bazarmarket/bazar/auth"
	"github.com/bazarmarket/bazar/errs"
	"github.com/bazarmarket/bazar/types"
)

// ResolveConversation finds-or-creates the single conversation between
// the logged-in user and the other participant. Resolving with a listing
// reference retags the existing thread rather than opening a parallel
// one per listing.
func (svc *Service) ResolveConversation(ctx context.Context, in types.ResolveConversation) (types.Conversation, error) {
	var out types.Conversation

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	if err := in.Validate(); err != nil {
		return out, err
	}

	return svc.Postgres.ResolveConversation(ctx, in)
}

func (svc *Service) Conversation(ctx context.Context, in types.RetrieveConversation) (types.Conversation, error) {
	var out types.Conversation

	if err := in.Validate(); err != nil {
		return out, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.Conversation(ctx, in)
}

func (svc *Service) Conversations(ctx context.Context, in types.ListConversations) ([]types.Conversation, error) {
	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return nil, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.Conversations(ctx, in)
}

func (svc *Service) SetConversationPinned(ctx context.Context, in types.SetConversationPinned) error {
	if err := in.Validate(); err != nil {
		return err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.SetConversationPinned(ctx, in)
}

// User is the identity bootstrap used by the transport's auth
// middleware; it does not require a logged-in context itself.
func (svc *Service) User(ctx context.Context, in types.RetrieveUser) (types.User, error) {
	var out types.User

	if err := in.Validate(); err != nil {
		return out, err
	}

	return svc.Postgres.UserByID(ctx, in.UserID)
}
