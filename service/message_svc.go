package service

import (
	"context"

	"github.com/bazarmarket/bazar/auth"
	"github.com/bazarmarket/bazar/errs"
	"github.com/bazarmarket/bazar/types"
)

// CreateMessage persists the message and then emits an insert event on
// the change feed in the background. The send succeeds or fails on the
// store alone; feed fan-out failures surface on Errs().
func (svc *Service) CreateMessage(ctx context.Context, in types.CreateMessage) (types.Message, error) {
	var out types.Message

	if err := in.Validate(); err != nil {
		return out, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	msg, err := svc.Postgres.CreateMessage(ctx, in)
	if err != nil {
		return out, err
	}

	if svc.Feed != nil {
		svc.background(func(ctx context.Context) error {
			return svc.Feed.PublishInsert(msg.ConversationID, msg.ID)
		})
	}

	return msg, nil
}

func (svc *Service) Message(ctx context.Context, in types.RetrieveMessage) (types.Message, error) {
	var out types.Message

	if err := in.Validate(); err != nil {
		return out, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.Message(ctx, in)
}

func (svc *Service) Messages(ctx context.Context, in types.ListMessages) (types.Page[types.Message], error) {
	var out types.Page[types.Message]

	if err := in.Validate(); err != nil {
		return out, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.Messages(ctx, in)
}
