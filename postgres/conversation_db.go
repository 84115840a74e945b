package postgres

import (
	"context"
	"fmt"

	"github.com/bazarmarket/bazar/errs"
	"github.com/bazarmarket/bazar/id"
	"github.com/bazarmarket/bazar/types"
	"github.com/jackc/pgx/v5"
	"github.com/nicolasparada/go-db"
)

// pair_key stays out of the select list: it is a storage-level detail
// with no field on types.Conversation.
const conversationColumns = `
	conversations.id, conversations.listing_id, conversations.created_at, conversations.updated_at
`

// participationJSON is reused by every conversation read so the
// caller's participant row decodes into types.Participant. hasUnread is
// derived: any unread message in the conversation addressed to the user.
const participationJSON = `
	json_build_object(
		'conversationID', participants.conversation_id,
		'userID', participants.user_id,
		'otherUserID', participants.other_user_id,
		'isPinned', participants.is_pinned,
		'hasUnread', EXISTS (
			SELECT 1 FROM messages
			WHERE messages.conversation_id = conversations.id
				AND messages.sender_id = participants.other_user_id
				AND NOT messages.is_read
		),
		'createdAt', participants.created_at,
		'otherUser', json_build_object(
			'id', other_user.id,
			'username', other_user.username,
			'fullName', other_user.full_name,
			'avatarURL', other_user.avatar_url,
			'profileImageURL', other_user.profile_image_url
		)
	) AS participation
`

// ResolveConversation finds-or-creates the single conversation between
// the logged-in user and the other participant. Creation races between
// the two participants linearize on the pair_key unique index: the loser
// re-reads the winner's row.
func (p *Postgres) ResolveConversation(ctx context.Context, in types.ResolveConversation) (types.Conversation, error) {
	var out types.Conversation

	key := pairKey(in.LoggedInUserID(), in.OtherUserID)

	conv, err := p.conversationByPairKey(ctx, key)
	if errs.IsNotFound(err) {
		conv, err = p.createConversation(ctx, key, in)
		if isUniqueViolation(err) {
			conv, err = p.conversationByPairKey(ctx, key)
		}
	}

	if err != nil {
		return out, err
	}

	if in.ListingID != nil && !sameListing(conv.ListingID, in.ListingID) {
		conv, err = p.updateConversationListing(ctx, conv.ID, *in.ListingID)
		if err != nil {
			return out, err
		}
	}

	return conv, nil
}

func sameListing(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func (p *Postgres) conversationByPairKey(ctx context.Context, key string) (types.Conversation, error) {
	var out types.Conversation

	const q = `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE conversations.pair_key = @pair_key
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"pair_key": key,
	})
	if err != nil {
		return out, fmt.Errorf("sql query conversation by pair: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Conversation])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("conversation not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect conversation by pair: %w", err)
	}

	return out, nil
}

func (p *Postgres) createConversation(ctx context.Context, key string, in types.ResolveConversation) (types.Conversation, error) {
	var out types.Conversation
	err := p.db.RunTx(ctx, func(ctx context.Context) error {
		conv, err := p.insertConversation(ctx, key, in.ListingID)
		if err != nil {
			return err
		}

		if err := p.insertParticipants(ctx, conv.ID, in.LoggedInUserID(), in.OtherUserID); err != nil {
			return err
		}

		out = conv
		return nil
	})
	if isForeignKeyViolation(err) {
		return out, errs.NewNotFoundError("user not found")
	}
	return out, err
}

func (p *Postgres) insertConversation(ctx context.Context, key string, listingID *string) (types.Conversation, error) {
	var out types.Conversation

	const q = `
		INSERT INTO conversations (id, pair_key, listing_id)
		VALUES (@conversation_id, @pair_key, @listing_id)
		RETURNING id, listing_id, created_at, updated_at
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"conversation_id": id.Generate(),
		"pair_key":        key,
		"listing_id":      listingID,
	})
	if err != nil {
		return out, fmt.Errorf("sql insert conversation: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Conversation])
	if err != nil {
		return out, fmt.Errorf("sql collect inserted conversation: %w", err)
	}

	return out, nil
}

func (p *Postgres) insertParticipants(ctx context.Context, conversationID, userID, otherUserID string) error {
	const q = `
		INSERT INTO conversation_participants (conversation_id, user_id, other_user_id)
		VALUES (@conversation_id, @user_id, @other_user_id)
			 , (@conversation_id, @other_user_id, @user_id)
	`

	_, err := p.db.Exec(ctx, q, pgx.StrictNamedArgs{
		"conversation_id": conversationID,
		"user_id":         userID,
		"other_user_id":   otherUserID,
	})
	if err != nil {
		return fmt.Errorf("sql insert participants: %w", err)
	}

	return nil
}

// updateConversationListing overwrites the listing reference: the thread
// switches subject rather than forking per listing. Last write wins.
func (p *Postgres) updateConversationListing(ctx context.Context, conversationID, listingID string) (types.Conversation, error) {
	var out types.Conversation

	const q = `
		UPDATE conversations
		SET listing_id = @listing_id,
			updated_at = now()
		WHERE id = @conversation_id
		RETURNING id, listing_id, created_at, updated_at
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"conversation_id": conversationID,
		"listing_id":      listingID,
	})
	if err != nil {
		return out, fmt.Errorf("sql update conversation listing: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Conversation])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("conversation not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect updated conversation: %w", err)
	}

	return out, nil
}

func (p *Postgres) Conversation(ctx context.Context, in types.RetrieveConversation) (types.Conversation, error) {
	var out types.Conversation

	const q = `
		SELECT ` + conversationColumns + `, ` + participationJSON + `
		FROM conversations
		INNER JOIN conversation_participants AS participants ON participants.conversation_id = conversations.id
		INNER JOIN users AS other_user ON other_user.id = participants.other_user_id
		WHERE conversations.id = @conversation_id
			AND participants.user_id = @user_id
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"conversation_id": in.ConversationID,
		"user_id":         in.LoggedInUserID(),
	})
	if err != nil {
		return out, fmt.Errorf("sql select conversation: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Conversation])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("conversation not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect conversation: %w", err)
	}

	return out, nil
}

func (p *Postgres) Conversations(ctx context.Context, in types.ListConversations) ([]types.Conversation, error) {
	const q = `
		SELECT ` + conversationColumns + `, ` + participationJSON + `
		FROM conversations
		INNER JOIN conversation_participants AS participants ON participants.conversation_id = conversations.id
		INNER JOIN users AS other_user ON other_user.id = participants.other_user_id
		WHERE participants.user_id = @user_id
		ORDER BY participants.is_pinned DESC, conversations.updated_at DESC
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"user_id": in.LoggedInUserID(),
	})
	if err != nil {
		return nil, fmt.Errorf("sql select conversations: %w", err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.Conversation])
	if err != nil {
		return nil, fmt.Errorf("sql collect conversations: %w", err)
	}

	return out, nil
}

func (p *Postgres) SetConversationPinned(ctx context.Context, in types.SetConversationPinned) error {
	const q = `
		UPDATE conversation_participants
		SET is_pinned = @pinned
		WHERE conversation_id = @conversation_id
			AND user_id = @user_id
		RETURNING conversation_id
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"conversation_id": in.ConversationID,
		"user_id":         in.LoggedInUserID(),
		"pinned":          in.Pinned,
	})
	if err != nil {
		return fmt.Errorf("sql update participant pin: %w", err)
	}

	_, err = pgx.CollectExactlyOneRow(rows, pgx.RowTo[string])
	if db.IsNotFoundError(err) {
		return errs.NewNotFoundError("conversation not found")
	}

	if err != nil {
		return fmt.Errorf("sql collect updated participant pin: %w", err)
	}

	return nil
}

func (p *Postgres) isParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = @conversation_id
				AND user_id = @user_id
		)
	`

	var exists bool
	err := p.db.QueryRow(ctx, q, pgx.StrictNamedArgs{
		"conversation_id": conversationID,
		"user_id":         userID,
	}).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sql check participant: %w", err)
	}

	return exists, nil
}
