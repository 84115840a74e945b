package postgres

import (
	"context"
	"fmt"

	"github.com/bazarmarket/bazar/cursor"
	"github.com/bazarmarket/bazar/errs"
	"github.com/bazarmarket/bazar/id"
	"github.com/bazarmarket/bazar/types"
	"github.com/jackc/pgx/v5"
	"github.com/nicolasparada/go-db"
)

const senderJSON = `
	json_build_object(
		'id', sender.id,
		'username', sender.username,
		'fullName', sender.full_name,
		'avatarURL', sender.avatar_url,
		'profileImageURL', sender.profile_image_url
	) AS sender
`

func (p *Postgres) CreateMessage(ctx context.Context, in types.CreateMessage) (types.Message, error) {
	var out types.Message
	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		ok, err := p.isParticipant(ctx, in.ConversationID, in.LoggedInUserID())
		if err != nil {
			return err
		}

		if !ok {
			return errs.NewNotFoundError("conversation not found")
		}

		created, err := p.insertMessage(ctx, in)
		if err != nil {
			return err
		}

		if err := p.touchConversation(ctx, in.ConversationID); err != nil {
			return err
		}

		msg, err := p.messageByID(ctx, created.ID)
		if err != nil {
			return err
		}

		out = msg
		return nil
	})
}

func (p *Postgres) insertMessage(ctx context.Context, in types.CreateMessage) (types.Created, error) {
	var out types.Created

	const q = `
		INSERT INTO messages (id, conversation_id, sender_id, message_text)
		VALUES (@message_id, @conversation_id, @sender_id, @message_text)
		RETURNING id, created_at
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"message_id":      id.Generate(),
		"conversation_id": in.ConversationID,
		"sender_id":       in.LoggedInUserID(),
		"message_text":    in.MessageText,
	})
	if err != nil {
		return out, fmt.Errorf("sql insert message: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Created])
	if err != nil {
		return out, fmt.Errorf("sql collect inserted message: %w", err)
	}

	return out, nil
}

func (p *Postgres) touchConversation(ctx context.Context, conversationID string) error {
	const q = `
		UPDATE conversations
		SET updated_at = now()
		WHERE id = @conversation_id
	`

	_, err := p.db.Exec(ctx, q, pgx.StrictNamedArgs{
		"conversation_id": conversationID,
	})
	if err != nil {
		return fmt.Errorf("sql touch conversation: %w", err)
	}

	return nil
}

// Message fetches one row joined with the sender projection. The
// participants join doubles as the membership guard: outsiders get a
// not-found, never someone else's message.
func (p *Postgres) Message(ctx context.Context, in types.RetrieveMessage) (types.Message, error) {
	var out types.Message

	const q = `
		SELECT messages.*, ` + senderJSON + `
		FROM messages
		INNER JOIN users AS sender ON sender.id = messages.sender_id
		INNER JOIN conversation_participants AS participants
			ON participants.conversation_id = messages.conversation_id
			AND participants.user_id = @user_id
		WHERE messages.id = @message_id
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"message_id": in.MessageID,
		"user_id":    in.LoggedInUserID(),
	})
	if err != nil {
		return out, fmt.Errorf("sql select message: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Message])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("message not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect message: %w", err)
	}

	return out, nil
}

func (p *Postgres) messageByID(ctx context.Context, messageID string) (types.Message, error) {
	var out types.Message

	const q = `
		SELECT messages.*, ` + senderJSON + `
		FROM messages
		INNER JOIN users AS sender ON sender.id = messages.sender_id
		WHERE messages.id = @message_id
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"message_id": messageID,
	})
	if err != nil {
		return out, fmt.Errorf("sql select message by id: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Message])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("message not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect message by id: %w", err)
	}

	return out, nil
}

// Messages reads the transcript oldest first, keyset-paged on
// (created_at, id) when page args are given.
func (p *Postgres) Messages(ctx context.Context, in types.ListMessages) (types.Page[types.Message], error) {
	var out types.Page[types.Message]

	ok, err := p.isParticipant(ctx, in.ConversationID, in.LoggedInUserID())
	if err != nil {
		return out, err
	}

	if !ok {
		return out, errs.NewNotFoundError("conversation not found")
	}

	query := `
		SELECT messages.*, ` + senderJSON + `
		FROM messages
		INNER JOIN users AS sender ON sender.id = messages.sender_id
		WHERE messages.conversation_id = @conversation_id
	`
	args := pgx.StrictNamedArgs{
		"conversation_id": in.ConversationID,
	}

	if in.PageArgs.After != nil {
		after, err := cursor.Decode(*in.PageArgs.After)
		if err != nil {
			return out, err
		}

		query += ` AND (messages.created_at, messages.id) > (@after_created_at, @after_id)`
		args["after_created_at"] = after.CreatedAt
		args["after_id"] = after.ID
	}

	query += ` ORDER BY messages.created_at ASC, messages.id ASC`

	if in.PageArgs.First != nil {
		query += ` LIMIT @limit`
		args["limit"] = *in.PageArgs.First + 1
	}

	rows, err := p.db.Query(ctx, query, args)
	if err != nil {
		return out, fmt.Errorf("sql select messages: %w", err)
	}

	out.Items, err = pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.Message])
	if err != nil {
		return out, fmt.Errorf("sql collect messages: %w", err)
	}

	if in.PageArgs.First != nil && uint(len(out.Items)) > *in.PageArgs.First {
		out.Items = out.Items[:*in.PageArgs.First]
		out.HasNextPage = true
	}

	if last := len(out.Items); last != 0 {
		c, err := cursor.Encode(cursor.Cursor{
			ID:        out.Items[last-1].ID,
			CreatedAt: out.Items[last-1].CreatedAt,
		})
		if err != nil {
			return out, fmt.Errorf("encode end cursor: %w", err)
		}

		out.EndCursor = &c
	}

	return out, nil
}

// MarkMessagesRead invokes the mark_messages_as_read procedure: one
// atomic flip of every unread message not sent by the reader. Returns
// the flipped ids for change-feed fan-out; empty means nothing was
// unread.
func (p *Postgres) MarkMessagesRead(ctx context.Context, in types.MarkConversationRead) ([]string, error) {
	ok, err := p.isParticipant(ctx, in.ConversationID, in.LoggedInUserID())
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, errs.NewNotFoundError("conversation not found")
	}

	const q = `
		SELECT mark_messages_as_read(@conversation_id, @reader_id)
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"conversation_id": in.ConversationID,
		"reader_id":       in.LoggedInUserID(),
	})
	if err != nil {
		return nil, fmt.Errorf("sql mark messages as read: %w", err)
	}

	flipped, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("sql collect marked message ids: %w", err)
	}

	return flipped, nil
}
