package types

import "time"

// Participant links a user to a conversation and carries their per-user
// flags. HasUnread is derived at query time: true while any message
// addressed to the user in the conversation is still unread.
type Participant struct {
	ConversationID string    `json:"conversationID" db:"conversation_id"`
	UserID         string    `json:"userID" db:"user_id"`
	OtherUserID    string    `json:"otherUserID" db:"other_user_id"`
	IsPinned       bool      `json:"isPinned" db:"is_pinned"`
	HasUnread      bool      `json:"hasUnread" db:"has_unread"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`

	OtherUser *User `json:"otherUser,omitempty" db:"other_user,omitempty"`
}
