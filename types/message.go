package types

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bazarmarket/bazar/id"
	"github.com/bazarmarket/bazar/validator"
)

// Message belongs to exactly one conversation. ConversationID and
// SenderID are immutable once the row exists; IsRead only ever
// transitions false to true.
type Message struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversationID" db:"conversation_id"`
	SenderID       string    `json:"senderID" db:"sender_id"`
	MessageText    string    `json:"messageText" db:"message_text"`
	IsRead         bool      `json:"isRead" db:"is_read"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`

	Sender *User `json:"sender,omitempty" db:"sender,omitempty"`
}

type CreateMessage struct {
	ConversationID string
	MessageText    string

	loggedInUserID string
}

func (in *CreateMessage) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in CreateMessage) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *CreateMessage) Validate() error {
	v := validator.New()

	in.MessageText = strings.TrimSpace(in.MessageText)

	v.Check(in.ConversationID != "", "ConversationID", "Conversation ID is required")
	v.Check(id.Valid(in.ConversationID), "ConversationID", "Conversation ID is invalid")
	v.Check(in.MessageText != "", "MessageText", "Message text is required")
	v.Check(utf8.RuneCountInString(in.MessageText) <= 1000, "MessageText", "Message text must be at most 1000 characters")

	return v.AsError()
}

type RetrieveMessage struct {
	MessageID string

	loggedInUserID string
}

func (in *RetrieveMessage) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in RetrieveMessage) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *RetrieveMessage) Validate() error {
	v := validator.New()

	v.Check(in.MessageID != "", "MessageID", "Message ID is required")
	v.Check(id.Valid(in.MessageID), "MessageID", "Message ID is invalid")

	return v.AsError()
}

// ListMessages reads a conversation's transcript oldest first. Without
// page args the whole transcript is returned; After resumes right after
// an opaque cursor from a previous page.
type ListMessages struct {
	ConversationID string
	PageArgs       PageArgs

	loggedInUserID string
}

func (in *ListMessages) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in ListMessages) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *ListMessages) Validate() error {
	v := validator.New()

	v.Check(in.ConversationID != "", "ConversationID", "Conversation ID is required")
	v.Check(id.Valid(in.ConversationID), "ConversationID", "Conversation ID is invalid")

	if err := in.PageArgs.Validate(); err != nil {
		v.AddError("PageArgs", err.Error())
	}

	return v.AsError()
}

type MarkConversationRead struct {
	ConversationID string

	loggedInUserID string
}

func (in *MarkConversationRead) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in MarkConversationRead) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *MarkConversationRead) Validate() error {
	v := validator.New()

	v.Check(in.ConversationID != "", "ConversationID", "Conversation ID is required")
	v.Check(id.Valid(in.ConversationID), "ConversationID", "Conversation ID is invalid")

	return v.AsError()
}
