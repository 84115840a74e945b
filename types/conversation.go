package types

import (
	"time"

	"github.com/bazarmarket/bazar/id"
	"github.com/bazarmarket/bazar/validator"
)

// Conversation is a thread between exactly two users, optionally
// contextualized by the marketplace listing it is currently about.
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	ListingID *string   `json:"listingID" db:"listing_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Participation *Participant `json:"participation,omitempty" db:"participation,omitempty"`
}

// ResolveConversation finds-or-creates the single conversation between
// the logged-in user and OtherUserID. A supplied ListingID overwrites the
// conversation's listing reference (last contact context wins); a nil
// ListingID leaves it untouched.
type ResolveConversation struct {
	OtherUserID string
	ListingID   *string

	loggedInUserID string
}

func (in *ResolveConversation) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in ResolveConversation) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *ResolveConversation) Validate() error {
	v := validator.New()

	v.Check(in.OtherUserID != "", "OtherUserID", "Other user ID is required")
	v.Check(id.Valid(in.OtherUserID), "OtherUserID", "Other user ID is invalid")

	if in.OtherUserID == in.loggedInUserID && in.loggedInUserID != "" {
		v.AddError("OtherUserID", "Cannot start a conversation with yourself")
	}

	return v.AsError()
}

type RetrieveConversation struct {
	ConversationID string

	loggedInUserID string
}

func (in *RetrieveConversation) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in RetrieveConversation) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *RetrieveConversation) Validate() error {
	v := validator.New()

	v.Check(in.ConversationID != "", "ConversationID", "Conversation ID is required")
	v.Check(id.Valid(in.ConversationID), "ConversationID", "Conversation ID is invalid")

	return v.AsError()
}

type ListConversations struct {
	loggedInUserID string
}

func (in *ListConversations) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in ListConversations) LoggedInUserID() string {
	return in.loggedInUserID
}

type SetConversationPinned struct {
	ConversationID string
	Pinned         bool

	loggedInUserID string
}

func (in *SetConversationPinned) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in SetConversationPinned) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *SetConversationPinned) Validate() error {
	v := validator.New()

	v.Check(in.ConversationID != "", "ConversationID", "Conversation ID is required")
	v.Check(id.Valid(in.ConversationID), "ConversationID", "Conversation ID is invalid")

	return v.AsError()
}
