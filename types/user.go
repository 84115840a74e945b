package types

import (
	"github.com/bazarmarket/bazar/id"
	"github.com/bazarmarket/bazar/validator"
)

// User is the sender profile projection attached to messages and
// participations for rendering. The auth provider owns the full record.
type User struct {
	ID              string  `json:"id" db:"id"`
	Username        string  `json:"username" db:"username"`
	FullName        string  `json:"fullName" db:"full_name"`
	AvatarURL       *string `json:"avatarURL" db:"avatar_url"`
	ProfileImageURL *string `json:"profileImageURL" db:"profile_image_url"`
}

type RetrieveUser struct {
	UserID string
}

func (in *RetrieveUser) Validate() error {
	v := validator.New()

	v.Check(in.UserID != "", "UserID", "User ID is required")
	v.Check(id.Valid(in.UserID), "UserID", "User ID is invalid")

	return v.AsError()
}
