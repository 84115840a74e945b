package postgres

import (
	"context"
	"fmt"

	"github.com/bazarmarket/bazar/errs"
	"github.com/bazarmarket/bazar/types"
	"github.com/jackc/pgx/v5"
	"github.com/nicolasparada/go-db"
)

// CreateUser mirrors a profile from the auth provider into the local
// users table. The provider owns the record; this is only the projection
// the messaging queries join against.
func (p *Postgres) CreateUser(ctx context.Context, user types.User) error {
	const q = `
		INSERT INTO users (id, username, full_name, avatar_url, profile_image_url)
		VALUES (@user_id, @username, @full_name, @avatar_url, @profile_image_url)
	`

	_, err := p.db.Exec(ctx, q, pgx.StrictNamedArgs{
		"user_id":           user.ID,
		"username":          user.Username,
		"full_name":         user.FullName,
		"avatar_url":        user.AvatarURL,
		"profile_image_url": user.ProfileImageURL,
	})
	if isUniqueViolation(err) {
		return errs.NewAlreadyExistsError("Username", "user already exists")
	}

	if err != nil {
		return fmt.Errorf("sql insert user: %w", err)
	}

	return nil
}

func (p *Postgres) UserByID(ctx context.Context, userID string) (types.User, error) {
	var out types.User

	const q = `
		SELECT users.id, users.username, users.full_name, users.avatar_url, users.profile_image_url
		FROM users
		WHERE users.id = @user_id
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"user_id": userID,
	})
	if err != nil {
		return out, fmt.Errorf("sql select user: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.User])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("user not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect user: %w", err)
	}

	return out, nil
}
