package postgres

import (
	"embed"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nicolasparada/go-db"
)

//go:embed migrations/*.sql
var MigrationsFS embed.FS

type Postgres struct {
	db *db.DB
}

func New(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		db: db.New(pool),
	}
}

// pairKey is the transactional uniqueness primitive for two-party
// conversations: the two participant ids, sorted, joined. A unique index
// on it makes concurrent resolve calls linearize on the store instead of
// racing a check-then-act.
func pairKey(userID, otherUserID string) string {
	if otherUserID < userID {
		userID, otherUserID = otherUserID, userID
	}
	return userID + ":" + otherUserID
}

func isUniqueViolation(err error) bool {
	return isPgError(err, pgerrcode.UniqueViolation)
}

func isForeignKeyViolation(err error) bool {
	return isPgError(err, pgerrcode.ForeignKeyViolation)
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
