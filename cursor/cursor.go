package cursor

import (
	"fmt"
	"time"

	"github.com/bazarmarket/bazar/errs"
	"github.com/btcsuite/btcutil/base58"
	"github.com/vmihailenco/msgpack/v5"
)

// Cursor is an opaque keyset position inside a conversation transcript,
// ordered by (CreatedAt, ID).
type Cursor struct {
	ID        string    `msgpack:"i"`
	CreatedAt time.Time `msgpack:"t"`
}

func Encode(c Cursor) (string, error) {
	b, err := msgpack.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("msgpack marshal cursor: %w", err)
	}

	return base58.Encode(b), nil
}

func Decode(s string) (Cursor, error) {
	var c Cursor

	b := base58.Decode(s)
	if err := msgpack.Unmarshal(b, &c); err != nil {
		return c, errs.NewInvalidArgumentError("After", "invalid cursor")
	}

	return c, nil
}
