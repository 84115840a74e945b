package cursor

import (
	"testing"
	"time"

	"github.com/bazarmarket/bazar/errs"
)

func TestCursor_RoundTrip(t *testing.T) {
	want := Cursor{
		ID:        "d0j4bq2s1f4c73a0b5gg",
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}

	s, err := Encode(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := Decode(s)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.ID != want.ID || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestCursor_DecodeGarbage(t *testing.T) {
	_, err := Decode("not-a-cursor")
	if !errs.IsInvalidArgument(err) {
		t.Fatalf("want invalid argument error, got %v", err)
	}
}
