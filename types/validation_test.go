package types

import (
	"strings"
	"testing"

	"github.com/bazarmarket/bazar/errs"
	"github.com/bazarmarket/bazar/id"
)

func TestResolveConversationValidate(t *testing.T) {
	self := id.Generate()

	tt := []struct {
		name        string
		otherUserID string
		wantOK      bool
	}{
		{name: "valid", otherUserID: id.Generate(), wantOK: true},
		{name: "empty other user", otherUserID: "", wantOK: false},
		{name: "malformed other user", otherUserID: "not-an-id", wantOK: false},
		{name: "self conversation", otherUserID: self, wantOK: false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			in := ResolveConversation{OtherUserID: tc.otherUserID}
			in.SetLoggedInUserID(self)

			err := in.Validate()
			if gotOK := err == nil; gotOK != tc.wantOK {
				t.Fatalf("got err %v, want ok=%v", err, tc.wantOK)
			}
		})
	}
}

func TestCreateMessageValidate(t *testing.T) {
	conversationID := id.Generate()

	tt := []struct {
		name        string
		messageText string
		wantOK      bool
	}{
		{name: "valid", messageText: "is this still available?", wantOK: true},
		{name: "empty", messageText: "", wantOK: false},
		{name: "whitespace only", messageText: "   \n\t  ", wantOK: false},
		{name: "at limit", messageText: strings.Repeat("x", 1000), wantOK: true},
		{name: "over limit", messageText: strings.Repeat("x", 1001), wantOK: false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			in := CreateMessage{
				ConversationID: conversationID,
				MessageText:    tc.messageText,
			}

			err := in.Validate()
			if gotOK := err == nil; gotOK != tc.wantOK {
				t.Fatalf("got err %v, want ok=%v", err, tc.wantOK)
			}
		})
	}
}

func TestCreateMessageValidateTrimsText(t *testing.T) {
	in := CreateMessage{
		ConversationID: id.Generate(),
		MessageText:    "  hello  ",
	}
	if err := in.Validate(); err != nil {
		t.Fatal(err)
	}

	if in.MessageText != "hello" {
		t.Fatalf("got %q, want %q", in.MessageText, "hello")
	}
}

func TestPageArgsValidate(t *testing.T) {
	uintPtr := func(u uint) *uint { return &u }

	tt := []struct {
		name   string
		first  *uint
		wantOK bool
	}{
		{name: "unset", first: nil, wantOK: true},
		{name: "one", first: uintPtr(1), wantOK: true},
		{name: "zero", first: uintPtr(0), wantOK: false},
		{name: "at max", first: uintPtr(maxPageSize), wantOK: true},
		{name: "over max", first: uintPtr(maxPageSize + 1), wantOK: false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			args := PageArgs{First: tc.first}

			err := args.Validate()
			if gotOK := err == nil; gotOK != tc.wantOK {
				t.Fatalf("got err %v, want ok=%v", err, tc.wantOK)
			}
			if err != nil && !errs.IsInvalidArgument(err) {
				t.Fatalf("got %v, want invalid argument", err)
			}
		})
	}
}
