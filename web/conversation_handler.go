package web

import (
	"net/http"

	"github.com/bazarmarket/bazar/types"
	"golang.org/x/sync/errgroup"
)

func (h *Handler) resolveConversation(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OtherUserID string  `json:"otherUserID"`
		ListingID   *string `json:"listingID"`
	}
	if err := decodeJSON(r, &in); err != nil {
		h.respondError(w, r, err)
		return
	}

	ctx := r.Context()
	conv, err := h.Service.ResolveConversation(ctx, types.ResolveConversation{
		OtherUserID: in.OtherUserID,
		ListingID:   in.ListingID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, conv)
}

func (h *Handler) conversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	convs, err := h.Service.Conversations(ctx, types.ListConversations{})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, convs)
}

func (h *Handler) showConversation(w http.ResponseWriter, r *http.Request) {
	pageArgs, err := parsePageArgs(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var (
		conv     types.Conversation
		messages types.Page[types.Message]
	)

	ctx := r.Context()
	conversationID := r.PathValue("conversationID")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		conv, err = h.Service.Conversation(gctx, types.RetrieveConversation{
			ConversationID: conversationID,
		})
		return err
	})

	g.Go(func() error {
		var err error
		messages, err = h.Service.Messages(gctx, types.ListMessages{
			ConversationID: conversationID,
			PageArgs:       pageArgs,
		})
		return err
	})

	if err := g.Wait(); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, map[string]any{
		"conversation": conv,
		"messages":     messages,
	})
}

func (h *Handler) pinConversation(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Pinned bool `json:"pinned"`
	}
	if err := decodeJSON(r, &in); err != nil {
		h.respondError(w, r, err)
		return
	}

	ctx := r.Context()
	err := h.Service.SetConversationPinned(ctx, types.SetConversationPinned{
		ConversationID: r.PathValue("conversationID"),
		Pinned:         in.Pinned,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusNoContent, nil)
}
