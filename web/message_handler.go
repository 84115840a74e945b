package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/bazarmarket/bazar/errs"
	"github.com/bazarmarket/bazar/types"
)

func (h *Handler) messages(w http.ResponseWriter, r *http.Request) {
	pageArgs, err := parsePageArgs(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	ctx := r.Context()
	page, err := h.Service.Messages(ctx, types.ListMessages{
		ConversationID: r.PathValue("conversationID"),
		PageArgs:       pageArgs,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, page)
}

func (h *Handler) createMessage(w http.ResponseWriter, r *http.Request) {
	var in struct {
		MessageText string `json:"messageText"`
	}
	if err := decodeJSON(r, &in); err != nil {
		h.respondError(w, r, err)
		return
	}

	ctx := r.Context()
	msg, err := h.Service.CreateMessage(ctx, types.CreateMessage{
		ConversationID: r.PathValue("conversationID"),
		MessageText:    in.MessageText,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusCreated, msg)
}

func (h *Handler) markConversationRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := h.Service.MarkConversationRead(ctx, types.MarkConversationRead{
		ConversationID: r.PathValue("conversationID"),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, http.StatusNoContent, nil)
}

func parsePageArgs(q url.Values) (types.PageArgs, error) {
	var out types.PageArgs

	if s := q.Get("first"); s != "" {
		first, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return out, errs.NewInvalidArgumentError("first", "first must be a number")
		}

		u := uint(first)
		out.First = &u
	}

	if s := q.Get("after"); s != "" {
		out.After = &s
	}

	return out, nil
}
