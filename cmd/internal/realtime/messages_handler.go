package realtime

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"chatpad/cmd/internal/auth/gate"
	"chatpad/cmd/internal/respond"
	v1 "chatpad/shared/contracts/realtime/v1"
)

const messagesMaxBodyBytes = 64 << 10

// MessagesHandler serves POST and GET /messages. Both require a session.
type MessagesHandler struct {
	log     *slog.Logger
	channel *Channel
	guard   Guard
}

func NewMessagesHandler(log *slog.Logger, channel *Channel, guard Guard) (*MessagesHandler, error) {
	if channel == nil || guard == nil {
		return nil, errors.New("realtime: channel and guard are required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &MessagesHandler{log: log, channel: channel, guard: guard}, nil
}

func (h *MessagesHandler) Register(mux *http.ServeMux) {
	mux.Handle("POST /messages", h.guard.Require(http.HandlerFunc(h.handleCreate)))
	mux.Handle("GET /messages", h.guard.Require(http.HandlerFunc(h.handleList)))
}

type createMessageRequest struct {
	Contents *string `json:"contents"`
}

func (h *MessagesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := gate.UserFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createMessageRequest
	if err := respond.Decode(w, r, messagesMaxBodyBytes, &req); err != nil || req.Contents == nil {
		respond.Fail(w, http.StatusBadRequest, "contents must be a string")
		return
	}
	contents := *req.Contents
	if err := v1.ValidateContents(contents, h.channel.maxChars); err != nil {
		respond.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.channel.Post(r.Context(), user.ID, contents)
	if err != nil {
		h.log.Error("messages.create.fail", "user_id", user.ID, "err", err)
		respond.Error(w, err)
		return
	}
	respond.OK(w, msg.Public())
}

func (h *MessagesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxListLimit {
			respond.Fail(w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}

	msgs, err := h.channel.Store().ListRecent(r.Context(), limit)
	if err != nil {
		h.log.Error("messages.list.fail", "err", err)
		respond.Error(w, err)
		return
	}

	out := make([]v1.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Public())
	}
	respond.OK(w, out)
}
