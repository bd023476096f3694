package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Rambha123/voxspace/internal/domain"
	httpmw "github.com/Rambha123/voxspace/internal/transport/http/middleware"
)

type ChatSvc interface {
	History(ctx context.Context, room, after string, limit int) ([]domain.Message, string, error)
	Authorize(ctx context.Context, userID, room string) error
}

type ContactSvc interface {
	ContactsFor(ctx context.Context, userID string) ([]domain.Contact, error)
}

type Handler struct {
	chatSvc    ChatSvc
	contactSvc ContactSvc
}

func NewHandler(chat ChatSvc, contacts ContactSvc) *Handler {
	return &Handler{chatSvc: chat, contactSvc: contacts}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /api/messages/contacts
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	uid := httpmw.UserIDFromCtx(r.Context())

	contacts, err := h.contactSvc.ContactsFor(r.Context(), uid)
	if err != nil {
		writeError(w, r, "handler.ListContacts", err)
		return
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	writeJSON(w, http.StatusOK, contacts)
}

// GET /api/messages/{userId}?after=&limit=
func (h *Handler) DirectHistory(w http.ResponseWriter, r *http.Request) {
	uid := httpmw.UserIDFromCtx(r.Context())

	room, err := domain.ResolveDirectRoom(uid, chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, "handler.DirectHistory", err)
		return
	}
	h.history(w, r, room)
}

// GET /api/rooms/{room}/messages?after=&limit=
func (h *Handler) RoomHistory(w http.ResponseWriter, r *http.Request) {
	uid := httpmw.UserIDFromCtx(r.Context())
	room := chi.URLParam(r, "room")

	if err := h.chatSvc.Authorize(r.Context(), uid, room); err != nil {
		writeError(w, r, "handler.RoomHistory", err)
		return
	}
	h.history(w, r, room)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request, room string) {
	after := r.URL.Query().Get("after")
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	items, next, err := h.chatSvc.History(r.Context(), room, after, limit)
	if err != nil {
		writeError(w, r, "handler.History", err)
		return
	}
	if items == nil {
		items = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Room: room, Items: items, NextCursor: next})
}
