package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/parlor-games/session-service/internal/domain"
	"github.com/parlor-games/session-service/internal/resolver"
	"github.com/parlor-games/session-service/internal/room"
	"github.com/parlor-games/session-service/internal/storage"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	rooms *room.Manager
	store storage.Store
}

func NewHandler(rooms *room.Manager, store storage.Store) *Handler {
	return &Handler{rooms: rooms, store: store}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /rooms mints a private room token. No body: the token itself is
// the capability.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	token, err := resolver.MintToken()
	if err != nil {
		slog.Error("handler.CreateRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "mint failed"})
		return
	}
	writeJSON(w, http.StatusCreated, CreateRoomResponse{Token: token})
}

// GET /rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	addr, err := h.resolve(w, r)
	if err != nil {
		return
	}
	coord, err := h.rooms.Get(r.Context(), addr)
	if err != nil {
		slog.Error("handler.GetRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	info := coord.Info(r.Context())
	writeJSON(w, http.StatusOK, RoomInfoResponse{
		Addr:      addr,
		Occupancy: info.Occupancy,
		Mode:      info.Mode,
	})
}

// GET /rooms/{id}/chat?limit=
func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	addr, err := h.resolve(w, r)
	if err != nil {
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	recs, err := h.store.RecentMessages(r.Context(), addr, limit)
	if err != nil {
		slog.Error("handler.GetChatHistory:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	resp := ChatHistoryResponse{Items: make([]ChatItem, 0, len(recs))}
	for _, rec := range recs {
		resp.Items = append(resp.Items, ChatItem{
			ID:       rec.ID,
			Identity: rec.Identity,
			Text:     rec.Text,
			Kind:     string(rec.Kind),
			TSUnix:   rec.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	addr, err := resolver.Resolve(id)
	if err != nil {
		if errors.Is(err, domain.ErrNameTooLong) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "room name too long"})
			return "", err
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad room id"})
		return "", err
	}
	return addr.String(), nil
}
