package http

import "github.com/parlor-games/session-service/internal/domain"

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateRoomResponse struct {
	Token string `json:"token"`
}

type RoomInfoResponse struct {
	Addr      string          `json:"addr"`
	Occupancy int             `json:"occupancy"`
	Mode      domain.GameMode `json:"mode"`
}

type ChatItem struct {
	ID       string `json:"id"`
	Identity string `json:"identity"`
	Text     string `json:"text"`
	Kind     string `json:"kind"`
	TSUnix   int64  `json:"ts_unix"`
}

type ChatHistoryResponse struct {
	Items []ChatItem `json:"items"`
}
