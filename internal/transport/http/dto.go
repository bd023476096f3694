package http

import "github.com/Rambha123/voxspace/internal/domain"

type ErrorResponse struct {
	Error string `json:"error"`
}

type HistoryResponse struct {
	Room       string           `json:"room"`
	Items      []domain.Message `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}
