package ws

import (
	"time"

	"github.com/Rambha123/voxspace/internal/domain"
)

// Event types on the push connection.
const (
	TypeJoinRoom       = "joinRoom"       // c→s subscribe + replay
	TypeLeaveRoom      = "leaveRoom"      // c→s unsubscribe
	TypeSendMessage    = "sendMessage"    // c→s persist + broadcast
	TypeLoadMessages   = "loadMessages"   // s→c replay, joining connection only
	TypeReceiveMessage = "receiveMessage" // s→c one per subscriber per stored message
	TypeError          = "error"          // s→c rejected request, originating connection only
	TypeWarning        = "warning"        // s→c non-fatal problem
)

// Error codes carried in ErrorPayload.Code.
const (
	CodeBadRequest         = "bad_request"
	CodeInvalidMessage     = "invalid_message"
	CodeForbidden          = "forbidden"
	CodePersistFailed      = "persist_failed"
	CodeHistoryUnavailable = "history_unavailable"
	CodeInternal           = "internal"
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type JoinRoomPayload struct {
	Room    string `json:"room,omitempty"`
	PeerID  string `json:"peer_id,omitempty"`
	SpaceID string `json:"space_id,omitempty"`
}

type LeaveRoomPayload struct {
	Room string `json:"room"`
}

type SenderPayload struct {
	ID   string `json:"id"`
	Name string `json:"display_name,omitempty"`
}

type SendMessagePayload struct {
	Room      string         `json:"room"`
	Sender    *SenderPayload `json:"sender,omitempty"`
	Content   string         `json:"content"`
	FileURL   string         `json:"file_url,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
}

type LoadMessagesPayload struct {
	Room     string           `json:"room"`
	Messages []domain.Message `json:"messages"`
}

type ErrorPayload struct {
	Event   string `json:"event"`
	Room    string `json:"room,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
