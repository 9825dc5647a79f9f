package chat

import (
	"time"

	"github.com/example/storefront/pkg/models"
)

// Inbound frame types.
const (
	TypeChatMessage = "chat_message"
	TypeMarkAsRead  = "mark_as_read"
)

// Outbound frame types.
const (
	TypeMessageHistory = "message_history"
)

// InboundFrame is what clients send over the socket.
type InboundFrame struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// MessageEvent is the enriched broadcast sent to every connection in a room
// group, the sender's own other tabs included.
type MessageEvent struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Sender     string `json:"sender"`
	SenderRole string `json:"sender_role"`
	MessageID  string `json:"message_id"`
	Seq        int64  `json:"seq"`
	Timestamp  string `json:"timestamp"`
}

// HistoryEvent is sent once, to the connecting client only.
type HistoryEvent struct {
	Type     string           `json:"type"`
	Messages []HistoryMessage `json:"messages"`
}

type HistoryMessage struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	SenderRole string `json:"sender_role"`
	Content    string `json:"content"`
	Seq        int64  `json:"seq"`
	Timestamp  string `json:"timestamp"`
	IsRead     bool   `json:"is_read"`
}

// HistoryFromModels builds the one-shot history frame from persisted messages
// in chronological order.
func HistoryFromModels(messages []models.Message) HistoryEvent {
	event := HistoryEvent{
		Type:     TypeMessageHistory,
		Messages: make([]HistoryMessage, 0, len(messages)),
	}
	for i := range messages {
		msg := &messages[i]
		hm := HistoryMessage{
			ID:        msg.ID,
			Content:   msg.Content,
			Seq:       msg.Seq,
			Timestamp: msg.CreatedAt.Format(time.RFC3339),
			IsRead:    msg.IsRead,
		}
		if msg.Sender != nil {
			hm.Sender = msg.Sender.Email
			hm.SenderRole = string(msg.Sender.Role)
		}
		event.Messages = append(event.Messages, hm)
	}
	return event
}
