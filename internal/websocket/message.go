package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlexibleTime handles both Unix millisecond timestamps and RFC3339 strings
type FlexibleTime struct {
	time.Time
}

// UnmarshalJSON implements custom unmarshaling for timestamps
func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	// Try to unmarshal as Unix milliseconds (integer)
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		ft.Time = time.UnixMilli(ms)
		return nil
	}

	// Fall back to RFC3339 string format
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("timestamp must be Unix milliseconds (integer) or RFC3339 string")
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	ft.Time = t
	return nil
}

// MarshalJSON implements custom marshaling (always output as RFC3339)
func (ft FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// Message types for WebSocket communication
const (
	// System messages
	MessageTypeSystem = "system"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
	MessageTypeError  = "error"
	MessageTypeAuth   = "auth"

	// Confession activity
	MessageTypeNewConfession      = "new_confession"
	MessageTypeConfessionLiked    = "confession_liked"
	MessageTypeConfessionUnliked  = "confession_unliked"
	MessageTypeConfessionHidden   = "confession_hidden"
	MessageTypeNewComment         = "new_comment"
	MessageTypeCommentLiked       = "comment_liked"
	MessageTypeNewReaction        = "new_reaction"

	// Notification messages
	MessageTypeNotification      = "notification"
	MessageTypeNotificationRead  = "notification_read"
	MessageTypeNotificationCount = "notification_count"

	// Campus-wide events
	MessageTypeAnnouncement  = "announcement"
	MessageTypeRankingUpdate = "ranking_update"
	MessageTypePromotion     = "promotion"
)

// Message represents a WebSocket message
type Message struct {
	// Type identifies the message type for routing
	Type string `json:"type"`

	// Payload contains the message-specific data
	Payload interface{} `json:"payload,omitempty"`

	// ID is a unique message identifier for acknowledgment
	ID string `json:"id,omitempty"`

	// ReplyTo references the original message ID for responses
	ReplyTo string `json:"reply_to,omitempty"`

	// Timestamp when the message was created (accepts Unix ms or RFC3339)
	Timestamp FlexibleTime `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewReply creates a reply message to an original message
func NewReply(original *Message, msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		ReplyTo:   original.ID,
		Payload:   payload,
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(code string, message string) *Message {
	return &Message{
		Type: MessageTypeError,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
		Timestamp: FlexibleTime{Time: time.Now().UTC()},
	}
}

// ParsePayload unmarshals the payload into a typed struct
func (m *Message) ParsePayload(v interface{}) error {
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ErrorPayload represents an error message payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PingPayload represents a ping message payload
type PingPayload struct {
	ClientTime int64 `json:"client_time"`
}

// PongPayload represents a pong message payload
type PongPayload struct {
	ClientTime int64 `json:"client_time"`
	ServerTime int64 `json:"server_time"`
	Latency    int64 `json:"latency_ms"`
}

// AuthPayload represents authentication message payload
type AuthPayload struct {
	UserID string `json:"user_id,omitempty"`
	Status string `json:"status,omitempty"`
}

// SystemPayload represents a system event payload
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// NotificationPayload carries a persisted notification over the socket
type NotificationPayload struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	Title        string                 `json:"title"`
	Message      string                 `json:"message"`
	ConfessionID *string                `json:"confession_id,omitempty"`
	CommentID    *string                `json:"comment_id,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// ConfessionPayload carries confession activity updates
type ConfessionPayload struct {
	ConfessionID string `json:"confession_id"`
	College      string `json:"college"`
	Likes        int    `json:"likes,omitempty"`
	Reaction     string `json:"reaction,omitempty"`
}
