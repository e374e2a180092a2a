package realtime

import "time"

// Outbound event names pushed to connected clients.
const (
	EventNotification = "notification"
	EventXPGain       = "xp_gain"
	EventNewMessage   = "new_message"
)

// Inbound event names accepted from clients.
const (
	EventChatMessage = "chat_message"
)

// Envelope is the wire framing for every event in either direction.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// NotificationPayload mirrors a persisted notification for live delivery.
type NotificationPayload struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Type     string `json:"type"`
	TargetID string `json:"target_id"`
}

// XPGainPayload announces an XP grant.
type XPGainPayload struct {
	Amount  int  `json:"amount"`
	NewXP   int  `json:"new_xp"`
	Level   int  `json:"level"`
	LevelUp bool `json:"level_up"`
}

// MessagePayload announces a newly persisted chat message.
type MessagePayload struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// chatMessageData is the inbound chat_message body.
type chatMessageData struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver,omitempty"`
	Text     string `json:"text"`
}
