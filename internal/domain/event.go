package domain

// Event kinds carried by the realtime channel.
const (
	EventJoinRoom         = "join_room"
	EventUserStatus       = "user_status"
	EventUserStatusUpdate = "user_status_update"
	EventOnlineUsers      = "online_users"
	EventUserSongUpdate   = "user_song_update"
	EventSendMessage      = "send_message"
	EventReceiveMessage   = "receive_message"
	EventMessageEdited    = "message_edited"
	EventMessageDeleted   = "message_deleted"
	EventUserDisconnected = "user_disconnected"
	EventError            = "error"
)

// Event is the envelope written to realtime sessions.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type SongUpdatePayload struct {
	UserID string       `json:"userId"`
	Song   *SongSummary `json:"song"`
}

type StatusPayload struct {
	UserID string         `json:"userId"`
	Status PresenceStatus `json:"status"`
}

type MessageEditedPayload struct {
	MessageID string   `json:"messageId"`
	Message   *Message `json:"message"`
}

type MessageDeletedPayload struct {
	MessageID string `json:"messageId"`
}

// SendMessagePayload is the inbound send_message body. Files go through REST.
type SendMessagePayload struct {
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
	ReplyToID  string `json:"replyToId,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
