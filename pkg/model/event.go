package model

import "encoding/json"

// Event names on the websocket boundary. Inbound names are what clients emit,
// outbound names are what the gateway delivers.
const (
	EventJoinChannel  = "joinChannel"
	EventLeaveChannel = "leaveChannel"
	EventSendMessage  = "sendMessage"
	EventAddReaction  = "addReaction"
	EventTyping       = "typing"
	EventStopTyping   = "stopTyping"

	EventMessage         = "message"
	EventReactionAdded   = "reactionAdded"
	EventUserOnline      = "userOnline"
	EventUserTyping      = "userTyping"
	EventUserStopTyping  = "userStoppedTyping"
	EventChannelMessages = "channelMessages"
	EventError           = "error"
)

// Envelope frames every event exchanged over a connection.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func NewEnvelope(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// Inbound payloads.

type JoinPayload struct {
	ChannelID string `json:"channelId" validate:"required"`
}

type LeavePayload struct {
	ChannelID string `json:"channelId" validate:"required"`
}

type SendPayload struct {
	ChannelID string `json:"channelId" validate:"required"`
	Content   string `json:"content" validate:"required,max=2000"`
}

type ReactPayload struct {
	ChannelID string `json:"channelId" validate:"required"`
	MessageID int64  `json:"messageId" validate:"required"`
	Emoji     string `json:"emoji" validate:"required,max=16"`
}

type TypingPayload struct {
	ChannelID string `json:"channelId" validate:"required"`
}

// Outbound payloads.

type ReactionUpdate struct {
	MessageID int64      `json:"messageId"`
	ChannelID string     `json:"channelId"`
	Reactions []Reaction `json:"reactions"`
}

type PresenceUpdate struct {
	Users []UserIdentity `json:"users"`
}

type TypingNotice struct {
	UserID    string `json:"userId"`
	Username  string `json:"username,omitempty"`
	ChannelID string `json:"channelId"`
}

type ChannelHistory struct {
	ChannelID string    `json:"channelId"`
	Messages  []Message `json:"messages"`
}

type ErrorNotice struct {
	Message string `json:"message"`
}
