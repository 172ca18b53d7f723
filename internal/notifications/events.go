// Package notifications provides realtime presence, topic fan-out and
// cross-instance relay for websocket clients.
package notifications

import (
	"encoding/json"
)

// Client to server event types.
const (
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventMessageDelivered  = "message_delivered"
	EventMessagesRead      = "messages_read"
)

// Server to client event types. EventTypingIndicator flows both ways.
const (
	EventConnected              = "connected"
	EventJoined                 = "joined"
	EventLeft                   = "left"
	EventError                  = "error"
	EventNewMessage             = "new_message"
	EventMessageDeliveredUpdate = "message_delivered_update"
	EventMessageReadUpdate      = "message_read_update"
	EventTypingIndicator        = "typing_indicator"
	EventFriendRequestReceived  = "friend_request_received"
	EventFriendRequestAccepted  = "friend_request_accepted"
	EventMessagesDropped        = "messages_dropped"
)

// Event is the frame exchanged over the realtime channel.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// InboundEvent is a client frame whose payload is decoded per type.
type InboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Marshal encodes the event as a JSON frame.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// ErrorEvent builds an error frame carrying message.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Payload: map[string]string{"message": message}}
}

var droppedNotice = []byte(`{"type":"` + EventMessagesDropped + `","payload":{"reason":"buffer_full"}}`)
