package models

import (
	"encoding/json"
	"fmt"
)

// EventType discriminates socket frames in both directions.
type EventType string

const (
	EventAuth            EventType = "auth"
	EventAuthOK          EventType = "auth_ok"
	EventPing            EventType = "ping"
	EventPong            EventType = "pong"
	EventJoin            EventType = "join"
	EventLeave           EventType = "leave"
	EventMessage         EventType = "message"
	EventUnread          EventType = "unread"
	EventUpdatedMessage  EventType = "updated-message"
	EventUpdatedChatRoom EventType = "updated-chat-room"

	// EventDown is synthesized by the connection manager when the transport
	// drops. It never appears on the wire.
	EventDown EventType = "down"
)

// ClientEvent is an outbound socket frame. Stamp attaches the session token
// at write time, not at command-issue time, so a token rotated mid-session
// is still honored.
type ClientEvent interface {
	EventType() EventType
	Stamp(sid string)
}

// frame is the common outbound header: every frame is a flat JSON object
// with a type and the session token.
type frame struct {
	Type EventType `json:"type"`
	SID  string    `json:"sid"`
}

func (f *frame) Stamp(sid string) { f.SID = sid }

// AuthEvent opens the socket handshake.
type AuthEvent struct{ frame }

func NewAuthEvent() *AuthEvent { return &AuthEvent{frame{Type: EventAuth}} }

func (*AuthEvent) EventType() EventType { return EventAuth }

// PongReply answers a server-initiated ping.
type PongReply struct{ frame }

func NewPongReply() *PongReply { return &PongReply{frame{Type: EventPong}} }

func (*PongReply) EventType() EventType { return EventPong }

// JoinEvent announces live interest in a room. Advisory for routing only;
// membership truth stays with the HTTP room directory.
type JoinEvent struct {
	frame
	Room int64 `json:"room"`
}

func NewJoinEvent(room int64) *JoinEvent {
	return &JoinEvent{frame: frame{Type: EventJoin}, Room: room}
}

func (*JoinEvent) EventType() EventType { return EventJoin }

// LeaveEvent releases live interest in a room.
type LeaveEvent struct {
	frame
	Room int64 `json:"room"`
}

func NewLeaveEvent(room int64) *LeaveEvent {
	return &LeaveEvent{frame: frame{Type: EventLeave}, Room: room}
}

func (*LeaveEvent) EventType() EventType { return EventLeave }

// SendMessageEvent publishes a chat message to a room.
type SendMessageEvent struct {
	frame
	Room    int64  `json:"room"`
	Content string `json:"content"`
}

func NewSendMessageEvent(room int64, content string) *SendMessageEvent {
	return &SendMessageEvent{frame: frame{Type: EventMessage}, Room: room, Content: content}
}

func (*SendMessageEvent) EventType() EventType { return EventMessage }

// ServerEvent is a typed inbound socket frame.
type ServerEvent interface {
	EventType() EventType
}

type AuthOKEvent struct{}

func (AuthOKEvent) EventType() EventType { return EventAuthOK }

type PingEvent struct{}

func (PingEvent) EventType() EventType { return EventPing }

type PongEvent struct{}

func (PongEvent) EventType() EventType { return EventPong }

// MessageEvent delivers a live message for a room.
type MessageEvent struct {
	Room    int64   `json:"room"`
	Message Message `json:"message"`
}

func (MessageEvent) EventType() EventType { return EventMessage }

// UnreadEvent is the authoritative unread counter for a room. Overwrite
// semantics: the count replaces whatever the client holds.
type UnreadEvent struct {
	Room  int64 `json:"room"`
	Count int   `json:"count"`
}

func (UnreadEvent) EventType() EventType { return EventUnread }

// MessagePatchEvent revises the unread counter of an already delivered
// message, identified by ID.
type MessagePatchEvent struct {
	Room        int64 `json:"room"`
	ID          int64 `json:"id"`
	UnreadCount int   `json:"unread_cnt"`
}

func (MessagePatchEvent) EventType() EventType { return EventUpdatedMessage }

// CatalogChangedEvent signals that the public room catalog changed and
// should be refetched wholesale.
type CatalogChangedEvent struct{}

func (CatalogChangedEvent) EventType() EventType { return EventUpdatedChatRoom }

// DownEvent reports a dropped transport to the core.
type DownEvent struct {
	Err error
}

func (DownEvent) EventType() EventType { return EventDown }

// ParseServerEvent decodes one inbound frame. Unknown types return
// ErrUnknownEvent so the caller can ignore them without treating the frame
// as malformed.
func ParseServerEvent(data []byte) (ServerEvent, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode event header: %w", err)
	}

	switch head.Type {
	case EventAuthOK:
		return AuthOKEvent{}, nil
	case EventPing:
		return PingEvent{}, nil
	case EventPong:
		return PongEvent{}, nil
	case EventMessage:
		var ev MessageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode message event: %w", err)
		}
		return ev, nil
	case EventUnread:
		var ev UnreadEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode unread event: %w", err)
		}
		return ev, nil
	case EventUpdatedMessage:
		var ev MessagePatchEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode updated-message event: %w", err)
		}
		return ev, nil
	case EventUpdatedChatRoom:
		return CatalogChangedEvent{}, nil
	default:
		return nil, ErrUnknownEvent
	}
}
