// Package chat implements the relay core: the display-name registry, the
// broadcast hub, the per-connection session protocol and the wire codec.
// Transports plug in through the Conn interface.
package chat

import "time"

// MessageType is the wire discriminator carried in every envelope's "type" field.
type MessageType string

const (
	TypeJoinRequest  MessageType = "join_request"
	TypeJoinResponse MessageType = "join_response"
	TypeChatMessage  MessageType = "chat_message"
	TypeUserCount    MessageType = "user_count"
	TypeUserList     MessageType = "user_list"
)

// SystemUser is the author of join and leave announcements.
const SystemUser = "System"

// AnonymousUser is used when a joined connection has no registry entry.
const AnonymousUser = "Anonymous"

// TimestampLayout formats chat timestamps as HH:MM:SS.
const TimestampLayout = "15:04:05"

// Envelope is one wire message. The concrete types below are the only
// implementations.
type Envelope interface {
	Type() MessageType
}

// JoinRequest asks the server to claim a display name.
type JoinRequest struct {
	Name string
}

// JoinResponse answers a JoinRequest. Name is set on success, Error otherwise.
type JoinResponse struct {
	Success bool
	Name    string
	Error   string
}

// ChatMessage is a line of chat. Clients only fill Message; the server
// stamps User and Timestamp before broadcasting.
type ChatMessage struct {
	User      string
	Message   string
	Timestamp string
}

// UserCount reports how many members have joined.
type UserCount struct {
	Count int
}

// UserList reports member names in join order.
type UserList struct {
	Users []string
}

func (JoinRequest) Type() MessageType  { return TypeJoinRequest }
func (JoinResponse) Type() MessageType { return TypeJoinResponse }
func (ChatMessage) Type() MessageType  { return TypeChatMessage }
func (UserCount) Type() MessageType    { return TypeUserCount }
func (UserList) Type() MessageType     { return TypeUserList }

// Timestamp renders t in local time using TimestampLayout.
func Timestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}
