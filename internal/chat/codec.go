package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Wire shapes. Field order here is the order on the wire.
type joinRequestWire struct {
	Type MessageType `json:"type"`
	Name string      `json:"name"`
}

type joinResponseWire struct {
	Type    MessageType `json:"type"`
	Success bool        `json:"success"`
	Name    *string     `json:"name,omitempty"`
	Error   *string     `json:"error,omitempty"`
}

type chatMessageWire struct {
	Type      MessageType `json:"type"`
	User      string      `json:"user"`
	Message   string      `json:"message"`
	Timestamp string      `json:"timestamp"`
}

type userCountWire struct {
	Type  MessageType `json:"type"`
	Count int         `json:"count"`
}

type userListWire struct {
	Type  MessageType `json:"type"`
	Users []string    `json:"users"`
}

// Encode serializes an envelope. A failed JoinResponse carries only "error",
// a successful one only "name".
func Encode(env Envelope) ([]byte, error) {
	var wire any
	switch e := env.(type) {
	case JoinRequest:
		wire = joinRequestWire{Type: TypeJoinRequest, Name: e.Name}
	case JoinResponse:
		w := joinResponseWire{Type: TypeJoinResponse, Success: e.Success}
		if e.Success {
			w.Name = &e.Name
		} else {
			w.Error = &e.Error
		}
		wire = w
	case ChatMessage:
		wire = chatMessageWire{Type: TypeChatMessage, User: e.User, Message: e.Message, Timestamp: e.Timestamp}
	case UserCount:
		wire = userCountWire{Type: TypeUserCount, Count: e.Count}
	case UserList:
		users := e.Users
		if users == nil {
			users = []string{}
		}
		wire = userListWire{Type: TypeUserList, Users: users}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEnvelope, env)
	}
	return json.Marshal(wire)
}

// Decode parses a frame into an envelope. It fails with ErrDecode when the
// frame is not a JSON object or has no recognized "type". Variant fields are
// read leniently: a missing or mistyped field decodes as its zero value.
func Decode(raw []byte) (Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var kind MessageType
	if err := json.Unmarshal(fields["type"], &kind); err != nil {
		return nil, fmt.Errorf("%w: missing type discriminator", ErrDecode)
	}

	switch kind {
	case TypeJoinRequest:
		return JoinRequest{Name: stringField(fields, "name")}, nil
	case TypeJoinResponse:
		return JoinResponse{
			Success: boolField(fields, "success"),
			Name:    stringField(fields, "name"),
			Error:   stringField(fields, "error"),
		}, nil
	case TypeChatMessage:
		return ChatMessage{
			User:      stringField(fields, "user"),
			Message:   textField(fields, "message"),
			Timestamp: stringField(fields, "timestamp"),
		}, nil
	case TypeUserCount:
		var count int
		_ = json.Unmarshal(fields["count"], &count)
		return UserCount{Count: count}, nil
	case TypeUserList:
		var users []string
		_ = json.Unmarshal(fields["users"], &users)
		return UserList{Users: users}, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized type %q", ErrDecode, kind)
	}
}

func stringField(fields map[string]json.RawMessage, key string) string {
	var s string
	_ = json.Unmarshal(fields[key], &s)
	return s
}

// textField reads a string field, keeping the raw JSON text of any other
// non-null value so it can still be relayed as a chat line.
func textField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if trimmed := bytes.TrimSpace(raw); !bytes.Equal(trimmed, []byte("null")) {
		return string(trimmed)
	}
	return ""
}

func boolField(fields map[string]json.RawMessage, key string) bool {
	var b bool
	_ = json.Unmarshal(fields[key], &b)
	return b
}

// Frame is the result of Parse: either a structured Envelope or, for frames
// that do not decode, the raw Text of a legacy plain-text chat line.
type Frame struct {
	Envelope Envelope
	Text     string
}

// IsLegacy reports whether the frame fell back to plain text.
func (f Frame) IsLegacy() bool {
	return f.Envelope == nil
}

// Parse decodes raw, falling back to legacy plain text instead of failing.
func Parse(raw []byte) Frame {
	env, err := Decode(raw)
	if err != nil {
		return Frame{Text: string(raw)}
	}
	return Frame{Envelope: env}
}
