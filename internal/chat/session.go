package chat

import (
	"errors"
	"fmt"
	"sync"
)

// State is a session's position in the join protocol.
type State int

const (
	Unjoined State = iota
	Joined
)

func (s State) String() string {
	switch s {
	case Unjoined:
		return "unjoined"
	case Joined:
		return "joined"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is the per-connection protocol state machine. A connection must
// join with a unique name before its chat messages are relayed. Handle is
// meant to be called from the connection's single read loop; Close runs
// its teardown exactly once.
type Session struct {
	hub  *Hub
	conn Conn

	mu     sync.Mutex
	state  State
	name   string
	closed bool

	closeOnce sync.Once
}

func newSession(hub *Hub, conn Conn) *Session {
	return &Session{hub: hub, conn: conn, state: Unjoined}
}

// State returns the current protocol state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Name returns the display name claimed by this session, or "" before join.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Handle processes one inbound frame. A non-nil error means the session can
// no longer be used and the transport should close the connection; panics
// raised while handling are recovered and reported as ErrFrameFailed.
func (s *Session) Handle(raw []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrFrameFailed, r)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	frame := Parse(raw)
	if frame.IsLegacy() {
		s.relayLocked(frame.Text)
		return nil
	}

	switch env := frame.Envelope.(type) {
	case JoinRequest:
		s.joinLocked(env.Name)
	case ChatMessage:
		s.relayLocked(env.Message)
	default:
		s.hub.log.Debug("Ignoring client frame", "conn", s.conn.ID(), "type", env.Type())
	}
	return nil
}

func (s *Session) joinLocked(name string) {
	if s.state == Joined {
		s.hub.log.Debug("Ignoring join request from joined session", "conn", s.conn.ID(), "name", s.name)
		return
	}

	if err := s.hub.registry.Register(s.conn, name); err != nil {
		s.hub.log.Info("Join rejected", "conn", s.conn.ID(), "error", err)
		s.hub.SendTo(s.conn, JoinResponse{Success: false, Error: joinError(err)})
		return
	}

	s.name, _ = s.hub.registry.Name(s.conn)
	s.state = Joined
	s.hub.log.Info("User joined", "conn", s.conn.ID(), "name", s.name)

	s.hub.SendTo(s.conn, JoinResponse{Success: true, Name: s.name})
	s.hub.BroadcastPresence()
	s.hub.announce("%s joined the chat", s.name)
}

func (s *Session) relayLocked(text string) {
	if s.state != Joined {
		s.hub.log.Debug("Dropping chat from unjoined session", "conn", s.conn.ID())
		return
	}

	user, ok := s.hub.registry.Name(s.conn)
	if !ok {
		user = AnonymousUser
	}
	s.hub.Broadcast(ChatMessage{User: user, Message: text, Timestamp: s.hub.timestamp()})
}

// Close tears the session down after transport closure or a handling
// failure. A joined session announces its departure to the remaining
// connections; an unjoined one leaves silently.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		wasJoined := s.state == Joined
		name := s.name
		s.mu.Unlock()

		if registered, ok := s.hub.registry.Unregister(s.conn); ok {
			name = registered
		}
		s.hub.Disconnect(s.conn)

		if !wasJoined {
			return
		}
		s.hub.log.Info("User left", "conn", s.conn.ID(), "name", name)
		s.hub.BroadcastPresence()
		s.hub.announce("%s left the chat", name)
	})
}

func joinError(err error) string {
	var nameErr *NameError
	if errors.As(err, &nameErr) {
		return nameErr.Error()
	}
	return "Unable to join"
}
