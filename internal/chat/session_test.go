package chat

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceJoined = `{"type":"chat_message","user":"System","message":"Alice joined the chat","timestamp":"09:30:15"}`
	aliceLeft   = `{"type":"chat_message","user":"System","message":"Alice left the chat","timestamp":"09:30:15"}`
)

func TestSession_Join_AckPresenceAnnouncement(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	conn := newRecordingConn("alice")
	session := hub.Connect(conn)
	req.Equal(Unjoined, session.State())

	req.NoError(session.Handle([]byte(`{"type":"join_request","name":"Alice"}`)))

	req.Equal(Joined, session.State())
	req.Equal("Alice", session.Name())
	req.Equal([]string{
		`{"type":"join_response","success":true,"name":"Alice"}`,
		`{"type":"user_count","count":1}`,
		`{"type":"user_list","users":["Alice"]}`,
		aliceJoined,
	}, conn.Frames())
}

func TestSession_Join_TakenNameCaseVariant(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	alice, _ := joinAs(t, hub, "alice", "Alice")

	second := newRecordingConn("second")
	session := hub.Connect(second)
	req.NoError(session.Handle([]byte(`{"type":"join_request","name":"alice"}`)))

	req.Equal(Unjoined, session.State())
	req.Equal([]string{`{"type":"join_response","success":false,"error":"Name is already taken"}`}, second.Frames())
	req.Empty(alice.Frames())
	req.Equal(1, hub.Registry().Count())
}

func TestSession_Join_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		expected string
	}{
		{"empty name", `{"type":"join_request","name":"   "}`, `{"type":"join_response","success":false,"error":"Name cannot be empty"}`},
		{"missing name", `{"type":"join_request"}`, `{"type":"join_response","success":false,"error":"Name cannot be empty"}`},
		{"too long", `{"type":"join_request","name":"abcdefghijklmnopq"}`, `{"type":"join_response","success":false,"error":"Name must be 16 characters or less"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			hub := newTestHub()
			conn := newRecordingConn("c1")
			session := hub.Connect(conn)

			req.NoError(session.Handle([]byte(tt.frame)))

			req.Equal(Unjoined, session.State())
			req.Equal([]string{tt.expected}, conn.Frames())
			req.Zero(hub.Registry().Count())
		})
	}
}

func TestSession_Join_RetryAfterRejection(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	conn := newRecordingConn("c1")
	session := hub.Connect(conn)

	req.NoError(session.Handle([]byte(`{"type":"join_request","name":""}`)))
	req.Equal(Unjoined, session.State())

	req.NoError(session.Handle([]byte(`{"type":"join_request","name":"Alice"}`)))
	req.Equal(Joined, session.State())
	req.Equal([]string{"Alice"}, hub.Registry().Snapshot())
}

func TestSession_Join_IgnoredOnceJoined(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	conn, session := joinAs(t, hub, "alice", "Alice")

	req.NoError(session.Handle([]byte(`{"type":"join_request","name":"Mallory"}`)))

	req.Equal("Alice", session.Name())
	req.Equal([]string{"Alice"}, hub.Registry().Snapshot())
	req.Empty(conn.Frames())
}

func TestSession_Chat_BroadcastIncludesSender(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	alice, aliceSession := joinAs(t, hub, "alice", "Alice")
	bob, _ := joinAs(t, hub, "bob", "Bob", alice)
	lurker := newRecordingConn("lurker")
	hub.Connect(lurker)

	req.NoError(aliceSession.Handle([]byte(`{"type":"chat_message","message":"hi"}`)))

	expected := []string{`{"type":"chat_message","user":"Alice","message":"hi","timestamp":"09:30:15"}`}
	req.Equal(expected, alice.Frames())
	req.Equal(expected, bob.Frames())
	req.Equal(expected, lurker.Frames())
}

func TestSession_Chat_DroppedWhileUnjoined(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	member, _ := joinAs(t, hub, "alice", "Alice")
	stranger := newRecordingConn("stranger")
	session := hub.Connect(stranger)

	req.NoError(session.Handle([]byte(`{"type":"chat_message","message":"let me in"}`)))
	req.NoError(session.Handle([]byte("plain text")))

	req.Empty(member.Frames())
	req.Empty(stranger.Frames())
}

func TestSession_LegacyText(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	alice, session := joinAs(t, hub, "alice", "Alice")

	req.NoError(session.Handle([]byte("hello")))
	// A recognizable JSON frame with an unknown type is relayed verbatim too.
	req.NoError(session.Handle([]byte(`{"type":"dance"}`)))

	req.Equal([]string{
		`{"type":"chat_message","user":"Alice","message":"hello","timestamp":"09:30:15"}`,
		`{"type":"chat_message","user":"Alice","message":"{\"type\":\"dance\"}","timestamp":"09:30:15"}`,
	}, alice.Frames())
}

func TestSession_ServerOnlyTypesIgnored(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	alice, session := joinAs(t, hub, "alice", "Alice")

	for _, frame := range []string{
		`{"type":"user_count","count":99}`,
		`{"type":"user_list","users":["x"]}`,
		`{"type":"join_response","success":true,"name":"x"}`,
	} {
		req.NoError(session.Handle([]byte(frame)))
	}
	req.Empty(alice.Frames())
}

func TestSession_Close_JoinedAnnouncesDeparture(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	alice, aliceSession := joinAs(t, hub, "alice", "Alice")
	bob, _ := joinAs(t, hub, "bob", "Bob", alice)

	aliceSession.Close()

	req.Equal([]string{
		`{"type":"user_count","count":1}`,
		`{"type":"user_list","users":["Bob"]}`,
		aliceLeft,
	}, bob.Frames())
	req.Empty(alice.Frames())
	req.Equal(1, hub.ConnectionCount())
	req.False(hub.Registry().IsTaken("Alice"))
}

func TestSession_Close_Idempotent(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	_, aliceSession := joinAs(t, hub, "alice", "Alice")
	bob, _ := joinAs(t, hub, "bob", "Bob")

	aliceSession.Close()
	aliceSession.Close()

	req.Len(bob.Frames(), 3)
	req.ErrorIs(aliceSession.Handle([]byte("still here?")), ErrSessionClosed)
}

func TestSession_Close_UnjoinedIsSilent(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	alice, _ := joinAs(t, hub, "alice", "Alice")
	stranger := newRecordingConn("stranger")
	session := hub.Connect(stranger)

	session.Close()

	req.Empty(alice.Frames())
	req.Equal(1, hub.ConnectionCount())
	req.Equal(1, hub.Registry().Count())
}

func TestSession_Close_FreesName(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	_, aliceSession := joinAs(t, hub, "alice", "Alice")
	aliceSession.Close()

	_, session := joinAs(t, hub, "alice-again", "ALICE")
	req.Equal("ALICE", session.Name())
}

func TestSession_Handle_PanicBecomesError(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	bystander, _ := joinAs(t, hub, "bob", "Bob")
	broken := newRecordingConn("broken")
	session := hub.Connect(broken)

	broken.panicOnID.Store(true)
	err := session.Handle([]byte("anything"))

	req.ErrorIs(err, ErrFrameFailed)
	req.Empty(bystander.Frames())

	// The transport treats the failure as closure.
	broken.panicOnID.Store(false)
	session.Close()
	req.Equal(1, hub.ConnectionCount())
}

func TestSession_Join_FailedDeliveryToJoinerStillJoins(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	observer := newRecordingConn("observer")
	hub.Connect(observer)

	flaky := newRecordingConn("flaky")
	flaky.fail = errors.New("broken pipe")
	session := hub.Connect(flaky)

	req.NoError(session.Handle([]byte(`{"type":"join_request","name":"Alice"}`)))

	req.Equal(Joined, session.State())
	req.Empty(flaky.Frames())
	req.Equal([]string{
		`{"type":"user_count","count":1}`,
		`{"type":"user_list","users":["Alice"]}`,
		aliceJoined,
	}, observer.Frames())
}

func TestSession_Chat_NonStringMessageRelayedAsText(t *testing.T) {
	hub := newTestHub()
	alice, session := joinAs(t, hub, "alice", "Alice")

	require.NoError(t, session.Handle([]byte(`{"type":"chat_message","message":42}`)))

	require.Equal(t, []string{
		`{"type":"chat_message","user":"Alice","message":"42","timestamp":"09:30:15"}`,
	}, alice.Frames())
}

func TestSession_ConcurrentJoinsSameName(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	variants := []string{"Alice", "alice", "ALICE", "aLiCe"}
	taken := `{"type":"join_response","success":false,"error":"Name is already taken"}`

	conns := make([]*recordingConn, 32)
	sessions := make([]*Session, 32)
	for i := range conns {
		conns[i] = newRecordingConn(fmt.Sprintf("c%d", i))
		sessions[i] = hub.Connect(conns[i])
	}

	var wg sync.WaitGroup
	for i, session := range sessions {
		wg.Add(1)
		go func(session *Session, name string) {
			defer wg.Done()
			assert.NoError(t, session.Handle([]byte(`{"type":"join_request","name":"`+name+`"}`)))
		}(session, variants[i%len(variants)])
	}
	wg.Wait()

	joined := 0
	for i, session := range sessions {
		frames := conns[i].Frames()
		if session.State() == Joined {
			joined++
			req.Equal(`{"type":"join_response","success":true,"name":"`+session.Name()+`"}`, frames[0])
			continue
		}
		req.Contains(frames, taken)
		req.False(slices.ContainsFunc(frames, func(f string) bool {
			return strings.HasPrefix(f, `{"type":"join_response","success":true`)
		}))
	}
	req.Equal(1, joined)
	req.Equal(1, hub.Registry().Count())
}

func TestSession_PresenceConvergesUnderChurn(t *testing.T) {
	req := require.New(t)
	hub := newTestHub()
	observer := newRecordingConn("observer")
	hub.Connect(observer)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for round := 0; round < 10; round++ {
				session := hub.Connect(newRecordingConn(fmt.Sprintf("c%d-%d", id, round)))
				_ = session.Handle([]byte(fmt.Sprintf(`{"type":"join_request","name":"user%d"}`, id)))
				if id%2 == 1 || round < 9 {
					session.Close()
				}
			}
		}(i)
	}
	wg.Wait()

	lastOf := func(prefix string) string {
		frames := observer.Frames()
		for j := len(frames) - 1; j >= 0; j-- {
			if strings.HasPrefix(frames[j], prefix) {
				return frames[j]
			}
		}
		return ""
	}

	count, err := Encode(UserCount{Count: hub.Registry().Count()})
	req.NoError(err)
	list, err := Encode(UserList{Users: hub.Registry().Snapshot()})
	req.NoError(err)

	req.Equal(8, hub.Registry().Count())
	req.Equal(string(count), lastOf(`{"type":"user_count"`))
	req.Equal(string(list), lastOf(`{"type":"user_list"`))
}
