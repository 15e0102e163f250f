package chat

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// recordingConn keeps every payload sent to it.
type recordingConn struct {
	id        string
	fail      error
	panicOnID atomic.Bool

	mu     sync.Mutex
	frames []string
}

func newRecordingConn(id string) *recordingConn {
	return &recordingConn{id: id}
}

func (c *recordingConn) ID() string {
	if c.panicOnID.Load() {
		panic("connection handle corrupted")
	}
	return c.id
}

func (c *recordingConn) Send(payload []byte) error {
	if c.fail != nil {
		return c.fail
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, string(payload))
	return nil
}

func (c *recordingConn) Frames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

func (c *recordingConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

var fixedTime = time.Date(2025, time.January, 1, 9, 30, 15, 0, time.Local)

func newTestHub() *Hub {
	return NewHub(logs.GetLoggerFromLevel(slog.LevelDebug), WithClock(func() time.Time { return fixedTime }))
}

// joinAs connects a recording connection, joins it under name and clears
// every connection's frames so tests start from a quiet state.
func joinAs(t *testing.T, hub *Hub, id, name string, others ...*recordingConn) (*recordingConn, *Session) {
	t.Helper()
	conn := newRecordingConn(id)
	session := hub.Connect(conn)
	require.NoError(t, session.Handle([]byte(`{"type":"join_request","name":"`+name+`"}`)))
	require.Equal(t, Joined, session.State())
	conn.Reset()
	for _, other := range others {
		other.Reset()
	}
	return conn, session
}
