// Package testhelpers provides WebSocket and HTTP utilities shared by the
// transport and client tests.
package testhelpers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/chatrelay/internal/chat"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// DefaultOrigin is the origin the helpers present; it matches the server's
// default allow-list.
const DefaultOrigin = "http://localhost:8080"

// ReadTimeout bounds every helper read so a missing frame fails the test
// instead of hanging it.
const ReadTimeout = 2 * time.Second

// WebSocketURL turns an httptest server URL into its WebSocket endpoint.
func WebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// ConnectWebSocket dials url with DefaultOrigin.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	return ConnectWebSocketWithOrigin(url, DefaultOrigin)
}

// ConnectWebSocketWithOrigin dials url presenting origin. An empty origin
// sends no Origin header.
func ConnectWebSocketWithOrigin(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// MustConnect dials url and fails the test on error. The connection is
// closed when the test ends.
func MustConnect(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, err := ConnectWebSocket(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEnvelope encodes env and writes it as one text frame.
func SendEnvelope(t *testing.T, conn *websocket.Conn, env chat.Envelope) {
	t.Helper()
	payload, err := chat.Encode(env)
	require.NoError(t, err)
	require.NoError(t, SendRawMessage(conn, websocket.TextMessage, payload))
}

// SendRawMessage sends a raw byte message over the WebSocket connection.
func SendRawMessage(conn *websocket.Conn, messageType int, data []byte) error {
	return conn.WriteMessage(messageType, data)
}

// ReceiveRaw reads one frame within ReadTimeout.
func ReceiveRaw(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(ReadTimeout)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return data
}

// ReceiveEnvelope reads and decodes one frame within ReadTimeout.
func ReceiveEnvelope(t *testing.T, conn *websocket.Conn) chat.Envelope {
	t.Helper()
	env, err := chat.Decode(ReceiveRaw(t, conn))
	require.NoError(t, err)
	return env
}

// ReceiveN reads n envelopes in arrival order.
func ReceiveN(t *testing.T, conn *websocket.Conn, n int) []chat.Envelope {
	t.Helper()
	envs := make([]chat.Envelope, 0, n)
	for range n {
		envs = append(envs, ReceiveEnvelope(t, conn))
	}
	return envs
}

// ExpectNoMessage asserts that nothing arrives within wait. The connection
// is unusable for reads afterwards if the deadline fired, so call it last.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", data)
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// MakeRequest creates and executes an HTTP request, returning the response.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
