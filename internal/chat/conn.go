//go:generate go run go.uber.org/mock/mockgen -source=conn.go -destination=../mocks/mock_conn.go -package=mocks
package chat

// Conn is one client's live channel as seen by the core. Implementations
// must be comparable (pointer types) since connections key the registry and
// the hub's connection set. The transport owns the underlying socket.
type Conn interface {
	// ID identifies the connection in logs.
	ID() string
	// Send delivers one encoded envelope. It may fail but must not block
	// indefinitely.
	Send(payload []byte) error
}
