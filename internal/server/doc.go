// Package server implements the HTTP and WebSocket transport for the chat relay.
//
// It accepts WebSocket connections, adapts each one to chat.Conn, and feeds
// inbound frames to the chat core. The implementation is organized into
// specialized files for configuration, the gateway run loop, clients,
// routing, and HTTP handlers.
package server
