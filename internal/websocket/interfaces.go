package websocket

import (
	"context"
	"net/http"
	"time"
)

// Connection is the subset of *websocket.Conn used by Client, so tests can
// substitute a fake
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// Publisher sends events to connected clients. The services layer depends on this
// rather than on Hub.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{})
}

// ErrorResponder renders a failed handshake as a problem document
type ErrorResponder interface {
	HandleError(w http.ResponseWriter, r *http.Request, err error)
}
