package services

import (
	"context"

	ws "optexec/internal/websocket"
)

// HubMonitor is the part of the websocket hub the health checks look at
type HubMonitor interface {
	Stats() ws.HubStats
	Done() <-chan struct{}
}

// nopPublisher discards events when no hub is wired
type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, interface{}) {}
