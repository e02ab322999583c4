package services

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPublisher is a mock for the websocket Publisher interface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, eventType string, data interface{}) {
	m.Called(eventType, data)
}

// events returns the published event types in order
func (m *MockPublisher) events() []string {
	var out []string
	for _, c := range m.Calls {
		out = append(out, c.Arguments.String(0))
	}
	return out
}
