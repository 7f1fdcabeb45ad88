package services

import (
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockWebSocketHub is a mock for the EventPublisher and ClientCounter
// interfaces.
type MockWebSocketHub struct {
	mock.Mock
	mu sync.Mutex
}

func (m *MockWebSocketHub) Broadcast(messageType string, data interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Called(messageType, data)
}

func (m *MockWebSocketHub) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Called().Int(0)
}
