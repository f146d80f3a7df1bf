package services

import (
	"github.com/stretchr/testify/mock"

	"esgboard/pkg/contracts/events"
)

// MockBroadcaster is a mock for the EventBroadcaster interface
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) BroadcastDatasetEvent(msgType events.MessageType, data interface{}) {
	m.Called(msgType, data)
}
