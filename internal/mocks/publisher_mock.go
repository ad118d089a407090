package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"comic-server/internal/events"
)

// MockPublisher is a mock type for the events.Publisher type
type MockPublisher struct {
	mock.Mock
}

// Publish provides a mock function with given fields: ctx, event
func (_m *MockPublisher) Publish(ctx context.Context, event events.StoryEvent) error {
	ret := _m.Called(ctx, event)

	if rf, ok := ret.Get(0).(func(context.Context, events.StoryEvent) error); ok {
		return rf(ctx, event)
	}
	return ret.Error(0)
}

// Close provides a mock function with given fields:
func (_m *MockPublisher) Close() error {
	ret := _m.Called()
	return ret.Error(0)
}

// NewMockPublisher creates a new instance of MockPublisher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockPublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPublisher {
	m := &MockPublisher{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ events.Publisher = (*MockPublisher)(nil)
