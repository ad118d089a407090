package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"comic-server/internal/textgen"
)

// MockTextClient is a mock type for the textgen.Client type
type MockTextClient struct {
	mock.Mock
}

// Complete provides a mock function with given fields: ctx, prompt
func (_m *MockTextClient) Complete(ctx context.Context, prompt string) (string, error) {
	ret := _m.Called(ctx, prompt)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string) string); ok {
		r0 = rf(ctx, prompt)
	} else {
		r0 = ret.String(0)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, prompt)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Close provides a mock function with given fields:
func (_m *MockTextClient) Close() error {
	ret := _m.Called()
	return ret.Error(0)
}

// NewMockTextClient creates a new instance of MockTextClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockTextClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTextClient {
	m := &MockTextClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ textgen.Client = (*MockTextClient)(nil)
