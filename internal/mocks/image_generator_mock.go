package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"comic-server/internal/imagegen"
)

// MockImageGenerator is a mock type for the imagegen.ImageGenerator type
type MockImageGenerator struct {
	mock.Mock
}

// GenerateImage provides a mock function with given fields: ctx, storyText
func (_m *MockImageGenerator) GenerateImage(ctx context.Context, storyText string) (string, error) {
	ret := _m.Called(ctx, storyText)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string) string); ok {
		r0 = rf(ctx, storyText)
	} else {
		r0 = ret.String(0)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, storyText)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockImageGenerator creates a new instance of MockImageGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockImageGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockImageGenerator {
	m := &MockImageGenerator{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ imagegen.ImageGenerator = (*MockImageGenerator)(nil)
