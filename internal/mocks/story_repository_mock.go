package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"comic-server/internal/models"
	"comic-server/internal/repository"
)

// MockStoryRepository is a mock type for the repository.StoryRepository type
type MockStoryRepository struct {
	mock.Mock
}

// CreateSession provides a mock function with given fields: ctx, session
func (_m *MockStoryRepository) CreateSession(ctx context.Context, session *models.Session) error {
	ret := _m.Called(ctx, session)
	return ret.Error(0)
}

// GetSession provides a mock function with given fields: ctx, id
func (_m *MockStoryRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.Session
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) *models.Session); ok {
		r0 = rf(ctx, id)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Session)
	}

	return r0, ret.Error(1)
}

// EnsureSession provides a mock function with given fields: ctx, id, character
func (_m *MockStoryRepository) EnsureSession(ctx context.Context, id uuid.UUID, character string) (bool, error) {
	ret := _m.Called(ctx, id, character)
	return ret.Bool(0), ret.Error(1)
}

// CountCompletedPlaythroughs provides a mock function with given fields: ctx, character, terminalPage
func (_m *MockStoryRepository) CountCompletedPlaythroughs(ctx context.Context, character string, terminalPage int) (int, error) {
	ret := _m.Called(ctx, character, terminalPage)
	return ret.Int(0), ret.Error(1)
}

// UpsertPage provides a mock function with given fields: ctx, page
func (_m *MockStoryRepository) UpsertPage(ctx context.Context, page *models.PageRecord) (int64, error) {
	ret := _m.Called(ctx, page)

	var r0 int64
	if rf, ok := ret.Get(0).(func(context.Context, *models.PageRecord) int64); ok {
		r0 = rf(ctx, page)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(int64)
	}

	return r0, ret.Error(1)
}

// GetPage provides a mock function with given fields: ctx, sessionID, pageNumber
func (_m *MockStoryRepository) GetPage(ctx context.Context, sessionID uuid.UUID, pageNumber int) (*models.PageRecord, error) {
	ret := _m.Called(ctx, sessionID, pageNumber)

	var r0 *models.PageRecord
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, int) *models.PageRecord); ok {
		r0 = rf(ctx, sessionID, pageNumber)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.PageRecord)
	}

	return r0, ret.Error(1)
}

// ListPages provides a mock function with given fields: ctx, sessionID
func (_m *MockStoryRepository) ListPages(ctx context.Context, sessionID uuid.UUID) ([]models.PageRecord, error) {
	ret := _m.Called(ctx, sessionID)

	var r0 []models.PageRecord
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) []models.PageRecord); ok {
		r0 = rf(ctx, sessionID)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.PageRecord)
	}

	return r0, ret.Error(1)
}

// SaveChoice provides a mock function with given fields: ctx, sessionID, pageNumber, choiceIndex
func (_m *MockStoryRepository) SaveChoice(ctx context.Context, sessionID uuid.UUID, pageNumber int, choiceIndex int) error {
	ret := _m.Called(ctx, sessionID, pageNumber, choiceIndex)
	return ret.Error(0)
}

// AddAchievement provides a mock function with given fields: ctx, sessionID, achievementType
func (_m *MockStoryRepository) AddAchievement(ctx context.Context, sessionID uuid.UUID, achievementType models.AchievementType) (bool, error) {
	ret := _m.Called(ctx, sessionID, achievementType)
	return ret.Bool(0), ret.Error(1)
}

// ListAchievements provides a mock function with given fields: ctx, sessionID
func (_m *MockStoryRepository) ListAchievements(ctx context.Context, sessionID uuid.UUID) ([]models.Achievement, error) {
	ret := _m.Called(ctx, sessionID)

	var r0 []models.Achievement
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) []models.Achievement); ok {
		r0 = rf(ctx, sessionID)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Achievement)
	}

	return r0, ret.Error(1)
}

// NewMockStoryRepository creates a new instance of MockStoryRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockStoryRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStoryRepository {
	m := &MockStoryRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ repository.StoryRepository = (*MockStoryRepository)(nil)
