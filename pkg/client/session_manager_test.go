package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"comic-server/pkg/client"
)

type mockStoryAPI struct {
	mock.Mock
}

func (m *mockStoryAPI) GenerateStory(ctx context.Context, req client.GenerateStoryRequest) (*client.GeneratedPage, error) {
	ret := m.Called(ctx, req)
	var page *client.GeneratedPage
	if ret.Get(0) != nil {
		page = ret.Get(0).(*client.GeneratedPage)
	}
	return page, ret.Error(1)
}

func (m *mockStoryAPI) SaveChoice(ctx context.Context, sessionID string, pageNumber, choiceIndex int) error {
	return m.Called(ctx, sessionID, pageNumber, choiceIndex).Error(0)
}

func newManager(t *testing.T) (*client.SessionManager, *mockStoryAPI, client.Storage) {
	t.Helper()
	api := &mockStoryAPI{}
	t.Cleanup(func() { api.AssertExpectations(t) })
	storage := client.NewMemoryStorage()
	return client.NewSessionManager(api, storage, 0, zap.NewNop()), api, storage
}

func storedJSON(t *testing.T, storage client.Storage, key string, out any) {
	t.Helper()
	raw, err := storage.Get(context.Background(), key)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(raw), out))
}

func TestInitialize_NoCharacter(t *testing.T) {
	m, _, _ := newManager(t)

	_, err := m.Initialize(context.Background())
	assert.ErrorIs(t, err, client.ErrNoCharacter)
	assert.Equal(t, client.StateAwaitingCharacter, m.State())
}

func TestFullPlaythrough(t *testing.T) {
	ctx := context.Background()
	m, api, storage := newManager(t)
	require.NoError(t, m.SelectCharacter(ctx, "steve"))
	sessionID, err := storage.Get(ctx, client.KeySessionID)
	require.NoError(t, err)

	var destinations []string
	for page := 1; page <= 5; page++ {
		expectedPage := page
		api.On("GenerateStory", mock.Anything, mock.MatchedBy(func(req client.GenerateStoryRequest) bool {
			return req.PageNumber == expectedPage && len(req.PreviousChoices) == expectedPage-1 &&
				req.Character == "steve" && req.SessionID == sessionID
		})).Return(&client.GeneratedPage{
			StoryText: "segment",
			Choices:   []string{"a", "b", "c"},
		}, nil).Once()
		api.On("SaveChoice", mock.Anything, sessionID, expectedPage, 2).Return(nil).Once()

		view, err := m.Initialize(ctx)
		require.NoError(t, err)
		assert.Equal(t, expectedPage, view.PageNumber)
		assert.Equal(t, client.StateDisplayingPage, m.State())

		dest, err := m.Choose(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, client.StateSubmitting, m.State())
		destinations = append(destinations, dest)
	}
	m.Wait()

	assert.Equal(t, []string{"page2", "page3", "page4", "page5", client.CreditsDestination}, destinations)

	var choices []client.Choice
	storedJSON(t, storage, client.KeyStoryChoices, &choices)
	require.Len(t, choices, 5)
	assert.Equal(t, client.Choice{Choice: 2, Character: "steve"}, choices[0])
}

func TestInitialize_PreviousStoryJoinedWithBlankLines(t *testing.T) {
	ctx := context.Background()
	m, api, storage := newManager(t)
	require.NoError(t, m.SelectCharacter(ctx, "fifi"))
	require.NoError(t, storage.Set(ctx, client.KeyStoryHistory, `["one","two"]`))
	require.NoError(t, storage.Set(ctx, client.KeyStoryChoices, `[{"choice":1,"character":"fifi"},{"choice":3,"character":"fifi"}]`))

	api.On("GenerateStory", mock.Anything, mock.MatchedBy(func(req client.GenerateStoryRequest) bool {
		return req.PreviousStory == "one\n\ntwo" && req.PageNumber == 3
	})).Return(&client.GeneratedPage{StoryText: "three", Choices: []string{"x", "y", "z"}}, nil).Once()

	view, err := m.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "three", view.StoryText)

	var history []string
	storedJSON(t, storage, client.KeyStoryHistory, &history)
	assert.Equal(t, []string{"one", "two", "three"}, history)
}

func TestInitialize_UsesCachedSegment(t *testing.T) {
	ctx := context.Background()
	m, _, storage := newManager(t)
	require.NoError(t, m.SelectCharacter(ctx, "pixl"))
	require.NoError(t, storage.Set(ctx, client.KeyStoryHistory, `["one","two"]`))
	require.NoError(t, storage.Set(ctx, client.KeyStoryChoices, `[{"choice":1,"character":"pixl"}]`))
	require.NoError(t, storage.Set(ctx, client.KeyCurrentChoices, `["p","q","r"]`))

	view, err := m.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", view.StoryText)
	assert.Equal(t, 2, view.PageNumber)
	assert.Equal(t, []string{"p", "q", "r"}, view.Choices)
}

func TestInitialize_ResumeFinishedPlaythrough(t *testing.T) {
	ctx := context.Background()
	m, _, storage := newManager(t)
	require.NoError(t, m.SelectCharacter(ctx, "steve"))
	require.NoError(t, storage.Set(ctx, client.KeyStoryHistory, `["1","2","3","4","5"]`))
	require.NoError(t, storage.Set(ctx, client.KeyStoryChoices,
		`[{"choice":1,"character":"steve"},{"choice":2,"character":"steve"},{"choice":3,"character":"steve"},{"choice":1,"character":"steve"},{"choice":2,"character":"steve"}]`))
	require.NoError(t, storage.Set(ctx, client.KeyCurrentPage, "6"))

	// GenerateStory не ожидается: mock упадет при вызове
	view, err := m.Initialize(ctx)
	assert.Nil(t, view)
	assert.ErrorIs(t, err, client.ErrPlaythroughFinished)
	assert.Equal(t, client.StateAwaitingCharacter, m.State())

	require.NoError(t, m.SelectCharacter(ctx, "fifi"))
	raw, err := storage.Get(ctx, client.KeyCurrentPage)
	require.NoError(t, err)
	assert.Equal(t, "1", raw)
}

func TestInitialize_FinishedByPageCounter(t *testing.T) {
	ctx := context.Background()
	m, _, storage := newManager(t)
	require.NoError(t, m.SelectCharacter(ctx, "steve"))
	require.NoError(t, storage.Set(ctx, client.KeyCurrentPage, "7"))

	_, err := m.Initialize(ctx)
	assert.ErrorIs(t, err, client.ErrPlaythroughFinished)
}

func TestInitialize_GenerationFailure(t *testing.T) {
	ctx := context.Background()
	m, api, storage := newManager(t)
	require.NoError(t, m.SelectCharacter(ctx, "steve"))

	api.On("GenerateStory", mock.Anything, mock.Anything).
		Return(nil, &client.APIError{StatusCode: 502, Message: "upstream down"}).Once()

	_, err := m.Initialize(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrLoadStory)
	assert.Equal(t, client.StateUninitialized, m.State())

	var history []string
	storedJSON(t, storage, client.KeyStoryHistory, &history)
	assert.Empty(t, history)
}

func TestChoose_SaveFailureDoesNotBlockNavigation(t *testing.T) {
	ctx := context.Background()
	m, api, _ := newManager(t)
	require.NoError(t, m.SelectCharacter(ctx, "steve"))

	api.On("GenerateStory", mock.Anything, mock.Anything).
		Return(&client.GeneratedPage{StoryText: "s", Choices: []string{"a", "b", "c"}}, nil).Once()
	api.On("SaveChoice", mock.Anything, mock.Anything, 1, 3).Return(errors.New("network down")).Once()

	_, err := m.Initialize(ctx)
	require.NoError(t, err)

	dest, err := m.Choose(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "page2", dest)
	m.Wait()
}

func TestChoose_Guards(t *testing.T) {
	ctx := context.Background()
	m, api, _ := newManager(t)

	_, err := m.Choose(ctx, 1)
	assert.ErrorIs(t, err, client.ErrNotDisplaying)

	require.NoError(t, m.SelectCharacter(ctx, "steve"))
	api.On("GenerateStory", mock.Anything, mock.Anything).
		Return(&client.GeneratedPage{StoryText: "s", Choices: []string{"a", "b", "c"}}, nil).Once()
	_, err = m.Initialize(ctx)
	require.NoError(t, err)

	_, err = m.Choose(ctx, 4)
	assert.ErrorIs(t, err, client.ErrInvalidChoice)
	_, err = m.Choose(ctx, 0)
	assert.ErrorIs(t, err, client.ErrInvalidChoice)
	assert.Equal(t, client.StateDisplayingPage, m.State())
}

func TestSelectCharacter_ResetsState(t *testing.T) {
	ctx := context.Background()
	m, _, storage := newManager(t)
	require.NoError(t, m.SelectCharacter(ctx, "steve"))
	first, _ := storage.Get(ctx, client.KeySessionID)

	require.NoError(t, storage.Set(ctx, client.KeyStoryHistory, `["old"]`))
	require.NoError(t, m.SelectCharacter(ctx, "fifi"))
	second, _ := storage.Get(ctx, client.KeySessionID)

	assert.NotEqual(t, first, second)
	var history []string
	storedJSON(t, storage, client.KeyStoryHistory, &history)
	assert.Empty(t, history)

	assert.Error(t, m.SelectCharacter(ctx, " "))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "DisplayingPage", client.StateDisplayingPage.String())
	assert.Equal(t, "State(42)", client.State(42).String())
}
