package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"comic-server/internal/database"
	"comic-server/internal/models"
	"comic-server/internal/repository"
)

func newSQLiteRepo(t *testing.T) repository.StoryRepository {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.MigrateSQLite(db, zap.NewNop()))
	return repository.NewSQLiteStoryRepository(db, zap.NewNop())
}

func TestSQLiteStoryRepository(t *testing.T) {
	runStoryRepositoryContract(t, newSQLiteRepo)
}

// runStoryRepositoryContract - общий набор проверок для всех реализаций StoryRepository.
func runStoryRepositoryContract(t *testing.T, newRepo func(t *testing.T) repository.StoryRepository) {
	ctx := context.Background()

	page := func(sessionID uuid.UUID, n int, text string, choices ...string) *models.PageRecord {
		return &models.PageRecord{
			SessionID:  sessionID,
			PageNumber: n,
			StoryText:  text,
			Choices:    choices,
			CreatedAt:  time.Now().UTC(),
		}
	}

	t.Run("CreateAndGetSession", func(t *testing.T) {
		repo := newRepo(t)
		s := &models.Session{ID: uuid.New(), Character: "steve", CreatedAt: time.Now().UTC()}
		require.NoError(t, repo.CreateSession(ctx, s))

		got, err := repo.GetSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, "steve", got.Character)
		assert.Equal(t, 0, got.CurrentPage)
		assert.WithinDuration(t, s.CreatedAt, got.CreatedAt, time.Second)
	})

	t.Run("GetSessionNotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetSession(ctx, uuid.New())
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("EnsureSessionIsIdempotent", func(t *testing.T) {
		repo := newRepo(t)
		id := uuid.New()
		created, err := repo.EnsureSession(ctx, id, "FiFi")
		require.NoError(t, err)
		assert.True(t, created)

		created, err = repo.EnsureSession(ctx, id, "FiFi")
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("UpsertPageAdvancesSessionAndOverwrites", func(t *testing.T) {
		repo := newRepo(t)
		id := uuid.New()
		_, err := repo.EnsureSession(ctx, id, "steve")
		require.NoError(t, err)

		firstID, err := repo.UpsertPage(ctx, page(id, 2, "first", "A", "B", "C"))
		require.NoError(t, err)
		require.NoError(t, repo.SaveChoice(ctx, id, 2, 3))

		imageURL := "https://cdn.example/2.png"
		p := page(id, 2, "second", "X", "Y")
		p.ImageURL = &imageURL
		secondID, err := repo.UpsertPage(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, firstID, secondID)

		got, err := repo.GetPage(ctx, id, 2)
		require.NoError(t, err)
		assert.Equal(t, "second", got.StoryText)
		assert.Equal(t, []string{"X", "Y"}, got.Choices)
		assert.Nil(t, got.ChoiceMade, "choice must be reset when choices are replaced")
		require.NotNil(t, got.ImageURL)
		assert.Equal(t, imageURL, *got.ImageURL)

		// current_page только растет
		_, err = repo.UpsertPage(ctx, page(id, 1, "back", "A", "B", "C"))
		require.NoError(t, err)
		s, err := repo.GetSession(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, s.CurrentPage)
	})

	t.Run("GetPageNotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetPage(ctx, uuid.New(), 1)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("ListPagesOrdered", func(t *testing.T) {
		repo := newRepo(t)
		id := uuid.New()
		_, err := repo.EnsureSession(ctx, id, "pixl_drift")
		require.NoError(t, err)
		for _, n := range []int{3, 1, 2} {
			_, err := repo.UpsertPage(ctx, page(id, n, "p", "A", "B", "C"))
			require.NoError(t, err)
		}

		pages, err := repo.ListPages(ctx, id)
		require.NoError(t, err)
		require.Len(t, pages, 3)
		for i, p := range pages {
			assert.Equal(t, i+1, p.PageNumber)
			assert.Equal(t, []string{"A", "B", "C"}, p.Choices)
		}

		empty, err := repo.ListPages(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("SaveChoiceMissingPage", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.SaveChoice(ctx, uuid.New(), 1, 1)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("SaveChoiceLastWriteWins", func(t *testing.T) {
		repo := newRepo(t)
		id := uuid.New()
		_, err := repo.EnsureSession(ctx, id, "steve")
		require.NoError(t, err)
		_, err = repo.UpsertPage(ctx, page(id, 1, "p", "A", "B", "C"))
		require.NoError(t, err)

		require.NoError(t, repo.SaveChoice(ctx, id, 1, 1))
		require.NoError(t, repo.SaveChoice(ctx, id, 1, 2))

		got, err := repo.GetPage(ctx, id, 1)
		require.NoError(t, err)
		require.NotNil(t, got.ChoiceMade)
		assert.Equal(t, 2, *got.ChoiceMade)
		assert.Equal(t, "B", got.ChoiceText(*got.ChoiceMade))
	})

	t.Run("CountCompletedPlaythroughs", func(t *testing.T) {
		repo := newRepo(t)
		for i := 0; i < 3; i++ {
			id := uuid.New()
			_, err := repo.EnsureSession(ctx, id, "steve")
			require.NoError(t, err)
			last := 5
			if i == 2 {
				last = 4
			}
			_, err = repo.UpsertPage(ctx, page(id, last, "p"))
			require.NoError(t, err)
		}
		other := uuid.New()
		_, err := repo.EnsureSession(ctx, other, "FiFi")
		require.NoError(t, err)
		_, err = repo.UpsertPage(ctx, page(other, 5, "p"))
		require.NoError(t, err)

		n, err := repo.CountCompletedPlaythroughs(ctx, "steve", 5)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = repo.CountCompletedPlaythroughs(ctx, "spudnik", 5)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("AchievementsAreUniquePerType", func(t *testing.T) {
		repo := newRepo(t)
		id := uuid.New()
		_, err := repo.EnsureSession(ctx, id, "steve")
		require.NoError(t, err)

		added, err := repo.AddAchievement(ctx, id, models.AchievementStoryStarted)
		require.NoError(t, err)
		assert.True(t, added)

		added, err = repo.AddAchievement(ctx, id, models.AchievementStoryStarted)
		require.NoError(t, err)
		assert.False(t, added)

		_, err = repo.AddAchievement(ctx, id, models.AchievementPlaythroughComplete)
		require.NoError(t, err)

		list, err := repo.ListAchievements(ctx, id)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, models.AchievementStoryStarted, list[0].Type)
		assert.Equal(t, models.AchievementPlaythroughComplete, list[1].Type)
		assert.Equal(t, id, list[0].SessionID)
	})
}
