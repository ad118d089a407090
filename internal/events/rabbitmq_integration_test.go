//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"comic-server/internal/events"
	"comic-server/internal/models"
)

func TestRabbitMQPublisher_PublishesJSON(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	ctx := context.Background()

	rmqContainer, err := rabbitmq.Run(ctx,
		"rabbitmq:3-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete"),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rmqContainer.Terminate(ctx) })

	amqpURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	conn, err := events.Connect(amqpURL, 5, time.Second, zap.NewNop())
	require.NoError(t, err)
	defer conn.Close()

	pub, err := events.NewRabbitMQPublisher(conn, "story_events_test", zap.NewNop())
	require.NoError(t, err)
	defer pub.Close()

	sessionID := uuid.New()
	err = pub.Publish(ctx, events.StoryEvent{
		Type:        events.EventAchievementUnlocked,
		SessionID:   sessionID,
		PageNumber:  5,
		Character:   "steve",
		Achievement: models.AchievementPlaythroughComplete,
		OccurredAt:  time.Now().UTC(),
	})
	require.NoError(t, err)

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	var msgBody []byte
	require.Eventually(t, func() bool {
		msg, ok, err := ch.Get("story_events_test", true)
		if err != nil || !ok {
			return false
		}
		msgBody = msg.Body
		return true
	}, 10*time.Second, 100*time.Millisecond)

	var got events.StoryEvent
	require.NoError(t, json.Unmarshal(msgBody, &got))
	assert.Equal(t, events.EventAchievementUnlocked, got.Type)
	assert.Equal(t, sessionID, got.SessionID)
	assert.Equal(t, models.AchievementPlaythroughComplete, got.Achievement)
	assert.Equal(t, 5, got.PageNumber)
}
