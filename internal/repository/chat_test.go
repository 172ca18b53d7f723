package repository

import (
	"context"
	"testing"
	"time"

	"schoolmates/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	user1 := createUser(t, db, "user1")
	user2 := createUser(t, db, "user2")
	outsider := createUser(t, db, "outsider")

	conv := &models.Conversation{CreatedBy: user1.ID}
	require.NoError(t, repo.CreateConversation(ctx, conv, []uint{user1.ID, user2.ID}))
	require.NotZero(t, conv.ID)
	require.Len(t, conv.Participants, 2)

	t.Run("IsParticipant", func(t *testing.T) {
		ok, err := repo.IsParticipant(ctx, conv.ID, user2.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.IsParticipant(ctx, conv.ID, outsider.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("GetConversation", func(t *testing.T) {
		got, err := repo.GetConversation(ctx, conv.ID)
		require.NoError(t, err)
		assert.True(t, got.HasParticipant(user1.ID))
		assert.True(t, got.HasParticipant(user2.ID))

		_, err = repo.GetConversation(ctx, 9999)
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	})

	t.Run("Messages are chronological with stable ties", func(t *testing.T) {
		same := time.Now().Add(-time.Minute).Truncate(time.Second)
		for _, content := range []string{"first", "second", "third"} {
			msg := &models.Message{ConversationID: conv.ID, SenderID: user1.ID, Content: content, CreatedAt: same}
			require.NoError(t, repo.CreateMessage(ctx, msg))
		}
		latest := &models.Message{ConversationID: conv.ID, SenderID: user2.ID, Content: "fourth"}
		require.NoError(t, repo.CreateMessage(ctx, latest))

		msgs, err := repo.GetMessages(ctx, conv.ID, 50, 0)
		require.NoError(t, err)
		require.Len(t, msgs, 4)
		var contents []string
		for _, m := range msgs {
			contents = append(contents, m.Content)
			assert.Empty(t, m.DeliveredTo)
			assert.Empty(t, m.ReadBy)
		}
		assert.Equal(t, []string{"first", "second", "third", "fourth"}, contents)
		assert.Equal(t, "user2", msgs[3].Sender.Name)

		page, err := repo.GetMessages(ctx, conv.ID, 2, 0)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "first", page[0].Content)
		assert.Equal(t, "second", page[1].Content)

		next, err := repo.GetMessages(ctx, conv.ID, 2, 2)
		require.NoError(t, err)
		require.Len(t, next, 2)
		assert.Equal(t, "third", next[0].Content)
		assert.Equal(t, "fourth", next[1].Content)

		all, err := repo.GetMessages(ctx, conv.ID, 0, 0)
		require.NoError(t, err)
		assert.Len(t, all, 4)

		rest, err := repo.GetMessages(ctx, conv.ID, 0, 3)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Equal(t, "fourth", rest[0].Content)
	})

	t.Run("Receipts are idempotent", func(t *testing.T) {
		msgs, err := repo.GetMessages(ctx, conv.ID, 1, 0)
		require.NoError(t, err)
		id := msgs[0].ID

		added, err := repo.AddDelivery(ctx, id, user1.ID)
		require.NoError(t, err)
		assert.True(t, added)

		added, err = repo.AddDelivery(ctx, id, user1.ID)
		require.NoError(t, err)
		assert.False(t, added)

		added, err = repo.AddRead(ctx, id, user1.ID)
		require.NoError(t, err)
		assert.True(t, added)

		got, err := repo.GetMessage(ctx, id)
		require.NoError(t, err)
		assert.True(t, got.IsDeliveredTo(user1.ID))
		assert.True(t, got.IsReadBy(user1.ID))
		assert.Len(t, got.DeliveredTo, 1)

		byIDs, err := repo.GetMessagesByIDs(ctx, []uint{id, 12345})
		require.NoError(t, err)
		require.Len(t, byIDs, 1)
		assert.Len(t, byIDs[0].ReadBy, 1)
	})

	t.Run("GetUserConversations", func(t *testing.T) {
		other := &models.Conversation{CreatedBy: user2.ID}
		require.NoError(t, repo.CreateConversation(ctx, other, []uint{user2.ID, outsider.ID}))

		convs, err := repo.GetUserConversations(ctx, user2.ID)
		require.NoError(t, err)
		assert.Len(t, convs, 2)
		for _, c := range convs {
			assert.Len(t, c.Participants, 2)
		}

		convs, err = repo.GetUserConversations(ctx, user1.ID)
		require.NoError(t, err)
		require.Len(t, convs, 1)
		assert.Equal(t, conv.ID, convs[0].ID)
	})

	_, err := repo.GetMessage(ctx, 424242)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}
