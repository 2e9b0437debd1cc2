package repository

import (
	"context"
	"testing"
	"time"

	"github.com/AzielCF/az-crm/domains/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A private in-memory database per test; the single connection keeps it
	// alive for the test's lifetime.
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func newChatRepo(t *testing.T) *ChatGormRepository {
	t.Helper()
	repo := NewChatGormRepository(newTestDB(t))
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func baseConversation() chat.Conversation {
	return chat.Conversation{
		OrganizationID: "org-1",
		Platform:       chat.PlatformWhatsApp,
		ContactPhone:   "+51987654321",
		ContactName:    "Maria",
		Status:         chat.ConversationActive,
		LastMessageAt:  time.Now().UTC(),
		UnreadCount:    1,
	}
}

func TestGetOrCreateConversation_DedupesOnContactKey(t *testing.T) {
	repo := newChatRepo(t)
	ctx := context.Background()

	first, created, err := repo.GetOrCreateConversation(ctx, baseConversation())
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.ID)

	// Same org, platform and phone resolves to the existing row.
	second, created, err := repo.GetOrCreateConversation(ctx, baseConversation())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// A different organization with the same contact gets its own thread.
	other := baseConversation()
	other.OrganizationID = "org-2"
	third, created, err := repo.GetOrCreateConversation(ctx, other)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestGetOrCreateConversation_RecoversFromInsertRace(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatGormRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	ctx := context.Background()

	// Sneak a winning row in after the pre-select has already missed, just
	// before the repository's own insert starts its transaction. The insert
	// then hits the unique index and must fall back to the re-select.
	injected := false
	winner := toConversationModel(baseConversation())
	winner.ID = "winner-1"
	winner.ContactName = "Concurrent Winner"
	winner.CreatedAt = time.Now().UTC()
	winner.UpdatedAt = winner.CreatedAt

	err := db.Callback().Create().Before("gorm:begin_transaction").
		Register("test:conversation_insert_race", func(tx *gorm.DB) {
			if injected {
				return
			}
			if _, ok := tx.Statement.Dest.(*conversationModel); !ok {
				return
			}
			injected = true
			require.NoError(t, db.Create(&winner).Error)
		})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Callback().Create().Remove("test:conversation_insert_race") })

	conv, created, err := repo.GetOrCreateConversation(ctx, baseConversation())
	require.NoError(t, err)
	assert.True(t, injected, "the conflicting row must land mid-call")
	assert.False(t, created)
	assert.Equal(t, "winner-1", conv.ID)
	assert.Equal(t, "Concurrent Winner", conv.ContactName)

	// Only the winner's row exists.
	convs, err := repo.ListConversations(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "winner-1", convs[0].ID)
}

func TestRegisterInbound_IncrementsUnread(t *testing.T) {
	repo := newChatRepo(t)
	ctx := context.Background()

	conv, _, err := repo.GetOrCreateConversation(ctx, baseConversation())
	require.NoError(t, err)

	later := time.Now().UTC().Add(time.Minute)
	require.NoError(t, repo.RegisterInbound(ctx, conv.ID, later))
	require.NoError(t, repo.RegisterInbound(ctx, conv.ID, later.Add(time.Minute)))

	got, err := repo.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.UnreadCount)

	require.NoError(t, repo.MarkRead(ctx, conv.ID))
	got, err = repo.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCount)
}

func TestCreateMessage_RejectsDuplicateExternalID(t *testing.T) {
	repo := newChatRepo(t)
	ctx := context.Background()

	conv, _, err := repo.GetOrCreateConversation(ctx, baseConversation())
	require.NoError(t, err)

	msg := chat.Message{
		ConversationID:    conv.ID,
		Sender:            chat.SenderUser,
		Text:              "Hola",
		ExternalMessageID: "wamid.ABC",
		Status:            chat.MessageDelivered,
		CreatedAt:         time.Now().UTC(),
	}
	_, err = repo.CreateMessage(ctx, msg)
	require.NoError(t, err)

	// A webhook redelivery inserts the same wamid again.
	_, err = repo.CreateMessage(ctx, msg)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestCreateMessage_AllowsManyWithoutExternalID(t *testing.T) {
	repo := newChatRepo(t)
	ctx := context.Background()

	conv, _, err := repo.GetOrCreateConversation(ctx, baseConversation())
	require.NoError(t, err)

	// NULL external ids must not collide on the unique index.
	for i := 0; i < 3; i++ {
		_, err := repo.CreateMessage(ctx, chat.Message{
			ConversationID: conv.ID,
			Sender:         chat.SenderAgent,
			Text:           "draft",
			Status:         chat.MessageSending,
			CreatedAt:      time.Now().UTC(),
		})
		require.NoError(t, err)
	}
}

func TestApplyMessageStatus_GuardsRank(t *testing.T) {
	repo := newChatRepo(t)
	ctx := context.Background()

	conv, _, err := repo.GetOrCreateConversation(ctx, baseConversation())
	require.NoError(t, err)

	_, err = repo.CreateMessage(ctx, chat.Message{
		ConversationID:    conv.ID,
		Sender:            chat.SenderAgent,
		Text:              "Gracias por escribirnos",
		ExternalMessageID: "wamid.OUT1",
		Status:            chat.MessageSent,
		CreatedAt:         time.Now().UTC(),
	})
	require.NoError(t, err)

	applied, err := repo.ApplyMessageStatus(ctx, "wamid.OUT1", chat.MessageRead)
	require.NoError(t, err)
	assert.True(t, applied)

	// The straggler "delivered" arrives after "read" and is dropped.
	applied, err = repo.ApplyMessageStatus(ctx, "wamid.OUT1", chat.MessageDelivered)
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := repo.GetMessageByExternalID(ctx, "wamid.OUT1")
	require.NoError(t, err)
	assert.Equal(t, chat.MessageRead, got.Status)
}

func TestApplyMessageStatus_UnknownWamid(t *testing.T) {
	repo := newChatRepo(t)

	_, err := repo.ApplyMessageStatus(context.Background(), "wamid.NOPE", chat.MessageDelivered)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListAndClearMessages(t *testing.T) {
	repo := newChatRepo(t)
	ctx := context.Background()

	conv, _, err := repo.GetOrCreateConversation(ctx, baseConversation())
	require.NoError(t, err)

	base := time.Now().UTC()
	for i, text := range []string{"uno", "dos", "tres"} {
		_, err := repo.CreateMessage(ctx, chat.Message{
			ConversationID: conv.ID,
			Sender:         chat.SenderUser,
			Text:           text,
			Status:         chat.MessageDelivered,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	messages, err := repo.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "uno", messages[0].Text)
	assert.Equal(t, "tres", messages[2].Text)

	require.NoError(t, repo.DeleteMessages(ctx, conv.ID))
	messages, err = repo.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	// The conversation row itself survives a clear.
	_, err = repo.GetConversation(ctx, conv.ID)
	assert.NoError(t, err)
}
