package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/AzielCF/az-crm/domains/chat"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Persistence Models ---

type conversationModel struct {
	ID             string    `gorm:"primaryKey;column:id"`
	OrganizationID string    `gorm:"column:organization_id;not null;uniqueIndex:idx_org_platform_phone"`
	Platform       string    `gorm:"column:platform;not null;uniqueIndex:idx_org_platform_phone"`
	ContactPhone   string    `gorm:"column:contact_phone;not null;uniqueIndex:idx_org_platform_phone"`
	ContactName    string    `gorm:"column:contact_name;not null"`
	Status         string    `gorm:"column:status;default:'active'"`
	BotActive      bool      `gorm:"column:bot_active;default:false"`
	LastMessageAt  time.Time `gorm:"column:last_message_at;index"`
	UnreadCount    int       `gorm:"column:unread_count;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null"`
}

func (conversationModel) TableName() string { return "conversations" }

type messageModel struct {
	ID                string         `gorm:"primaryKey;column:id"`
	ConversationID    string         `gorm:"column:conversation_id;not null;index"`
	Sender            string         `gorm:"column:sender;not null"`
	Text              sql.NullString `gorm:"column:text"`
	AttachmentURL     sql.NullString `gorm:"column:attachment_url"`
	ExternalMessageID *string        `gorm:"column:external_message_id;uniqueIndex"`
	Status            string         `gorm:"column:status;not null"`
	CreatedAt         time.Time      `gorm:"column:created_at;not null;index"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;not null"`
}

func (messageModel) TableName() string { return "messages" }

// --- Repository Implementation ---

type ChatGormRepository struct {
	db *gorm.DB
}

func NewChatGormRepository(db *gorm.DB) *ChatGormRepository {
	return &ChatGormRepository{db: db}
}

func (r *ChatGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&conversationModel{},
		&messageModel{},
	)
}

// Conversations

func (r *ChatGormRepository) GetConversation(ctx context.Context, id string) (chat.Conversation, error) {
	var m conversationModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return chat.Conversation{}, err
	}
	return fromConversationModel(m), nil
}

func (r *ChatGormRepository) GetOrCreateConversation(ctx context.Context, conv chat.Conversation) (chat.Conversation, bool, error) {
	reselect := func() (chat.Conversation, error) {
		var m conversationModel
		err := r.db.WithContext(ctx).
			Where("organization_id = ? AND platform = ? AND contact_phone = ?",
				conv.OrganizationID, string(conv.Platform), conv.ContactPhone).
			First(&m).Error
		if err != nil {
			return chat.Conversation{}, err
		}
		return fromConversationModel(m), nil
	}

	if existing, err := reselect(); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return chat.Conversation{}, false, err
	}

	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	conv.CreatedAt = time.Now().UTC()
	m := toConversationModel(conv)
	m.UpdatedAt = conv.CreatedAt

	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		// Concurrent inbound events for a brand-new contact can race past the
		// pre-select; the unique index settles it, we re-use the winner's row.
		if IsUniqueViolation(err) {
			existing, selErr := reselect()
			if selErr != nil {
				return chat.Conversation{}, false, selErr
			}
			return existing, false, nil
		}
		return chat.Conversation{}, false, err
	}
	return fromConversationModel(m), true, nil
}

func (r *ChatGormRepository) ListConversations(ctx context.Context, organizationID string) ([]chat.Conversation, error) {
	var models []conversationModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("last_message_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]chat.Conversation, len(models))
	for i, m := range models {
		res[i] = fromConversationModel(m)
	}
	return res, nil
}

func (r *ChatGormRepository) RegisterInbound(ctx context.Context, conversationID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&conversationModel{}).
		Where("id = ?", conversationID).
		UpdateColumns(map[string]any{
			"unread_count":    gorm.Expr("unread_count + ?", 1),
			"last_message_at": at,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *ChatGormRepository) RegisterOutbound(ctx context.Context, conversationID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&conversationModel{}).
		Where("id = ?", conversationID).
		UpdateColumns(map[string]any{
			"unread_count":    0,
			"last_message_at": at,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *ChatGormRepository) MarkRead(ctx context.Context, conversationID string) error {
	return r.db.WithContext(ctx).Model(&conversationModel{}).
		Where("id = ?", conversationID).
		UpdateColumns(map[string]any{
			"unread_count": 0,
			"updated_at":   time.Now().UTC(),
		}).Error
}

// Messages

func (r *ChatGormRepository) CreateMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	m := toMessageModel(msg)
	m.UpdatedAt = time.Now().UTC()
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return chat.Message{}, err
	}
	return fromMessageModel(m), nil
}

func (r *ChatGormRepository) GetMessageByExternalID(ctx context.Context, externalID string) (chat.Message, error) {
	var m messageModel
	if err := r.db.WithContext(ctx).First(&m, "external_message_id = ?", externalID).Error; err != nil {
		return chat.Message{}, err
	}
	return fromMessageModel(m), nil
}

func (r *ChatGormRepository) ApplyMessageStatus(ctx context.Context, externalID string, status chat.MessageStatus) (bool, error) {
	var m messageModel
	if err := r.db.WithContext(ctx).First(&m, "external_message_id = ?", externalID).Error; err != nil {
		return false, err
	}

	if !chat.CanTransition(chat.MessageStatus(m.Status), status) {
		return false, nil
	}

	// Optimistic guard: only write on top of the state we just read. A
	// concurrent writer advancing the rank first simply wins.
	res := r.db.WithContext(ctx).Model(&messageModel{}).
		Where("id = ? AND status = ?", m.ID, m.Status).
		UpdateColumns(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ChatGormRepository) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var models []messageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]chat.Message, len(models))
	for i, m := range models {
		res[i] = fromMessageModel(m)
	}
	return res, nil
}

func (r *ChatGormRepository) DeleteMessages(ctx context.Context, conversationID string) error {
	return r.db.WithContext(ctx).Delete(&messageModel{}, "conversation_id = ?", conversationID).Error
}

// --- Converters ---

func toConversationModel(c chat.Conversation) conversationModel {
	return conversationModel{
		ID:             c.ID,
		OrganizationID: c.OrganizationID,
		Platform:       string(c.Platform),
		ContactPhone:   c.ContactPhone,
		ContactName:    c.ContactName,
		Status:         string(c.Status),
		BotActive:      c.BotActive,
		LastMessageAt:  c.LastMessageAt,
		UnreadCount:    c.UnreadCount,
		CreatedAt:      c.CreatedAt,
	}
}

func fromConversationModel(m conversationModel) chat.Conversation {
	return chat.Conversation{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Platform:       chat.Platform(m.Platform),
		ContactPhone:   m.ContactPhone,
		ContactName:    m.ContactName,
		Status:         chat.ConversationStatus(m.Status),
		BotActive:      m.BotActive,
		LastMessageAt:  m.LastMessageAt,
		UnreadCount:    m.UnreadCount,
		CreatedAt:      m.CreatedAt,
	}
}

func toMessageModel(msg chat.Message) messageModel {
	var externalID *string
	if msg.ExternalMessageID != "" {
		id := msg.ExternalMessageID
		externalID = &id
	}
	return messageModel{
		ID:                msg.ID,
		ConversationID:    msg.ConversationID,
		Sender:            string(msg.Sender),
		Text:              nullString(msg.Text),
		AttachmentURL:     nullString(msg.AttachmentURL),
		ExternalMessageID: externalID,
		Status:            string(msg.Status),
		CreatedAt:         msg.CreatedAt,
	}
}

func fromMessageModel(m messageModel) chat.Message {
	externalID := ""
	if m.ExternalMessageID != nil {
		externalID = *m.ExternalMessageID
	}
	return chat.Message{
		ID:                m.ID,
		ConversationID:    m.ConversationID,
		Sender:            chat.Sender(m.Sender),
		Text:              m.Text.String,
		AttachmentURL:     m.AttachmentURL.String,
		ExternalMessageID: externalID,
		Status:            chat.MessageStatus(m.Status),
		CreatedAt:         m.CreatedAt,
	}
}

// IsUniqueViolation reports whether the driver rejected an insert over a
// unique index, across the sqlite and postgres error vocabularies.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
