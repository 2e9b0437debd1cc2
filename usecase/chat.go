package usecase

import (
	"context"
	"errors"

	domainChat "github.com/AzielCF/az-crm/domains/chat"
	"github.com/AzielCF/az-crm/infrastructure/events"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	"github.com/AzielCF/az-crm/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type serviceChat struct {
	repo      repository.IChatRepository
	publisher events.Publisher
}

func NewChatService(repo repository.IChatRepository, publisher events.Publisher) domainChat.IChatUsecase {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &serviceChat{repo: repo, publisher: publisher}
}

func (service *serviceChat) ListConversations(ctx context.Context, organizationID string) ([]domainChat.Conversation, error) {
	if organizationID == "" {
		return nil, pkgError.ValidationError("organization_id is required")
	}
	return service.repo.ListConversations(ctx, organizationID)
}

func (service *serviceChat) ListMessages(ctx context.Context, conversationID string) ([]domainChat.Message, error) {
	if _, err := service.getConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return service.repo.ListMessages(ctx, conversationID)
}

func (service *serviceChat) MarkRead(ctx context.Context, conversationID string) error {
	conv, err := service.getConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := service.repo.MarkRead(ctx, conversationID); err != nil {
		return err
	}
	if err := service.publisher.Publish(ctx, events.KeyConversationUpdated, map[string]any{
		"conversation_id": conv.ID,
		"organization_id": conv.OrganizationID,
		"unread_count":    0,
	}); err != nil {
		logrus.WithError(err).Warn("[CHAT] failed to publish conversation update")
	}
	return nil
}

// Clear empties the conversation's messages; the conversation row survives so
// the thread keeps its place in the inbox.
func (service *serviceChat) Clear(ctx context.Context, conversationID string) error {
	if _, err := service.getConversation(ctx, conversationID); err != nil {
		return err
	}
	return service.repo.DeleteMessages(ctx, conversationID)
}

func (service *serviceChat) getConversation(ctx context.Context, conversationID string) (domainChat.Conversation, error) {
	if conversationID == "" {
		return domainChat.Conversation{}, pkgError.ValidationError("conversation id is required")
	}
	conv, err := service.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainChat.Conversation{}, pkgError.NotFoundError("conversation not found")
		}
		return domainChat.Conversation{}, err
	}
	return conv, nil
}
