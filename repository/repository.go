package repository

import (
	"context"
	"time"

	"github.com/AzielCF/az-crm/domains/chat"
	"github.com/AzielCF/az-crm/domains/integration"
	"github.com/AzielCF/az-crm/domains/pairing"
)

type IIntegrationRepository interface {
	Init(ctx context.Context) error
	GetByOrganization(ctx context.Context, organizationID string) (integration.Integration, error)
	// GetConnectedByPhoneNumberID returns (nil, nil) when no connected
	// integration claims the phone-number-id.
	GetConnectedByPhoneNumberID(ctx context.Context, phoneNumberID string) (*integration.Integration, error)
	Upsert(ctx context.Context, in integration.Integration) (integration.Integration, error)
	OrganizationExists(ctx context.Context, organizationID string) (bool, error)
}

type IChatRepository interface {
	Init(ctx context.Context) error

	GetConversation(ctx context.Context, id string) (chat.Conversation, error)
	// GetOrCreateConversation inserts the conversation and, on a uniqueness
	// violation over (organization, platform, contact phone), re-selects the
	// existing row instead. The bool reports whether a row was created.
	GetOrCreateConversation(ctx context.Context, conv chat.Conversation) (chat.Conversation, bool, error)
	ListConversations(ctx context.Context, organizationID string) ([]chat.Conversation, error)
	// RegisterInbound bumps unread_count atomically and advances last_message_at.
	RegisterInbound(ctx context.Context, conversationID string, at time.Time) error
	// RegisterOutbound resets unread_count and advances last_message_at.
	RegisterOutbound(ctx context.Context, conversationID string, at time.Time) error
	MarkRead(ctx context.Context, conversationID string) error

	CreateMessage(ctx context.Context, m chat.Message) (chat.Message, error)
	GetMessageByExternalID(ctx context.Context, externalID string) (chat.Message, error)
	// ApplyMessageStatus applies the delivery-state transition when it
	// advances the monotonic rank. Returns whether an update was written.
	ApplyMessageStatus(ctx context.Context, externalID string, status chat.MessageStatus) (bool, error)
	ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error)
	DeleteMessages(ctx context.Context, conversationID string) error
}

type IPairingRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, code pairing.Code) error
	GetByCode(ctx context.Context, code string) (pairing.Code, error)
	Update(ctx context.Context, code pairing.Code) error
	// ExpireOutstanding flips the organization's pending/scanned codes to
	// expired before a fresh code is minted.
	ExpireOutstanding(ctx context.Context, organizationID string) error
}
