package usecase

import (
	"context"
	"testing"
	"time"

	domainChat "github.com/AzielCF/az-crm/domains/chat"
	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	domainWebhook "github.com/AzielCF/az-crm/domains/webhook"
	"github.com/AzielCF/az-crm/infrastructure/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPhoneNumberID = "723144527547373"

func connectedIntegration() domainIntegration.Integration {
	return domainIntegration.Integration{
		ID:             "int-1",
		OrganizationID: "org-1",
		PhoneNumber:    "+51912345678",
		PhoneNumberID:  testPhoneNumberID,
		AccessToken:    "token",
		Status:         domainIntegration.StatusConnected,
	}
}

func textPayload(wamid, from, name, body, ts string) domainWebhook.Payload {
	raw := domainWebhook.RawMessage{
		ID:        wamid,
		From:      from,
		Timestamp: ts,
		Type:      "text",
	}
	raw.Text = &struct {
		Body string `json:"body"`
	}{Body: body}

	contact := domainWebhook.Contact{WaID: from}
	contact.Profile.Name = name

	return domainWebhook.Payload{
		Object: "whatsapp_business_account",
		Entry: []domainWebhook.Entry{{
			ID: "entry-1",
			Changes: []domainWebhook.Change{{
				Field: "messages",
				Value: domainWebhook.Value{
					MessagingProduct: "whatsapp",
					Metadata:         domainWebhook.Metadata{PhoneNumberID: testPhoneNumberID},
					Contacts:         []domainWebhook.Contact{contact},
					Messages:         []domainWebhook.RawMessage{raw},
				},
			}},
		}},
	}
}

func statusPayload(wamid, status string) domainWebhook.Payload {
	return domainWebhook.Payload{
		Object: "whatsapp_business_account",
		Entry: []domainWebhook.Entry{{
			Changes: []domainWebhook.Change{{
				Field: "messages",
				Value: domainWebhook.Value{
					Metadata: domainWebhook.Metadata{PhoneNumberID: testPhoneNumberID},
					Statuses: []domainWebhook.StatusEvent{{
						ID:        wamid,
						Status:    status,
						Timestamp: "1700000060",
					}},
				},
			}},
		}},
	}
}

func TestProcessPayload_InboundTextCreatesConversation(t *testing.T) {
	chats := newTestChatRepo(t)
	integrations := newFakeIntegrations()
	integrations.add(connectedIntegration())
	publisher := &capturePublisher{}

	service := NewWebhookService(integrations, chats, nil, publisher)
	ctx := context.Background()

	err := service.ProcessPayload(ctx, textPayload("wamid.ABC", "51987654321", "Maria", "Hola", "1700000000"))
	require.NoError(t, err)

	convs, err := chats.ListConversations(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, convs, 1)

	conv := convs[0]
	assert.Equal(t, "+51987654321", conv.ContactPhone)
	assert.Equal(t, "Maria", conv.ContactName)
	assert.Equal(t, domainChat.PlatformWhatsApp, conv.Platform)
	assert.Equal(t, 1, conv.UnreadCount)
	assert.Equal(t, int64(1700000000), conv.LastMessageAt.Unix())

	messages, err := chats.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Hola", messages[0].Text)
	assert.Equal(t, domainChat.SenderUser, messages[0].Sender)
	assert.Equal(t, domainChat.MessageDelivered, messages[0].Status)
	assert.Equal(t, "wamid.ABC", messages[0].ExternalMessageID)

	assert.Equal(t, []string{events.KeyMessageReceived}, publisher.keys())
}

func TestProcessPayload_RedeliveryIsIdempotent(t *testing.T) {
	chats := newTestChatRepo(t)
	integrations := newFakeIntegrations()
	integrations.add(connectedIntegration())

	service := NewWebhookService(integrations, chats, nil, nil)
	ctx := context.Background()

	payload := textPayload("wamid.ABC", "51987654321", "Maria", "Hola", "1700000000")
	require.NoError(t, service.ProcessPayload(ctx, payload))
	// Meta delivers the same batch again.
	require.NoError(t, service.ProcessPayload(ctx, payload))

	convs, err := chats.ListConversations(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 1, convs[0].UnreadCount, "a duplicate must not bump unread")

	messages, err := chats.ListMessages(ctx, convs[0].ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestProcessPayload_SecondMessageBumpsUnread(t *testing.T) {
	chats := newTestChatRepo(t)
	integrations := newFakeIntegrations()
	integrations.add(connectedIntegration())

	service := NewWebhookService(integrations, chats, nil, nil)
	ctx := context.Background()

	require.NoError(t, service.ProcessPayload(ctx,
		textPayload("wamid.A1", "51987654321", "Maria", "Hola", "1700000000")))
	require.NoError(t, service.ProcessPayload(ctx,
		textPayload("wamid.A2", "51987654321", "Maria", "Sigues ahi?", "1700000120")))

	convs, err := chats.ListConversations(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 2, convs[0].UnreadCount)
	assert.Equal(t, int64(1700000120), convs[0].LastMessageAt.Unix())
}

func TestProcessPayload_UnclaimedNumberIsSkipped(t *testing.T) {
	chats := newTestChatRepo(t)
	integrations := newFakeIntegrations() // nothing registered

	service := NewWebhookService(integrations, chats, nil, nil)
	ctx := context.Background()

	require.NoError(t, service.ProcessPayload(ctx,
		textPayload("wamid.ABC", "51987654321", "Maria", "Hola", "1700000000")))

	convs, err := chats.ListConversations(ctx, "org-1")
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestProcessPayload_NamelessContactGetsMaskedPhone(t *testing.T) {
	chats := newTestChatRepo(t)
	integrations := newFakeIntegrations()
	integrations.add(connectedIntegration())

	service := NewWebhookService(integrations, chats, nil, nil)
	ctx := context.Background()

	require.NoError(t, service.ProcessPayload(ctx,
		textPayload("wamid.ABC", "51987654321", "", "Hola", "1700000000")))

	convs, err := chats.ListConversations(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "+51•••••4321", convs[0].ContactName)
}

func TestProcessPayload_StatusTransitions(t *testing.T) {
	chats := newTestChatRepo(t)
	integrations := newFakeIntegrations()
	integrations.add(connectedIntegration())
	publisher := &capturePublisher{}

	service := NewWebhookService(integrations, chats, nil, publisher)
	ctx := context.Background()

	conv, _, err := chats.GetOrCreateConversation(ctx, domainChat.Conversation{
		OrganizationID: "org-1",
		Platform:       domainChat.PlatformWhatsApp,
		ContactPhone:   "+51987654321",
		ContactName:    "Maria",
		Status:         domainChat.ConversationActive,
		LastMessageAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	_, err = chats.CreateMessage(ctx, domainChat.Message{
		ConversationID:    conv.ID,
		Sender:            domainChat.SenderAgent,
		Text:              "Gracias",
		ExternalMessageID: "wamid.OUT1",
		Status:            domainChat.MessageSent,
		CreatedAt:         time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, service.ProcessPayload(ctx, statusPayload("wamid.OUT1", "read")))
	got, err := chats.GetMessageByExternalID(ctx, "wamid.OUT1")
	require.NoError(t, err)
	assert.Equal(t, domainChat.MessageRead, got.Status)

	// Stale delivered after read: state must hold, no event emitted.
	require.NoError(t, service.ProcessPayload(ctx, statusPayload("wamid.OUT1", "delivered")))
	got, err = chats.GetMessageByExternalID(ctx, "wamid.OUT1")
	require.NoError(t, err)
	assert.Equal(t, domainChat.MessageRead, got.Status)

	// Unknown wamid and unknown status values are discarded quietly.
	require.NoError(t, service.ProcessPayload(ctx, statusPayload("wamid.NOPE", "delivered")))
	require.NoError(t, service.ProcessPayload(ctx, statusPayload("wamid.OUT1", "played")))

	assert.Equal(t, []string{events.KeyMessageStatus}, publisher.keys())
}

func TestProcessPayload_BotHandOff(t *testing.T) {
	chats := newTestChatRepo(t)
	integrations := newFakeIntegrations()
	integrations.add(connectedIntegration())
	notifier := newCaptureNotifier()

	service := NewWebhookService(integrations, chats, notifier, nil)
	ctx := context.Background()

	// Pre-create the thread with the bot flag on.
	_, _, err := chats.GetOrCreateConversation(ctx, domainChat.Conversation{
		OrganizationID: "org-1",
		Platform:       domainChat.PlatformWhatsApp,
		ContactPhone:   "+51987654321",
		ContactName:    "Maria",
		Status:         domainChat.ConversationActive,
		BotActive:      true,
		LastMessageAt:  time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, service.ProcessPayload(ctx,
		textPayload("wamid.ABC", "51987654321", "Maria", "Hola bot", "1700000000")))

	select {
	case msg := <-notifier.called:
		assert.Equal(t, "Hola bot", msg.Text)
		assert.Equal(t, domainWebhook.InboundText, msg.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("bot notifier was never called")
	}
}
