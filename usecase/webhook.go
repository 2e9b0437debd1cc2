package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	domainChat "github.com/AzielCF/az-crm/domains/chat"
	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	domainWebhook "github.com/AzielCF/az-crm/domains/webhook"
	"github.com/AzielCF/az-crm/infrastructure/events"
	"github.com/AzielCF/az-crm/pkg/utils"
	"github.com/AzielCF/az-crm/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type serviceWebhook struct {
	integrations domainIntegration.IIntegrationUsecase
	chats        repository.IChatRepository
	bot          domainWebhook.BotNotifier // optional
	publisher    events.Publisher
}

func NewWebhookService(
	integrations domainIntegration.IIntegrationUsecase,
	chats repository.IChatRepository,
	bot domainWebhook.BotNotifier,
	publisher events.Publisher,
) domainWebhook.IWebhookUsecase {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &serviceWebhook{
		integrations: integrations,
		chats:        chats,
		bot:          bot,
		publisher:    publisher,
	}
}

// ProcessPayload walks the batch. One webhook call can in theory carry events
// for several phone numbers, so an unresolved phone-number-id only skips its
// own change, and one bad message never blocks its siblings.
func (service *serviceWebhook) ProcessPayload(ctx context.Context, payload domainWebhook.Payload) error {
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value

			in, err := service.integrations.ResolveByPhoneNumberID(ctx, value.Metadata.PhoneNumberID)
			if err != nil {
				logrus.WithError(err).WithField("phone_number_id", value.Metadata.PhoneNumberID).
					Error("[WEBHOOK] integration lookup failed, skipping change")
				continue
			}
			if in == nil {
				logrus.WithField("phone_number_id", value.Metadata.PhoneNumberID).
					Debug("[WEBHOOK] no connected integration claims this number, skipping change")
				continue
			}

			for _, raw := range value.Messages {
				msg := normalizeInbound(raw, value.Contacts)
				if err := service.handleInbound(ctx, *in, msg); err != nil {
					logrus.WithError(err).WithFields(logrus.Fields{
						"organization_id": in.OrganizationID,
						"external_id":     msg.ExternalID,
					}).Error("[WEBHOOK] failed to process inbound message")
				}
			}

			for _, status := range value.Statuses {
				service.handleStatus(ctx, status)
			}
		}
	}
	return nil
}

// normalizeInbound turns the loosely-typed payload into the tagged union once,
// at the boundary. Downstream code never re-inspects the raw shape.
func normalizeInbound(raw domainWebhook.RawMessage, contacts []domainWebhook.Contact) domainWebhook.InboundMessage {
	msg := domainWebhook.InboundMessage{
		Kind:       domainWebhook.InboundUnknown,
		ExternalID: raw.ID,
		From:       raw.From,
		Timestamp:  parseEpochSeconds(raw.Timestamp),
	}

	for _, c := range contacts {
		if c.WaID == raw.From {
			msg.SenderName = strings.TrimSpace(c.Profile.Name)
			break
		}
	}

	switch raw.Type {
	case "text":
		msg.Kind = domainWebhook.InboundText
		if raw.Text != nil {
			msg.Text = raw.Text.Body
		}
	case "image":
		msg.Kind = domainWebhook.InboundImage
		if raw.Image != nil {
			msg.Text = raw.Image.Caption
			msg.AttachmentURL = raw.Image.Link
		}
	case "document":
		msg.Kind = domainWebhook.InboundDocument
		if raw.Document != nil {
			msg.Text = raw.Document.Caption
			msg.AttachmentURL = raw.Document.Link
		}
	}

	return msg
}

func (service *serviceWebhook) handleInbound(ctx context.Context, in domainIntegration.Integration, msg domainWebhook.InboundMessage) error {
	phone := utils.NormalizePhone(msg.From)
	if phone == "" {
		return errors.New("inbound message carries no sender")
	}
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}

	name := msg.SenderName
	if name == "" {
		name = utils.MaskPhone(phone)
	}

	conv, created, err := service.chats.GetOrCreateConversation(ctx, domainChat.Conversation{
		OrganizationID: in.OrganizationID,
		Platform:       domainChat.PlatformWhatsApp,
		ContactPhone:   phone,
		ContactName:    name,
		Status:         domainChat.ConversationActive,
		LastMessageAt:  msg.Timestamp,
		UnreadCount:    1,
	})
	if err != nil {
		return err
	}

	stored, err := service.chats.CreateMessage(ctx, domainChat.Message{
		ConversationID:    conv.ID,
		Sender:            domainChat.SenderUser,
		Text:              msg.Text,
		AttachmentURL:     msg.AttachmentURL,
		ExternalMessageID: msg.ExternalID,
		Status:            domainChat.MessageDelivered,
		CreatedAt:         msg.Timestamp,
	})
	if err != nil {
		// Meta redelivers webhook calls; the unique wamid index turns the
		// duplicate insert into a no-op skip.
		if repository.IsUniqueViolation(err) {
			logrus.WithField("external_id", msg.ExternalID).Debug("[WEBHOOK] duplicate inbound message, skipping")
			return nil
		}
		return err
	}

	// A fresh conversation row was already born with unread 1 and the event's
	// last_message_at; only an existing one needs the counters bumped.
	if !created {
		if err := service.chats.RegisterInbound(ctx, conv.ID, msg.Timestamp); err != nil {
			return err
		}
	}

	if conv.BotActive && service.bot != nil {
		go service.bot.NotifyInbound(context.WithoutCancel(ctx), in.OrganizationID, conv.ID, msg)
	}

	if err := service.publisher.Publish(ctx, events.KeyMessageReceived, map[string]any{
		"organization_id": in.OrganizationID,
		"conversation_id": conv.ID,
		"message_id":      stored.ID,
		"kind":            string(msg.Kind),
	}); err != nil {
		logrus.WithError(err).Warn("[WEBHOOK] failed to publish message event")
	}

	logrus.WithFields(logrus.Fields{
		"organization_id": in.OrganizationID,
		"conversation_id": conv.ID,
		"kind":            string(msg.Kind),
		"new_chat":        created,
	}).Info("[WEBHOOK] inbound message stored")

	return nil
}

// handleStatus applies a delivery-state transition. An unknown wamid is
// tolerated: the message may belong to another tenant's subscription or the
// send-confirmation may not be persisted yet. Meta will not retry based on
// our internal state, so we log and move on.
func (service *serviceWebhook) handleStatus(ctx context.Context, event domainWebhook.StatusEvent) {
	if !domainChat.IsKnownStatus(event.Status) {
		logrus.WithFields(logrus.Fields{
			"external_id": event.ID,
			"status":      event.Status,
		}).Debug("[WEBHOOK] unknown status value, discarding")
		return
	}

	applied, err := service.chats.ApplyMessageStatus(ctx, event.ID, domainChat.MessageStatus(event.Status))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithField("external_id", event.ID).Debug("[WEBHOOK] status for unknown message, discarding")
			return
		}
		logrus.WithError(err).WithField("external_id", event.ID).Error("[WEBHOOK] failed to apply status")
		return
	}
	if !applied {
		// Stale event behind the current rank; the guard kept the newer state.
		return
	}

	if err := service.publisher.Publish(ctx, events.KeyMessageStatus, map[string]any{
		"external_message_id": event.ID,
		"status":              event.Status,
	}); err != nil {
		logrus.WithError(err).Warn("[WEBHOOK] failed to publish status event")
	}
}

// parseEpochSeconds keeps the platform's event time; falling back to now only
// when the payload carries garbage. Using event time preserves ordering under
// delivery delay.
func parseEpochSeconds(raw string) time.Time {
	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || secs <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}
