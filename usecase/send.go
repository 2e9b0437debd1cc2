package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	domainChat "github.com/AzielCF/az-crm/domains/chat"
	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	domainSend "github.com/AzielCF/az-crm/domains/send"
	"github.com/AzielCF/az-crm/infrastructure/events"
	"github.com/AzielCF/az-crm/infrastructure/meta"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	"github.com/AzielCF/az-crm/pkg/utils"
	"github.com/AzielCF/az-crm/repository"
	"github.com/AzielCF/az-crm/validations"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type serviceSend struct {
	chats        repository.IChatRepository
	integrations domainIntegration.IIntegrationUsecase
	client       meta.Client
	publisher    events.Publisher
}

func NewSendService(
	chats repository.IChatRepository,
	integrations domainIntegration.IIntegrationUsecase,
	client meta.Client,
	publisher events.Publisher,
) domainSend.ISendUsecase {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &serviceSend{
		chats:        chats,
		integrations: integrations,
		client:       client,
		publisher:    publisher,
	}
}

func (service *serviceSend) Send(ctx context.Context, request domainSend.MessageRequest) (domainSend.GenericResponse, error) {
	if err := validations.ValidateSendMessage(ctx, request); err != nil {
		return domainSend.GenericResponse{}, err
	}

	conv, err := service.chats.GetConversation(ctx, request.ChatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainSend.GenericResponse{}, pkgError.NotFoundError("chat not found")
		}
		return domainSend.GenericResponse{}, err
	}
	if conv.Platform != domainChat.PlatformWhatsApp {
		return domainSend.GenericResponse{}, pkgError.ValidationError("chat is not a whatsapp conversation")
	}

	in, err := service.integrations.GetByOrganization(ctx, conv.OrganizationID)
	if err != nil {
		return domainSend.GenericResponse{}, err
	}
	if in.Status != domainIntegration.StatusConnected || in.PhoneNumberID == "" || in.AccessToken == "" {
		return domainSend.GenericResponse{}, pkgError.IntegrationError(
			"whatsapp is not connected for this organization; pair a number first")
	}

	creds := meta.Credentials{
		PhoneNumberID: in.PhoneNumberID,
		AccessToken:   in.AccessToken,
	}
	to := utils.NormalizePhone(conv.ContactPhone)

	var (
		result     meta.SendResult
		text       string
		attachment string
	)
	switch {
	case request.Text != "":
		text = request.Text
		result, err = service.client.SendText(ctx, creds, to, request.Text)
	case request.ImageURL != "":
		text = request.Caption
		attachment = request.ImageURL
		result, err = service.client.SendImage(ctx, creds, to, request.ImageURL, request.Caption)
	default:
		text = request.Filename
		attachment = request.DocumentURL
		result, err = service.client.SendDocument(ctx, creds, to, request.DocumentURL, request.Filename)
	}
	if err != nil {
		// No message row is written on upstream failure; a ghost "sent"
		// message with no wamid could never be reconciled by status events.
		logrus.WithError(err).WithFields(logrus.Fields{
			"chat_id":         conv.ID,
			"organization_id": conv.OrganizationID,
		}).Error("[SEND] upstream send failed")

		// A 401/403 from Graph means the stored credential no longer works;
		// the integration stays flagged until the tenant pairs again.
		var upstream pkgError.UpstreamError
		if errors.As(err, &upstream) &&
			(upstream.Status == http.StatusUnauthorized || upstream.Status == http.StatusForbidden) {
			if markErr := service.integrations.MarkError(ctx, conv.OrganizationID, upstream.Message); markErr != nil {
				logrus.WithError(markErr).Warn("[SEND] failed to flag integration error")
			}
		}
		return domainSend.GenericResponse{}, err
	}

	now := time.Now().UTC()
	stored, err := service.chats.CreateMessage(ctx, domainChat.Message{
		ConversationID:    conv.ID,
		Sender:            domainChat.SenderAgent,
		Text:              text,
		AttachmentURL:     attachment,
		ExternalMessageID: result.ExternalMessageID,
		Status:            domainChat.MessageSent,
		CreatedAt:         now,
	})
	if err != nil {
		return domainSend.GenericResponse{}, err
	}

	// An agent reply implies the thread was seen; unread drops to zero.
	if err := service.chats.RegisterOutbound(ctx, conv.ID, now); err != nil {
		return domainSend.GenericResponse{}, err
	}

	if err := service.publisher.Publish(ctx, events.KeyConversationUpdated, map[string]any{
		"conversation_id": conv.ID,
		"organization_id": conv.OrganizationID,
		"message_id":      stored.ID,
	}); err != nil {
		logrus.WithError(err).Warn("[SEND] failed to publish conversation update")
	}

	logrus.WithFields(logrus.Fields{
		"chat_id": conv.ID,
		"wamid":   result.ExternalMessageID,
	}).Info("[SEND] Message sent successfully")

	return domainSend.GenericResponse{
		MessageID:         stored.ID,
		WhatsappMessageID: result.ExternalMessageID,
		Status:            string(domainChat.MessageSent),
	}, nil
}
