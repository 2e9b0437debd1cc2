package rest

import (
	"encoding/json"

	domainWebhook "github.com/AzielCF/az-crm/domains/webhook"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	"github.com/AzielCF/az-crm/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type WebhookConfig struct {
	AppSecret       string
	VerifyToken     string
	VerifySignature bool
}

type Webhook struct {
	Service domainWebhook.IWebhookUsecase
	Config  WebhookConfig
}

func InitRestWebhook(app fiber.Router, service domainWebhook.IWebhookUsecase, config WebhookConfig) Webhook {
	rest := Webhook{Service: service, Config: config}
	app.Get("/webhook/whatsapp", rest.Verify)
	app.Post("/webhook/whatsapp", rest.Receive)
	return rest
}

// Verify answers Meta's subscription handshake: echo hub.challenge when the
// verify token matches, 403 otherwise.
func (controller *Webhook) Verify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == controller.Config.VerifyToken {
		return c.Status(fiber.StatusOK).SendString(challenge)
	}

	logrus.Warn("[WEBHOOK] verification handshake rejected")
	return c.Status(fiber.StatusForbidden).JSON(utils.ResponseData{
		Status:  403,
		Code:    "FORBIDDEN",
		Message: "verify token mismatch",
	})
}

// Receive ingests a webhook batch. The signature is checked over the raw body
// bytes before any parsing; fail closed unless verification is explicitly
// disabled for local development.
func (controller *Webhook) Receive(c *fiber.Ctx) error {
	body := c.Body()

	if controller.Config.VerifySignature {
		header := c.Get("X-Hub-Signature-256")
		if !utils.ValidateSignature(body, header, controller.Config.AppSecret) {
			logrus.Warn("[WEBHOOK] signature check failed, discarding payload")
			panic(pkgError.AuthError("invalid webhook signature"))
		}
	}

	var payload domainWebhook.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		panic(pkgError.ValidationError("malformed webhook payload"))
	}
	if payload.Object != "whatsapp_business_account" {
		panic(pkgError.ValidationError("unsupported webhook object"))
	}

	err := controller.Service.ProcessPayload(c.UserContext(), payload)
	utils.PanicIfNeeded(err)

	// Meta only needs a 2xx; anything else triggers redelivery.
	return c.Status(fiber.StatusOK).SendString("OK")
}
