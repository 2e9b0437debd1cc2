package rest

import (
	domainChat "github.com/AzielCF/az-crm/domains/chat"
	"github.com/AzielCF/az-crm/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Chat struct {
	Service domainChat.IChatUsecase
}

func InitRestChat(app fiber.Router, service domainChat.IChatUsecase) Chat {
	rest := Chat{Service: service}
	app.Get("/chats", rest.ListConversations)
	app.Get("/chats/:id/messages", rest.ListMessages)
	app.Post("/chats/:id/read", rest.MarkRead)
	app.Delete("/chats/:id/messages", rest.ClearMessages)
	return rest
}

func (controller *Chat) ListConversations(c *fiber.Ctx) error {
	organizationID := c.Query("organization_id")
	if organizationID == "" {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: "organization_id is required",
		})
	}

	conversations, err := controller.Service.ListConversations(c.UserContext(), organizationID)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch conversations",
		Results: conversations,
	})
}

func (controller *Chat) ListMessages(c *fiber.Ctx) error {
	messages, err := controller.Service.ListMessages(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch messages",
		Results: messages,
	})
}

func (controller *Chat) MarkRead(c *fiber.Ctx) error {
	err := controller.Service.MarkRead(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success mark conversation as read",
	})
}

func (controller *Chat) ClearMessages(c *fiber.Ctx) error {
	err := controller.Service.Clear(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success clear conversation messages",
	})
}
