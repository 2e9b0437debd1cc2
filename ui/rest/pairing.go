package rest

import (
	domainPairing "github.com/AzielCF/az-crm/domains/pairing"
	"github.com/AzielCF/az-crm/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Pairing struct {
	Service domainPairing.IPairingUsecase
}

func InitRestPairing(app fiber.Router, service domainPairing.IPairingUsecase) Pairing {
	rest := Pairing{Service: service}
	app.Post("/pairing/generate", rest.Generate)
	app.Get("/pairing/:code", rest.Poll)
	app.Post("/pairing/finalize", rest.Finalize)
	return rest
}

func (controller *Pairing) Generate(c *fiber.Ctx) error {
	var request domainPairing.GenerateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	response, err := controller.Service.Generate(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success generate pairing code",
		Results: response,
	})
}

func (controller *Pairing) Poll(c *fiber.Ctx) error {
	code, err := controller.Service.Poll(c.UserContext(), c.Params("code"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch pairing status",
		Results: code,
	})
}

func (controller *Pairing) Finalize(c *fiber.Ctx) error {
	var request domainPairing.FinalizeRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	code, err := controller.Service.Finalize(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success finalize pairing",
		Results: code,
	})
}
