package rest

import (
	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	"github.com/AzielCF/az-crm/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Integration struct {
	Service domainIntegration.IIntegrationUsecase
}

func InitRestIntegration(app fiber.Router, service domainIntegration.IIntegrationUsecase) Integration {
	rest := Integration{Service: service}
	app.Get("/integrations/:organization_id", rest.Get)
	app.Post("/integrations/connect", rest.Connect)
	app.Delete("/integrations/:organization_id", rest.Disconnect)
	return rest
}

func (controller *Integration) Get(c *fiber.Ctx) error {
	in, err := controller.Service.GetByOrganization(c.UserContext(), c.Params("organization_id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch integration",
		Results: in,
	})
}

// Connect registers credentials directly, bypassing the QR flow. Used for
// embedded-signup callbacks and manual setups.
func (controller *Integration) Connect(c *fiber.Ctx) error {
	var request domainIntegration.ConnectRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	in, err := controller.Service.Connect(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success connect integration",
		Results: in,
	})
}

func (controller *Integration) Disconnect(c *fiber.Ctx) error {
	err := controller.Service.Disconnect(c.UserContext(), c.Params("organization_id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success disconnect integration",
	})
}
