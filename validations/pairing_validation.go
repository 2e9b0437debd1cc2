package validations

import (
	"context"

	domainPairing "github.com/AzielCF/az-crm/domains/pairing"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidatePairingGenerate(ctx context.Context, request domainPairing.GenerateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.OrganizationID, validation.Required),
		validation.Field(&request.PhoneNumber, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidatePairingFinalize(ctx context.Context, request domainPairing.FinalizeRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Code, validation.Required),
		validation.Field(&request.PhoneNumberID, validation.Required),
		validation.Field(&request.AccessToken, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
