package validations

import (
	"context"

	domainSend "github.com/AzielCF/az-crm/domains/send"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

func ValidateSendMessage(ctx context.Context, request domainSend.MessageRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.ChatID, validation.Required),
		validation.Field(&request.ImageURL, is.URL),
		validation.Field(&request.DocumentURL, is.URL),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	// Exactly one content kind per request keeps the outbound call and the
	// stored message unambiguous.
	kinds := 0
	if request.Text != "" {
		kinds++
	}
	if request.ImageURL != "" {
		kinds++
	}
	if request.DocumentURL != "" {
		kinds++
	}
	if kinds != 1 {
		return pkgError.ValidationError("exactly one of text, image_url or document_url is required")
	}
	if request.DocumentURL != "" && request.Filename == "" {
		return pkgError.ValidationError("filename is required when sending a document")
	}

	return nil
}
