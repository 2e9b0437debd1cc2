package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	domainPairing "github.com/AzielCF/az-crm/domains/pairing"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	"github.com/AzielCF/az-crm/pkg/utils"
	"github.com/AzielCF/az-crm/repository"
	"github.com/AzielCF/az-crm/validations"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type servicePairing struct {
	repo         repository.IPairingRepository
	integrations domainIntegration.IIntegrationUsecase
	orgs         repository.IIntegrationRepository
	codeTTL      time.Duration
	baseURL      string
	qrRenderURL  string
}

func NewPairingService(
	repo repository.IPairingRepository,
	integrations domainIntegration.IIntegrationUsecase,
	orgs repository.IIntegrationRepository,
	codeTTL time.Duration,
	baseURL string,
	qrRenderURL string,
) domainPairing.IPairingUsecase {
	return &servicePairing{
		repo:         repo,
		integrations: integrations,
		orgs:         orgs,
		codeTTL:      codeTTL,
		baseURL:      baseURL,
		qrRenderURL:  qrRenderURL,
	}
}

func (service *servicePairing) Generate(ctx context.Context, request domainPairing.GenerateRequest) (domainPairing.GenerateResponse, error) {
	if err := validations.ValidatePairingGenerate(ctx, request); err != nil {
		return domainPairing.GenerateResponse{}, err
	}

	phone := utils.NormalizePhone(request.PhoneNumber)
	if !utils.IsValidInternationalPhone(phone) {
		return domainPairing.GenerateResponse{}, pkgError.ValidationError(
			"phone_number must be in international format, e.g. +51987654321")
	}

	exists, err := service.orgs.OrganizationExists(ctx, request.OrganizationID)
	if err != nil {
		return domainPairing.GenerateResponse{}, err
	}
	if !exists {
		return domainPairing.GenerateResponse{}, pkgError.NotFoundError("organization not found")
	}

	// One live code per tenant; minting a new one retires the rest.
	if err := service.repo.ExpireOutstanding(ctx, request.OrganizationID); err != nil {
		return domainPairing.GenerateResponse{}, err
	}

	now := time.Now().UTC()
	code := domainPairing.Code{
		ID:               uuid.NewString(),
		OrganizationID:   request.OrganizationID,
		Code:             strings.ReplaceAll(uuid.NewString(), "-", ""),
		PhoneNumber:      phone,
		VerificationCode: fmt.Sprintf("%06d", rand.Intn(1000000)),
		Status:           domainPairing.StatusPending,
		ExpiresAt:        now.Add(service.codeTTL),
		CreatedAt:        now,
	}
	if err := service.repo.Create(ctx, code); err != nil {
		return domainPairing.GenerateResponse{}, err
	}

	pairURL := fmt.Sprintf("%s/pair/%s", strings.TrimRight(service.baseURL, "/"), code.Code)
	qrImage := fmt.Sprintf("%s?size=300x300&data=%s", service.qrRenderURL, url.QueryEscape(pairURL))

	logrus.WithFields(logrus.Fields{
		"organization_id": request.OrganizationID,
		"phone":           utils.MaskPhone(phone),
	}).Info("[PAIRING] Pairing code generated")

	return domainPairing.GenerateResponse{
		Code:      code.Code,
		QRImage:   qrImage,
		QRUrl:     pairURL,
		ExpiresAt: code.ExpiresAt,
	}, nil
}

func (service *servicePairing) Poll(ctx context.Context, code string) (domainPairing.Code, error) {
	found, err := service.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainPairing.Code{}, pkgError.NotFoundError("pairing code not found")
		}
		return domainPairing.Code{}, err
	}

	// Expiry is lazy: the deadline is checked on read rather than by a
	// background sweeper.
	if found.Status == domainPairing.StatusPending && time.Now().UTC().After(found.ExpiresAt) {
		found.Status = domainPairing.StatusExpired
		if err := service.repo.Update(ctx, found); err != nil {
			return domainPairing.Code{}, err
		}
	}

	return found, nil
}

func (service *servicePairing) Finalize(ctx context.Context, request domainPairing.FinalizeRequest) (domainPairing.Code, error) {
	if err := validations.ValidatePairingFinalize(ctx, request); err != nil {
		return domainPairing.Code{}, err
	}

	found, err := service.Poll(ctx, request.Code)
	if err != nil {
		return domainPairing.Code{}, err
	}

	switch found.Status {
	case domainPairing.StatusUsed:
		return domainPairing.Code{}, pkgError.IntegrationError("pairing code has already been used")
	case domainPairing.StatusExpired:
		return domainPairing.Code{}, pkgError.IntegrationError("pairing code has expired")
	}

	now := time.Now().UTC()
	if found.ScannedAt == nil {
		found.ScannedAt = &now
	}
	found.Status = domainPairing.StatusUsed
	found.UsedAt = &now
	if err := service.repo.Update(ctx, found); err != nil {
		return domainPairing.Code{}, err
	}

	if _, err := service.integrations.Connect(ctx, domainIntegration.ConnectRequest{
		OrganizationID:    found.OrganizationID,
		PhoneNumber:       found.PhoneNumber,
		PhoneNumberID:     request.PhoneNumberID,
		BusinessAccountID: request.BusinessAccountID,
		AppID:             request.AppID,
		AccessToken:       request.AccessToken,
	}); err != nil {
		return domainPairing.Code{}, err
	}

	logrus.WithFields(logrus.Fields{
		"organization_id": found.OrganizationID,
		"phone":           utils.MaskPhone(found.PhoneNumber),
	}).Info("[PAIRING] Pairing finalized, integration connected")

	return found, nil
}
