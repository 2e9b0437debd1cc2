package usecase

import (
	"context"
	"errors"
	"time"

	domainIntegration "github.com/AzielCF/az-crm/domains/integration"
	"github.com/AzielCF/az-crm/infrastructure/valkey"
	"github.com/AzielCF/az-crm/pkg/crypto"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	"github.com/AzielCF/az-crm/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type serviceIntegration struct {
	repo     repository.IIntegrationRepository
	cache    *valkey.Client // optional, nil disables caching
	cacheTTL time.Duration
}

func NewIntegrationService(repo repository.IIntegrationRepository, cache *valkey.Client, cacheTTL time.Duration) domainIntegration.IIntegrationUsecase {
	if cacheTTL == 0 {
		cacheTTL = time.Minute
	}
	return &serviceIntegration{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// ResolveByPhoneNumberID is the hot path of webhook ingestion: every batch
// resolves its phone-number-id before anything else. Results are cached with
// a short TTL; the cached row keeps the token encrypted.
func (service *serviceIntegration) ResolveByPhoneNumberID(ctx context.Context, phoneNumberID string) (*domainIntegration.Integration, error) {
	if phoneNumberID == "" {
		return nil, nil
	}

	if service.cache != nil {
		var cached domainIntegration.Integration
		hit, err := service.cache.GetJSON(ctx, service.cacheKey(phoneNumberID), &cached)
		if err != nil {
			logrus.WithError(err).Warn("[INTEGRATION] cache read failed, falling through to db")
		} else if hit {
			return service.decrypted(cached)
		}
	}

	in, err := service.repo.GetConnectedByPhoneNumberID(ctx, phoneNumberID)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, nil
	}

	if service.cache != nil {
		if err := service.cache.SetJSON(ctx, service.cacheKey(phoneNumberID), *in, service.cacheTTL); err != nil {
			logrus.WithError(err).Warn("[INTEGRATION] cache write failed")
		}
	}

	return service.decrypted(*in)
}

func (service *serviceIntegration) GetByOrganization(ctx context.Context, organizationID string) (domainIntegration.Integration, error) {
	in, err := service.repo.GetByOrganization(ctx, organizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainIntegration.Integration{}, pkgError.NotFoundError("integration not found for organization")
		}
		return domainIntegration.Integration{}, err
	}
	token, err := crypto.Decrypt(in.AccessToken)
	if err != nil {
		return domainIntegration.Integration{}, err
	}
	in.AccessToken = token
	return in, nil
}

func (service *serviceIntegration) Connect(ctx context.Context, request domainIntegration.ConnectRequest) (domainIntegration.Integration, error) {
	encrypted, err := crypto.Encrypt(request.AccessToken)
	if err != nil {
		return domainIntegration.Integration{}, err
	}

	now := time.Now().UTC()
	in := domainIntegration.Integration{
		OrganizationID:    request.OrganizationID,
		PhoneNumber:       request.PhoneNumber,
		PhoneNumberID:     request.PhoneNumberID,
		BusinessAccountID: request.BusinessAccountID,
		AppID:             request.AppID,
		AccessToken:       encrypted,
		Status:            domainIntegration.StatusConnected,
		VerifiedAt:        &now,
		LastSyncAt:        &now,
	}

	saved, err := service.repo.Upsert(ctx, in)
	if err != nil {
		return domainIntegration.Integration{}, err
	}
	service.invalidate(ctx, saved.PhoneNumberID)

	logrus.WithFields(logrus.Fields{
		"organization_id": saved.OrganizationID,
		"phone_number_id": saved.PhoneNumberID,
	}).Info("[INTEGRATION] WhatsApp integration connected")

	saved.AccessToken = request.AccessToken
	return saved, nil
}

// Disconnect clears the stored credential and phone-number-id; a later
// re-connection restarts the cycle through pending.
func (service *serviceIntegration) Disconnect(ctx context.Context, organizationID string) error {
	in, err := service.repo.GetByOrganization(ctx, organizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgError.NotFoundError("integration not found for organization")
		}
		return err
	}

	previousPhoneNumberID := in.PhoneNumberID
	in.AccessToken = ""
	in.PhoneNumberID = ""
	in.Status = domainIntegration.StatusDisconnected
	in.ErrorMessage = ""

	if _, err := service.repo.Upsert(ctx, in); err != nil {
		return err
	}
	service.invalidate(ctx, previousPhoneNumberID)

	logrus.WithField("organization_id", organizationID).Info("[INTEGRATION] WhatsApp integration disconnected")
	return nil
}

func (service *serviceIntegration) MarkError(ctx context.Context, organizationID, message string) error {
	in, err := service.repo.GetByOrganization(ctx, organizationID)
	if err != nil {
		return err
	}
	in.Status = domainIntegration.StatusError
	in.ErrorMessage = message
	if _, err := service.repo.Upsert(ctx, in); err != nil {
		return err
	}
	service.invalidate(ctx, in.PhoneNumberID)
	return nil
}

func (service *serviceIntegration) cacheKey(phoneNumberID string) string {
	return service.cache.Key("integration", "pnid", phoneNumberID)
}

func (service *serviceIntegration) invalidate(ctx context.Context, phoneNumberID string) {
	if service.cache == nil || phoneNumberID == "" {
		return
	}
	if err := service.cache.Del(ctx, service.cacheKey(phoneNumberID)); err != nil {
		logrus.WithError(err).Warn("[INTEGRATION] cache invalidation failed")
	}
}

func (service *serviceIntegration) decrypted(in domainIntegration.Integration) (*domainIntegration.Integration, error) {
	token, err := crypto.Decrypt(in.AccessToken)
	if err != nil {
		return nil, err
	}
	in.AccessToken = token
	return &in, nil
}
