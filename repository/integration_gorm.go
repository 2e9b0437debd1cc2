package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/AzielCF/az-crm/domains/integration"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Persistence Models ---

type organizationModel struct {
	ID          string    `gorm:"primaryKey;column:id"`
	OwnerUserID string    `gorm:"column:owner_user_id;not null;index"`
	Name        string    `gorm:"column:name;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

func (organizationModel) TableName() string { return "organizations" }

type integrationModel struct {
	ID                string         `gorm:"primaryKey;column:id"`
	OrganizationID    string         `gorm:"column:organization_id;not null;uniqueIndex"`
	PhoneNumber       sql.NullString `gorm:"column:phone_number"`
	PhoneNumberID     sql.NullString `gorm:"column:phone_number_id;index"`
	BusinessAccountID sql.NullString `gorm:"column:business_account_id"`
	AppID             sql.NullString `gorm:"column:app_id"`
	AccessToken       sql.NullString `gorm:"column:access_token"`
	Status            string         `gorm:"column:status;default:'pending';index"`
	ErrorMessage      sql.NullString `gorm:"column:error_message"`
	VerifiedAt        *time.Time     `gorm:"column:verified_at"`
	LastSyncAt        *time.Time     `gorm:"column:last_sync_at"`
	CreatedAt         time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;not null"`
}

func (integrationModel) TableName() string { return "integrations" }

// --- Repository Implementation ---

type IntegrationGormRepository struct {
	db *gorm.DB
}

func NewIntegrationGormRepository(db *gorm.DB) *IntegrationGormRepository {
	return &IntegrationGormRepository{db: db}
}

func (r *IntegrationGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&organizationModel{},
		&integrationModel{},
	)
}

func (r *IntegrationGormRepository) GetByOrganization(ctx context.Context, organizationID string) (integration.Integration, error) {
	var m integrationModel
	if err := r.db.WithContext(ctx).First(&m, "organization_id = ?", organizationID).Error; err != nil {
		return integration.Integration{}, err
	}
	return fromIntegrationModel(m), nil
}

func (r *IntegrationGormRepository) GetConnectedByPhoneNumberID(ctx context.Context, phoneNumberID string) (*integration.Integration, error) {
	var m integrationModel
	err := r.db.WithContext(ctx).
		Where("phone_number_id = ? AND status = ?", phoneNumberID, string(integration.StatusConnected)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	res := fromIntegrationModel(m)
	return &res, nil
}

// Upsert writes the organization's single integration row, creating it on
// first pairing and replacing its fields afterwards.
func (r *IntegrationGormRepository) Upsert(ctx context.Context, in integration.Integration) (integration.Integration, error) {
	var existing integrationModel
	err := r.db.WithContext(ctx).First(&existing, "organization_id = ?", in.OrganizationID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if in.ID == "" {
			in.ID = uuid.NewString()
		}
		in.CreatedAt = time.Now().UTC()
		in.UpdatedAt = in.CreatedAt
		m := toIntegrationModel(in)
		if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
			return integration.Integration{}, err
		}
		return fromIntegrationModel(m), nil
	case err != nil:
		return integration.Integration{}, err
	}

	in.ID = existing.ID
	in.CreatedAt = existing.CreatedAt
	in.UpdatedAt = time.Now().UTC()
	m := toIntegrationModel(in)
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return integration.Integration{}, err
	}
	return fromIntegrationModel(m), nil
}

func (r *IntegrationGormRepository) OrganizationExists(ctx context.Context, organizationID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&organizationModel{}).
		Where("id = ?", organizationID).
		Count(&count).Error
	return count > 0, err
}

// --- Converters ---

func toIntegrationModel(in integration.Integration) integrationModel {
	return integrationModel{
		ID:                in.ID,
		OrganizationID:    in.OrganizationID,
		PhoneNumber:       nullString(in.PhoneNumber),
		PhoneNumberID:     nullString(in.PhoneNumberID),
		BusinessAccountID: nullString(in.BusinessAccountID),
		AppID:             nullString(in.AppID),
		AccessToken:       nullString(in.AccessToken),
		Status:            string(in.Status),
		ErrorMessage:      nullString(in.ErrorMessage),
		VerifiedAt:        in.VerifiedAt,
		LastSyncAt:        in.LastSyncAt,
		CreatedAt:         in.CreatedAt,
		UpdatedAt:         in.UpdatedAt,
	}
}

func fromIntegrationModel(m integrationModel) integration.Integration {
	return integration.Integration{
		ID:                m.ID,
		OrganizationID:    m.OrganizationID,
		PhoneNumber:       m.PhoneNumber.String,
		PhoneNumberID:     m.PhoneNumberID.String,
		BusinessAccountID: m.BusinessAccountID.String,
		AppID:             m.AppID.String,
		AccessToken:       m.AccessToken.String,
		Status:            integration.Status(m.Status),
		ErrorMessage:      m.ErrorMessage.String,
		VerifiedAt:        m.VerifiedAt,
		LastSyncAt:        m.LastSyncAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
