package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/AzielCF/az-crm/domains/pairing"
	"gorm.io/gorm"
)

type pairingCodeModel struct {
	ID               string         `gorm:"primaryKey;column:id"`
	OrganizationID   string         `gorm:"column:organization_id;not null;index"`
	Code             string         `gorm:"column:code;not null;uniqueIndex"`
	PhoneNumber      sql.NullString `gorm:"column:phone_number"`
	VerificationCode sql.NullString `gorm:"column:verification_code"`
	Status           string         `gorm:"column:status;default:'pending';index"`
	ExpiresAt        time.Time      `gorm:"column:expires_at;not null"`
	ScannedAt        *time.Time     `gorm:"column:scanned_at"`
	UsedAt           *time.Time     `gorm:"column:used_at"`
	CreatedAt        time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;not null"`
}

func (pairingCodeModel) TableName() string { return "pairing_codes" }

type PairingGormRepository struct {
	db *gorm.DB
}

func NewPairingGormRepository(db *gorm.DB) *PairingGormRepository {
	return &PairingGormRepository{db: db}
}

func (r *PairingGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&pairingCodeModel{})
}

func (r *PairingGormRepository) Create(ctx context.Context, code pairing.Code) error {
	m := toPairingModel(code)
	m.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *PairingGormRepository) GetByCode(ctx context.Context, code string) (pairing.Code, error) {
	var m pairingCodeModel
	if err := r.db.WithContext(ctx).First(&m, "code = ?", code).Error; err != nil {
		return pairing.Code{}, err
	}
	return fromPairingModel(m), nil
}

func (r *PairingGormRepository) Update(ctx context.Context, code pairing.Code) error {
	m := toPairingModel(code)
	m.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(&m).Error
}

func (r *PairingGormRepository) ExpireOutstanding(ctx context.Context, organizationID string) error {
	return r.db.WithContext(ctx).Model(&pairingCodeModel{}).
		Where("organization_id = ? AND status IN ?", organizationID,
			[]string{string(pairing.StatusPending), string(pairing.StatusScanned)}).
		UpdateColumns(map[string]any{
			"status":     string(pairing.StatusExpired),
			"updated_at": time.Now().UTC(),
		}).Error
}

func toPairingModel(c pairing.Code) pairingCodeModel {
	return pairingCodeModel{
		ID:               c.ID,
		OrganizationID:   c.OrganizationID,
		Code:             c.Code,
		PhoneNumber:      nullString(c.PhoneNumber),
		VerificationCode: nullString(c.VerificationCode),
		Status:           string(c.Status),
		ExpiresAt:        c.ExpiresAt,
		ScannedAt:        c.ScannedAt,
		UsedAt:           c.UsedAt,
		CreatedAt:        c.CreatedAt,
	}
}

func fromPairingModel(m pairingCodeModel) pairing.Code {
	return pairing.Code{
		ID:               m.ID,
		OrganizationID:   m.OrganizationID,
		Code:             m.Code,
		PhoneNumber:      m.PhoneNumber.String,
		VerificationCode: m.VerificationCode.String,
		Status:           pairing.Status(m.Status),
		ExpiresAt:        m.ExpiresAt,
		ScannedAt:        m.ScannedAt,
		UsedAt:           m.UsedAt,
		CreatedAt:        m.CreatedAt,
	}
}
