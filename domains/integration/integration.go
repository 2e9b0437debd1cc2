package integration

import (
	"context"
	"time"
)

type Status string

const (
	StatusPending      Status = "pending"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// Integration is a tenant's credentials and connection state for the
// WhatsApp Business Platform. Exactly one per organization.
type Integration struct {
	ID                string     `json:"id"`
	OrganizationID    string     `json:"organization_id"`
	PhoneNumber       string     `json:"phone_number"`
	PhoneNumberID     string     `json:"phone_number_id"`
	BusinessAccountID string     `json:"business_account_id"`
	AppID             string     `json:"app_id"`
	AccessToken       string     `json:"-"`
	Status            Status     `json:"status"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	LastSyncAt        *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type ConnectRequest struct {
	OrganizationID    string `json:"organization_id" form:"organization_id"`
	PhoneNumber       string `json:"phone_number" form:"phone_number"`
	PhoneNumberID     string `json:"phone_number_id" form:"phone_number_id"`
	BusinessAccountID string `json:"business_account_id" form:"business_account_id"`
	AppID             string `json:"app_id" form:"app_id"`
	AccessToken       string `json:"access_token" form:"access_token"`
}

type IIntegrationUsecase interface {
	// ResolveByPhoneNumberID maps a platform-assigned phone-number-id to a
	// connected integration. A miss returns (nil, nil) so webhook batches can
	// skip events for numbers no tenant claims.
	ResolveByPhoneNumberID(ctx context.Context, phoneNumberID string) (*Integration, error)
	GetByOrganization(ctx context.Context, organizationID string) (Integration, error)
	Connect(ctx context.Context, request ConnectRequest) (Integration, error)
	Disconnect(ctx context.Context, organizationID string) error
	MarkError(ctx context.Context, organizationID, message string) error
}
