package pairing

import (
	"context"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusScanned Status = "scanned"
	StatusUsed    Status = "used"
	StatusExpired Status = "expired"
)

// Code is a short-lived opaque token linking a phone number to a tenant's
// integration via the QR flow. Transitions are monotonic; used and expired
// are terminal.
type Code struct {
	ID               string     `json:"-"`
	OrganizationID   string     `json:"organization_id"`
	Code             string     `json:"code"`
	PhoneNumber      string     `json:"phone_number"`
	VerificationCode string     `json:"-"`
	Status           Status     `json:"status"`
	ExpiresAt        time.Time  `json:"expires_at"`
	ScannedAt        *time.Time `json:"scanned_at,omitempty"`
	UsedAt           *time.Time `json:"used_at,omitempty"`
	CreatedAt        time.Time  `json:"-"`
}

type GenerateRequest struct {
	OrganizationID string `json:"organization_id" form:"organization_id"`
	PhoneNumber    string `json:"phone_number" form:"phone_number"`
}

type GenerateResponse struct {
	Code      string    `json:"code"`
	QRImage   string    `json:"qr_image"`
	QRUrl     string    `json:"qr_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FinalizeRequest is the callback payload completing a pairing: the
// credentials Meta hands back after embedded-signup / manual verification.
type FinalizeRequest struct {
	Code              string `json:"code"`
	PhoneNumberID     string `json:"phone_number_id" form:"phone_number_id"`
	BusinessAccountID string `json:"business_account_id" form:"business_account_id"`
	AppID             string `json:"app_id" form:"app_id"`
	AccessToken       string `json:"access_token" form:"access_token"`
}

type IPairingUsecase interface {
	Generate(ctx context.Context, request GenerateRequest) (GenerateResponse, error)
	// Poll recomputes expiry lazily: a pending code past its deadline flips
	// to expired on this same read.
	Poll(ctx context.Context, code string) (Code, error)
	// Finalize flips the code to used exactly once and connects the tenant's
	// integration. A second attempt on a used code is rejected.
	Finalize(ctx context.Context, request FinalizeRequest) (Code, error)
}
