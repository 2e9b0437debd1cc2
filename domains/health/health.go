package health

import "context"

type ComponentStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

type Report struct {
	Healthy    bool              `json:"healthy"`
	Version    string            `json:"version"`
	Components []ComponentStatus `json:"components"`
}

type IHealthUsecase interface {
	Check(ctx context.Context) Report
}
