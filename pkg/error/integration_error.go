package error

import "net/http"

// IntegrationError covers a tenant integration in an unusable state,
// e.g. sending through a WhatsApp number that was never connected.
type IntegrationError string

func (err IntegrationError) Error() string {
	return string(err)
}

func (err IntegrationError) ErrCode() string {
	return "INTEGRATION_ERROR"
}

func (err IntegrationError) StatusCode() int {
	return http.StatusUnprocessableEntity
}
