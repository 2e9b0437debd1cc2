package error

import (
	"fmt"
	"net/http"
)

// UpstreamError carries a Graph API failure back to the caller verbatim.
type UpstreamError struct {
	Status  int
	Message string
}

func (err UpstreamError) Error() string {
	return fmt.Sprintf("upstream api error (status=%d): %s", err.Status, err.Message)
}

func (err UpstreamError) ErrCode() string {
	return "UPSTREAM_API_ERROR"
}

func (err UpstreamError) StatusCode() int {
	return http.StatusBadGateway
}
