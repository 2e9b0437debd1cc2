package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgError "github.com/AzielCF/az-crm/pkg/error"
	"github.com/sirupsen/logrus"
)

// Credentials identify the tenant integration a send goes out through.
type Credentials struct {
	PhoneNumberID string
	AccessToken   string
}

// SendResult is the Graph API's answer to an accepted message.
type SendResult struct {
	ExternalMessageID string
}

// Client is the outbound surface of the WhatsApp Cloud API. It is satisfied
// by GraphClient and by fakes in tests.
type Client interface {
	SendText(ctx context.Context, creds Credentials, to, body string) (SendResult, error)
	SendImage(ctx context.Context, creds Credentials, to, imageURL, caption string) (SendResult, error)
	SendDocument(ctx context.Context, creds Credentials, to, documentURL, filename string) (SendResult, error)
}

// GraphClient talks to Meta's Graph API. Construct it once and inject it.
type GraphClient struct {
	baseURL    string
	version    string
	httpClient *http.Client
}

func NewGraphClient(baseURL, version string, timeout time.Duration) *GraphClient {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &GraphClient{
		baseURL:    baseURL,
		version:    version,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// --- Wire shapes ---

type textPayload struct {
	Body string `json:"body"`
}

type imagePayload struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

type documentPayload struct {
	Link     string `json:"link"`
	Filename string `json:"filename,omitempty"`
}

type sendPayload struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             *textPayload     `json:"text,omitempty"`
	Image            *imagePayload    `json:"image,omitempty"`
	Document         *documentPayload `json:"document,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type graphErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *GraphClient) SendText(ctx context.Context, creds Credentials, to, body string) (SendResult, error) {
	return c.send(ctx, creds, sendPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textPayload{Body: body},
	})
}

func (c *GraphClient) SendImage(ctx context.Context, creds Credentials, to, imageURL, caption string) (SendResult, error) {
	return c.send(ctx, creds, sendPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "image",
		Image:            &imagePayload{Link: imageURL, Caption: caption},
	})
}

func (c *GraphClient) SendDocument(ctx context.Context, creds Credentials, to, documentURL, filename string) (SendResult, error) {
	return c.send(ctx, creds, sendPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "document",
		Document:         &documentPayload{Link: documentURL, Filename: filename},
	})
}

func (c *GraphClient) send(ctx context.Context, creds Credentials, payload sendPayload) (SendResult, error) {
	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.version, creds.PhoneNumberID)

	body, err := json.Marshal(payload)
	if err != nil {
		return SendResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SendResult{}, pkgError.UpstreamError{Status: http.StatusBadGateway, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 400 {
		var graphErr graphErrorResponse
		message := string(data)
		if err := json.Unmarshal(data, &graphErr); err == nil && graphErr.Error.Message != "" {
			message = graphErr.Error.Message
		}
		logrus.WithFields(logrus.Fields{
			"status":          resp.StatusCode,
			"phone_number_id": creds.PhoneNumberID,
			"type":            payload.Type,
		}).Warn("[META] Graph API send rejected")
		return SendResult{}, pkgError.UpstreamError{Status: resp.StatusCode, Message: message}
	}

	var parsed sendResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return SendResult{}, fmt.Errorf("failed to decode graph response: %w", err)
	}
	if len(parsed.Messages) == 0 {
		return SendResult{}, fmt.Errorf("graph response carried no message id")
	}

	logrus.WithFields(logrus.Fields{
		"wamid": parsed.Messages[0].ID,
		"type":  payload.Type,
	}).Debug("[META] Message accepted by Graph API")

	return SendResult{ExternalMessageID: parsed.Messages[0].ID}, nil
}
