package webhook

import (
	"context"
	"time"
)

// --- Raw Meta payload shapes (Cloud API webhook) ---

type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string        `json:"messaging_product"`
	Metadata         Metadata      `json:"metadata"`
	Contacts         []Contact     `json:"contacts,omitempty"`
	Messages         []RawMessage  `json:"messages,omitempty"`
	Statuses         []StatusEvent `json:"statuses,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// RawMessage is the loosely-typed inbound message as Meta delivers it. The
// shape of the populated fields depends on Type.
type RawMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"` // seconds since epoch, as string
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image    *MediaRef `json:"image,omitempty"`
	Document *MediaRef `json:"document,omitempty"`
}

type MediaRef struct {
	ID       string `json:"id"`
	Link     string `json:"link,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

type StatusEvent struct {
	ID          string `json:"id"` // external message id (wamid)
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// --- Normalized inbound representation ---

type InboundKind string

const (
	InboundText     InboundKind = "text"
	InboundImage    InboundKind = "image"
	InboundDocument InboundKind = "document"
	InboundUnknown  InboundKind = "unknown"
)

// InboundMessage is the tagged union produced once at the boundary so
// downstream components never re-inspect the raw payload shape.
type InboundMessage struct {
	Kind          InboundKind
	ExternalID    string
	From          string
	SenderName    string
	Text          string
	AttachmentURL string
	Timestamp     time.Time
}

// BotNotifier is the hand-off point to the external auto-responder. Inbound
// processing calls it when the conversation has its bot flag set; replying is
// not this core's job.
type BotNotifier interface {
	NotifyInbound(ctx context.Context, organizationID, conversationID string, message InboundMessage)
}

type IWebhookUsecase interface {
	// ProcessPayload walks a verified webhook batch. Per-item failures are
	// isolated and logged; the batch as a whole only fails on malformed input.
	ProcessPayload(ctx context.Context, payload Payload) error
}
