package chat

import (
	"context"
	"time"
)

type Platform string

const (
	PlatformWhatsApp Platform = "whatsapp"
	PlatformFacebook Platform = "facebook"
	PlatformWeb      Platform = "web"
)

type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationWaiting  ConversationStatus = "waiting"
	ConversationResolved ConversationStatus = "resolved"
)

type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
	SenderBot   Sender = "bot"
)

type MessageStatus string

const (
	MessageSending   MessageStatus = "sending"
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageRead      MessageStatus = "read"
	MessageFailed    MessageStatus = "failed"
)

// statusRank orders delivery states so late-arriving stale updates never
// regress a message. failed is terminal and handled separately.
var statusRank = map[MessageStatus]int{
	MessageSending:   0,
	MessageSent:      1,
	MessageDelivered: 2,
	MessageRead:      3,
}

// CanTransition reports whether a status event may be applied on top of the
// current state: the rank must advance, or the event is failed. Nothing
// leaves failed.
func CanTransition(current, next MessageStatus) bool {
	if current == MessageFailed {
		return false
	}
	if next == MessageFailed {
		return true
	}
	currRank, okCurr := statusRank[current]
	nextRank, okNext := statusRank[next]
	if !okCurr || !okNext {
		return false
	}
	return nextRank > currRank
}

// IsKnownStatus reports whether the raw status string from a webhook event is
// one we track.
func IsKnownStatus(raw string) bool {
	s := MessageStatus(raw)
	if s == MessageFailed {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

type Conversation struct {
	ID             string             `json:"id"`
	OrganizationID string             `json:"organization_id"`
	ContactName    string             `json:"contact_name"`
	ContactPhone   string             `json:"contact_phone"`
	Platform       Platform           `json:"platform"`
	Status         ConversationStatus `json:"status"`
	BotActive      bool               `json:"bot_active"`
	LastMessageAt  time.Time          `json:"last_message_at"`
	UnreadCount    int                `json:"unread_count"`
	CreatedAt      time.Time          `json:"created_at"`
}

type Message struct {
	ID                string        `json:"id"`
	ConversationID    string        `json:"conversation_id"`
	Sender            Sender        `json:"sender"`
	Text              string        `json:"text,omitempty"`
	AttachmentURL     string        `json:"attachment_url,omitempty"`
	ExternalMessageID string        `json:"external_message_id,omitempty"`
	Status            MessageStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
}

type IChatUsecase interface {
	ListConversations(ctx context.Context, organizationID string) ([]Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	MarkRead(ctx context.Context, conversationID string) error
	// Clear empties the conversation's messages but keeps the conversation.
	Clear(ctx context.Context, conversationID string) error
}
