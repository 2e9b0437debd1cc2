package send

import "context"

// MessageRequest carries exactly one content kind: text, image (+optional
// caption) or document (+filename).
type MessageRequest struct {
	ChatID      string `json:"chat_id" form:"chat_id"`
	Text        string `json:"text,omitempty" form:"text"`
	ImageURL    string `json:"image_url,omitempty" form:"image_url"`
	Caption     string `json:"caption,omitempty" form:"caption"`
	DocumentURL string `json:"document_url,omitempty" form:"document_url"`
	Filename    string `json:"filename,omitempty" form:"filename"`
}

type GenericResponse struct {
	MessageID         string `json:"message_id"`
	WhatsappMessageID string `json:"whatsapp_message_id"`
	Status            string `json:"status"`
}

type ISendUsecase interface {
	Send(ctx context.Context, request MessageRequest) (GenericResponse, error)
}
