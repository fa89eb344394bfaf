package models

/** --------------------ENTITIES-------------------- */

// Message is one immutable entry in a conversation's log. The ID is assigned
// client-side before the append so optimistic display and de-duplication use
// the same identifier. Timestamp is assigned at append time; within one send
// batch timestamps are strictly increasing so submission order survives.
type Message struct {
	ID              string `json:"id"`
	ConversationKey string `json:"conversationId"`
	AuthorID        string `json:"userId"`
	AuthorName      string `json:"userName,omitempty"`
	Text            string `json:"text"`
	Image           string `json:"image,omitempty"`
	Video           string `json:"video,omitempty"`
	Timestamp       int64  `json:"timestamp"` // unix millis
}

func MessageFromDocument(id string, doc map[string]any) *Message {
	return &Message{
		ID:              id,
		ConversationKey: docString(doc, "conversationId"),
		AuthorID:        docString(doc, "userId"),
		AuthorName:      docString(doc, "userName"),
		Text:            docString(doc, "text"),
		Image:           docString(doc, "image"),
		Video:           docString(doc, "video"),
		Timestamp:       docInt64(doc, "timestamp"),
	}
}

func (m *Message) Document() map[string]any {
	return map[string]any{
		"conversationId": m.ConversationKey,
		"userId":         m.AuthorID,
		"userName":       m.AuthorName,
		"text":           m.Text,
		"image":          m.Image,
		"video":          m.Video,
		"timestamp":      m.Timestamp,
	}
}

/** -------------------- DTOs -------------------- */

// AttachmentRef is a resolved, durable reference to uploaded media.
type AttachmentRef struct {
	URL  string `json:"url"`
	Kind string `json:"kind"` // "image" | "video"
}

// OutgoingMessage is one message submitted to sendMessage. Image/Video carry
// already-resolved attachment URLs; unresolved media goes through the media
// service first.
type OutgoingMessage struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
	Video string `json:"video,omitempty"`
}

type SendMessagesRequest struct {
	Messages []OutgoingMessage `json:"messages" binding:"required,min=1"`
}
