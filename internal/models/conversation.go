package models

/** --------------------ENTITIES-------------------- */

// Conversation metadata. The key is derived from the participant pair and is
// identical no matter which side initiates; messages live in their own
// collection keyed back to it.
type Conversation struct {
	Key                  string   `json:"key"`
	Participants         []string `json:"participants"`
	LastMessageTimestamp int64    `json:"lastMessageTimestamp"` // unix millis, zero until first message
}

func ConversationFromDocument(key string, doc map[string]any) *Conversation {
	return &Conversation{
		Key:                  key,
		Participants:         docStringSlice(doc, "participants"),
		LastMessageTimestamp: docInt64(doc, "lastMessageTimestamp"),
	}
}

/** -------------------- DTOs -------------------- */

type ConversationResponse struct {
	Key                  string   `json:"key"`
	Participants         []string `json:"participants"`
	LastMessageTimestamp int64    `json:"lastMessageTimestamp"`
}
