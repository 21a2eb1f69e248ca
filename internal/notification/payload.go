package notification

import "encoding/json"

// Payload is the JSON document delivered inside a push message. The service
// worker parses it and falls back to a default title/body if parsing fails.
type Payload struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Icon  string      `json:"icon,omitempty"`
	Badge string      `json:"badge,omitempty"`
	Tag   string      `json:"tag,omitempty"`
	Data  PayloadData `json:"data"`
}

// PayloadData carries the routing information the service worker uses on
// notification click.
type PayloadData struct {
	URL      string `json:"url"`
	ChatID   string `json:"chatId,omitempty"`
	SenderID string `json:"senderId,omitempty"`
}

const defaultIcon = "/icons/icon-192x192.png"

// NewMessagePayload builds the standard "new message" notification. The tag is
// the chat ID so successive messages in the same chat replace each other
// instead of stacking.
func NewMessagePayload(title, body, icon, chatID, senderID string) Payload {
	if title == "" {
		title = "New message"
	}
	if body == "" {
		body = "You have a new message"
	}
	if icon == "" {
		icon = defaultIcon
	}
	tag := chatID
	if tag == "" {
		tag = "message"
	}
	return Payload{
		Title: title,
		Body:  body,
		Icon:  icon,
		Badge: defaultIcon,
		Tag:   tag,
		Data: PayloadData{
			URL:      "/",
			ChatID:   chatID,
			SenderID: senderID,
		},
	}
}

// Marshal serializes the payload for the wire.
func (p Payload) Marshal() []byte {
	b, err := json.Marshal(p)
	if err != nil {
		// Payload contains only plain strings; this cannot fail in practice.
		return []byte(`{"title":"New message","body":"You have a new message"}`)
	}
	return b
}
