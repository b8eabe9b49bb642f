// Package whatsapp adapts the WhatsApp Business Cloud API to the domain:
// webhook payload shapes, normalization into the canonical ingest command,
// and the Graph API media/message client.
package whatsapp

// WebhookPayload mirrors the nested entry/change/message tree the Cloud API
// delivers. Field names follow the provider's JSON.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Value Value  `json:"value"`
	Field string `json:"field,omitempty"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         *Metadata `json:"metadata,omitempty"`
	Contacts         []Contact `json:"contacts,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	Profile Profile `json:"profile"`
	WaID    string  `json:"wa_id"`
}

type Profile struct {
	Name string `json:"name"`
}

// Message is one inbound message. Timestamp is Unix epoch seconds as a
// string, per the provider.
type Message struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *Text  `json:"text,omitempty"`
	Audio     *Audio `json:"audio,omitempty"`
}

type Text struct {
	Body string `json:"body"`
}

type Audio struct {
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256,omitempty"`
	ID       string `json:"id"`
}
