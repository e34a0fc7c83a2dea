// Package message turns raw RFC 5322 payloads into provider-agnostic email
// records. It is pure computation: no network, no session state.
package message

import "time"

// Sender is a display-name/address pair extracted from a From header.
type Sender struct {
	DisplayName string `json:"name"`
	Address     string `json:"address"`
}

// AttachmentMeta describes an attachment without carrying its body.
type AttachmentMeta struct {
	Filename    string `json:"filename"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
}

// NormalizedEmail is the structured record produced once per fetched message.
// It is immutable after construction; ownership passes to the caller.
//
// ID is engine-generated and provider-scoped. It is not stable across
// fetches; flag mutation within one session is keyed off it.
type NormalizedEmail struct {
	ID            string           `json:"id"`
	Sender        Sender           `json:"sender"`
	Subject       string           `json:"subject"`
	PreviewText   string           `json:"preview_text"`
	ReceivedAt    time.Time        `json:"received_at"`
	IsRead        bool             `json:"is_read"`
	ProviderLabel string           `json:"provider_label"`
	BodyPlain     string           `json:"body_plain,omitempty"`
	BodyHTML      string           `json:"body_html,omitempty"`
	Attachments   []AttachmentMeta `json:"attachments,omitempty"`
}
