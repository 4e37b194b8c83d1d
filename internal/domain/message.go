package domain

import "time"

// InboundEvent is one customer-authored text message pulled out of a webhook
// delivery. Non-text events (read receipts, attachments) are filtered before
// an InboundEvent is ever built.
type InboundEvent struct {
	ChannelID string
	SenderID  string
	Timestamp int64
	Text      string
}

// Product is the display-safe catalog projection handed to the generator.
type Product struct {
	Name  string `json:"name" yaml:"name"`
	Price string `json:"price" yaml:"price"`
}

// Channel is a merchant's connected messaging page. TokenCiphertext holds the
// encrypted long-lived page access token; the decrypted form only ever exists
// in memory for the duration of one delivery call.
type Channel struct {
	ID              string
	OwnerID         string
	TokenCiphertext string
	CreatedAt       time.Time
}

// LogEntry is one record in the append-only message log.
type LogEntry struct {
	Timestamp time.Time
	OwnerID   string
	ChannelID string
	SenderID  string
	Text      string
}
