package domain

import "context"

// ChannelStore resolves connected channels. Get returns (nil, nil) when no
// channel with the given platform ID is connected; an event for an unknown
// channel is not an error.
type ChannelStore interface {
	Get(ctx context.Context, channelID string) (*Channel, error)
}

// Catalog supplies the product projection used to ground generated answers.
type Catalog interface {
	Products(ctx context.Context, ownerID string) ([]Product, error)
}

// MessageLog is an append-only sink for delivered replies. Appends must be
// atomic per entry; concurrent pipelines share one log.
type MessageLog interface {
	Append(ctx context.Context, entry LogEntry) error
}

// Generator produces a raw answer for a customer message, grounded on the
// given catalog.
type Generator interface {
	Generate(ctx context.Context, catalog []Product, customerText string) (string, error)
}

// Deliverer sends the final reply text to a recipient using a decrypted
// channel access token.
type Deliverer interface {
	Deliver(ctx context.Context, accessToken, recipientID, text string) error
}
