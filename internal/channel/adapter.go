// Package channel defines the contract between chat surfaces and the
// consultation loop. Adapters normalize platform events into Messages and
// deliver Responses back; they never interpret message content themselves.
package channel

import "context"

// Message is a normalized inbound chat message.
type Message struct {
	ID        string
	Channel   string
	UserID    string
	UserName  string
	Content   string
	Metadata  map[string]string
	Timestamp int64
}

// Response is an outbound reply. Content is Markdown; adapters degrade to
// plain text when the platform rejects the formatting.
type Response struct {
	Content  string
	Metadata map[string]string
}

// ChannelAdapter is implemented by every chat surface.
type ChannelAdapter interface {
	// Start connects to the platform and begins feeding Incoming.
	Start(ctx context.Context) error

	// Stop disconnects and closes the incoming channel.
	Stop() error

	// SendMessage delivers a response to the given user.
	SendMessage(userID string, resp *Response) error

	// Incoming returns the stream of normalized inbound messages.
	Incoming() <-chan *Message

	// Name identifies the adapter in logs and metrics.
	Name() string

	// IsEnabled reports whether the adapter is configured to run.
	IsEnabled() bool
}
