// Package pubsub defines the event publisher contract and the ordered
// delivery queue game sessions publish through.
package pubsub

import (
	"context"

	"github.com/louisbranch/quizroom/internal/quiz/event"
)

// Publisher fans a named event out to every subscriber of a channel.
// Delivery is at-least-once; ordering is only meaningful per channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, name event.Name, payload any) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, channel string, name event.Name, payload any) error

// Publish implements Publisher.
func (f PublisherFunc) Publish(ctx context.Context, channel string, name event.Name, payload any) error {
	return f(ctx, channel, name, payload)
}
