// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package pluginsdk

import (
	"context"
	"errors"
	"fmt"
)

// ErrChannelClosed is returned when publishing on a channel whose plugin
// has been torn down.
var ErrChannelClosed = errors.New("message channel closed")

// Message is delivered to channel subscribers.
type Message struct {
	Topic   string
	Payload any
}

// Channel carries messages between the parts of a single plugin, such as a
// file panel telling its viewport which file was selected. Each plugin
// instance gets its own channel; nothing is broadcast across plugins.
type Channel interface {
	// Publish delivers payload to every subscriber of topic before returning.
	Publish(ctx context.Context, topic string, payload any) error
	// Subscribe registers fn for topic and returns a function that removes it.
	Subscribe(topic string, fn func(ctx context.Context, msg Message)) (cancel func())
}

// Topic is a typed view over a channel topic.
//
//	var FileSelected = pluginsdk.Topic[string]("file-selected")
//	FileSelected.Subscribe(pc.Messages(), func(ctx context.Context, path string) { ... })
//	_ = FileSelected.Publish(ctx, pc.Messages(), "/tmp/a.png")
type Topic[T any] string

// Publish sends v on the topic.
func (t Topic[T]) Publish(ctx context.Context, ch Channel, v T) error {
	return ch.Publish(ctx, string(t), v)
}

// Subscribe registers fn for the topic. Payloads of another type are
// dropped and reported through onMismatch when it is non-nil.
func (t Topic[T]) Subscribe(ch Channel, fn func(ctx context.Context, v T), onMismatch ...func(error)) (cancel func()) {
	return ch.Subscribe(string(t), func(ctx context.Context, msg Message) {
		v, ok := msg.Payload.(T)
		if !ok {
			for _, report := range onMismatch {
				report(fmt.Errorf("topic %q: unexpected payload type %T", msg.Topic, msg.Payload))
			}
			return
		}
		fn(ctx, v)
	})
}
