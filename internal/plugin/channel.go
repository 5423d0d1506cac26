// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package plugin

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

type channelSub struct {
	id int
	fn func(context.Context, pluginsdk.Message)
}

// channel is the message channel of one plugin instance. Delivery is
// synchronous and in subscription order. A panicking subscriber is logged
// and does not stop delivery to the others.
type channel struct {
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[string][]channelSub
	nextID int
	closed bool
}

var _ pluginsdk.Channel = (*channel)(nil)

func newChannel(logger *slog.Logger) *channel {
	return &channel{
		logger: logger,
		subs:   make(map[string][]channelSub),
	}
}

func (c *channel) Publish(ctx context.Context, topic string, payload any) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return pluginsdk.ErrChannelClosed
	}
	subs := slices.Clone(c.subs[topic])
	c.mu.RUnlock()

	msg := pluginsdk.Message{Topic: topic, Payload: payload}
	for _, s := range subs {
		c.deliver(ctx, s, msg)
	}
	return nil
}

func (c *channel) deliver(ctx context.Context, s channelSub, msg pluginsdk.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("message subscriber panicked",
				"topic", msg.Topic,
				"panic", r)
		}
	}()
	s.fn(ctx, msg)
}

func (c *channel) Subscribe(topic string, fn func(context.Context, pluginsdk.Message)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || fn == nil {
		return func() {}
	}
	c.nextID++
	id := c.nextID
	c.subs[topic] = append(c.subs[topic], channelSub{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subs[topic] = slices.DeleteFunc(c.subs[topic], func(s channelSub) bool { return s.id == id })
		if len(c.subs[topic]) == 0 {
			delete(c.subs, topic)
		}
	}
}

// close drops every subscriber; later publishes fail with ErrChannelClosed.
func (c *channel) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.subs = make(map[string][]channelSub)
}

func (c *channel) topics() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}
