// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

// Package echo is a small native plugin. It contributes a console panel and
// a menu entry, and echoes anything published on its "say" topic through
// its backend namespace, publishing the reply on "echoed".
//
// plugin.yaml:
//
//	module: echo
//	settings:
//	  title: Echo
//	  prefix: "Echo: "
package echo

import (
	"context"
	"fmt"
	"net/http"

	"github.com/plexdesk/plexdesk/internal/bridge"
	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// Name is the module name used in plugin.yaml.
const Name = "echo"

// Topics on the plugin's channel.
var (
	Say    = pluginsdk.Topic[string]("say")
	Echoed = pluginsdk.Topic[string]("echoed")
)

// Settings configure the plugin.
type Settings struct {
	Title  string
	Prefix string
}

func settingsFrom(raw map[string]any) (Settings, error) {
	s := Settings{Title: "Echo", Prefix: "Echo: "}
	for key, v := range raw {
		str, ok := v.(string)
		if !ok {
			return s, fmt.Errorf("echo: setting %q must be a string, got %T", key, v)
		}
		switch key {
		case "title":
			s.Title = str
		case "prefix":
			s.Prefix = str
		default:
			return s, fmt.Errorf("echo: unknown setting %q", key)
		}
	}
	return s, nil
}

// New builds the echo module. Its signature matches native.Factory.
func New(raw map[string]any) (*pluginsdk.Module, error) {
	settings, err := settingsFrom(raw)
	if err != nil {
		return nil, err
	}
	p := &plugin{settings: settings}
	return &pluginsdk.Module{
		ID:          Name,
		Name:        settings.Title,
		Version:     "1.0.0",
		Description: "Echoes messages through the plugin backend",
		Author:      "PlexDesk Contributors",
		OnStart:     p.start,
		OnStop:      p.stop,
	}, nil
}

type plugin struct {
	settings Settings
	cancel   func()
}

func (p *plugin) start(_ context.Context, pc pluginsdk.Context) error {
	if err := pc.Panel("console", pluginsdk.Spec{
		Label: p.settings.Title,
		Icon:  "terminal",
	}); err != nil {
		return err
	}
	if err := pc.Menu("clear", pluginsdk.Spec{
		Label: "Clear " + p.settings.Title,
		OnActivate: func(ctx context.Context) error {
			return Echoed.Publish(ctx, pc.Messages(), "")
		},
	}); err != nil {
		return err
	}

	p.cancel = Say.Subscribe(pc.Messages(), func(ctx context.Context, text string) {
		reply, err := p.echo(ctx, pc, text)
		if err != nil {
			pc.Logger().Warn("echo failed", "error", err)
			return
		}
		if err := Echoed.Publish(ctx, pc.Messages(), reply); err != nil {
			pc.Logger().Warn("publish echo failed", "error", err)
		}
	}, func(err error) {
		pc.Logger().Warn("dropped message", "error", err)
	})
	return nil
}

func (p *plugin) echo(ctx context.Context, pc pluginsdk.Context, text string) (string, error) {
	resp, err := pc.Bridge(ctx, "echo", pluginsdk.BridgeRequest{
		Body:  map[string]string{"message": text},
		Query: map[string]string{"prefix": p.settings.Prefix},
	})
	if err != nil {
		return "", err
	}
	if !resp.OK {
		return "", fmt.Errorf("echo backend returned %d", resp.Status)
	}
	var out struct {
		Message string `json:"message"`
	}
	if err := resp.JSON(&out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (p *plugin) stop(context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

// Routes registers the plugin's in-process backend on r.
func Routes(r *bridge.Router) error {
	return r.Handle(Name, "echo", func(_ context.Context, _ string, req pluginsdk.BridgeRequest) (*pluginsdk.BridgeResponse, error) {
		msg, ok := message(req.Body)
		if !ok {
			return bridge.RespondJSON(http.StatusBadRequest, map[string]string{"error": "message required"})
		}
		return bridge.RespondJSON(http.StatusOK, map[string]string{"message": req.Query["prefix"] + msg})
	})
}

// message extracts the message field from a Go or Lua request body.
func message(body any) (string, bool) {
	switch b := body.(type) {
	case map[string]string:
		msg, ok := b["message"]
		return msg, ok
	case map[string]any:
		msg, ok := b["message"].(string)
		return msg, ok
	default:
		return "", false
	}
}
