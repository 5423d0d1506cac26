// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

// Package bridge connects plugins to their native backends.
//
// The core never interprets bridge payloads. A plugin's requests are scoped
// to its own namespace (its plugin id); the gateway implementation decides
// how a namespace maps onto a backend.
package bridge

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/samber/oops"

	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// Error codes for bridge failures.
const (
	CodeBridgeUnavailable = "BRIDGE_UNAVAILABLE"
	CodeInvalidRoute      = "INVALID_BRIDGE_ROUTE"
)

// Gateway sends a plugin's request to its backend namespace.
type Gateway interface {
	Do(ctx context.Context, pluginID, path string, req pluginsdk.BridgeRequest) (*pluginsdk.BridgeResponse, error)
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, pluginID, path string, req pluginsdk.BridgeRequest) (*pluginsdk.BridgeResponse, error)

// Do calls f.
func (f GatewayFunc) Do(ctx context.Context, pluginID, path string, req pluginsdk.BridgeRequest) (*pluginsdk.BridgeResponse, error) {
	return f(ctx, pluginID, path, req)
}

// Respond builds a response with a raw body.
func Respond(status int, body []byte) *pluginsdk.BridgeResponse {
	return &pluginsdk.BridgeResponse{
		OK:     status >= 200 && status < 300,
		Status: status,
		Body:   body,
	}
}

// RespondJSON builds a response with a JSON encoded body.
func RespondJSON(status int, v any) (*pluginsdk.BridgeResponse, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, oops.In("bridge").Hint("failed to encode response").Wrap(err)
	}
	return Respond(status, body), nil
}

// NotFound is returned for paths no route handles.
func NotFound() *pluginsdk.BridgeResponse {
	return Respond(http.StatusNotFound, nil)
}

// Unavailable is the gateway used when no backend is configured. Every call
// fails with BRIDGE_UNAVAILABLE.
var Unavailable Gateway = GatewayFunc(func(_ context.Context, pluginID, path string, _ pluginsdk.BridgeRequest) (*pluginsdk.BridgeResponse, error) {
	return nil, oops.Code(CodeBridgeUnavailable).
		In("bridge").
		With("plugin", pluginID).
		With("path", path).
		New("no bridge backend configured")
})
