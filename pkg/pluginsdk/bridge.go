// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package pluginsdk

import (
	"encoding/json"
	"fmt"
)

// BridgeRequest is a request to a plugin's backend namespace.
// Method defaults to GET, or POST when Body is set.
type BridgeRequest struct {
	Method  string
	Headers map[string]string
	Query   map[string]string
	Body    any
}

// EffectiveMethod returns the HTTP-style method for the request.
func (r BridgeRequest) EffectiveMethod() string {
	if r.Method != "" {
		return r.Method
	}
	if r.Body != nil {
		return "POST"
	}
	return "GET"
}

// BridgeResponse is what the bridge returns. The host never interprets Body.
type BridgeResponse struct {
	OK     bool
	Status int
	Body   []byte
}

// JSON decodes the response body into v.
func (r *BridgeResponse) JSON(v any) error {
	if r == nil || len(r.Body) == 0 {
		return fmt.Errorf("bridge response has no body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode bridge response: %w", err)
	}
	return nil
}
