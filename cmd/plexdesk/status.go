// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package main

import (
	"encoding/json"
	"net/http"

	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

type pluginView struct {
	ID            string                       `json:"id"`
	State         string                       `json:"state"`
	Name          string                       `json:"name,omitempty"`
	Version       string                       `json:"version,omitempty"`
	Priority      int                          `json:"priority"`
	Error         string                       `json:"error,omitempty"`
	Contributions map[pluginsdk.Point][]string `json:"contributions,omitempty"`
}

type contributionView struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Label string `json:"label,omitempty"`
	Order *int   `json:"order,omitempty"`
}

type failureView struct {
	Plugin string `json:"plugin"`
	Phase  string `json:"phase"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

// snapshot is the runtime state printed by list and served on /plugins.
type snapshot struct {
	Plugins  []pluginView                           `json:"plugins"`
	Points   map[pluginsdk.Point][]contributionView `json:"points"`
	Chrome   map[pluginsdk.ChromeFlag]bool          `json:"chrome"`
	Failures []failureView                          `json:"failures,omitempty"`
}

func (rt *runtime) snapshot() snapshot {
	s := snapshot{
		Plugins: []pluginView{},
		Points:  make(map[pluginsdk.Point][]contributionView),
		Chrome:  rt.reg.Chrome(),
	}
	for _, info := range rt.orch.Instances() {
		v := pluginView{
			ID:            info.ID,
			State:         info.State.String(),
			Name:          info.Name,
			Version:       info.Version,
			Priority:      info.Descriptor.Priority,
			Contributions: info.Contributions,
		}
		if info.Err != nil {
			v.Error = info.Err.Error()
		}
		s.Plugins = append(s.Plugins, v)
	}
	for _, point := range pluginsdk.Points() {
		views := []contributionView{}
		for _, rec := range rt.reg.List(point) {
			views = append(views, contributionView{ID: rec.ID, Owner: rec.Owner, Label: rec.Label, Order: rec.Order})
		}
		s.Points[point] = views
	}
	for _, f := range rt.orch.Failures() {
		s.Failures = append(s.Failures, failureView{
			Plugin: f.PluginID,
			Phase:  string(f.Phase),
			Code:   f.Code,
			Error:  f.Err.Error(),
		})
	}
	return s
}

// pluginsHandler serves the runtime snapshot as JSON.
func (rt *runtime) pluginsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck // client may disconnect
		json.NewEncoder(w).Encode(rt.snapshot())
	})
}
