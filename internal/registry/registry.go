// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

// Package registry holds the shell's extension points and the contributions
// plugins register into them.
//
// Writes come from the lifecycle sequence only; the renderer reads snapshots
// from List and follows Subscribe for changes. All methods are safe for
// concurrent use.
package registry

import (
	"cmp"
	"math"
	"slices"
	"sync"

	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// DefaultPriority is the priority of owners the registry has no rank for.
const DefaultPriority = 1

type rank struct {
	priority int
	seq      int
}

type subscriber struct {
	id int
	fn func(Change)
}

// Registry stores contributions per extension point.
type Registry struct {
	mu      sync.RWMutex
	points  map[pluginsdk.Point]map[string]Record
	ranks   map[string]rank
	chrome  map[pluginsdk.ChromeFlag][]chromeEntry
	nextSeq uint64

	subMu   sync.RWMutex
	subs    []subscriber
	nextSub int
}

// New creates an empty registry with every extension point defined and all
// chrome visible.
func New() *Registry {
	r := &Registry{
		points: make(map[pluginsdk.Point]map[string]Record),
		ranks:  make(map[string]rank),
		chrome: make(map[pluginsdk.ChromeFlag][]chromeEntry),
	}
	for _, p := range pluginsdk.Points() {
		r.points[p] = make(map[string]Record)
	}
	return r
}

// Register adds a contribution on behalf of caller. id must be qualified
// with the caller's plugin id. On error the registry is unchanged.
func (r *Registry) Register(caller string, point pluginsdk.Point, id string, spec pluginsdk.Spec) (Record, error) {
	r.mu.Lock()
	records, ok := r.points[point]
	if !ok {
		r.mu.Unlock()
		return Record{}, ErrUnknownPoint(point)
	}
	owner, local, ok := SplitID(id)
	if !ok || owner != caller || local == "" || caller == "" {
		r.mu.Unlock()
		return Record{}, ErrNamespaceViolation(caller, id)
	}
	if existing, dup := records[id]; dup {
		r.mu.Unlock()
		return Record{}, ErrDuplicate(point, id, existing.Owner)
	}

	r.nextSeq++
	rec := Record{
		ID:           id,
		Owner:        owner,
		LocalID:      local,
		Point:        point,
		Label:        spec.Label,
		Icon:         spec.Icon,
		Order:        cloneOrder(spec.Order),
		Payload:      spec.Payload,
		OnActivate:   spec.OnActivate,
		OnDeactivate: spec.OnDeactivate,
		Seq:          r.nextSeq,
	}
	records[id] = rec
	Contributions.WithLabelValues(string(point)).Set(float64(len(records)))
	r.mu.Unlock()

	r.notify(Change{Kind: ChangeAdded, Point: point, Record: rec})
	return rec, nil
}

// Unregister removes a contribution. It reports whether anything was removed;
// removing a missing id is not an error.
func (r *Registry) Unregister(point pluginsdk.Point, id string) bool {
	r.mu.Lock()
	records, ok := r.points[point]
	if !ok {
		r.mu.Unlock()
		return false
	}
	rec, ok := records[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(records, id)
	Contributions.WithLabelValues(string(point)).Set(float64(len(records)))
	r.mu.Unlock()

	r.notify(Change{Kind: ChangeRemoved, Point: point, Record: rec})
	return true
}

// UnregisterAll removes every contribution owned by pluginID across all
// points and returns how many were removed.
func (r *Registry) UnregisterAll(pluginID string) int {
	var removed []Change

	r.mu.Lock()
	for _, point := range pluginsdk.Points() {
		records := r.points[point]
		before := len(records)
		for id, rec := range records {
			if rec.Owner == pluginID {
				delete(records, id)
				removed = append(removed, Change{Kind: ChangeRemoved, Point: point, Record: rec})
			}
		}
		if len(records) != before {
			Contributions.WithLabelValues(string(point)).Set(float64(len(records)))
		}
	}
	r.mu.Unlock()

	slices.SortFunc(removed, func(a, b Change) int {
		return cmp.Compare(a.Record.Seq, b.Record.Seq)
	})
	for _, c := range removed {
		r.notify(c)
	}
	return len(removed)
}

// Get returns a single contribution.
func (r *Registry) Get(point pluginsdk.Point, id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.points[point][id]
	return rec, ok
}

// List returns a snapshot of a point's contributions in display order.
// Unknown points yield an empty list.
func (r *Registry) List(point pluginsdk.Point) []Record {
	r.mu.RLock()
	records := r.points[point]
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	ranks := make(map[string]rank, len(r.ranks))
	for k, v := range r.ranks {
		ranks[k] = v
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Record) int {
		ra, rb := rankOf(ranks, a.Owner), rankOf(ranks, b.Owner)
		if c := cmp.Compare(effective(a, ra), effective(b, rb)); c != 0 {
			return c
		}
		if c := cmp.Compare(ra.priority, rb.priority); c != 0 {
			return c
		}
		if c := cmp.Compare(ra.seq, rb.seq); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	return out
}

// Points returns the defined extension points.
func (r *Registry) Points() []pluginsdk.Point {
	return pluginsdk.Points()
}

// Owned returns every contribution owned by pluginID, in registration order.
func (r *Registry) Owned(pluginID string) []Record {
	r.mu.RLock()
	var out []Record
	for _, records := range r.points {
		for _, rec := range records {
			if rec.Owner == pluginID {
				out = append(out, rec)
			}
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Record) int { return cmp.Compare(a.Seq, b.Seq) })
	return out
}

// Len returns the number of contributions at a point.
func (r *Registry) Len(point pluginsdk.Point) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.points[point])
}

// SetRank records a plugin's priority and discovery sequence for ordering.
func (r *Registry) SetRank(pluginID string, priority, seq int) {
	r.mu.Lock()
	prev, had := r.ranks[pluginID]
	next := rank{priority: priority, seq: seq}
	r.ranks[pluginID] = next
	r.mu.Unlock()

	if had && prev != next {
		r.notify(Change{Kind: ChangeReordered, Plugin: pluginID})
	}
}

// ForgetRank drops a plugin's ordering information.
func (r *Registry) ForgetRank(pluginID string) {
	r.mu.Lock()
	delete(r.ranks, pluginID)
	r.mu.Unlock()
}

// Subscribe registers fn for change notifications. fn runs synchronously
// after the mutation is applied and must not block. The returned function
// removes the subscription.
func (r *Registry) Subscribe(fn func(Change)) (cancel func()) {
	r.subMu.Lock()
	r.nextSub++
	id := r.nextSub
	r.subs = append(r.subs, subscriber{id: id, fn: fn})
	r.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.subMu.Lock()
			defer r.subMu.Unlock()
			r.subs = slices.DeleteFunc(r.subs, func(s subscriber) bool { return s.id == id })
		})
	}
}

func (r *Registry) notify(c Change) {
	r.subMu.RLock()
	subs := slices.Clone(r.subs)
	r.subMu.RUnlock()
	for _, s := range subs {
		s.fn(c)
	}
}

func rankOf(ranks map[string]rank, owner string) rank {
	if rk, ok := ranks[owner]; ok {
		return rk
	}
	return rank{priority: DefaultPriority, seq: math.MaxInt}
}

func effective(rec Record, rk rank) int {
	if rec.Order != nil {
		return *rec.Order
	}
	return rk.priority
}

func cloneOrder(o *int) *int {
	if o == nil {
		return nil
	}
	v := *o
	return &v
}
