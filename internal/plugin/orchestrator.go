// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package plugin

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"

	"github.com/plexdesk/plexdesk/internal/bridge"
	"github.com/plexdesk/plexdesk/internal/manifest"
	"github.com/plexdesk/plexdesk/internal/registry"
	"github.com/plexdesk/plexdesk/pkg/errutil"
	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// maxFailures bounds the failure history kept for introspection.
const maxFailures = 256

// Orchestrator drives plugins through their lifecycle.
//
// Lifecycle operations (Bootstrap, Reconcile, Shutdown) are serialized and
// run hooks one at a time in manifest order. A plugin that fails is marked
// Failed and isolated; it never stops the others from loading. Read methods
// are safe to call concurrently with lifecycle operations.
type Orchestrator struct {
	reg         *registry.Registry
	hosts       map[string]Host
	gateway     bridge.Gateway
	renderer    Renderer
	logger      *slog.Logger
	hookTimeout time.Duration
	pluginsDir  string
	handlers    []EventHandler

	opMu   sync.Mutex
	closed bool

	mu        sync.RWMutex
	instances map[string]*instance
	failures  []Failure
	nextSeq   int

	ready atomic.Bool
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithHost registers the host that resolves plugins whose entry file is
// entryFile (for example "init.lua").
func WithHost(entryFile string, h Host) Option {
	return func(o *Orchestrator) {
		o.hosts[entryFile] = h
	}
}

// WithHookTimeout bounds every lifecycle hook. Non-positive values keep the default.
func WithHookTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.hookTimeout = d
		}
	}
}

// WithBridge sets the gateway plugins reach through Context.Bridge.
func WithBridge(g bridge.Gateway) Option {
	return func(o *Orchestrator) {
		o.gateway = g
	}
}

// WithRenderer sets the renderer asked to open viewports.
func WithRenderer(r Renderer) Option {
	return func(o *Orchestrator) {
		o.renderer = r
	}
}

// WithLogger sets the logger. Plugin loggers derive from it.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithEventHandler adds a handler for lifecycle events.
func WithEventHandler(h EventHandler) Option {
	return func(o *Orchestrator) {
		o.handlers = append(o.handlers, h)
	}
}

// WithPluginsDir sets the directory descriptor paths are relative to.
func WithPluginsDir(dir string) Option {
	return func(o *Orchestrator) {
		o.pluginsDir = dir
	}
}

// NewOrchestrator creates an orchestrator writing into reg.
func NewOrchestrator(reg *registry.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reg:         reg,
		hosts:       make(map[string]Host),
		gateway:     bridge.Unavailable,
		renderer:    nopRenderer{},
		logger:      slog.Default(),
		hookTimeout: DefaultHookTimeout,
		instances:   make(map[string]*instance),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Report summarizes what a Reconcile changed.
type Report struct {
	Started []string
	Failed  []string
	Updated []string
	Removed []string
}

// Empty reports whether the reconcile changed nothing.
func (r Report) Empty() bool {
	return len(r.Started)+len(r.Failed)+len(r.Updated)+len(r.Removed) == 0
}

// Bootstrap activates every enabled plugin in file and marks the
// orchestrator ready. Plugin failures are recorded, not returned.
func (o *Orchestrator) Bootstrap(ctx context.Context, file *manifest.File) error {
	report, err := o.Reconcile(ctx, file)
	if err != nil {
		return err
	}
	o.ready.Store(true)
	o.logger.Info("plugins bootstrapped",
		"started", len(report.Started),
		"failed", len(report.Failed))
	return nil
}

// BootstrapFile reads the manifest at path and bootstraps from it. Only a
// manifest read error is returned.
func (o *Orchestrator) BootstrapFile(ctx context.Context, path string) error {
	file, err := manifest.Read(path)
	if err != nil {
		return err
	}
	return o.Bootstrap(ctx, file)
}

// ReconcileFile reads the manifest at path and reconciles against it.
func (o *Orchestrator) ReconcileFile(ctx context.Context, path string) (Report, error) {
	file, err := manifest.Read(path)
	if err != nil {
		return Report{}, err
	}
	return o.Reconcile(ctx, file)
}

// Reconcile brings the running set in line with file. Plugins present in
// both keep running; a changed descriptor refreshes the plugin's ordering
// and runs its update hook. Removed plugins are torn down in reverse
// priority order, then new plugins are activated in priority order. Failed plugins
// are retried only when their descriptor changed, so reconciling twice
// against the same file changes nothing the second time.
func (o *Orchestrator) Reconcile(ctx context.Context, file *manifest.File) (Report, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	var report Report
	if o.closed {
		return report, oops.Code(CodeClosed).In("plugin").New("orchestrator is shut down")
	}
	if file == nil {
		file = manifest.New(nil, "", time.Time{})
	}

	desired := make([]manifest.Descriptor, 0, len(file.Plugins))
	for _, d := range file.Plugins {
		if !d.Enabled {
			o.logger.Debug("skipping disabled plugin", "plugin", d.ID)
			continue
		}
		desired = append(desired, d)
	}
	slices.SortStableFunc(desired, func(a, b manifest.Descriptor) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	wanted := make(map[string]manifest.Descriptor, len(desired))
	for _, d := range desired {
		wanted[d.ID] = d
	}

	var remove []*instance
	o.mu.RLock()
	for id, inst := range o.instances {
		d, ok := wanted[id]
		if !ok || (inst.state == StateFailed && inst.fingerprint != d.Fingerprint()) {
			remove = append(remove, inst)
		}
	}
	slices.SortFunc(remove, func(a, b *instance) int {
		if c := cmp.Compare(b.desc.Priority, a.desc.Priority); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})
	o.mu.RUnlock()

	for _, inst := range remove {
		o.teardown(ctx, inst)
		if _, still := wanted[inst.desc.ID]; !still {
			report.Removed = append(report.Removed, inst.desc.ID)
		}
	}

	for i, d := range desired {
		o.mu.RLock()
		inst, ok := o.instances[d.ID]
		o.mu.RUnlock()

		if !ok {
			if o.activate(ctx, d, i) {
				report.Started = append(report.Started, d.ID)
			} else {
				report.Failed = append(report.Failed, d.ID)
			}
			continue
		}

		o.reg.SetRank(d.ID, d.Priority, i)
		fp := d.Fingerprint()
		if fp == inst.fingerprint {
			continue
		}
		o.mu.Lock()
		inst.desc = d
		inst.fingerprint = fp
		mod := inst.module
		o.mu.Unlock()

		if mod != nil {
			if err := o.runHook(ctx, d.ID, PhaseUpdate, mod.OnUpdate); err != nil {
				o.recordFailure(d.ID, PhaseUpdate, CodeHookError, err)
			}
		}
		report.Updated = append(report.Updated, d.ID)
	}

	return report, nil
}

// Shutdown tears down every plugin in reverse start order and closes the
// hosts. The orchestrator cannot be reused afterwards.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	o.ready.Store(false)

	o.mu.RLock()
	all := make([]*instance, 0, len(o.instances))
	for _, inst := range o.instances {
		all = append(all, inst)
	}
	o.mu.RUnlock()
	slices.SortFunc(all, func(a, b *instance) int { return cmp.Compare(b.seq, a.seq) })

	for _, inst := range all {
		o.teardown(ctx, inst)
	}

	var errs []error
	closedHosts := make(map[Host]bool)
	for entry, h := range o.hosts {
		if closedHosts[h] {
			continue
		}
		closedHosts[h] = true
		if err := h.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close host for %s: %w", entry, err))
		}
	}
	return errors.Join(errs...)
}

// Publish delivers a message from the host on a started plugin's channel.
func (o *Orchestrator) Publish(ctx context.Context, id, topic string, payload any) error {
	o.mu.RLock()
	inst, ok := o.instances[id]
	var pctx *pluginContext
	if ok && inst.state == StateStarted {
		pctx = inst.pctx
	}
	o.mu.RUnlock()
	if pctx == nil {
		return ErrNotRunning(id)
	}
	return pctx.messages.Publish(ctx, topic, payload)
}

// Subscribe listens on a started plugin's channel. The subscription ends
// when the plugin is torn down.
func (o *Orchestrator) Subscribe(id, topic string, fn func(context.Context, pluginsdk.Message)) (cancel func(), err error) {
	o.mu.RLock()
	inst, ok := o.instances[id]
	var pctx *pluginContext
	if ok && inst.state == StateStarted {
		pctx = inst.pctx
	}
	o.mu.RUnlock()
	if pctx == nil {
		return nil, ErrNotRunning(id)
	}
	return pctx.messages.Subscribe(topic, fn), nil
}

// State returns the lifecycle state of a plugin.
func (o *Orchestrator) State(id string) (State, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	inst, ok := o.instances[id]
	if !ok {
		return StateUnloaded, false
	}
	return inst.state, true
}

// Instance returns a snapshot of one plugin instance.
func (o *Orchestrator) Instance(id string) (Info, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	inst, ok := o.instances[id]
	if !ok {
		return Info{}, false
	}
	return inst.info(), true
}

// Instances returns snapshots of every instance in start order.
func (o *Orchestrator) Instances() []Info {
	o.mu.RLock()
	out := make([]Info, 0, len(o.instances))
	for _, inst := range o.instances {
		out = append(out, inst.info())
	}
	o.mu.RUnlock()

	slices.SortFunc(out, func(a, b Info) int { return cmp.Compare(a.Seq, b.Seq) })
	return out
}

// Failures returns the recorded plugin failures, oldest first.
func (o *Orchestrator) Failures() []Failure {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.failures)
}

// Ready reports whether Bootstrap has completed and Shutdown has not begun.
func (o *Orchestrator) Ready() bool {
	return o.ready.Load()
}

// activate loads and starts one plugin. It reports whether the plugin
// reached StateStarted.
func (o *Orchestrator) activate(ctx context.Context, d manifest.Descriptor, rankSeq int) bool {
	o.mu.Lock()
	o.nextSeq++
	inst := &instance{
		desc:        d,
		fingerprint: d.Fingerprint(),
		state:       StateUnloaded,
		seq:         o.nextSeq,
	}
	o.instances[d.ID] = inst
	o.mu.Unlock()
	o.reg.SetRank(d.ID, d.Priority, rankSeq)

	host, ok := o.hosts[d.Main]
	if !ok {
		o.fail(ctx, inst, PhaseLoad, CodeInvalidModule,
			errInvalidModule(d.ID, fmt.Sprintf("no host handles entry file %q", d.Main)))
		return false
	}
	o.mu.Lock()
	inst.host = host
	o.mu.Unlock()

	dir := filepath.Join(o.pluginsDir, filepath.FromSlash(d.Path))
	var mod *pluginsdk.Module
	err := o.runHook(ctx, d.ID, PhaseLoad, func(ctx context.Context) error {
		m, err := host.Load(ctx, d, dir)
		mod = m
		return err
	})
	if err == nil {
		err = validateModule(d.ID, mod)
	}
	if err != nil {
		o.fail(ctx, inst, PhaseLoad, CodeInvalidModule, err)
		return false
	}
	if mod.ID != d.ID {
		o.logger.Warn("plugin module id does not match its directory",
			"plugin", d.ID,
			"module_id", mod.ID)
	}

	pctx := newPluginContext(d.ID, o.reg, o.gateway, o.renderer, o.logger)
	o.mu.Lock()
	inst.module = mod
	inst.pctx = pctx
	o.mu.Unlock()
	o.transition(inst, StateInitialized, PhaseLoad, nil)

	if err := o.runHook(ctx, d.ID, PhaseInit, mod.OnInit); err != nil {
		o.fail(ctx, inst, PhaseInit, CodeHookError, err)
		return false
	}
	start := mod.StartHook()
	if err := o.runHook(ctx, d.ID, PhaseStart, func(ctx context.Context) error {
		return start(ctx, pctx)
	}); err != nil {
		o.fail(ctx, inst, PhaseStart, CodeHookError, err)
		return false
	}

	o.transition(inst, StateStarted, PhaseStart, nil)
	o.logger.Info("plugin started",
		"plugin", d.ID,
		"version", mod.Version,
		"priority", d.Priority)
	return true
}

// teardown stops and disposes a plugin and forgets it. Stop and dispose
// errors are recorded; dispose runs even when stop failed.
func (o *Orchestrator) teardown(ctx context.Context, inst *instance) {
	id := inst.desc.ID

	o.mu.RLock()
	state, mod := inst.state, inst.module
	o.mu.RUnlock()

	if mod != nil && (state == StateStarted || state == StateInitialized) {
		if err := o.runHook(ctx, id, PhaseStop, mod.OnStop); err != nil {
			o.recordFailure(id, PhaseStop, CodeHookError, err)
		}
		o.transition(inst, StateStopped, PhaseStop, nil)

		if err := o.runHook(ctx, id, PhaseDispose, mod.OnDispose); err != nil {
			o.recordFailure(id, PhaseDispose, CodeHookError, err)
		}
		o.transition(inst, StateDisposed, PhaseDispose, nil)
	}

	o.release(ctx, inst)
	o.reg.ForgetRank(id)

	o.mu.Lock()
	if o.instances[id] == inst {
		delete(o.instances, id)
	}
	o.mu.Unlock()
}

// release drops everything a plugin holds in shared state.
func (o *Orchestrator) release(ctx context.Context, inst *instance) {
	id := inst.desc.ID

	o.mu.RLock()
	pctx, host, loaded := inst.pctx, inst.host, inst.host != nil
	o.mu.RUnlock()

	if pctx != nil {
		pctx.revoke()
	}
	if n := o.reg.UnregisterAll(id); n > 0 {
		o.logger.Debug("removed plugin contributions", "plugin", id, "count", n)
	}
	o.reg.ReleaseChrome(id)

	if loaded {
		if err := host.Unload(ctx, id); err != nil {
			o.logger.Debug("host unload failed", "plugin", id, "error", err)
		}
		o.mu.Lock()
		inst.host = nil
		o.mu.Unlock()
	}
}

// fail marks inst Failed and releases it. The instance stays visible
// through State and Instances until a reconcile removes it.
func (o *Orchestrator) fail(ctx context.Context, inst *instance, phase Phase, code string, cause error) {
	id := inst.desc.ID
	err := oops.Code(code).
		In("plugin").
		With("plugin", id).
		With("phase", string(phase)).
		Wrapf(cause, "plugin %s failed during %s", id, phase)

	o.recordFailure(id, phase, code, err)
	o.mu.Lock()
	inst.err = err
	o.mu.Unlock()
	o.release(ctx, inst)
	o.transition(inst, StateFailed, phase, err)
}

func (o *Orchestrator) recordFailure(id string, phase Phase, code string, err error) {
	o.mu.Lock()
	o.failures = append(o.failures, Failure{
		PluginID: id,
		Phase:    phase,
		Code:     code,
		Err:      err,
		Time:     time.Now(),
	})
	if len(o.failures) > maxFailures {
		o.failures = slices.Delete(o.failures, 0, len(o.failures)-maxFailures)
	}
	o.mu.Unlock()

	recordFailure(phase, code)
	level := slog.LevelError
	if phase == PhaseStop || phase == PhaseDispose {
		// Teardown continues past these.
		level = slog.LevelWarn
	}
	errutil.Log(o.logger.With("plugin", id, "phase", string(phase)), level, "plugin lifecycle failure", err)
}

func (o *Orchestrator) transition(inst *instance, to State, phase Phase, err error) {
	o.mu.Lock()
	from := inst.state
	inst.state = to
	o.mu.Unlock()

	recordTransition(to)
	o.logger.Debug("plugin transition",
		"plugin", inst.desc.ID,
		"from", from.String(),
		"to", to.String())

	if len(o.handlers) == 0 {
		return
	}
	ev := Event{
		ID:     newULID(),
		Plugin: inst.desc.ID,
		From:   from,
		To:     to,
		Phase:  phase,
		Err:    err,
		Time:   time.Now(),
	}
	for _, h := range o.handlers {
		h(ev)
	}
}

// validateModule checks the shape of a resolved module.
func validateModule(id string, mod *pluginsdk.Module) error {
	if mod == nil {
		return errInvalidModule(id, "host returned no module")
	}
	switch {
	case mod.ID == "":
		return errInvalidModule(id, "missing id")
	case mod.Name == "":
		return errInvalidModule(id, "missing name")
	case mod.Version == "":
		return errInvalidModule(id, "missing version")
	}
	if _, err := semver.NewVersion(mod.Version); err != nil {
		return oops.Code(CodeInvalidModule).
			In("plugin").
			With("plugin", id).
			With("version", mod.Version).
			Wrapf(err, "invalid plugin module: version %q is not a semantic version", mod.Version)
	}
	if mod.StartHook() == nil {
		return errInvalidModule(id, "module defines neither onStart nor start")
	}
	return nil
}
