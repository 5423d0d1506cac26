// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package plugin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/plexdesk/plexdesk/internal/bridge"
	"github.com/plexdesk/plexdesk/internal/manifest"
	"github.com/plexdesk/plexdesk/internal/plugin"
	"github.com/plexdesk/plexdesk/internal/plugin/plugintest"
	"github.com/plexdesk/plexdesk/internal/registry"
	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

var _ = Describe("Lifecycle orchestration", func() {
	var (
		ctx    context.Context
		reg    *registry.Registry
		host   *plugintest.Host
		router *bridge.Router
		orch   *plugin.Orchestrator
		events []plugin.Event
		order  []string
	)

	starter := func(id string, body func(pluginsdk.Context) error) *pluginsdk.Module {
		return plugintest.Module(id, func(_ context.Context, pc pluginsdk.Context) error {
			order = append(order, id)
			if body == nil {
				return nil
			}
			return body(pc)
		})
	}

	BeforeEach(func() {
		ctx = context.Background()
		reg = registry.New()
		host = plugintest.NewHost()
		router = bridge.NewRouter(nil)
		events = nil
		order = nil
		orch = plugin.NewOrchestrator(reg,
			plugin.WithHost(plugintest.EntryFile, host),
			plugin.WithBridge(router),
			plugin.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			plugin.WithEventHandler(func(ev plugin.Event) { events = append(events, ev) }),
		)
	})

	AfterEach(func() {
		Expect(orch.Shutdown(ctx)).To(Succeed())
	})

	Describe("a shell with bridge, default and paint plugins", func() {
		var file *manifest.File

		BeforeEach(func() {
			host.Add("bridge", starter("bridge", nil))
			host.Add("default", starter("default", func(pc pluginsdk.Context) error {
				return pc.Menu("about", pluginsdk.Spec{Label: "About"})
			}))
			host.Add("paint", starter("paint", func(pc pluginsdk.Context) error {
				if err := pc.Viewport("paint-viewport", pluginsdk.Spec{Label: "Paint"}); err != nil {
					return err
				}
				return pc.Menu("colors", pluginsdk.Spec{Label: "Colors"})
			}))

			tree := manifest.NewTree()
			for _, id := range []string{"paint", "default", "bridge"} {
				tree.AddFile(tree.AddPath(id), plugintest.EntryFile)
			}
			file = manifest.New(manifest.Build(tree, manifest.DefaultOptions()).Descriptors, "test", time.Unix(0, 0))
		})

		It("loads plugins in priority order", func() {
			Expect(orch.Bootstrap(ctx, file)).To(Succeed())
			Expect(order).To(Equal([]string{"bridge", "default", "paint"}))
		})

		It("exposes only paint's viewport", func() {
			Expect(orch.Bootstrap(ctx, file)).To(Succeed())

			views := reg.List(pluginsdk.PointViewport)
			Expect(views).To(HaveLen(1))
			Expect(views[0].ID).To(Equal("paint:paint-viewport"))
			Expect(views[0].Owner).To(Equal("paint"))
		})

		It("orders menus by plugin priority", func() {
			Expect(orch.Bootstrap(ctx, file)).To(Succeed())

			var ids []string
			for _, r := range reg.List(pluginsdk.PointMenu) {
				ids = append(ids, r.ID)
			}
			Expect(ids).To(Equal([]string{"default:about", "paint:colors"}))
		})

		It("makes no transitions when reconciled against the same manifest", func() {
			Expect(orch.Bootstrap(ctx, file)).To(Succeed())
			events = nil

			report, err := orch.Reconcile(ctx, file)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Empty()).To(BeTrue())
			Expect(events).To(BeEmpty())
		})

		It("removes every contribution when a plugin goes away", func() {
			Expect(orch.Bootstrap(ctx, file)).To(Succeed())

			without := manifest.New(file.Plugins[:2], "test", file.GeneratedAt)
			report, err := orch.Reconcile(ctx, without)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Removed).To(ConsistOf("paint"))
			Expect(reg.Owned("paint")).To(BeEmpty())
			Expect(reg.Owned("default")).To(HaveLen(1))
		})
	})

	Describe("a failing plugin", func() {
		BeforeEach(func() {
			host.Add("a", starter("a", func(pc pluginsdk.Context) error {
				if err := pc.Widget("clock", pluginsdk.Spec{}); err != nil {
					return err
				}
				return errors.New("start failed")
			}))
			host.Add("b", starter("b", func(pc pluginsdk.Context) error {
				return pc.Widget("weather", pluginsdk.Spec{})
			}))
			Expect(orch.Bootstrap(ctx, plugintest.File(
				plugintest.Descriptor("a", 0),
				plugintest.Descriptor("b", 1),
			))).To(Succeed())
		})

		It("is isolated from its peers", func() {
			state, _ := orch.State("a")
			Expect(state).To(Equal(plugin.StateFailed))
			state, _ = orch.State("b")
			Expect(state).To(Equal(plugin.StateStarted))

			widgets := reg.List(pluginsdk.PointWidget)
			Expect(widgets).To(HaveLen(1))
			Expect(widgets[0].ID).To(Equal("b:weather"))
		})

		It("is reported with its phase and code", func() {
			Expect(orch.Failures()).To(ContainElement(And(
				HaveField("PluginID", "a"),
				HaveField("Phase", plugin.PhaseStart),
				HaveField("Code", plugin.CodeHookError),
			)))
		})
	})

	Describe("bridge calls", func() {
		It("are scoped to the calling plugin's namespace", func() {
			Expect(router.Handle("files", "list", func(context.Context, string, pluginsdk.BridgeRequest) (*pluginsdk.BridgeResponse, error) {
				return bridge.RespondJSON(200, []string{"a.png"})
			})).To(Succeed())

			var own, foreign *pluginsdk.BridgeResponse
			host.Add("files", starter("files", func(pc pluginsdk.Context) error {
				var err error
				own, err = pc.Bridge(ctx, "list", pluginsdk.BridgeRequest{})
				return err
			}))
			host.Add("intruder", starter("intruder", func(pc pluginsdk.Context) error {
				var err error
				foreign, err = pc.Bridge(ctx, "list", pluginsdk.BridgeRequest{})
				return err
			}))

			Expect(orch.Bootstrap(ctx, plugintest.File(
				plugintest.Descriptor("files", 1),
				plugintest.Descriptor("intruder", 1),
			))).To(Succeed())

			Expect(own.OK).To(BeTrue())
			var names []string
			Expect(own.JSON(&names)).To(Succeed())
			Expect(names).To(Equal([]string{"a.png"}))
			Expect(foreign.Status).To(Equal(404))
		})
	})

	Describe("messages between a plugin's parts", func() {
		It("flow from panel handlers to viewport subscribers", func() {
			selected := pluginsdk.Topic[string]("file-selected")
			var shown string
			var onSelect pluginsdk.Action

			host.Add("files", starter("files", func(pc pluginsdk.Context) error {
				selected.Subscribe(pc.Messages(), func(_ context.Context, path string) { shown = path })
				return pc.Panel("tree", pluginsdk.Spec{
					OnActivate: func(ctx context.Context) error {
						return selected.Publish(ctx, pc.Messages(), "/home/a.txt")
					},
				})
			}))
			Expect(orch.Bootstrap(ctx, plugintest.File(plugintest.Descriptor("files", 1)))).To(Succeed())

			rec, ok := reg.Get(pluginsdk.PointPanel, "files:tree")
			Expect(ok).To(BeTrue())
			onSelect = rec.OnActivate
			Expect(onSelect(ctx)).To(Succeed())
			Expect(shown).To(Equal("/home/a.txt"))
		})
	})
})
