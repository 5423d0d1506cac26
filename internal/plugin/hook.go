// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package plugin

import (
	"context"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("plexdesk/plugin")

// DefaultHookTimeout bounds every lifecycle hook.
const DefaultHookTimeout = 10 * time.Second

// runHook runs fn with the hook timeout applied. fn runs on its own
// goroutine so a hook that ignores its context cannot stall the lifecycle;
// such a goroutine is abandoned once the deadline passes. Panics are
// converted to errors.
func (o *Orchestrator) runHook(ctx context.Context, pluginID string, phase Phase, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}

	ctx, span := tracer.Start(ctx, "plugin."+string(phase),
		trace.WithAttributes(
			attribute.String("plugin.id", pluginID),
			attribute.String("plugin.phase", string(phase)),
		))
	defer span.End()

	hookCtx, cancel := context.WithTimeout(ctx, o.hookTimeout)
	defer cancel()

	errb := oops.In("plugin").With("plugin", pluginID).With("phase", string(phase))

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		var hookErr error
		if panicErr := errb.Recoverf(func() { hookErr = fn(hookCtx) }, "%s hook panicked", phase); panicErr != nil {
			hookErr = panicErr
		}
		done <- hookErr
	}()

	var err error
	select {
	case err = <-done:
	case <-hookCtx.Done():
		err = errb.
			With("timeout", o.hookTimeout.String()).
			Wrapf(hookCtx.Err(), "%s hook did not complete", phase)
	}
	recordHookDuration(phase, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
