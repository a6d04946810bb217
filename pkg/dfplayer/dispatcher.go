// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dfplayer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Dispatcher writes frames to the module.
//
// Writes are serialized and paced: the module drops frames that arrive
// back to back, so consecutive frames are at least SendInterval apart.
// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	w       io.Writer
	cfg     Config
	limiter *rate.Limiter

	mu      sync.Mutex
	buf     []byte
	sent    uint64
	dropped uint64
}

// NewDispatcher creates a dispatcher writing to w
func NewDispatcher(w io.Writer, opts ...Option) *Dispatcher {
	if w == nil {
		panic("writer cannot be nil")
	}
	cfg := buildConfig(opts)

	limit := rate.Inf
	if cfg.SendInterval > 0 {
		limit = rate.Every(cfg.SendInterval)
	}

	return &Dispatcher{
		w:       w,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		buf:     make([]byte, 0, FrameSize),
	}
}

// Catalog returns the catalog used to resolve action names
func (d *Dispatcher) Catalog() *Catalog {
	return d.cfg.Catalog
}

// Send transmits one frame, waiting for the pacing interval first.
func (d *Dispatcher) Send(ctx context.Context, f Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send %s: %w", FormatCommand(f.Command), err)
	}

	d.buf = f.AppendBytes(d.buf[:0])
	if d.cfg.SendHook != nil {
		d.cfg.SendHook(d.buf)
	}

	if _, err := d.w.Write(d.buf); err != nil {
		return fmt.Errorf("write %s: %w", FormatCommand(f.Command), err)
	}
	d.sent++

	d.cfg.Logger.Debug("frame sent",
		zap.String("cmd", FormatCommand(f.Command)),
		zap.Uint16("param", f.Value()),
		zap.Uint8("feedback", f.Feedback),
	)
	return nil
}

// Issue resolves a control action, validates its arguments and sends it.
//
// An argument that fails the action's validity rule makes the call a no-op:
// nothing is sent and nil is returned. Unknown names and wrong argument
// counts return ErrUnknownAction and ErrArgCount.
func (d *Dispatcher) Issue(ctx context.Context, action string, args ...int) error {
	frame, ok, err := d.cfg.Catalog.Build(action, args...)
	if err != nil {
		return err
	}
	if !ok {
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
		d.cfg.Logger.Debug("action dropped: invalid argument",
			zap.String("action", action),
			zap.Ints("args", args),
		)
		return nil
	}

	if d.cfg.Feedback {
		frame.Feedback = Feedback
	}
	return d.Send(ctx, frame)
}

// Counts returns the number of frames sent and actions dropped for invalid
// arguments
func (d *Dispatcher) Counts() (sent, dropped uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sent, d.dropped
}
