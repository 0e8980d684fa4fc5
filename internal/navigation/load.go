package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/papapumpkin/specvizitor/internal/objid"
	"github.com/papapumpkin/specvizitor/internal/telemetry"
	"github.com/papapumpkin/specvizitor/internal/viewer"
)

// stopLocked cancels the in-flight load so its result is discarded.
func (c *Controller) stopLocked() {
	if c.cancel != nil {
		if c.opts.Bus != nil {
			c.opts.Bus.Cancel(c.cancel)
		} else {
			c.cancel()
		}
		c.cancel = nil
	}
	c.gen++
}

// scheduleLocked makes j current and starts loading it once the grace
// delay has passed. A load still pending is cancelled.
func (c *Controller) scheduleLocked(j int) {
	c.stopLocked()
	c.j = j
	c.state = StateLoading

	obj := c.objectLocked(j)
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	gen := c.gen

	c.loading.Add(1)
	go c.load(ctx, gen, obj)
}

// objectLocked snapshots the review handle and catalogue entry of row j.
func (c *Controller) objectLocked(j int) viewer.Object {
	id, _ := c.rd.ID(j)
	obj := viewer.Object{Index: j, ID: id, Review: c.rd}
	if c.cat != nil {
		entry, err := c.cat.Entry(objid.Key{id})
		if err != nil {
			c.log.Warn("catalogue entry not found", "id", id.String(), "error", err)
		} else {
			obj.Entry = entry
		}
	}
	return obj
}

func (c *Controller) load(ctx context.Context, gen uint64, obj viewer.Object) {
	defer c.loading.Done()

	if c.opts.Grace > 0 {
		t := time.NewTimer(c.opts.Grace)
		select {
		case <-ctx.Done():
			t.Stop()
			c.finish(gen, obj, Outcome{Err: ErrCancelled})
			return
		case <-t.C:
		}
	}

	var out Outcome
	if c.opts.Bus != nil {
		d, err := c.opts.Bus.Deliver(ctx, obj)
		out = Outcome{Delivery: d, Err: err}
		if errors.Is(err, context.Canceled) {
			out.Err = fmt.Errorf("%w: %w", ErrCancelled, err)
		}
	} else {
		out.Delivery = viewer.Delivery{Object: obj}
	}
	c.finish(gen, obj, out)
}

// finish records a completed load unless a newer command superseded it.
func (c *Controller) finish(gen uint64, obj viewer.Object, out Outcome) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug("stale object load discarded", "id", obj.ID.String())
		return
	}
	c.cancel = nil
	c.state = StateIdle
	c.last = out
	onLoad := c.opts.OnLoad

	if out.Err != nil {
		c.log.Error("object load failed", "id", obj.ID.String(), "error", out.Err)
	} else {
		shown := obj
		c.shown = &shown
		c.opts.Cache.SetObjectIndex(obj.Index)
		c.saveCache()
		c.emit(telemetry.Event{Kind: telemetry.KindObjectSelected, ObjectID: obj.ID.String(), Data: map[string]any{"index": obj.Index}})
		for _, w := range out.Delivery.Missing() {
			data := map[string]any{}
			if w.Err != nil {
				data["reason"] = w.Err.Error()
			}
			c.emit(telemetry.Event{Kind: telemetry.KindWidgetMissing, ObjectID: obj.ID.String(), Widget: w.Title, Data: data})
		}
		c.log.Debug("object selected", "id", obj.ID.String(), "index", obj.Index)
	}
	c.mu.Unlock()

	if onLoad != nil {
		onLoad(out)
	}
}

// Wait blocks until no load is in flight and returns the outcome of the
// last load that was not superseded.
func (c *Controller) Wait() Outcome {
	c.loading.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
