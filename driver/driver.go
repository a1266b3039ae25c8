// Package driver defines the contract between the virtual DOM runtime and a
// rendering backend, and the loop that pumps mutation batches from one to
// the other.
package driver

import (
	"context"

	"github.com/pkg/errors"

	"github.com/gowade/loom/vdom"
)

// Backend is a rendering surface. Apply must replay the whole batch, in
// order, before the runtime produces the next one; a returned error stops
// the loop because the surface is out of sync with the runtime's element
// table from that point on. Events yields the backend's normalized input
// events; the channel closing means the surface is gone.
type Backend interface {
	Apply(batch *vdom.MutationList) error
	Events() <-chan *vdom.Event
}

// Run mounts the runtime's root component on the backend, then drives the
// update loop until ctx is cancelled, the backend fails, or its event
// channel closes. Run owns the Dom: all runtime state is touched from this
// goroutine only; backend events are forwarded into the runtime's queue so
// the loop observes them alongside task completions and template patches.
func Run(ctx context.Context, d *vdom.Dom, b Backend) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer d.Close()

	batch := vdom.NewMutationList()
	d.Rebuild(batch)
	if err := b.Apply(batch); err != nil {
		return errors.Wrap(err, "applying initial batch")
	}

	surfaceGone := make(chan struct{})
	go func() {
		events := b.Events()
		for {
			select {
			case <-runCtx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					close(surfaceGone)
					cancel()
					return
				}
				if d.DeliverEventContext(runCtx, ev) != nil {
					return
				}
			}
		}
	}()

	for {
		if err := d.WaitForWork(runCtx); err != nil {
			select {
			case <-surfaceGone:
				return nil
			default:
			}
			return err
		}
		batch = vdom.NewMutationList()
		d.RenderImmediate(batch)
		if batch.Len() == 0 {
			continue
		}
		if err := b.Apply(batch); err != nil {
			return errors.Wrap(err, "applying batch")
		}
	}
}
