// Package watch streams changes to the persisted cache keys.
package watch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/procure/pkg/store"
)

// Watcher is implemented by *store.Disk and *app.App.
type Watcher interface {
	Watch(ctx context.Context) (<-chan store.Event, error)
}

type Watch struct {
	Store Watcher
	Out   io.Writer
	// Now defaults to time.Now.
	Now func() time.Time
}

// Do prints one line per event until ctx is done.
func (w *Watch) Do(ctx context.Context) error {
	events, err := w.Store.Watch(ctx)
	if err != nil {
		return err
	}
	out := w.Out
	if out == nil {
		out = color.Output
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	faint := color.New(color.Faint)
	kinds := map[store.EventType]*color.Color{
		store.EventKeyWritten:  color.New(color.FgGreen),
		store.EventKeyErased:   color.New(color.FgRed),
		store.EventInvalidated: color.New(color.FgYellow),
	}
	for ev := range events {
		c, ok := kinds[ev.Type]
		if !ok {
			c = color.New()
		}
		_, _ = faint.Fprintf(out, "%s ", now().Format(time.TimeOnly))
		_, _ = c.Fprintf(out, "%-11s", ev.Type)
		_, _ = fmt.Fprintf(out, " %s\n", ev.Key)
	}
	return nil
}
