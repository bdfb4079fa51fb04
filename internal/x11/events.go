package x11

import (
	"context"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/damage"
	"github.com/jezek/xgb/xfixes"
	"github.com/jezek/xgb/xproto"
)

// EventKind classifies the window notifications the mirror reacts to.
type EventKind int

const (
	Mapped EventKind = iota
	Configured
	Exposed
	CloseRequested
	Destroyed
	Damaged
)

func (k EventKind) String() string {
	switch k {
	case Mapped:
		return "mapped"
	case Configured:
		return "configured"
	case Exposed:
		return "exposed"
	case CloseRequested:
		return "close-requested"
	case Destroyed:
		return "destroyed"
	case Damaged:
		return "damaged"
	}
	return "unknown"
}

// Event is a window notification. Width and Height are set for Configured
// events only.
type Event struct {
	Kind   EventKind
	Window xproto.Window
	Width  int
	Height int
}

// Events pumps X events into the returned channel until ctx is done or the
// connection closes. Only the pump goroutine reads from the connection's
// event queue; consumers handle events on their own goroutine.
func (d *Display) Events(ctx context.Context) <-chan Event {
	out := make(chan Event, 16)
	c := d.c
	go func() {
		defer close(out)
		for {
			ev, err := c.WaitForEvent()
			if ev == nil && err == nil {
				d.log.Debug("X connection closed")
				return
			}
			if err != nil {
				d.log.Warn("X error", "err", err)
				continue
			}

			e, ok := d.translate(ev)
			if !ok {
				continue
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (d *Display) translate(ev xgb.Event) (Event, bool) {
	switch ev := ev.(type) {
	case xproto.MapNotifyEvent:
		return Event{Kind: Mapped, Window: ev.Window}, true
	case xproto.ConfigureNotifyEvent:
		return Event{Kind: Configured, Window: ev.Window, Width: int(ev.Width), Height: int(ev.Height)}, true
	case xproto.ExposeEvent:
		if ev.Count != 0 {
			return Event{}, false
		}
		return Event{Kind: Exposed, Window: ev.Window}, true
	case xproto.DestroyNotifyEvent:
		return Event{Kind: Destroyed, Window: ev.Window}, true
	case xproto.ClientMessageEvent:
		if ev.Type != d.wmProtocols || ev.Format != 32 || len(ev.Data.Data32) == 0 {
			return Event{}, false
		}
		if xproto.Atom(ev.Data.Data32[0]) != d.wmDeleteWindow {
			return Event{}, false
		}
		return Event{Kind: CloseRequested, Window: ev.Window}, true
	case damage.NotifyEvent:
		// Re-arm the non-empty report for the next change.
		damage.Subtract(d.c, ev.Damage, xfixes.Region(0), xfixes.Region(0))
		return Event{Kind: Damaged, Window: xproto.Window(ev.Drawable)}, true
	}
	return Event{}, false
}
