// Package notify fans validated settings snapshots out to subscribed
// contexts: in-process observers and websocket-connected UI surfaces.
package notify

import (
	"context"

	"github.com/voxkey/voxkey/internal/settings"
)

// Target pairs a notifier with the name reported in delivery results.
type Target struct {
	Name     string
	Notifier settings.Notifier
}

// Fanout composes notifiers into one. Targets are delivered independently:
// a failing target never blocks or aborts delivery to the rest.
type Fanout struct {
	targets []Target
}

// NewFanout builds a composite notifier; nil targets are skipped.
func NewFanout(targets ...Target) *Fanout {
	kept := make([]Target, 0, len(targets))
	for _, target := range targets {
		if target.Notifier == nil {
			continue
		}
		kept = append(kept, target)
	}
	return &Fanout{targets: kept}
}

// Broadcast delivers the snapshot to every target and pools their results.
func (f *Fanout) Broadcast(ctx context.Context, s settings.Settings) []settings.DeliveryResult {
	results := make([]settings.DeliveryResult, 0, len(f.targets))
	for _, target := range f.targets {
		results = append(results, f.deliver(ctx, target, s)...)
	}
	return results
}

// deliver isolates one target's failure boundary, including panics from a
// subscriber callback torn down mid-broadcast.
func (f *Fanout) deliver(ctx context.Context, target Target, s settings.Settings) (results []settings.DeliveryResult) {
	defer func() {
		if r := recover(); r != nil {
			results = []settings.DeliveryResult{{
				Target: target.Name,
				OK:     false,
				Err:    &deliveryPanic{value: r},
			}}
		}
	}()
	results = target.Notifier.Broadcast(ctx, s)
	if len(results) == 0 {
		results = []settings.DeliveryResult{{Target: target.Name, OK: true}}
	}
	return results
}

type deliveryPanic struct {
	value any
}

func (p *deliveryPanic) Error() string { return "delivery panicked" }

// Observer adapts a plain callback into a single-result notifier, for
// in-process consumers like the capture session and the indicator.
func Observer(name string, fn func(context.Context, settings.Settings) error) Target {
	return Target{
		Name: name,
		Notifier: settings.NotifierFunc(func(ctx context.Context, s settings.Settings) []settings.DeliveryResult {
			if err := fn(ctx, s); err != nil {
				return []settings.DeliveryResult{{Target: name, OK: false, Err: err}}
			}
			return []settings.DeliveryResult{{Target: name, OK: true}}
		}),
	}
}
