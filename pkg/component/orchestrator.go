package component

import (
	"context"
	"fmt"
	"sync"
)

type Orchestrator struct {
	components []Component
	started    int
	mu         sync.RWMutex
}

func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		components: make([]Component, 0),
	}
}

func (o *Orchestrator) Register(comp Component) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.components = append(o.components, comp)
}

// Start brings components up in registration order. If any component fails,
// the ones already started are stopped again in reverse order before the
// error is returned, so a failed startup never leaves partial state behind.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, comp := range o.components {
		if err := comp.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				o.components[j].Stop(ctx)
			}
			o.started = 0
			return fmt.Errorf("failed to start %s: %w", comp.Name(), err)
		}
		o.started = i + 1
	}
	return nil
}

func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var firstErr error
	for i := o.started - 1; i >= 0; i-- {
		comp := o.components[i]
		if err := comp.Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to stop %s: %w", comp.Name(), err)
		}
	}
	o.started = 0
	return firstErr
}
