package notify

import (
	"sync"

	"github.com/dshills/settree/internal/config/schema"
	"github.com/dshills/settree/internal/config/tree"
)

// Bridge forwards leaf writes in a settings tree to a Notifier.
type Bridge struct {
	notifier *Notifier
	regs     []*tree.Registration

	mu     sync.Mutex
	source string
	batch  *Batch
}

// Attach subscribes to every leaf below root. Writes that change a value
// are reported as ChangeSet events attributed to source.
func Attach(root *tree.Branch, n *Notifier, source string) *Bridge {
	b := &Bridge{notifier: n, source: source}
	for path, leaf := range tree.Leaves(root) {
		path := path
		reg := leaf.OnChange(func(oldValue, newValue any) {
			b.forward(path, oldValue, newValue)
		})
		b.regs = append(b.regs, reg)
	}
	return b
}

// Batched runs fn with changes attributed to source and holds them until
// fn returns. The held changes are delivered even when fn fails, since
// the writes already happened.
func (b *Bridge) Batched(source string, fn func() error) error {
	batch := b.notifier.NewBatch()

	b.mu.Lock()
	prevSource, prevBatch := b.source, b.batch
	b.source, b.batch = source, batch
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	b.source, b.batch = prevSource, prevBatch
	b.mu.Unlock()

	batch.Commit()
	return err
}

// Detach removes the leaf listeners.
func (b *Bridge) Detach() {
	for _, r := range b.regs {
		r.Remove()
	}
	b.regs = nil
}

func (b *Bridge) forward(path string, oldValue, newValue any) {
	if schema.ValuesEqual(oldValue, newValue) {
		return
	}

	b.mu.Lock()
	source, batch := b.source, b.batch
	b.mu.Unlock()

	change := Change{Path: path, Type: ChangeSet, OldValue: oldValue, NewValue: newValue, Source: source}
	if batch != nil {
		batch.Add(change)
		return
	}
	b.notifier.Notify(change)
}
