// Package notify delivers settings change events to subscribers.
//
// A Notifier fans changes out to observers registered for every path or
// for a path prefix. A Bridge connects a settings tree to a Notifier so
// that leaf writes become events.
package notify

import (
	"slices"
	"strings"
	"sync"
)

// ChangeType represents the type of settings change.
type ChangeType int

const (
	// ChangeSet indicates a leaf took a new value.
	ChangeSet ChangeType = iota

	// ChangeReload indicates a whole source was re-applied.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a settings change event.
type Change struct {
	// Path is the dotted path of the changed leaf. Empty for reloads.
	Path string

	// Type is the type of change.
	Type ChangeType

	// OldValue and NewValue are the leaf values before and after the write.
	OldValue any
	NewValue any

	// Source identifies where the change came from, such as a file path.
	Source string
}

// Observer is called when settings change.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

type subscriber struct {
	id       uint64
	path     string // empty matches every change
	observer Observer
}

// Notifier manages change subscriptions. Observers run in subscription
// order.
type Notifier struct {
	mu          sync.RWMutex
	subscribers []subscriber
	nextID      uint64
	closed      bool

	async  bool
	buffer chan Change
	done   chan struct{}
	wg     sync.WaitGroup
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync delivers changes from a background goroutine through a buffer
// of the given size. Notify blocks while the buffer is full.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Change, bufferSize)
		}
	}
}

// New creates a Notifier. Without options changes are delivered
// synchronously by Notify.
func New(opts ...Option) *Notifier {
	n := &Notifier{done: make(chan struct{})}
	for _, opt := range opts {
		opt(n)
	}

	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}
	return n
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.SubscribePath("", observer)
}

// SubscribePath registers an observer for changes at path and below it.
// Subscribing to "server" receives changes to "server.port". Reload events
// reach every observer.
func (n *Notifier) SubscribePath(path string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.subscribers = append(n.subscribers, subscriber{id: id, path: path, observer: observer})

	return &Subscription{id: id, notifier: n}
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subscribers)
}

// Notify sends a change to all matching observers. Changes sent after
// Close are dropped.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	closed := n.closed
	n.mu.RUnlock()
	if closed {
		return
	}

	if n.async {
		select {
		case n.buffer <- change:
		case <-n.done:
		}
		return
	}

	n.deliver(change)
}

// NotifySet is a convenience method for set changes.
func (n *Notifier) NotifySet(path string, oldValue, newValue any, source string) {
	n.Notify(Change{
		Path:     path,
		Type:     ChangeSet,
		OldValue: oldValue,
		NewValue: newValue,
		Source:   source,
	})
}

// NotifyReload is a convenience method for reload events.
func (n *Notifier) NotifyReload(source string) {
	n.Notify(Change{Type: ChangeReload, Source: source})
}

// Close stops delivery, draining any buffered changes first. It is safe to
// call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.subscribers = slices.DeleteFunc(n.subscribers, func(s subscriber) bool {
		return s.id == id
	})
}

func (n *Notifier) deliver(change Change) {
	n.mu.RLock()
	var observers []Observer
	for _, s := range n.subscribers {
		if matches(s.path, change) {
			observers = append(observers, s.observer)
		}
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		obs(change)
	}
}

func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case change := <-n.buffer:
			n.deliver(change)
		case <-n.done:
			for {
				select {
				case change := <-n.buffer:
					n.deliver(change)
				default:
					return
				}
			}
		}
	}
}

func matches(path string, change Change) bool {
	if path == "" || change.Type == ChangeReload {
		return true
	}
	return path == change.Path || isParentPath(path, change.Path)
}

// isParentPath reports whether parent is a proper dotted prefix of child:
// "server" is the parent of "server.port" but not of "serverName".
func isParentPath(parent, child string) bool {
	if parent == "" {
		return child != ""
	}
	return strings.HasPrefix(child, parent) && len(child) > len(parent) && child[len(parent)] == '.'
}

// Batch collects changes and delivers them together.
type Batch struct {
	notifier *Notifier
	mu       sync.Mutex
	changes  []Change
}

// NewBatch creates an empty batch.
func (n *Notifier) NewBatch() *Batch {
	return &Batch{notifier: n}
}

// Add adds a change to the batch.
func (b *Batch) Add(change Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = append(b.changes, change)
}

// Set adds a set change to the batch.
func (b *Batch) Set(path string, oldValue, newValue any, source string) {
	b.Add(Change{
		Path:     path,
		Type:     ChangeSet,
		OldValue: oldValue,
		NewValue: newValue,
		Source:   source,
	})
}

// Commit sends the batched changes in the order they were added and
// empties the batch.
func (b *Batch) Commit() {
	b.mu.Lock()
	changes := b.changes
	b.changes = nil
	b.mu.Unlock()

	for _, change := range changes {
		b.notifier.Notify(change)
	}
}

// Discard clears the batch without sending notifications.
func (b *Batch) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changes = nil
}

// Len returns the number of pending changes.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.changes)
}
