package session

import "sync"

// DeadLetter describes a queued message dropped after exhausting retries.
type DeadLetter struct {
	Destination string
	Body        string
	Attempts    int
	LastError   string
}

// registry is a small typed subscriber set. Callbacks run on the goroutine
// that emits the event; subscribers must not block.
type registry[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(T)
}

func (r *registry[T]) subscribe(fn func(T)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs == nil {
		r.subs = make(map[int]func(T))
	}
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

func (r *registry[T]) emit(event T) {
	r.mu.Lock()
	fns := make([]func(T), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(event)
	}
}

// SubscribeQR registers a callback for pairing challenges emitted while the
// transport is awaiting authentication.
func (c *Client) SubscribeQR(fn func(code string)) (cancel func()) {
	return c.qrSubs.subscribe(fn)
}

// SubscribeStatus registers a callback invoked with a fresh state snapshot
// after every state change.
func (c *Client) SubscribeStatus(fn func(State)) (cancel func()) {
	return c.statusSubs.subscribe(fn)
}

// SubscribeInbound registers a callback for messages received over the
// transport, forwarded verbatim.
func (c *Client) SubscribeInbound(fn func(Inbound)) (cancel func()) {
	return c.inboundSubs.subscribe(fn)
}

// SubscribeReceipt registers a callback for delivery/read receipts.
func (c *Client) SubscribeReceipt(fn func(Receipt)) (cancel func()) {
	return c.receiptSubs.subscribe(fn)
}

// SubscribeDeadLetter registers a callback for messages dropped after
// exhausting their retry budget.
func (c *Client) SubscribeDeadLetter(fn func(DeadLetter)) (cancel func()) {
	return c.deadSubs.subscribe(fn)
}
