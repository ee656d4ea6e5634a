package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fleetdesk/notify/internal/observability"
)

var (
	ErrNilTransport       = errors.New("session: transport required")
	ErrNotReady           = errors.New("session: session not ready")
	ErrInvalidDestination = errors.New("session: invalid destination")
	ErrTransport          = errors.New("session: transport send failed")
	ErrTimeout            = errors.New("session: transport call timed out")
	ErrQueueFull          = errors.New("session: retry queue full")
)

// Status describes the session lifecycle phase.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusReady        Status = "ready"
	StatusError        Status = "error"
)

// State is a point-in-time snapshot of the session. Address is non-empty
// only while Status is ready.
type State struct {
	Status            Status `json:"status"`
	Address           string `json:"address,omitempty"`
	MessagesSentCount uint64 `json:"messages_sent_count"`
	LastError         string `json:"last_error,omitempty"`
}

// DeliveryStatus is the reported disposition of one outbound message.
type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRead      DeliveryStatus = "read"
	DeliveryFailed    DeliveryStatus = "failed"
)

// DeliveryResult is returned for a successful send. It is not persisted by
// this package; callers record it if they need history.
type DeliveryResult struct {
	ID          string         `json:"id"`
	Destination string         `json:"to"`
	Body        string         `json:"body"`
	Timestamp   time.Time      `json:"timestamp"`
	Status      DeliveryStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
}

// OutboundMessage is one retry-queue entry.
type OutboundMessage struct {
	Destination string
	Body        string
	RetryCount  int
	QueuedAt    time.Time
}

// BulkMessage is one recipient in a bulk send request.
type BulkMessage struct {
	Destination string `json:"to"`
	Body        string `json:"body"`
}

// BulkOutcome is the per-recipient result of a bulk send: exactly one of
// Result or Error is set.
type BulkOutcome struct {
	Destination string          `json:"to"`
	Result      *DeliveryResult `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Client owns one messaging-transport session. All methods are safe for
// concurrent use; at most one queue drain runs at a time.
type Client struct {
	cfg    Config
	tr     Transport
	logger zerolog.Logger

	mu        sync.Mutex
	status    Status
	address   string
	sentCount uint64
	lastError string
	queue     []OutboundMessage
	draining  bool

	qrSubs      registry[string]
	statusSubs  registry[State]
	inboundSubs registry[Inbound]
	receiptSubs registry[Receipt]
	deadSubs    registry[DeadLetter]
}

// NewClient binds the client to its transport. The transport is exclusively
// owned by the returned client from this point on.
func NewClient(tr Transport, cfg Config, logger zerolog.Logger) (*Client, error) {
	if tr == nil {
		return nil, ErrNilTransport
	}
	c := &Client{
		cfg:    cfg.WithDefaults(),
		tr:     tr,
		logger: logger,
		status: StatusDisconnected,
	}
	tr.Bind(transportHandler{c})
	return c, nil
}

// Initialize begins transport startup and reports whether startup was
// initiated. Readiness arrives later via the transport's ready event.
// Idempotent: while connecting or ready it returns current readiness
// without constructing a second session.
func (c *Client) Initialize(ctx context.Context) (bool, error) {
	c.mu.Lock()
	switch c.status {
	case StatusConnecting, StatusReady:
		ready := c.status == StatusReady
		c.mu.Unlock()
		return ready, nil
	}
	c.status = StatusConnecting
	c.lastError = ""
	c.mu.Unlock()
	c.emitStatus()

	if err := c.tr.Initialize(ctx); err != nil {
		c.mu.Lock()
		c.status = StatusError
		c.lastError = err.Error()
		c.mu.Unlock()
		c.emitStatus()
		c.logger.Error().Err(err).Msg("transport_initialize_failed")
		return false, fmt.Errorf("session: initialize transport: %w", err)
	}
	c.logger.Info().Msg("transport_initialize_started")
	return true, nil
}

// SendMessage normalizes destination, verifies it is registered on the
// transport, and sends body. It fails fast and never enqueues; use Enqueue
// to schedule a background retry.
func (c *Client) SendMessage(ctx context.Context, destination, body string) (DeliveryResult, error) {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()
	if status != StatusReady {
		observability.RecordSend("not_ready")
		return DeliveryResult{}, fmt.Errorf("%w: status=%s", ErrNotReady, status)
	}

	addr := CanonicalAddress(destination, c.cfg.AddressSuffix)
	if addr == "" {
		observability.RecordSend("invalid_destination")
		return DeliveryResult{}, fmt.Errorf("%w: %q", ErrInvalidDestination, destination)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.SendTimeout)
	defer cancel()

	registered, err := c.tr.IsRegistered(callCtx, addr)
	if err != nil {
		return DeliveryResult{}, c.classifySendError("registration check", addr, err)
	}
	if !registered {
		observability.RecordSend("invalid_destination")
		return DeliveryResult{}, fmt.Errorf("%w: %s is not registered", ErrInvalidDestination, addr)
	}

	id, err := c.tr.SendText(callCtx, addr, body)
	if err != nil {
		return DeliveryResult{}, c.classifySendError("send", addr, err)
	}
	if id == "" {
		id = uuid.NewString()
	}

	c.mu.Lock()
	c.sentCount++
	c.mu.Unlock()
	observability.RecordSend("sent")
	c.logger.Debug().Str("to", addr).Str("id", id).Msg("message_sent")

	return DeliveryResult{
		ID:          id,
		Destination: addr,
		Body:        body,
		Timestamp:   time.Now(),
		Status:      DeliverySent,
	}, nil
}

func (c *Client) classifySendError(op, addr string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		observability.RecordSend("timeout")
		return fmt.Errorf("%w: %s to %s", ErrTimeout, op, addr)
	}
	observability.RecordSend("transport_error")
	return fmt.Errorf("%w: %s to %s: %w", ErrTransport, op, addr, err)
}

// Enqueue schedules a message for background delivery through the retry
// queue. Destinations that cannot normalize are rejected, not queued.
func (c *Client) Enqueue(destination, body string) error {
	addr := CanonicalAddress(destination, c.cfg.AddressSuffix)
	if addr == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDestination, destination)
	}
	c.mu.Lock()
	if len(c.queue) >= c.cfg.QueueCap {
		c.mu.Unlock()
		return fmt.Errorf("%w: cap=%d", ErrQueueFull, c.cfg.QueueCap)
	}
	c.queue = append(c.queue, OutboundMessage{
		Destination: addr,
		Body:        body,
		QueuedAt:    time.Now(),
	})
	depth := len(c.queue)
	ready := c.status == StatusReady
	c.mu.Unlock()

	observability.SetQueueDepth(depth)
	c.logger.Info().Str("to", addr).Int("queue_length", depth).Msg("message_queued")
	if ready {
		go c.drainQueue()
	}
	return nil
}

// SendBulk delivers to every recipient sequentially, sleeping delay between
// sends to respect transport rate limits. A negative delay selects the
// configured default. Per-recipient failures are collected, never returned
// as an error; the outcome order matches the input order.
func (c *Client) SendBulk(ctx context.Context, messages []BulkMessage, delay time.Duration) []BulkOutcome {
	if delay < 0 {
		delay = c.cfg.BulkDelay
	}
	out := make([]BulkOutcome, 0, len(messages))
	for i, m := range messages {
		if err := ctx.Err(); err != nil {
			out = append(out, BulkOutcome{Destination: m.Destination, Error: err.Error()})
			continue
		}
		res, err := c.SendMessage(ctx, m.Destination, m.Body)
		if err != nil {
			out = append(out, BulkOutcome{Destination: m.Destination, Error: err.Error()})
		} else {
			result := res
			out = append(out, BulkOutcome{Destination: m.Destination, Result: &result})
		}
		if delay > 0 && i < len(messages)-1 {
			sleepContext(ctx, delay)
		}
	}
	return out
}

// drainQueue processes the retry queue FIFO until it empties or the session
// leaves ready. Single-flight: concurrent triggers while a drain is running
// return immediately.
func (c *Client) drainQueue() {
	c.mu.Lock()
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	c.mu.Unlock()

	observability.RecordDrain()
	c.logger.Debug().Msg("queue_drain_started")
	defer func() {
		c.mu.Lock()
		c.draining = false
		depth := len(c.queue)
		c.mu.Unlock()
		observability.SetQueueDepth(depth)
		c.logger.Debug().Int("queue_length", depth).Msg("queue_drain_stopped")
	}()

	for {
		c.mu.Lock()
		if c.status != StatusReady || len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		msg := c.queue[0]
		c.queue = c.queue[1:]
		depth := len(c.queue)
		c.mu.Unlock()
		observability.SetQueueDepth(depth)

		_, err := c.SendMessage(context.Background(), msg.Destination, msg.Body)
		switch {
		case err == nil:
		case errors.Is(err, ErrNotReady):
			// The session dropped between the loop check and the send.
			// Put the entry back untouched and stop draining.
			c.mu.Lock()
			c.queue = append([]OutboundMessage{msg}, c.queue...)
			c.mu.Unlock()
			return
		case errors.Is(err, ErrInvalidDestination):
			// Retrying an unregistered endpoint cannot succeed.
			msg.RetryCount++
			c.dropMessage(msg, err)
		default:
			msg.RetryCount++
			observability.RecordRetry()
			if msg.RetryCount < c.cfg.MaxRetries {
				c.mu.Lock()
				c.queue = append(c.queue, msg)
				c.mu.Unlock()
				c.logger.Warn().
					Str("to", msg.Destination).
					Int("retry", msg.RetryCount).
					Err(err).
					Msg("queued_send_failed")
			} else {
				c.dropMessage(msg, err)
			}
		}
		time.Sleep(c.cfg.DrainDelay)
	}
}

func (c *Client) dropMessage(msg OutboundMessage, err error) {
	observability.RecordDeadLetter()
	c.logger.Error().
		Str("to", msg.Destination).
		Int("attempts", msg.RetryCount).
		Err(err).
		Msg("message_dead_lettered")
	c.deadSubs.emit(DeadLetter{
		Destination: msg.Destination,
		Body:        msg.Body,
		Attempts:    msg.RetryCount,
		LastError:   err.Error(),
	})
}

// Disconnect force-closes the session and destroys the transport side.
// Idempotent; safe when nothing is connected.
func (c *Client) Disconnect(ctx context.Context) {
	c.mu.Lock()
	already := c.status == StatusDisconnected
	c.status = StatusDisconnected
	c.address = ""
	c.mu.Unlock()
	if !already {
		c.emitStatus()
		c.logger.Info().Msg("session_disconnect_requested")
	}
	if err := c.tr.Destroy(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("transport_destroy_failed")
	}
}

// GetState returns a snapshot of the session state. Mutating the returned
// value cannot affect the client.
func (c *Client) GetState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Status:            c.status,
		Address:           c.address,
		MessagesSentCount: c.sentCount,
		LastError:         c.lastError,
	}
}

// IsConnected reports whether the session is ready for sends.
func (c *Client) IsConnected() bool {
	return c.GetState().Status == StatusReady
}

// QueueLength returns the number of messages awaiting retry.
func (c *Client) QueueLength() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *Client) emitStatus() {
	c.statusSubs.emit(c.GetState())
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// transportHandler adapts transport events onto client state transitions.
type transportHandler struct {
	c *Client
}

func (h transportHandler) HandleQR(code string) {
	h.c.logger.Info().Msg("pairing_qr_received")
	h.c.qrSubs.emit(code)
}

func (h transportHandler) HandleReady(selfAddress string) {
	c := h.c
	c.mu.Lock()
	c.status = StatusReady
	c.address = selfAddress
	c.lastError = ""
	c.mu.Unlock()
	c.logger.Info().Str("address", selfAddress).Msg("session_ready")
	c.emitStatus()
	go c.drainQueue()
}

func (h transportHandler) HandleDisconnected(reason string) {
	c := h.c
	c.mu.Lock()
	c.status = StatusDisconnected
	c.address = ""
	c.mu.Unlock()
	c.logger.Warn().Str("reason", reason).Msg("session_disconnected")
	c.emitStatus()
}

func (h transportHandler) HandleAuthFailure(message string) {
	c := h.c
	c.mu.Lock()
	c.status = StatusError
	c.address = ""
	c.lastError = message
	c.mu.Unlock()
	c.logger.Error().Str("cause", message).Msg("session_auth_failure")
	c.emitStatus()
}

func (h transportHandler) HandleMessage(msg Inbound) {
	h.c.inboundSubs.emit(msg)
}

func (h transportHandler) HandleReceipt(rcpt Receipt) {
	h.c.receiptSubs.emit(rcpt)
}
