package session

import (
	"context"
	"time"
)

// Transport is the capability set the client requires from the underlying
// messaging connection. Implementations own connection mechanics only;
// queueing, retries, and state tracking stay in the client.
type Transport interface {
	// Initialize begins transport startup. Readiness is reported
	// asynchronously through the bound Handler, not by this call.
	Initialize(ctx context.Context) error
	// Destroy tears down the underlying connection. Safe to call when
	// nothing is connected.
	Destroy(ctx context.Context) error
	// SendText delivers body to a canonical address and returns the
	// transport-assigned message id.
	SendText(ctx context.Context, address, body string) (string, error)
	// IsRegistered reports whether a canonical address is a routable
	// endpoint on the transport.
	IsRegistered(ctx context.Context, address string) (bool, error)
	// Bind registers the lifecycle/inbound event sink. Must be called
	// before Initialize.
	Bind(h Handler)
}

// Handler receives transport lifecycle and inbound events.
type Handler interface {
	HandleQR(code string)
	HandleReady(selfAddress string)
	HandleDisconnected(reason string)
	HandleAuthFailure(message string)
	HandleMessage(msg Inbound)
	HandleReceipt(rcpt Receipt)
}

// Inbound is one message received over the transport, forwarded to
// subscribers verbatim. The client performs no content inspection.
type Inbound struct {
	ID        string
	From      string
	Body      string
	Timestamp time.Time
}

// Receipt reports delivery or read acknowledgement for previously sent
// messages.
type Receipt struct {
	MessageIDs []string
	From       string
	Kind       DeliveryStatus
	Timestamp  time.Time
}
