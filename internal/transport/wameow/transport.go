// Package wameow implements the session.Transport seam on top of
// go.mau.fi/whatsmeow with a sqlite-backed device credential store.
package wameow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	qrterminal "github.com/mdp/qrterminal/v3"
	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/fleetdesk/notify/internal/session"

	// CGO-free sqlite driver for the whatsmeow device store.
	_ "modernc.org/sqlite"
)

var (
	ErrAlreadyInitialized = errors.New("wameow: transport already initialized")
	ErrNotInitialized     = errors.New("wameow: transport not initialized")
	ErrNoHandler          = errors.New("wameow: no event handler bound")
)

// Config selects the device store and connection options for one WhatsApp
// device session.
type Config struct {
	StoreDSN   string
	DeviceName string
	ProxyURL   string
	// QRTerminal additionally renders pairing codes to stdout for
	// operators pairing over a shell.
	QRTerminal bool
}

// Transport is a session.Transport backed by one whatsmeow client.
type Transport struct {
	cfg    Config
	logger zerolog.Logger

	mu        sync.Mutex
	handler   session.Handler
	container *sqlstore.Container
	client    *whatsmeow.Client
}

func New(cfg Config, logger zerolog.Logger) *Transport {
	return &Transport{cfg: cfg, logger: logger}
}

// Bind registers the event sink. Must be called before Initialize.
func (t *Transport) Bind(h session.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

// Initialize opens the device store, constructs the whatsmeow client, and
// begins connecting. Pairing and readiness are reported through the bound
// handler.
func (t *Transport) Initialize(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handler == nil {
		return ErrNoHandler
	}
	if t.client != nil {
		return ErrAlreadyInitialized
	}

	dbLog := waLog.Stdout("wameow-db", "WARN", true)
	container, err := sqlstore.New(ctx, "sqlite", t.cfg.StoreDSN, dbLog)
	if err != nil {
		return fmt.Errorf("wameow: open device store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("wameow: load device: %w", err)
	}
	if device == nil {
		device = container.NewDevice()
	}
	if t.cfg.DeviceName != "" {
		store.DeviceProps.Os = proto.String(t.cfg.DeviceName)
	}

	client := whatsmeow.NewClient(device, waLog.Stdout("wameow", "WARN", true))
	if t.cfg.ProxyURL != "" {
		if err := client.SetProxyAddress(t.cfg.ProxyURL); err != nil {
			return fmt.Errorf("wameow: set proxy: %w", err)
		}
	}
	client.EnableAutoReconnect = true
	client.AutoTrustIdentity = true
	client.AddEventHandler(t.dispatchEvent)

	if client.Store.ID == nil {
		// Unpaired device: surface QR challenges until the operator
		// links the gateway from a phone.
		qrChan, err := client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("wameow: open qr channel: %w", err)
		}
		go t.pumpQR(qrChan)
	}

	if err := client.Connect(); err != nil {
		return fmt.Errorf("wameow: connect: %w", err)
	}

	t.container = container
	t.client = client
	return nil
}

// Destroy disconnects and drops the client. Safe to call repeatedly.
func (t *Transport) Destroy(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	t.client.Disconnect()
	t.client = nil
	t.container = nil
	return nil
}

// SendText delivers body to a canonical JID and returns the message id.
func (t *Transport) SendText(ctx context.Context, address, body string) (string, error) {
	client, err := t.currentClient()
	if err != nil {
		return "", err
	}
	jid, err := types.ParseJID(address)
	if err != nil {
		return "", fmt.Errorf("wameow: parse destination %q: %w", address, err)
	}
	extra := whatsmeow.SendRequestExtra{ID: client.GenerateMessageID()}
	msg := &waE2E.Message{Conversation: proto.String(body)}
	if _, err := client.SendMessage(ctx, jid, msg, extra); err != nil {
		return "", err
	}
	return string(extra.ID), nil
}

// IsRegistered reports whether the phone number behind a canonical JID is
// on WhatsApp.
func (t *Transport) IsRegistered(ctx context.Context, address string) (bool, error) {
	client, err := t.currentClient()
	if err != nil {
		return false, err
	}
	user, _, _ := strings.Cut(address, "@")
	infos, err := client.IsOnWhatsApp(ctx, []string{"+" + user})
	if err != nil {
		return false, err
	}
	if len(infos) == 0 {
		return false, nil
	}
	return infos[0].IsIn, nil
}

func (t *Transport) currentClient() (*whatsmeow.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil, ErrNotInitialized
	}
	return t.client, nil
}

func (t *Transport) currentHandler() session.Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handler
}

func (t *Transport) dispatchEvent(evt interface{}) {
	h := t.currentHandler()
	if h == nil {
		return
	}
	switch e := evt.(type) {
	case *events.Connected:
		self := ""
		if client, err := t.currentClient(); err == nil && client.Store.ID != nil {
			self = client.Store.ID.String()
		}
		h.HandleReady(self)
	case *events.Disconnected:
		h.HandleDisconnected("stream closed")
	case *events.LoggedOut:
		h.HandleAuthFailure(fmt.Sprintf("logged out by primary device: %v", e.Reason))
	case *events.StreamReplaced:
		h.HandleAuthFailure("stream replaced by another session")
	case *events.ConnectFailure:
		h.HandleAuthFailure(fmt.Sprintf("connect failure: %v %s", e.Reason, e.Message))
	case *events.Message:
		body := e.Message.GetConversation()
		if body == "" {
			body = e.Message.GetExtendedTextMessage().GetText()
		}
		h.HandleMessage(session.Inbound{
			ID:        string(e.Info.ID),
			From:      e.Info.Sender.String(),
			Body:      body,
			Timestamp: e.Info.Timestamp,
		})
	case *events.Receipt:
		kind := session.DeliveryDelivered
		if e.Type == types.ReceiptTypeRead || e.Type == types.ReceiptTypeReadSelf {
			kind = session.DeliveryRead
		}
		ids := make([]string, 0, len(e.MessageIDs))
		for _, id := range e.MessageIDs {
			ids = append(ids, string(id))
		}
		h.HandleReceipt(session.Receipt{
			MessageIDs: ids,
			From:       e.Sender.String(),
			Kind:       kind,
			Timestamp:  e.Timestamp,
		})
	}
}

func (t *Transport) pumpQR(qrChan <-chan whatsmeow.QRChannelItem) {
	h := t.currentHandler()
	for item := range qrChan {
		switch item.Event {
		case "code":
			if t.cfg.QRTerminal {
				qrterminal.GenerateHalfBlock(item.Code, qrterminal.L, os.Stdout)
			}
			if h != nil {
				h.HandleQR(item.Code)
			}
		case whatsmeow.QRChannelSuccess.Event:
			t.logger.Info().Msg("qr_pairing_complete")
		case whatsmeow.QRChannelTimeout.Event:
			if h != nil {
				h.HandleAuthFailure("qr pairing timed out")
			}
		case "error":
			msg := "qr channel error"
			if item.Error != nil {
				msg = item.Error.Error()
			}
			if h != nil {
				h.HandleAuthFailure(msg)
			}
		}
	}
}
