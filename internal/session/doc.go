// Package session owns the single WhatsApp messaging session: lifecycle
// state, outbound text delivery, a bounded retry queue drained whenever the
// session is ready, and typed event subscriptions for pairing challenges,
// status changes, inbound traffic, and dead-lettered messages.
//
// The underlying transport is an explicit interface so the production
// whatsmeow adapter and test doubles plug into the same seam.
package session
