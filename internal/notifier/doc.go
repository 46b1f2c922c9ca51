// Package notifier delivers user-facing notifications to the single configured
// recipient.
//
// # Transport
//
// Delivery goes through a kit.Sender (the Telegram adapter in production).
// The service owns the send rate limit and the per-send timeout; the adapter
// owns chunking and error classification.
//
// # Failures
//
// Deliver never returns an error. Every failure is logged with a hint that
// matches its class and is reported to the caller as false, so callers can
// decide whether to mark a message as sent.
package notifier
