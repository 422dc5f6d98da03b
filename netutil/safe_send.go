// Package netutil holds small concurrency helpers shared by the session and
// match actors.
package netutil

import "log/slog"

// SafeSend sends v on ch without blocking and without panicking if ch is
// closed. If the channel is full or closed, the send is skipped and the
// recovered panic, if any, is logged.
func SafeSend[T any](ch chan<- T, v T) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			sent = false
			slog.Warn("recovered panic in SafeSend", "tag", "netutil", "panic", r)
		}
	}()
	select {
	case ch <- v:
		return true
	default:
		return false
	}
}
