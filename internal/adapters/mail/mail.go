// Package mail holds the outbound email channels used by the notification
// chain. Each channel decides from its own settings whether it is usable.
package mail

import "errors"

// ErrNotConfigured is returned when an unconfigured channel is asked to send
var ErrNotConfigured = errors.New("mail channel not configured")
