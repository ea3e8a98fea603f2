// Package notifications delivers push notifications for recording lifecycle
// and export events via ntfy.
package notifications
