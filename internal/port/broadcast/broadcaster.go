// Package broadcast defines the port for pushing real-time events to a
// user's connected clients.
package broadcast

import "context"

// Broadcaster sends real-time events to connected clients.
type Broadcaster interface {
	// SendToUser sends a typed event to every connection of one user.
	SendToUser(ctx context.Context, userID, eventType string, payload any)
}
