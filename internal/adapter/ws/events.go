package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// SendToUser marshals payload and sends it as eventType to one user's
// connections. It implements broadcast.Broadcaster.
func (h *Hub) SendToUser(ctx context.Context, userID, eventType string, payload any) {
	var raw json.RawMessage
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			slog.Error("marshal ws event payload", "type", eventType, "error", err)
			return
		}
		raw = data
	}

	h.Send(ctx, userID, Message{Type: eventType, Payload: raw})
}
