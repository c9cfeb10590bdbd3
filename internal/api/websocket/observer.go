package websocket

import (
	"log"

	"github.com/ramonehamilton/crafting-profit/internal/events"
)

// WebSocketObserver broadcasts dispatched events to every connected dashboard.
type WebSocketObserver struct {
	name string
	hub  *Hub
}

// NewWebSocketObserver creates a new observer that forwards events to WebSocket clients.
func NewWebSocketObserver(hub *Hub) *WebSocketObserver {
	return &WebSocketObserver{
		name: "WebSocketObserver",
		hub:  hub,
	}
}

// OnEvent forwards the event to all connected WebSocket clients.
func (o *WebSocketObserver) OnEvent(event events.Event) error {
	if o.hub == nil {
		log.Printf("[%s] Cannot emit event %s: hub is nil", o.name, event.Type)
		return nil
	}

	if o.hub.BroadcastEvent(Event{Type: event.Type, Data: event.Data}) {
		log.Printf("[%s] Broadcast event to %d clients: %s", o.name, o.hub.ClientCount(), event.Type)
	}
	return nil
}

// GetName returns the observer's name.
func (o *WebSocketObserver) GetName() string {
	return o.name
}

// ShouldHandle accepts the events a dashboard reacts to.
func (o *WebSocketObserver) ShouldHandle(eventType string) bool {
	switch eventType {
	case events.TypeDataUpdated, events.TypeDataFailed, events.TypeUpdateAvailable, events.TypeSettingsUpdated:
		return true
	default:
		return false
	}
}

var _ events.Observer = (*WebSocketObserver)(nil)
