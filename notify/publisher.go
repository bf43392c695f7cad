// Package notify streams engine notifications (turn lifecycle, outputs,
// dialog stack changes, dropped events) to in-process subscribers. Transports
// and dashboards subscribe to react to turns without coupling to the engine.
package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
)

// Notifier is the minimal interface the engine emits through.
type Notifier interface {
	Emit(notifType Type, conversationKey string, data interface{}) error
}

// Publisher fans notifications out to local in-process subscribers. Delivery
// is non-blocking: a subscriber that stops draining its channel loses
// notifications instead of stalling turns.
type Publisher struct {
	source string

	subMu       sync.RWMutex
	subscribers map[string]chan Envelope
}

// NewPublisher creates a publisher. source tags every envelope, typically
// with the bot or service name.
func NewPublisher(source string) *Publisher {
	return &Publisher{
		source:      source,
		subscribers: make(map[string]chan Envelope),
	}
}

var _ Notifier = (*Publisher)(nil)

// Emit wraps data in an Envelope and fans it out to local subscribers.
func (p *Publisher) Emit(notifType Type, conversationKey string, data interface{}) error {
	envelope := Envelope{
		ID:              xid.New().String(),
		Type:            notifType,
		Source:          p.source,
		ConversationKey: conversationKey,
		Timestamp:       time.Now().UTC(),
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	envelope.Data = raw

	// Fan out to local subscribers (non-blocking).
	p.subMu.RLock()
	for id, ch := range p.subscribers {
		select {
		case ch <- envelope:
		default:
			slog.Warn("notification dropped: subscriber buffer full",
				slog.String("subscriber", id), slog.String("notification_type", string(notifType)))
		}
	}
	p.subMu.RUnlock()

	return nil
}

// Subscribe creates a local in-process subscription for notifications.
// Returns a channel that receives Envelope values.
// The caller must call Unsubscribe with the same id to clean up.
func (p *Publisher) Subscribe(id string, bufSize int) <-chan Envelope {
	if bufSize <= 0 {
		bufSize = 64
	}
	ch := make(chan Envelope, bufSize)
	p.subMu.Lock()
	p.subscribers[id] = ch
	p.subMu.Unlock()
	return ch
}

// Unsubscribe removes a local subscription and closes its channel.
func (p *Publisher) Unsubscribe(id string) {
	p.subMu.Lock()
	if ch, ok := p.subscribers[id]; ok {
		close(ch)
		delete(p.subscribers, id)
	}
	p.subMu.Unlock()
}

// NoOp discards all notifications. Useful when no transport subscribes.
type NoOp struct{}

var _ Notifier = NoOp{}

// Emit implements Notifier.
func (NoOp) Emit(Type, string, interface{}) error { return nil }
