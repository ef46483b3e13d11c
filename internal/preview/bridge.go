package preview

import (
	"errors"
	"fmt"
	"sync"
)

// MessageType names a render-surface protocol message
type MessageType string

const (
	// Sent to the surface
	MessageUpdateContent MessageType = "UPDATE_CONTENT"
	MessageReset         MessageType = "RESET"

	// Received from the surface
	MessageReady          MessageType = "READY"
	MessageContentUpdated MessageType = "CONTENT_UPDATED"
	MessageError          MessageType = "ERROR"
)

// Message is one protocol frame. HTML is set on UPDATE_CONTENT, Message on ERROR.
type Message struct {
	Type    MessageType `json:"type"`
	HTML    string      `json:"html,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Sender delivers messages to the render surface
type Sender interface {
	Send(msg Message) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(msg Message) error

// Send calls f(msg)
func (f SenderFunc) Send(msg Message) error { return f(msg) }

// Bridge drives the render surface. Every update is a full replacement; while
// the surface is not ready only the latest update is held and sent on READY.
type Bridge struct {
	mu      sync.Mutex
	sender  Sender
	ready   bool
	pending *Message
	loading bool
	lastErr string
}

// NewBridge creates a bridge for a surface that has not yet reported READY
func NewBridge(sender Sender) *Bridge {
	return &Bridge{sender: sender}
}

// Update sends html as the new full content, or holds it until the surface is ready
func (b *Bridge) Update(html string) error {
	if html == "" {
		return errors.New("bridge: empty content")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	msg := Message{Type: MessageUpdateContent, HTML: html}
	if !b.ready {
		b.pending = &msg
		return nil
	}
	return b.send(msg)
}

// Reset drops any held update and asks the surface to return to its placeholder.
// The surface reloads, so it must report READY again before the next update is sent.
func (b *Bridge) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = nil
	b.loading = false
	if !b.ready {
		return nil
	}
	b.ready = false
	return b.sender.Send(Message{Type: MessageReset})
}

// Handle processes a response from the surface
func (b *Bridge) Handle(resp Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch resp.Type {
	case MessageReady:
		b.ready = true
		if b.pending != nil {
			msg := *b.pending
			b.pending = nil
			return b.send(msg)
		}
	case MessageContentUpdated:
		b.loading = false
		b.lastErr = ""
	case MessageError:
		b.loading = false
		b.lastErr = resp.Message
	default:
		return fmt.Errorf("bridge: unexpected response %q", resp.Type)
	}
	return nil
}

// Ready reports whether the surface has acknowledged readiness
func (b *Bridge) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Loading reports whether an update was sent and not yet acknowledged
func (b *Bridge) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

// LastError returns the last error reported by the surface
func (b *Bridge) LastError() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// send must be called with mu held
func (b *Bridge) send(msg Message) error {
	if err := b.sender.Send(msg); err != nil {
		return fmt.Errorf("bridge send %s: %w", msg.Type, err)
	}
	b.loading = true
	return nil
}
