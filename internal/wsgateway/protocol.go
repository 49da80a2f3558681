package wsgateway

import (
	"encoding/json"
	"fmt"

	"github.com/mohamedkhairy/session-intel/internal/models"
	"github.com/mohamedkhairy/session-intel/pkg/logger"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	// Client -> server
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeGetSnapshot MessageType = "snapshot"
	MessageTypePing        MessageType = "ping"

	// Server -> client
	MessageTypeSnapshot MessageType = "snapshot"
	MessageTypeSuccess  MessageType = "success"
	MessageTypePong     MessageType = "pong"
	MessageTypeError    MessageType = "error"
)

// Error codes sent to clients
const (
	ErrCodeInvalidMessage     = "invalid_message"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeNotReady           = "not_ready"
)

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerMessage represents a message to the client
type ServerMessage struct {
	Type    string      `json:"type"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HandleClientMessage handles a message from the client. latest returns the most
// recent snapshot, or nil before the first tick.
func (c *Connection) HandleClientMessage(msg *ClientMessage, latest func() *models.GlobalSnapshot) error {
	switch MessageType(msg.Type) {
	case MessageTypeSubscribe:
		c.Subscribe()
		logger.Debug("Client subscribed to snapshots",
			logger.String("connection_id", c.ID),
		)
		if err := c.SendSuccess("subscribed"); err != nil {
			return err
		}
		if snapshot := latest(); snapshot != nil {
			return c.SendSnapshot(snapshot)
		}
		return nil

	case MessageTypeUnsubscribe:
		c.Unsubscribe()
		logger.Debug("Client unsubscribed from snapshots",
			logger.String("connection_id", c.ID),
		)
		return c.SendSuccess("unsubscribed")

	case MessageTypeGetSnapshot:
		snapshot := latest()
		if snapshot == nil {
			return c.SendError(ErrCodeNotReady, "no snapshot computed yet")
		}
		return c.SendSnapshot(snapshot)

	case MessageTypePing:
		return c.SendPong()

	default:
		return c.SendError(ErrCodeUnknownMessageType, fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

// SendSuccess sends a success message to the client
func (c *Connection) SendSuccess(action string) error {
	return c.sendMessage(ServerMessage{
		Type: string(MessageTypeSuccess),
		Data: map[string]string{"action": action},
	})
}

// SendPong sends a pong message to the client
func (c *Connection) SendPong() error {
	return c.sendMessage(ServerMessage{
		Type: string(MessageTypePong),
	})
}
