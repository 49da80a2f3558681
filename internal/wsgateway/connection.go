package wsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mohamedkhairy/session-intel/internal/models"
)

const sendBufferSize = 256

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// Connection represents a WebSocket connection with a client
type Connection struct {
	ID         string
	RemoteAddr string
	Conn       *websocket.Conn
	Send       chan []byte
	subscribed bool
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	closeOnce  sync.Once
	lastPong   time.Time
	createdAt  time.Time
}

// NewConnection creates a new WebSocket connection. New connections start subscribed.
func NewConnection(id string, remoteAddr string, conn *websocket.Conn) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	return &Connection{
		ID:         id,
		RemoteAddr: remoteAddr,
		Conn:       conn,
		Send:       make(chan []byte, sendBufferSize),
		subscribed: true,
		ctx:        ctx,
		cancel:     cancel,
		createdAt:  now,
		lastPong:   now,
	}
}

// Subscribe resumes snapshot pushes
func (c *Connection) Subscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = true
}

// Unsubscribe pauses snapshot pushes; explicit snapshot requests still work
func (c *Connection) Unsubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = false
}

// IsSubscribed checks if the connection receives snapshot pushes
func (c *Connection) IsSubscribed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscribed
}

// UpdateLastPong updates the last pong time
func (c *Connection) UpdateLastPong() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPong = time.Now()
}

// GetLastPong returns the last pong time
func (c *Connection) GetLastPong() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPong
}

// Done is closed once the connection is closed
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection. Safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// ReadMessage reads a message from the connection
func (c *Connection) ReadMessage() (messageType int, p []byte, err error) {
	return c.Conn.ReadMessage()
}

// queue hands an encoded message to the write pump without blocking
func (c *Connection) queue(data []byte) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.Send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

func (c *Connection) sendMessage(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.queue(data)
}

// SendSnapshot queues a snapshot message
func (c *Connection) SendSnapshot(snapshot *models.GlobalSnapshot) error {
	return c.sendMessage(ServerMessage{
		Type: string(MessageTypeSnapshot),
		Data: snapshot,
	})
}

// SendError sends an error message to the connection
func (c *Connection) SendError(code string, message string) error {
	return c.sendMessage(ServerMessage{
		Type:    string(MessageTypeError),
		Code:    code,
		Message: message,
	})
}
