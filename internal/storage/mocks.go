package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MockRedisClient is a mock implementation of RedisClient for testing
type MockRedisClient struct {
	mu           sync.Mutex
	Data         map[string]string
	TTLs         map[string]time.Duration
	StreamData   []StreamMessage
	PubSubData   []PubSubMessage
	Published    []PubSubMessage
	PublishErr   error
	StreamErr    error
	GetErr       error
	SetErr       error
	SubscribeErr error
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		Data: make(map[string]string),
		TTLs: make(map[string]time.Duration),
	}
}

func (m *MockRedisClient) PublishToStream(ctx context.Context, stream string, values map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StreamErr != nil {
		return m.StreamErr
	}
	m.StreamData = append(m.StreamData, StreamMessage{
		ID:     fmt.Sprintf("%d-0", len(m.StreamData)+1),
		Stream: stream,
		Values: values,
	})
	return nil
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	// Marshal to JSON like the real implementation
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.Data[key] = string(jsonData)
	m.TTLs[key] = ttl
	return nil
}

func (m *MockRedisClient) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", m.GetErr
	}
	return m.Data[key], nil
}

// GetJSON decodes a stored value, leaving dest untouched when the key is absent
func (m *MockRedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return m.GetErr
	}
	value, exists := m.Data[key]
	if !exists {
		return nil // Return nil if key doesn't exist (like real implementation)
	}
	return json.Unmarshal([]byte(value), dest)
}

func (m *MockRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	jsonData, err := json.Marshal(message)
	if err != nil {
		return err
	}
	m.Published = append(m.Published, PubSubMessage{Channel: channel, Message: string(jsonData)})
	return nil
}

func (m *MockRedisClient) Subscribe(ctx context.Context, channels ...string) (<-chan PubSubMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubscribeErr != nil {
		return nil, m.SubscribeErr
	}
	ch := make(chan PubSubMessage, len(m.PubSubData))
	for _, msg := range m.PubSubData {
		ch <- msg
	}
	close(ch)
	return ch, nil
}

func (m *MockRedisClient) Close() error {
	return nil
}

// Streams returns a copy of the recorded stream entries
func (m *MockRedisClient) Streams() []StreamMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StreamMessage, len(m.StreamData))
	copy(out, m.StreamData)
	return out
}

// Messages returns a copy of the recorded pub/sub publishes
func (m *MockRedisClient) Messages() []PubSubMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PubSubMessage, len(m.Published))
	copy(out, m.Published)
	return out
}
