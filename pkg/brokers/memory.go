package brokers

import (
	"context"
	"fmt"
	"sync"
)

var (
	memoryMu     sync.Mutex
	memoryQueues = map[string]chan []byte{}
)

func memoryQueue(name string) chan []byte {
	memoryMu.Lock()
	defer memoryMu.Unlock()
	q, ok := memoryQueues[name]
	if !ok {
		q = make(chan []byte, 1024)
		memoryQueues[name] = q
	}
	return q
}

// Memory - очередь в памяти процесса. Экземпляры с одинаковым именем очереди
// разделяют одну очередь. Используется в dev-режиме и тестах.
type Memory struct {
	config  Config
	queue   chan []byte
	mu      sync.Mutex
	pending []byte
	acked   int
	rejects int
}

// NewMemory создает брокер в памяти
func NewMemory(cfg Config) (*Memory, error) {
	if cfg.Queue == "" {
		return nil, fmt.Errorf("queue name is required for memory broker")
	}
	return &Memory{config: cfg}, nil
}

// Connect реализует MessageBroker
func (m *Memory) Connect(ctx context.Context) error {
	m.queue = memoryQueue(m.config.Queue)
	return nil
}

// Close реализует MessageBroker
func (m *Memory) Close() error {
	return nil
}

// Send реализует MessageBroker
func (m *Memory) Send(ctx context.Context, message []byte) error {
	if m.queue == nil {
		return fmt.Errorf("not connected to memory queue")
	}
	cp := make([]byte, len(message))
	copy(cp, message)
	select {
	case m.queue <- cp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive реализует MessageBroker
func (m *Memory) Receive(ctx context.Context) ([]byte, error) {
	if m.queue == nil {
		return nil, fmt.Errorf("not connected to memory queue")
	}
	select {
	case msg := <-m.queue:
		m.mu.Lock()
		m.pending = msg
		m.mu.Unlock()
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ack реализует MessageBroker
func (m *Memory) Ack(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return fmt.Errorf("no message to acknowledge")
	}
	m.pending = nil
	m.acked++
	return nil
}

// Reject реализует MessageBroker
func (m *Memory) Reject(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return fmt.Errorf("no message to reject")
	}
	m.pending = nil
	m.rejects++
	return nil
}

// Counts возвращает количество подтвержденных и отклоненных сообщений
func (m *Memory) Counts() (acked, rejected int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acked, m.rejects
}

// Ping реализует MessageBroker
func (m *Memory) Ping(ctx context.Context) error {
	if m.queue == nil {
		return fmt.Errorf("not connected to memory queue")
	}
	return nil
}

// GetBrokerType возвращает тип брокера
func (m *Memory) GetBrokerType() string {
	return "memory"
}
