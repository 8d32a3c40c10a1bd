// Package sequence hands out invoice numbers from a single atomically
// incremented counter, so concurrent creates never compute the same number.
package sequence

import (
	"context"
	"sync"
)

// Sequencer issues strictly increasing numbers.
//
// Observe raises the counter so later Next calls return values above n;
// it never lowers it. It is used when a caller supplies an explicit
// invoice number and when seeding from existing records.
type Sequencer interface {
	Next(ctx context.Context) (int64, error)
	Observe(ctx context.Context, n int64) error
}

// Memory is an in-process Sequencer.
type Memory struct {
	mu    sync.Mutex
	value int64
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Next(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value++
	return m.value, nil
}

func (m *Memory) Observe(_ context.Context, n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > m.value {
		m.value = n
	}
	return nil
}
