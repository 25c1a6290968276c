package entities

import (
	"context"
	"sync"
)

// FakeBus records dispatched commands for test assertions.
type FakeBus struct {
	mu sync.Mutex

	// OnCalls and OffCalls hold the targets of dispatched commands, in order.
	OnCalls  []string
	OffCalls []string

	// OnErr, if set, is returned by TurnOn. The command is still recorded.
	OnErr error
}

func NewFakeBus() *FakeBus { return &FakeBus{} }

func (f *FakeBus) TurnOn(_ context.Context, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OnCalls = append(f.OnCalls, target)
	return f.OnErr
}

func (f *FakeBus) TurnOff(target string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OffCalls = append(f.OffCalls, target)
}

// Counts returns the number of on/off commands dispatched so far.
func (f *FakeBus) Counts() (on, off int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.OnCalls), len(f.OffCalls)
}

// Reset clears recorded commands.
func (f *FakeBus) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OnCalls = nil
	f.OffCalls = nil
	f.OnErr = nil
}
