// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

package display

import "sync"

// Manager owns the one or more Drivers a frame writes to and tracks how
// many of the frame's buckets have arrived, so it can report "image
// complete" once the last one lands.
type Manager struct {
	mu      sync.Mutex
	drivers []Driver
	total   int
	done    int
	onDone  func()
}

// NewManager returns a Manager that fans every bucket out to drivers.
func NewManager(drivers ...Driver) *Manager {
	return &Manager{drivers: drivers}
}

// Open opens every driver with info and records the frame's total bucket
// count (the caller's bucket.Grid.Order() length).
func (m *Manager) Open(info FrameInfo, totalBuckets int) error {
	m.total = totalBuckets
	m.done = 0
	for _, d := range m.drivers {
		if err := d.Open(info); err != nil {
			return err
		}
	}
	return nil
}

// OnComplete registers fn to run once every bucket has been written (the
// runtime's worker pool uses this to unblock whatever is waiting on the
// frame, mirroring frame.go's completed-frame channel hand-off).
func (m *Manager) OnComplete(fn func()) {
	m.mu.Lock()
	m.onDone = fn
	m.mu.Unlock()
}

// WriteBucket fans b out to every driver and, once every bucket in the
// frame has arrived, invokes the OnComplete callback exactly once.
func (m *Manager) WriteBucket(b Bucket) error {
	m.mu.Lock()
	for _, d := range m.drivers {
		if err := d.WriteBucket(b); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	m.done++
	done, total, fn := m.done, m.total, m.onDone
	m.mu.Unlock()
	if done == total && fn != nil {
		fn()
	}
	return nil
}

// Close closes every driver, in registration order.
func (m *Manager) Close() error {
	var firstErr error
	for _, d := range m.drivers {
		if err := d.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
