package session

import "sync/atomic"

// Marker is the "session established interactively in this process" flag.
// It must not outlive the process: a restart always starts with it clear.
type Marker interface {
	Set()
	Clear()
	IsSet() bool
}

type MemoryMarker struct {
	v atomic.Bool
}

func (m *MemoryMarker) Set()        { m.v.Store(true) }
func (m *MemoryMarker) Clear()      { m.v.Store(false) }
func (m *MemoryMarker) IsSet() bool { return m.v.Load() }
