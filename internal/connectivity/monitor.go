// Package connectivity tracks whether the device can reach the internet.
package connectivity

import (
	"context"
	"sync"

	"github.com/harrylevesque/starseeker/internal/utils"
)

// State is one reading of the platform network facility. A nil field means unknown.
type State struct {
	IsConnected         *bool `json:"isConnected"`
	IsInternetReachable *bool `json:"isInternetReachable"`
}

// Online is true only when both signals are known and true.
func (s State) Online() bool {
	return s.IsConnected != nil && *s.IsConnected &&
		s.IsInternetReachable != nil && *s.IsInternetReachable
}

// Source delivers connectivity readings by push and on demand.
type Source interface {
	// Subscribe registers cb for every change event and returns a handle that
	// removes it.
	Subscribe(cb func(State)) (unsubscribe func())
	Fetch(ctx context.Context) (State, error)
}

// Monitor exposes the current online flag. It starts optimistic (online) so
// consumers never flash an offline state before the first reading.
type Monitor struct {
	src Source
	log *utils.Logger

	mu          sync.Mutex
	online      bool
	running     bool
	unsubscribe func()
	listeners   []func(bool)
}

func NewMonitor(src Source, log *utils.Logger) *Monitor {
	return &Monitor{src: src, log: log, online: true}
}

// Online returns the latest connectivity flag.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnChange registers fn for transitions of Online.
func (m *Monitor) OnChange(fn func(bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Start subscribes to the source and then fetches the current state once. A
// failed fetch keeps the previous value.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	unsubscribe := m.src.Subscribe(m.apply)

	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()

	state, err := m.src.Fetch(ctx)
	if err != nil {
		m.log.Warnf("connectivity fetch failed, keeping online=%v: %v", m.Online(), err)
		return
	}
	m.apply(state)
}

// Stop removes the source subscription. Events delivered afterwards are ignored.
func (m *Monitor) Stop() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.running = false
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (m *Monitor) apply(s State) {
	online := s.Online()

	m.mu.Lock()
	if !m.running || m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := append([]func(bool){}, m.listeners...)
	m.mu.Unlock()

	m.log.Infof("connectivity changed: online=%v", online)
	for _, fn := range listeners {
		fn(online)
	}
}
