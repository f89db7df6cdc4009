package device

import "sync"

// Manager owns one long-lived client per active experiment session so
// cycles of the same session reuse a connection instead of paying the
// settle period every time. It is constructor-injected at the composition
// root, never a package-level singleton, so tests can run independent
// registries side by side.
type Manager struct {
	mu      sync.Mutex
	clients map[string]Client
	factory func(Config) Client
}

// NewManager creates a registry using the default client factory.
func NewManager() *Manager {
	return NewManagerWithFactory(New)
}

// NewManagerWithFactory creates a registry with a custom client factory,
// for tests that need to hand out pre-built fakes.
func NewManagerWithFactory(factory func(Config) Client) *Manager {
	return &Manager{
		clients: make(map[string]Client),
		factory: factory,
	}
}

// GetOrCreate returns the cached connected client for the session, dialing
// a fresh one when there is no entry or the cached entry has gone stale. A
// disconnected client is never handed out.
func (m *Manager) GetOrCreate(sessionID string, cfg Config) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, ok := m.clients[sessionID]; ok {
		if client.Connected() {
			return client, nil
		}
		// Stale entry: dropped link or closed transport. Replace it.
		_ = client.Close()
		delete(m.clients, sessionID)
	}

	client := m.factory(cfg)
	if err := client.Connect(); err != nil {
		return nil, err
	}
	m.clients[sessionID] = client
	return client, nil
}

// Cleanup disconnects and evicts the session's client. Safe to call when no
// entry exists.
func (m *Manager) Cleanup(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, ok := m.clients[sessionID]
	if !ok {
		return nil
	}
	delete(m.clients, sessionID)
	return client.Close()
}

// CleanupAll evicts every session. Process-wide emergency shutdown only.
func (m *Manager) CleanupAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, client := range m.clients {
		_ = client.Close()
		delete(m.clients, id)
	}
}

// ActiveSessions returns the session IDs with a cached client, for doctor
// output.
func (m *Manager) ActiveSessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.clients))
	for id := range m.clients {
		ids = append(ids, id)
	}
	return ids
}
