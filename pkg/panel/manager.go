package panel

import (
	"context"
	"sync"

	"fieldops/entities"
	"fieldops/pkg/backend"
	"fieldops/pkg/offline/repository"
)

// Manager keeps at most one open panel per task. Panels for the same task are
// not meant to be open twice; Open returns the existing session re-fetched.
type Manager struct {
	mu     sync.Mutex
	api    backend.Client
	cache  repository.DetailCache // may be nil
	panels map[int64]*Panel
}

func NewManager(api backend.Client, cache repository.DetailCache) *Manager {
	return &Manager{api: api, cache: cache, panels: map[int64]*Panel{}}
}

// Open fetches detail for the task and returns its panel. A panel that fails
// its first fetch is never registered.
func (m *Manager) Open(ctx context.Context, taskID int64) (*Panel, error) {
	m.mu.Lock()
	p, ok := m.panels[taskID]
	m.mu.Unlock()
	if ok {
		if err := p.Refresh(ctx); err != nil {
			return nil, err
		}
		return p, nil
	}
	p = newPanel(taskID, m.api, m.cache)
	if err := p.Refresh(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	if existing, ok := m.panels[taskID]; ok {
		m.mu.Unlock()
		p.Close()
		return existing, nil
	}
	m.panels[taskID] = p
	m.mu.Unlock()
	return p, nil
}

func (m *Manager) Get(taskID int64) (*Panel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.panels[taskID]
	return p, ok
}

func (m *Manager) Close(taskID int64) bool {
	m.mu.Lock()
	p, ok := m.panels[taskID]
	delete(m.panels, taskID)
	m.mu.Unlock()
	if ok {
		p.Close()
	}
	return ok
}

func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.panels)
}

// Detail returns live detail, falling back to the offline cache (stale=true)
// when the backend cannot be reached. The cached copy is read-only display
// data; editing always requires a live panel.
func (m *Manager) Detail(ctx context.Context, taskID int64) (d *entities.TaskDetail, stale bool, err error) {
	d, err = m.api.GetTaskDetail(ctx, taskID)
	if err == nil {
		if m.cache != nil {
			_ = m.cache.Put(taskID, d)
		}
		return d, false, nil
	}
	if m.cache != nil {
		if cached, _, cerr := m.cache.Get(taskID); cerr == nil {
			return cached, true, nil
		}
	}
	return nil, false, err
}
