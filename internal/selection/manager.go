package selection

import (
	"cmp"
	"slices"
	"sync"

	"canvasboard/internal/domain"
)

const (
	CursorMove    = "move"
	CursorDefault = "default"
)

// Manager holds the single selected node id.
type Manager struct {
	mu       sync.Mutex
	selected string
	onChange func(id string)
}

func New() *Manager {
	return &Manager{}
}

// OnChange registers fn to run whenever the selection changes. id is ""
// when the selection was cleared.
func (m *Manager) OnChange(fn func(id string)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Select replaces the selection with id.
func (m *Manager) Select(id string) {
	m.set(id)
}

func (m *Manager) Clear() {
	m.set("")
}

func (m *Manager) set(id string) {
	m.mu.Lock()
	if m.selected == id {
		m.mu.Unlock()
		return
	}
	m.selected = id
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(id)
	}
}

// Selected returns the selected id, or "".
func (m *Manager) Selected() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

func (m *Manager) IsSelected(id string) bool {
	if id == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected == id
}

// OnNodeDeleted clears the selection if id is the selected node.
func (m *Manager) OnNodeDeleted(id string) {
	m.mu.Lock()
	if id == "" || m.selected != id {
		m.mu.Unlock()
		return
	}
	m.selected = ""
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn("")
	}
}

// Chrome derives the selection ring, grips and hover cursor for n.
func (m *Manager) Chrome(n domain.Node) domain.NodeChrome {
	selected := m.IsSelected(n.ID)
	c := domain.NodeChrome{
		Selected: selected,
		Cursor:   CursorMove,
	}
	if n.Locked {
		c.Cursor = CursorDefault
	}
	if selected && !n.Locked {
		c.ShowHandles = true
		c.Handles = make([]domain.HandleChrome, len(Handles))
		for i, h := range Handles {
			c.Handles[i] = domain.HandleChrome{Name: string(h), Cursor: h.Cursor()}
		}
	}
	return c
}

// ChromeMap returns Chrome for every node keyed by id.
func (m *Manager) ChromeMap(nodes []domain.Node) map[string]domain.NodeChrome {
	out := make(map[string]domain.NodeChrome, len(nodes))
	for _, n := range nodes {
		out[n.ID] = m.Chrome(n)
	}
	return out
}

// RenderOrder returns nodes sorted bottom to top: by z-index, then
// creation time, then id.
func RenderOrder(nodes []domain.Node) []domain.Node {
	out := slices.Clone(nodes)
	slices.SortStableFunc(out, func(a, b domain.Node) int {
		if c := cmp.Compare(a.Position.ZIndex, b.Position.ZIndex); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// TopmostAt returns the highest node in render order whose bounds
// contain the canvas point p.
func TopmostAt(nodes []domain.Node, p domain.Point) (domain.Node, bool) {
	ordered := RenderOrder(nodes)
	for i := len(ordered) - 1; i >= 0; i-- {
		if ordered[i].Rect().Contains(p) {
			return ordered[i], true
		}
	}
	return domain.Node{}, false
}
