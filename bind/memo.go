package bind

import "sync"

// frameMemo remembers the last frame keyed for each property path.
type frameMemo struct {
	mu     sync.Mutex
	frames map[string]int
}

func (m *frameMemo) keyed(path string, frame int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.frames[path]
	return ok && f == frame
}

func (m *frameMemo) mark(path string, frame int) {
	m.mu.Lock()
	if m.frames == nil {
		m.frames = make(map[string]int)
	}
	m.frames[path] = frame
	m.mu.Unlock()
}

func (m *frameMemo) clear() {
	m.mu.Lock()
	clear(m.frames)
	m.mu.Unlock()
}

func (m *frameMemo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}
