package pixelize

import "sync"

// Material is the parameter block shared between a stage and the host's
// quantize program. The stage overwrites it once per frame before the
// quantize blit is recorded.
type Material struct {
	mu     sync.Mutex
	params ShaderParams
	writes uint64
}

func NewMaterial() *Material {
	return &Material{}
}

// SetParams replaces the block's contents.
func (m *Material) SetParams(p ShaderParams) {
	m.mu.Lock()
	m.params = p
	m.writes++
	m.mu.Unlock()
}

// Params returns the current contents.
func (m *Material) Params() ShaderParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

// Writes counts SetParams calls since creation.
func (m *Material) Writes() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
