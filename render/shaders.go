package render

import (
	"fmt"
	"sync"
)

var (
	shadersMu sync.RWMutex
	shaders   = map[string]*ShaderDesc{}
)

// RegisterShaderDesc stores a shader descriptor under its name. Game code
// registers its shaders once at startup and creates them by name on
// whatever backend ends up active.
func RegisterShaderDesc(desc *ShaderDesc) {
	if desc.Name == "" {
		panic("shader descriptor without a name")
	}

	shadersMu.Lock()
	defer shadersMu.Unlock()

	shaders[desc.Name] = desc
}

// ShaderDescByName returns a previously registered shader descriptor.
func ShaderDescByName(name string) (*ShaderDesc, error) {
	shadersMu.RLock()
	defer shadersMu.RUnlock()

	desc, ok := shaders[name]
	if !ok {
		return nil, fmt.Errorf("no shader registered as %q", name)
	}

	return desc, nil
}
