package render

import (
	"fmt"
	"os"
)

// LoadShader reads GLSL sources from disk and creates the shader. The rest
// of the descriptor, uniform blocks, attributes and texture slots, comes
// from the registered descriptor of the same name so that reloading a
// shader from disk keeps its interface.
func (r *Renderer) LoadShader(name, vertPath, fragPath string) (Shader, error) {
	desc, err := ShaderDescByName(name)
	if err != nil {
		return 0, err
	}

	vert, err := os.ReadFile(vertPath)
	if err != nil {
		return 0, fmt.Errorf("read vertex shader: %w", err)
	}

	frag, err := os.ReadFile(fragPath)
	if err != nil {
		return 0, fmt.Errorf("read fragment shader: %w", err)
	}

	loaded := *desc
	loaded.VertexSource = string(vert)
	loaded.FragmentSource = string(frag)

	shader := r.backend.CreateShader(&loaded)
	if !shader.Valid() {
		return 0, fmt.Errorf("create shader %q", name)
	}

	return shader, nil
}

// ReloadShader recompiles a live shader from GLSL sources on disk. The
// handle stays valid, pipelines built on the shader keep working with the
// new program. A source that fails to compile leaves the old one in place.
func (r *Renderer) ReloadShader(shader Shader, vertPath, fragPath string) error {
	vert, err := os.ReadFile(vertPath)
	if err != nil {
		return fmt.Errorf("read vertex shader: %w", err)
	}

	frag, err := os.ReadFile(fragPath)
	if err != nil {
		return fmt.Errorf("read fragment shader: %w", err)
	}

	r.backend.ReloadShader(shader, &ShaderDesc{
		VertexSource:   string(vert),
		FragmentSource: string(frag),
	})

	return nil
}
