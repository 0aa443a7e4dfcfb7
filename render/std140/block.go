package std140

import "log/slog"

// Block is one uniform block of a shader. It owns a shadow copy of the
// block contents on the CPU. Writes go into the shadow copy and mark the
// block dirty, the backend uploads the whole block before the next draw.
type Block struct {
	Name   string
	Slot   uint32
	Fields []Field
	Size   uint32

	data  []byte
	dirty bool
}

// NewBlock lays out the members and allocates the shadow buffer.
func NewBlock(name string, slot uint32, members []Member) *Block {
	fields, size := Layout(members)

	return &Block{
		Name:   name,
		Slot:   slot,
		Fields: fields,
		Size:   size,
		data:   make([]byte, size),
	}
}

// Write copies src into the shadow buffer at offset. Writes that would run
// past the end of the block are clamped and logged.
func (b *Block) Write(offset uint32, src []byte) {
	if offset >= b.Size {
		slog.Warn("Uniform write outside of block",
			slog.String("block", b.Name),
			slog.Int("offset", int(offset)),
			slog.Int("size", int(b.Size)))

		return
	}

	if end := offset + uint32(len(src)); end > b.Size {
		slog.Warn("Uniform write overflows block, clamping",
			slog.String("block", b.Name),
			slog.Int("offset", int(offset)),
			slog.Int("count", len(src)),
			slog.Int("size", int(b.Size)))

		src = src[:b.Size-offset]
	}

	copy(b.data[offset:], src)
	b.dirty = true
}

// Bytes returns the shadow buffer. The slice must not be retained across
// writes.
func (b *Block) Bytes() []byte {
	return b.data
}

// Dirty reports whether the shadow buffer changed since the last MarkClean.
func (b *Block) Dirty() bool {
	return b.dirty
}

// MarkClean is called by the backend after uploading the block.
func (b *Block) MarkClean() {
	b.dirty = false
}

// Ref locates one uniform within a set of blocks.
type Ref struct {
	Block  *Block
	Offset uint32
	Size   uint32
	Type   Type
}

// Set groups the uniform blocks of one shader and caches name lookups.
type Set struct {
	Blocks []*Block

	refs map[string]Ref
}

// NewSet builds a set over the given blocks.
func NewSet(blocks ...*Block) *Set {
	return &Set{
		Blocks: blocks,
		refs:   map[string]Ref{},
	}
}

// Resolve finds the uniform with the given name. The result is cached, a
// miss is not.
func (s *Set) Resolve(name string) (Ref, bool) {
	if ref, ok := s.refs[name]; ok {
		return ref, true
	}

	for _, block := range s.Blocks {
		for _, field := range block.Fields {
			if field.Name != name {
				continue
			}

			ref := Ref{
				Block:  block,
				Offset: field.Offset,
				Size:   field.Size,
				Type:   field.Type,
			}

			s.refs[name] = ref
			return ref, true
		}
	}

	return Ref{}, false
}

// Write stores a uniform value by name. Unknown names are ignored so that
// shaders may drop uniforms without breaking their callers. A type mismatch
// is logged and the write proceeds with the declared size.
func (s *Set) Write(name string, ty Type, src []byte) {
	ref, ok := s.Resolve(name)
	if !ok {
		return
	}

	if ref.Type != ty {
		slog.Warn("Uniform type mismatch",
			slog.String("uniform", name),
			slog.String("expected", ref.Type.String()),
			slog.String("got", ty.String()))
	}

	if uint32(len(src)) > ref.Size {
		src = src[:ref.Size]
	}

	ref.Block.Write(ref.Offset, src)
}

// DirtyBlocks calls fn for every block that changed since its last upload
// and marks it clean.
func (s *Set) DirtyBlocks(fn func(*Block)) {
	for _, block := range s.Blocks {
		if block.Dirty() {
			fn(block)
			block.MarkClean()
		}
	}
}
