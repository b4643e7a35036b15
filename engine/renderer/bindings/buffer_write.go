package bindings

// BufferWrite describes a single GPU buffer write targeting a binding of group 0 at a given
// byte offset. The renderer resolves Binding to a buffer through its BindGroupProvider.
type BufferWrite struct {
	Binding int
	Offset  uint64
	Data    []byte
}
