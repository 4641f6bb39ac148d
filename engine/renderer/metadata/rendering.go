package metadata

/**
 * @brief BufferHandle identifies a GPU vertex/index buffer owned by the
 * backend. Handles are stable for the buffer's lifetime; the zero value is
 * invalid.
 */
type BufferHandle uint32

const InvalidBufferHandle BufferHandle = 0

/**
 * @brief TextureHandle is an index into the backend's bound texture array.
 */
type TextureHandle uint32

type PrimitiveTopology uint8

const (
	PRIMITIVE_TOPOLOGY_TRIANGLE_LIST PrimitiveTopology = iota
	PRIMITIVE_TOPOLOGY_POINT_LIST
)

/**
 * @brief GeometryRenderData carries everything the backend needs for one
 * indexed draw: buffer bindings, the draw range, and the stable constant
 * buffer slots whose per-frame copies hold this draw's constants.
 */
type GeometryRenderData struct {
	VertexBuffer BufferHandle
	IndexBuffer  BufferHandle
	Topology     PrimitiveTopology

	IndexCount uint32
	StartIndex uint32
	BaseVertex int32

	Texture       TextureHandle
	ObjectCBIndex uint32
	MaterialCB    uint32
}
