package metadata

import "github.com/spaghettifunk/lagoon/engine/math"

// MAX_LIGHTS is the light array size in the pass constant block. Matches the
// shader-side declaration.
const MAX_LIGHTS = 16

/**
 * @brief ObjectConstants is the per-draw constant block. Matrices are stored
 * transposed (column-major) for the GPU layout; the renderer performs the
 * transpose when copying from the authoritative row-major state.
 */
type ObjectConstants struct {
	World        math.Mat4
	TexTransform math.Mat4
}

/**
 * @brief MaterialConstants is the per-material constant block.
 */
type MaterialConstants struct {
	DiffuseAlbedo math.Vec4
	FresnelR0     math.Vec3
	Roughness     float32
	Transform     math.Mat4
}

/**
 * @brief Light matches the shader-side light struct; the packing interleaves
 * vec3s with the scalars to respect std140 alignment.
 */
type Light struct {
	Strength     math.Vec3
	FalloffStart float32
	Direction    math.Vec3
	FalloffEnd   float32
	Position     math.Vec3
	SpotPower    float32
}

/**
 * @brief PassConstants is the once-per-frame constant block shared by every
 * draw in the pass.
 */
type PassConstants struct {
	View                math.Mat4
	InvView             math.Mat4
	Proj                math.Mat4
	InvProj             math.Mat4
	ViewProj            math.Mat4
	InvViewProj         math.Mat4
	EyePos              math.Vec3
	pad0                float32
	RenderTargetSize    math.Vec2
	InvRenderTargetSize math.Vec2
	NearZ               float32
	FarZ                float32
	TotalTime           float32
	DeltaTime           float32
	AmbientLight        math.Vec4
	Lights              [MAX_LIGHTS]Light
}
