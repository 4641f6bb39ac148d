package testbed

import (
	"fmt"

	"github.com/spaghettifunk/lagoon/engine"
	"github.com/spaghettifunk/lagoon/engine/config"
	"github.com/spaghettifunk/lagoon/engine/core"
	"github.com/spaghettifunk/lagoon/engine/frame"
	"github.com/spaghettifunk/lagoon/engine/math"
	"github.com/spaghettifunk/lagoon/engine/picking"
	"github.com/spaghettifunk/lagoon/engine/renderer"
	"github.com/spaghettifunk/lagoon/engine/renderer/metadata"
	"github.com/spaghettifunk/lagoon/engine/scene"
	"github.com/spaghettifunk/lagoon/engine/waves"

	"github.com/chewxy/math32"
)

const (
	walkSpeed     float32 = 10.0
	lookDegPerPix float32 = 0.25
	treeCount             = 45
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	camera *scene.Camera
	picker *picking.Picker

	field     *waves.HeightField
	waterGeo  *scene.MeshGeometry
	waterMat  *scene.Material
	highlight *scene.RenderItem

	width  uint32
	height uint32

	totalTime    float32
	disturbAccum float64
	disturb      config.Disturb

	ambientLight math.Vec4
	lights       []metadata.Light
}

func NewTestGame() *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				ConfigPath: "lagoon.toml",
				LogLevel:   core.DebugLevel,
			},
			State: &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) Initialize() error {
	if g.Renderer == nil {
		return fmt.Errorf("the engine has not handed the game its collaborators yet")
	}

	state := g.State.(*gameState)
	cfg := g.Config
	ringSize := cfg.Frames.RingSize

	state.disturb = cfg.Disturb
	state.width = cfg.Window.Width
	state.height = cfg.Window.Height

	field, err := waves.New(cfg.Waves.Rows, cfg.Waves.Columns,
		cfg.Waves.SpatialStep, cfg.Waves.TimeStep,
		cfg.Waves.Speed, cfg.Waves.Damping)
	if err != nil {
		return err
	}
	state.field = field

	state.camera = scene.NewCamera()
	state.camera.LookAt(
		math.NewVec3(50.0, 4.0, -110.0),
		math.NewVec3(50.0, 4.0, -75.0),
		math.NewVec3Up())

	if err := g.buildMaterials(); err != nil {
		return err
	}
	if err := g.buildScene(ringSize); err != nil {
		return err
	}

	state.picker = picking.New(g.Registry, state.highlight)
	g.setupLights()

	core.EventRegister(core.EVENT_CODE_CONFIG_CHANGED, g.onConfigChanged)

	// The ring is sized from the finished scene, so this must come last.
	return g.Renderer.CreateFrameRing(ringSize, field.VertexCount())
}

// loadTexture decodes and uploads one texture. A missing or undecodable file
// is a content error: warn and fall back to the default texture slot. Upload
// failures are device errors and abort initialization.
func (g *TestGame) loadTexture(name string) (metadata.TextureHandle, error) {
	data, err := g.Assets.LoadTexture(name)
	if err != nil {
		core.LogWarn("texture '%s' unavailable, using default: %s", name, err.Error())
		return 0, nil
	}
	return g.Renderer.CreateTexture(name, data.Width, data.Height, data.Pixels)
}

func (g *TestGame) buildMaterials() error {
	state := g.State.(*gameState)

	grassTex, err := g.loadTexture("grass.png")
	if err != nil {
		return err
	}
	waterTex, err := g.loadTexture("water.png")
	if err != nil {
		return err
	}
	crateTex, err := g.loadTexture("crate.png")
	if err != nil {
		return err
	}
	stoneTex, err := g.loadTexture("stone.png")
	if err != nil {
		return err
	}
	treeTex, err := g.loadTexture("tree.png")
	if err != nil {
		return err
	}

	configs := []scene.MaterialConfig{
		{
			Name:          "grass",
			Texture:       grassTex,
			DiffuseAlbedo: math.NewVec4(0.13, 0.55, 0.13, 1.0),
			FresnelR0:     math.NewVec3(0.02, 0.02, 0.02),
			Roughness:     0.1,
		},
		{
			Name:          "water",
			Texture:       waterTex,
			DiffuseAlbedo: math.NewVec4(1.0, 1.0, 1.0, 0.6),
			FresnelR0:     math.NewVec3(0.1, 0.1, 0.1),
			Roughness:     0.0,
		},
		{
			Name:          "crate",
			Texture:       crateTex,
			DiffuseAlbedo: math.NewVec4(1.0, 1.0, 1.0, 1.0),
			FresnelR0:     math.NewVec3(0.05, 0.05, 0.05),
			Roughness:     0.3,
		},
		{
			Name:          "stone",
			Texture:       stoneTex,
			DiffuseAlbedo: math.NewVec4(0.83, 0.83, 0.83, 1.0),
			FresnelR0:     math.NewVec3(0.02, 0.02, 0.02),
			Roughness:     0.2,
		},
		{
			Name:          "treeSprites",
			Texture:       treeTex,
			DiffuseAlbedo: math.NewVec4(1.0, 1.0, 1.0, 1.0),
			FresnelR0:     math.NewVec3(0.01, 0.01, 0.01),
			Roughness:     0.125,
		},
		{
			// Translucent yellow drawn over the picked triangle.
			Name:          "highlight",
			Texture:       0,
			DiffuseAlbedo: math.NewVec4(1.0, 1.0, 0.0, 0.6),
			FresnelR0:     math.NewVec3(0.06, 0.06, 0.06),
			Roughness:     0.0,
		},
	}
	for _, c := range configs {
		material, err := g.Materials.Create(c)
		if err != nil {
			return err
		}
		material.MarkDirty(g.Config.Frames.RingSize)
	}

	waterMat, err := g.Materials.Get("water")
	if err != nil {
		return err
	}
	state.waterMat = waterMat
	return nil
}

type itemDesc struct {
	name     string
	geometry *scene.MeshGeometry
	submesh  string
	material string
	world    math.Mat4
	tex      math.Mat4
	topology metadata.PrimitiveTopology
	layer    scene.RenderLayer
}

func (g *TestGame) addItem(desc itemDesc, ringSize int) (*scene.RenderItem, error) {
	sub, err := desc.geometry.Submesh(desc.submesh)
	if err != nil {
		return nil, err
	}
	material, err := g.Materials.Get(desc.material)
	if err != nil {
		return nil, err
	}

	item := &scene.RenderItem{
		Name:         desc.name,
		World:        desc.world,
		TexTransform: desc.tex,
		Geometry:     desc.geometry,
		Material:     material,
		Topology:     desc.topology,
		IndexCount:   sub.IndexCount,
		StartIndex:   sub.StartIndex,
		BaseVertex:   sub.BaseVertex,
		Bounds:       sub.Bounds,
		Visible:      true,
	}
	item.MarkDirty(ringSize)
	return g.Registry.Add(item, desc.layer), nil
}

func (g *TestGame) buildScene(ringSize int) error {
	state := g.State.(*gameState)

	shapeGeo, err := g.buildShapeGeometry()
	if err != nil {
		return err
	}
	landGeo, err := g.buildLandGeometry()
	if err != nil {
		return err
	}
	waterGeo, err := g.buildWaterGeometry()
	if err != nil {
		return err
	}
	treeGeo, err := g.buildTreeGeometry()
	if err != nil {
		return err
	}

	identity := math.NewMat4Identity()

	// Hilly land with the water surface cutting through it.
	if _, err := g.addItem(itemDesc{
		name: "land", geometry: landGeo, submesh: "grid", material: "grass",
		world: identity, tex: math.NewMat4Scale(math.NewVec3(5.0, 5.0, 1.0)),
		topology: metadata.PRIMITIVE_TOPOLOGY_TRIANGLE_LIST, layer: scene.LayerOpaque,
	}, ringSize); err != nil {
		return err
	}

	if _, err := g.addItem(itemDesc{
		name: "water", geometry: waterGeo, submesh: "grid", material: "water",
		world: identity, tex: math.NewMat4Scale(math.NewVec3(5.0, 7.0, 1.0)),
		topology: metadata.PRIMITIVE_TOPOLOGY_TRIANGLE_LIST, layer: scene.LayerTransparent,
	}, ringSize); err != nil {
		return err
	}
	state.waterGeo = waterGeo

	if err := g.buildMaze(shapeGeo, ringSize); err != nil {
		return err
	}
	if err := g.buildSkull(ringSize); err != nil {
		return err
	}

	if _, err := g.addItem(itemDesc{
		name: "trees", geometry: treeGeo, submesh: "points", material: "treeSprites",
		world: identity, tex: identity,
		topology: metadata.PRIMITIVE_TOPOLOGY_POINT_LIST, layer: scene.LayerTreeSprites,
	}, ringSize); err != nil {
		return err
	}

	// The highlight draws the picked triangle. Invisible until a pick lands;
	// the picker fills in the draw range and geometry.
	highlight, err := g.addItem(itemDesc{
		name: "highlight", geometry: shapeGeo, submesh: "box", material: "highlight",
		world: identity, tex: identity,
		topology: metadata.PRIMITIVE_TOPOLOGY_TRIANGLE_LIST, layer: scene.LayerHighlight,
	}, ringSize)
	if err != nil {
		return err
	}
	highlight.Visible = false
	highlight.IndexCount = 0
	highlight.StartIndex = 0
	highlight.BaseVertex = 0
	state.highlight = highlight

	return nil
}

// buildShapeGeometry merges the primitive meshes into one vertex/index pair
// with a named draw range per shape.
func (g *TestGame) buildShapeGeometry() (*scene.MeshGeometry, error) {
	boxVertices, boxIndices := scene.GenerateBox(1.0, 1.0, 1.0)
	cylVertices, cylIndices := scene.GenerateCylinder(0.5, 0.3, 3.0, 20, 20)
	coneVertices, coneIndices := scene.GenerateCylinder(0.5, 0.0, 2.0, 20, 20)

	vertices := make([]math.Vertex3D, 0, len(boxVertices)+len(cylVertices)+len(coneVertices))
	vertices = append(vertices, boxVertices...)
	vertices = append(vertices, cylVertices...)
	vertices = append(vertices, coneVertices...)

	indices := make([]uint32, 0, len(boxIndices)+len(cylIndices)+len(coneIndices))
	indices = append(indices, boxIndices...)
	indices = append(indices, cylIndices...)
	indices = append(indices, coneIndices...)

	geo := scene.NewMeshGeometry("shapeGeo", vertices, indices)
	geo.AddSubmesh("box", scene.Submesh{
		IndexCount: uint32(len(boxIndices)),
		StartIndex: 0,
		BaseVertex: 0,
		Bounds:     math.GeometryComputeExtents(boxVertices),
	})
	geo.AddSubmesh("cylinder", scene.Submesh{
		IndexCount: uint32(len(cylIndices)),
		StartIndex: uint32(len(boxIndices)),
		BaseVertex: int32(len(boxVertices)),
		Bounds:     math.GeometryComputeExtents(cylVertices),
	})
	geo.AddSubmesh("cone", scene.Submesh{
		IndexCount: uint32(len(coneIndices)),
		StartIndex: uint32(len(boxIndices) + len(cylIndices)),
		BaseVertex: int32(len(boxVertices) + len(cylVertices)),
		Bounds:     math.GeometryComputeExtents(coneVertices),
	})

	if err := g.Renderer.CreateGeometryBuffers(geo); err != nil {
		return nil, err
	}
	return geo, nil
}

func hillHeight(x, z float32) float32 {
	return 0.1 * (z*math32.Sin(0.1*x) + x*math32.Cos(0.1*z))
}

func hillNormal(x, z float32) math.Vec3 {
	// n = (-df/dx, 1, -df/dz)
	return math.NewVec3(
		-0.03*z*math32.Cos(0.1*x)-0.3*math32.Cos(0.1*z),
		1.0,
		-0.3*math32.Sin(0.1*x)+0.03*x*math32.Sin(0.1*z)).Normalized()
}

func (g *TestGame) buildLandGeometry() (*scene.MeshGeometry, error) {
	vertices, indices := scene.GenerateGrid(160.0, 160.0, 50, 50)

	for i := range vertices {
		p := vertices[i].Position
		vertices[i].Position.Y = hillHeight(p.X, p.Z)
		vertices[i].Normal = hillNormal(p.X, p.Z)
	}

	geo := scene.NewMeshGeometry("landGeo", vertices, indices)
	geo.AddSubmesh("grid", scene.Submesh{
		IndexCount: uint32(len(indices)),
		Bounds:     math.GeometryComputeExtents(vertices),
	})

	if err := g.Renderer.CreateGeometryBuffers(geo); err != nil {
		return nil, err
	}
	return geo, nil
}

// buildWaterGeometry builds the index topology over the wave grid. The
// vertex buffer is a placeholder: every frame redirects the draw to the
// current frame resource's dynamic buffer holding the fresh solution.
func (g *TestGame) buildWaterGeometry() (*scene.MeshGeometry, error) {
	state := g.State.(*gameState)
	field := state.field

	vertices, indices := scene.GenerateGrid(field.Width(), field.Depth(),
		field.RowCount(), field.ColumnCount())

	geo := scene.NewMeshGeometry("waterGeo", vertices, indices)
	geo.AddSubmesh("grid", scene.Submesh{
		IndexCount: uint32(len(indices)),
		Bounds:     math.GeometryComputeExtents(vertices),
	})

	if err := g.Renderer.CreateGeometryBuffers(geo); err != nil {
		return nil, err
	}
	return geo, nil
}

// buildTreeGeometry scatters billboard points along the shore. The sprite
// extent rides in the texcoord channel; the point pipeline reads it there.
func (g *TestGame) buildTreeGeometry() (*scene.MeshGeometry, error) {
	vertices := make([]math.Vertex3D, treeCount)
	indices := make([]uint32, treeCount)
	for i := 0; i < treeCount; i++ {
		x := math.FRandomInRange(-20.0, 5.0)
		z := math.FRandomInRange(-95.0, -17.0)

		vertices[i] = math.Vertex3D{
			Position: math.NewVec3(x, 4.1, z),
			Normal:   math.NewVec3Up(),
			Texcoord: math.NewVec2(10.0, 10.0),
		}
		indices[i] = uint32(i)
	}

	geo := scene.NewMeshGeometry("treeSpritesGeo", vertices, indices)
	geo.AddSubmesh("points", scene.Submesh{
		IndexCount: uint32(len(indices)),
		Bounds:     math.GeometryComputeExtents(vertices),
	})

	if err := g.Renderer.CreateGeometryBuffers(geo); err != nil {
		return nil, err
	}
	return geo, nil
}

// buildMaze lays out the crate-box walls, the platform they stand on, and
// the cylinder posts at the corners.
func (g *TestGame) buildMaze(shapeGeo *scene.MeshGeometry, ringSize int) error {
	type wall struct {
		scale math.Vec3
		pos   math.Vec3
	}

	walls := []wall{
		// Outer ring.
		{math.NewVec3(10, 8, 1), math.NewVec3(85, 4.25, -95)},
		{math.NewVec3(10, 8, 1), math.NewVec3(75, 4.25, -95)},
		{math.NewVec3(10, 8, 1), math.NewVec3(65, 4.25, -95)},
		{math.NewVec3(10, 8, 1), math.NewVec3(55, 4.25, -95)},
		{math.NewVec3(10, 8, 1), math.NewVec3(45, 4.25, -95)},
		{math.NewVec3(10, 8, 1), math.NewVec3(35, 4.25, -95)},
		{math.NewVec3(10, 8, 1), math.NewVec3(25, 4.25, -95)},
		{math.NewVec3(10, 8, 1), math.NewVec3(15, 4.25, -95)},
		{math.NewVec3(1, 8, 10), math.NewVec3(90, 4.25, -80)},
		{math.NewVec3(1, 8, 10), math.NewVec3(90, 4.25, -70)},
		{math.NewVec3(1, 8, 10), math.NewVec3(90, 4.25, -60)},
		{math.NewVec3(1, 8, 10), math.NewVec3(90, 4.25, -50)},
		{math.NewVec3(1, 8, 10), math.NewVec3(10, 4.25, -90)},
		{math.NewVec3(1, 8, 10), math.NewVec3(10, 4.25, -80)},
		{math.NewVec3(1, 8, 10), math.NewVec3(10, 4.25, -70)},
		{math.NewVec3(1, 8, 10), math.NewVec3(10, 4.25, -60)},
		// Inner passages.
		{math.NewVec3(10, 8, 1), math.NewVec3(85, 4.25, -85)},
		{math.NewVec3(1, 8, 10), math.NewVec3(80, 4.25, -80)},
		{math.NewVec3(1, 8, 10), math.NewVec3(70, 4.25, -90)},
		{math.NewVec3(10, 8, 1), math.NewVec3(65, 4.25, -85)},
		{math.NewVec3(10, 8, 1), math.NewVec3(45, 4.25, -85)},
		{math.NewVec3(10, 8, 1), math.NewVec3(35, 4.25, -85)},
		{math.NewVec3(10, 8, 1), math.NewVec3(55, 4.25, -75)},
		{math.NewVec3(10, 8, 1), math.NewVec3(45, 4.25, -75)},
		{math.NewVec3(1, 8, 10), math.NewVec3(50, 4.25, -80)},
		{math.NewVec3(1, 8, 10), math.NewVec3(30, 4.25, -70)},
	}

	identity := math.NewMat4Identity()

	// Platform the maze stands on.
	if _, err := g.addItem(itemDesc{
		name: "maze_base", geometry: shapeGeo, submesh: "box", material: "stone",
		world: math.NewMat4Scale(math.NewVec3(90.0, 0.4, 90.0)).
			Mul(math.NewMat4Translation(math.NewVec3(50.0, 0.2, -55.0))),
		tex:      identity,
		topology: metadata.PRIMITIVE_TOPOLOGY_TRIANGLE_LIST, layer: scene.LayerOpaque,
	}, ringSize); err != nil {
		return err
	}

	for i, w := range walls {
		world := math.NewMat4Scale(w.scale).Mul(math.NewMat4Translation(w.pos))
		if _, err := g.addItem(itemDesc{
			name: fmt.Sprintf("maze_wall_%d", i), geometry: shapeGeo, submesh: "box",
			material: "crate", world: world, tex: identity,
			topology: metadata.PRIMITIVE_TOPOLOGY_TRIANGLE_LIST, layer: scene.LayerOpaque,
		}, ringSize); err != nil {
			return err
		}
	}

	// Cylinder posts at the maze corners and a cone on top of each.
	corners := []math.Vec3{
		{X: 10, Y: 2.0, Z: -95}, {X: 90, Y: 2.0, Z: -95},
		{X: 10, Y: 2.0, Z: -15}, {X: 90, Y: 2.0, Z: -15},
	}
	for i, c := range corners {
		world := math.NewMat4Translation(c)
		if _, err := g.addItem(itemDesc{
			name: fmt.Sprintf("maze_post_%d", i), geometry: shapeGeo, submesh: "cylinder",
			material: "stone", world: world, tex: identity,
			topology: metadata.PRIMITIVE_TOPOLOGY_TRIANGLE_LIST, layer: scene.LayerOpaque,
		}, ringSize); err != nil {
			return err
		}

		top := math.NewMat4Translation(math.NewVec3(c.X, c.Y+2.5, c.Z))
		if _, err := g.addItem(itemDesc{
			name: fmt.Sprintf("maze_post_top_%d", i), geometry: shapeGeo, submesh: "cone",
			material: "stone", world: top, tex: identity,
			topology: metadata.PRIMITIVE_TOPOLOGY_TRIANGLE_LIST, layer: scene.LayerOpaque,
		}, ringSize); err != nil {
			return err
		}
	}

	return nil
}

// buildSkull loads the text-format skull model. A missing model file is a
// content error: the item is simply absent and the scene carries on.
func (g *TestGame) buildSkull(ringSize int) error {
	model, err := g.Assets.LoadModel("skull.txt")
	if err != nil {
		core.LogWarn("skull model unavailable, skipping: %s", err.Error())
		return nil
	}

	geo := scene.NewMeshGeometry("skullGeo", model.Vertices, model.Indices)
	geo.AddSubmesh("skull", scene.Submesh{
		IndexCount: uint32(len(model.Indices)),
		Bounds:     math.GeometryComputeExtents(model.Vertices),
	})
	if err := g.Renderer.CreateGeometryBuffers(geo); err != nil {
		return err
	}

	world := math.NewMat4Scale(math.NewVec3(0.5, 0.5, 0.5)).
		Mul(math.NewMat4Translation(math.NewVec3(50.0, 1.5, -55.0)))
	_, err = g.addItem(itemDesc{
		name: "skull", geometry: geo, submesh: "skull", material: "stone",
		world: world, tex: math.NewMat4Identity(),
		topology: metadata.PRIMITIVE_TOPOLOGY_TRIANGLE_LIST, layer: scene.LayerOpaque,
	}, ringSize)
	return err
}

func (g *TestGame) setupLights() {
	state := g.State.(*gameState)

	state.ambientLight = math.NewVec4(0.25, 0.25, 0.35, 1.0)
	state.lights = []metadata.Light{
		// Three-point directional key/fill/back set.
		{
			Direction: math.NewVec3(0.57735, -0.57735, 0.57735),
			Strength:  math.NewVec3(0.6, 0.6, 0.6),
		},
		{
			Direction: math.NewVec3(-0.57735, -0.57735, 0.57735),
			Strength:  math.NewVec3(0.3, 0.3, 0.3),
		},
		{
			Direction: math.NewVec3(0.0, -0.707, -0.707),
			Strength:  math.NewVec3(0.15, 0.15, 0.15),
		},
		// Point light over the maze entrance.
		{
			Position:     math.NewVec3(50.0, 6.0, -95.0),
			Strength:     math.NewVec3(2.0, 2.0, 0.0),
			FalloffStart: 1.0,
			FalloffEnd:   20.0,
		},
		// Spot light aimed down at the skull.
		{
			Position:     math.NewVec3(50.0, 10.0, -55.0),
			Strength:     math.NewVec3(4.0, 4.0, 4.0),
			Direction:    math.NewVec3(0.0, -1.0, 0.0),
			FalloffStart: 1.0,
			FalloffEnd:   25.0,
			SpotPower:    18.0,
		},
	}
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	dt := float32(deltaTime)

	// Drag-look while the left button is held.
	if core.InputIsButtonDown(core.BUTTON_LEFT) {
		x, y := core.InputGetMousePosition()
		prevX, prevY := core.InputGetPreviousMousePosition()

		dx := math.DegToRad(lookDegPerPix * float32(x-prevX))
		dy := math.DegToRad(lookDegPerPix * float32(y-prevY))

		state.camera.Pitch(dy)
		state.camera.RotateY(dx)
	}

	// Forward movement honors the gate computed by the last pick.
	if core.InputIsKeyDown(core.KEY_W) && !state.picker.MovementBlocked() {
		state.camera.Walk(walkSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_S) {
		state.camera.Walk(-walkSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_A) {
		state.camera.Strafe(-walkSpeed * dt)
	}
	if core.InputIsKeyDown(core.KEY_D) {
		state.camera.Strafe(walkSpeed * dt)
	}

	state.camera.UpdateViewMatrix()

	if core.InputIsButtonPressed(core.BUTTON_RIGHT) {
		x, y := core.InputGetMousePosition()
		state.picker.Pick(float32(x), float32(y),
			float32(state.width), float32(state.height),
			state.camera, g.Renderer.RingSize())
	}

	if core.InputIsKeyDown(core.KEY_ESCAPE) {
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	}

	return nil
}

func (g *TestGame) Render(resource *frame.Resource, deltaTime float64) error {
	state := g.State.(*gameState)
	dt := float32(deltaTime)
	state.totalTime += dt

	g.animateWater(dt)

	r := g.Renderer
	r.UpdateObjectConstants(resource)
	r.UpdateMaterialConstants(resource)
	r.UpdatePassConstants(resource, state.camera, renderer.PassInfo{
		TotalTime:    state.totalTime,
		DeltaTime:    dt,
		AmbientLight: state.ambientLight,
		Lights:       state.lights,
	})

	g.updateWaves(deltaTime)
	r.UpdateWaveVertices(resource, state.field, state.waterGeo)

	return nil
}

// animateWater scrolls the water texture, wrapping each coordinate at 1.
func (g *TestGame) animateWater(dt float32) {
	state := g.State.(*gameState)

	transform := state.waterMat.Transform
	tu := transform.At(3, 0) + 0.1*dt
	tv := transform.At(3, 1) + 0.02*dt
	if tu >= 1.0 {
		tu -= 1.0
	}
	if tv >= 1.0 {
		tv -= 1.0
	}
	transform.Set(3, 0, tu)
	transform.Set(3, 1, tv)

	state.waterMat.SetTransform(transform, g.Renderer.RingSize())
}

// disturbWindow is the index range random disturbances draw from along one
// grid axis. Large grids keep an extra two-cell margin off the boundary ring;
// small grids fall back to the full disturbable interior.
func disturbWindow(n int) (int32, int32) {
	if n >= 10 {
		return 4, int32(n - 5)
	}
	return 2, int32(n - 3)
}

// updateWaves drops a random disturbance on a fixed cadence and advances the
// simulation.
func (g *TestGame) updateWaves(deltaTime float64) {
	state := g.State.(*gameState)
	field := state.field

	state.disturbAccum += deltaTime
	interval := float64(state.disturb.Interval)
	for state.disturbAccum >= interval {
		state.disturbAccum -= interval

		iLo, iHi := disturbWindow(field.RowCount())
		jLo, jHi := disturbWindow(field.ColumnCount())
		i := int(math.RandomInRange(iLo, iHi))
		j := int(math.RandomInRange(jLo, jHi))
		magnitude := math.FRandomInRange(state.disturb.MinMagnitude, state.disturb.MaxMagnitude)

		field.Disturb(i, j, magnitude)
	}

	field.Update(float32(deltaTime))
}

func (g *TestGame) OnResize(width, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height

	if width > 0 && height > 0 {
		aspect := float32(width) / float32(height)
		state.camera.SetLens(math.K_QUARTER_PI, aspect, 1.0, 1000.0)
	}
	return nil
}

func (g *TestGame) Shutdown() error {
	return nil
}

func (g *TestGame) onConfigChanged(context core.EventContext) {
	cfg, ok := context.Data.(*config.Config)
	if !ok {
		core.LogError("wrong event data associated with the event type `%d`", context.Type)
		return
	}

	state := g.State.(*gameState)

	// Only the tunable subset applies live; structural values need a restart.
	if err := state.field.Retune(cfg.Waves.Speed, cfg.Waves.Damping); err != nil {
		core.LogError("rejecting live wave tunables: %s", err.Error())
	}
	state.disturb = cfg.Disturb
}
