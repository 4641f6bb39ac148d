package loaders

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/chewxy/math32"

	"github.com/spaghettifunk/lagoon/engine/math"
)

// Mesh is the raw parse result of a model file.
type Mesh struct {
	Vertices []math.Vertex3D
	Indices  []uint32
}

/**
 * @brief ModelLoader parses the plain-text mesh format:
 *
 *	VertexCount: N
 *	TriangleCount: M
 *	VertexList (pos, normal)
 *	{
 *	  x y z nx ny nz        (N lines)
 *	}
 *	TriangleList
 *	{
 *	  i0 i1 i2              (M lines)
 *	}
 *
 * The format carries no texture coordinates; UVs are generated by projecting
 * each position onto the unit sphere.
 */
type ModelLoader struct{}

func (ml *ModelLoader) Load(path string) (interface{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Split(bufio.ScanWords)

	p := &tokenParser{scanner: scanner, path: path}

	p.expect("VertexCount:")
	vcount := p.readInt()
	p.expect("TriangleCount:")
	tcount := p.readInt()
	// "VertexList (pos, normal) {"
	p.skip(4)

	if p.err != nil {
		return nil, p.err
	}
	if vcount <= 0 || tcount <= 0 {
		return nil, fmt.Errorf("model %s has empty geometry (%d vertices, %d triangles)", path, vcount, tcount)
	}

	vertices := make([]math.Vertex3D, vcount)
	for i := 0; i < vcount; i++ {
		position := math.NewVec3(p.readFloat(), p.readFloat(), p.readFloat())
		normal := math.NewVec3(p.readFloat(), p.readFloat(), p.readFloat())

		vertices[i] = math.Vertex3D{
			Position: position,
			Normal:   normal,
			Texcoord: sphericalUV(position),
		}
	}

	// "} TriangleList {"
	p.skip(3)

	indices := make([]uint32, 3*tcount)
	for i := 0; i < len(indices); i++ {
		indices[i] = uint32(p.readInt())
	}

	if p.err != nil {
		return nil, p.err
	}

	return &Mesh{
		Vertices: vertices,
		Indices:  indices,
	}, nil
}

// sphericalUV projects the position onto the unit sphere and maps the
// spherical angles to [0,1]^2.
func sphericalUV(position math.Vec3) math.Vec2 {
	onSphere := position.Normalized()

	theta := math32.Atan2(onSphere.Z, onSphere.X)
	if theta < 0 {
		theta += 2.0 * math32.Pi
	}
	phi := math32.Acos(onSphere.Y)

	return math.NewVec2(theta/(2.0*math32.Pi), phi/math32.Pi)
}

// tokenParser reads whitespace-separated tokens and latches the first error,
// so the happy path reads without per-token error plumbing.
type tokenParser struct {
	scanner *bufio.Scanner
	path    string
	err     error
}

func (p *tokenParser) next() string {
	if p.err != nil {
		return ""
	}
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			p.err = err
		} else {
			p.err = fmt.Errorf("model %s truncated", p.path)
		}
		return ""
	}
	return p.scanner.Text()
}

func (p *tokenParser) expect(token string) {
	got := p.next()
	if p.err == nil && got != token {
		p.err = fmt.Errorf("model %s: expected %q, got %q", p.path, token, got)
	}
}

func (p *tokenParser) skip(count int) {
	for i := 0; i < count; i++ {
		p.next()
	}
}

func (p *tokenParser) readInt() int {
	token := p.next()
	if p.err != nil {
		return 0
	}
	value, err := strconv.Atoi(token)
	if err != nil {
		p.err = fmt.Errorf("model %s: bad integer %q", p.path, token)
		return 0
	}
	return value
}

func (p *tokenParser) readFloat() float32 {
	token := p.next()
	if p.err != nil {
		return 0
	}
	value, err := strconv.ParseFloat(token, 32)
	if err != nil {
		p.err = fmt.Errorf("model %s: bad float %q", p.path, token)
		return 0
	}
	return float32(value)
}
