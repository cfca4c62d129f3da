package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// maxNodeDepth bounds the scene graph walk against cyclic node references.
const maxNodeDepth = 64

// Mesh is a wireframe: vertices joined by edges.
type Mesh struct {
	Vertices []mgl64.Vec3
	Edges    [][2]int
}

// Cube returns a unit-radius cube centred on the origin with a marker edge
// on its front face so rotation direction is visible.
func Cube() *Mesh {
	h := 1 / math.Sqrt(3)
	m := &Mesh{}
	for i := 0; i < 8; i++ {
		m.Vertices = append(m.Vertices, mgl64.Vec3{
			h * float64(2*(i&1)-1),
			h * float64(2*(i>>1&1)-1),
			h * float64(2*(i>>2&1)-1),
		})
	}
	for i := 0; i < 8; i++ {
		for _, bit := range []int{1, 2, 4} {
			if j := i | bit; j != i {
				m.Edges = append(m.Edges, [2]int{i, j})
			}
		}
	}
	// Diagonal across the +Z face.
	m.Edges = append(m.Edges, [2]int{4, 7})
	return m
}

// LoadModel reads a glTF 2.0 model, binary (.glb) or JSON (.gltf).
func LoadModel(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	m, err := FromGLTF(doc)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return m, nil
}

// FromGLTF flattens every mesh the document's scene instantiates into one
// wireframe. Node transforms are applied, triangle and line primitives become
// edges and points are skipped. The result is recentred and scaled to fit the
// unit sphere.
func FromGLTF(doc *gltf.Document) (*Mesh, error) {
	b := &meshBuilder{doc: doc, mesh: &Mesh{}, seen: make(map[[2]int]struct{})}

	if roots := sceneRoots(doc); roots != nil {
		for _, n := range roots {
			if err := b.addNode(n, mgl64.Ident4(), 0); err != nil {
				return nil, err
			}
		}
	} else {
		// No scene: draw every mesh untransformed.
		for i := range doc.Meshes {
			if err := b.addMesh(i, mgl64.Ident4()); err != nil {
				return nil, err
			}
		}
	}

	if len(b.mesh.Vertices) == 0 {
		return nil, errors.New("no vertices")
	}
	b.mesh.fitUnitSphere()
	return b.mesh, nil
}

func sceneRoots(doc *gltf.Document) []int {
	if len(doc.Scenes) == 0 {
		return nil
	}
	scene := 0
	if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
		scene = int(*doc.Scene)
	}
	roots := make([]int, 0, len(doc.Scenes[scene].Nodes))
	for _, n := range doc.Scenes[scene].Nodes {
		roots = append(roots, int(n))
	}
	return roots
}

type meshBuilder struct {
	doc  *gltf.Document
	mesh *Mesh
	seen map[[2]int]struct{}
}

func (b *meshBuilder) addNode(idx int, parent mgl64.Mat4, depth int) error {
	if depth > maxNodeDepth {
		return errors.New("node hierarchy too deep")
	}
	if idx < 0 || idx >= len(b.doc.Nodes) {
		return fmt.Errorf("node %d out of range (have %d)", idx, len(b.doc.Nodes))
	}
	node := b.doc.Nodes[idx]
	world := parent.Mul4(localMatrix(node))

	if node.Mesh != nil {
		if err := b.addMesh(int(*node.Mesh), world); err != nil {
			return fmt.Errorf("node %d: %w", idx, err)
		}
	}
	for _, c := range node.Children {
		if err := b.addNode(int(c), world, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// localMatrix returns the node's transform. glTF stores either a column-major
// matrix or translation, rotation (x, y, z, w) and scale.
func localMatrix(n *gltf.Node) mgl64.Mat4 {
	if m := mgl64.Mat4(n.Matrix); m != (mgl64.Mat4{}) && m != mgl64.Ident4() {
		return m
	}

	rot := mgl64.QuatIdent()
	if r := n.Rotation; r != [4]float64{} {
		rot = mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}}.Normalize()
	}
	scale := n.Scale
	if scale == [3]float64{} {
		scale = [3]float64{1, 1, 1}
	}
	t := n.Translation
	return mgl64.Translate3D(t[0], t[1], t[2]).
		Mul4(rot.Mat4()).
		Mul4(mgl64.Scale3D(scale[0], scale[1], scale[2]))
}

func (b *meshBuilder) addMesh(idx int, world mgl64.Mat4) error {
	if idx < 0 || idx >= len(b.doc.Meshes) {
		return fmt.Errorf("mesh %d out of range (have %d)", idx, len(b.doc.Meshes))
	}
	for i, p := range b.doc.Meshes[idx].Primitives {
		if err := b.addPrimitive(p, world); err != nil {
			return fmt.Errorf("mesh %d primitive %d: %w", idx, i, err)
		}
	}
	return nil
}

func (b *meshBuilder) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(b.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range (have %d)", idx, len(b.doc.Accessors))
	}
	return b.doc.Accessors[idx], nil
}

func (b *meshBuilder) addPrimitive(p *gltf.Primitive, world mgl64.Mat4) error {
	if p.Mode == gltf.PrimitivePoints {
		return nil
	}
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil
	}
	acr, err := b.accessor(int(posIdx))
	if err != nil {
		return err
	}
	positions, err := modeler.ReadPosition(b.doc, acr, nil)
	if err != nil {
		return fmt.Errorf("read positions: %w", err)
	}

	var indices []uint32
	if p.Indices != nil {
		acr, err := b.accessor(int(*p.Indices))
		if err != nil {
			return err
		}
		if indices, err = modeler.ReadIndices(b.doc, acr, nil); err != nil {
			return fmt.Errorf("read indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	for _, i := range indices {
		if int(i) >= len(positions) {
			return fmt.Errorf("index %d out of range (have %d positions)", i, len(positions))
		}
	}

	base := len(b.mesh.Vertices)
	for _, v := range positions {
		w := world.Mul4x1(mgl64.Vec4{float64(v[0]), float64(v[1]), float64(v[2]), 1})
		b.mesh.Vertices = append(b.mesh.Vertices, w.Vec3())
	}

	edge := func(i, j uint32) { b.addEdge(base+int(i), base+int(j)) }
	n := len(indices)
	switch p.Mode {
	case gltf.PrimitiveTriangles:
		for k := 0; k+2 < n; k += 3 {
			edge(indices[k], indices[k+1])
			edge(indices[k+1], indices[k+2])
			edge(indices[k+2], indices[k])
		}
	case gltf.PrimitiveTriangleStrip:
		for k := 0; k+2 < n; k++ {
			edge(indices[k], indices[k+1])
			edge(indices[k+1], indices[k+2])
			edge(indices[k+2], indices[k])
		}
	case gltf.PrimitiveTriangleFan:
		for k := 1; k+1 < n; k++ {
			edge(indices[0], indices[k])
			edge(indices[k], indices[k+1])
			edge(indices[k+1], indices[0])
		}
	case gltf.PrimitiveLines:
		for k := 0; k+1 < n; k += 2 {
			edge(indices[k], indices[k+1])
		}
	case gltf.PrimitiveLineStrip, gltf.PrimitiveLineLoop:
		for k := 0; k+1 < n; k++ {
			edge(indices[k], indices[k+1])
		}
		if p.Mode == gltf.PrimitiveLineLoop && n > 2 {
			edge(indices[n-1], indices[0])
		}
	}
	return nil
}

func (b *meshBuilder) addEdge(i, j int) {
	if i == j {
		return
	}
	if i > j {
		i, j = j, i
	}
	key := [2]int{i, j}
	if _, ok := b.seen[key]; ok {
		return
	}
	b.seen[key] = struct{}{}
	b.mesh.Edges = append(b.mesh.Edges, key)
}

func (m *Mesh) fitUnitSphere() {
	lo, hi := m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = math.Min(lo[i], v[i])
			hi[i] = math.Max(hi[i], v[i])
		}
	}
	center := lo.Add(hi).Mul(0.5)

	radius := 0.0
	for _, v := range m.Vertices {
		radius = math.Max(radius, v.Sub(center).Len())
	}
	if radius == 0 {
		radius = 1
	}
	for i, v := range m.Vertices {
		m.Vertices[i] = v.Sub(center).Mul(1 / radius)
	}
}
