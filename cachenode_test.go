package grove

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// fakeGeometry counts every call the cache makes on it.
type fakeGeometry struct {
	listValid bool
	valid     bool
	box       BoundingBox

	loads    int
	compiles int
	draws    int
	boxes    int
	releases int
}

func newFakeGeometry() *fakeGeometry {
	return &fakeGeometry{
		box: NewBoundingBox(mgl32.Vec3{-1, -2, -3}, mgl32.Vec3{1, 2, 3}),
	}
}

func (g *fakeGeometry) ListValid() bool { return g.listValid }
func (g *fakeGeometry) Valid() bool     { return g.valid }
func (g *fakeGeometry) LoadTextures()   { g.loads++ }
func (g *fakeGeometry) Release()        { g.releases++ }

func (g *fakeGeometry) CompileList(mode RenderMode) {
	g.compiles++
	g.listValid = true
}

func (g *fakeGeometry) Draw(r Recorder, mode RenderMode) {
	g.draws++
	r.DrawTriangles([]Vertex{
		{Position: mgl32.Vec3{0, 0, 0}},
		{Position: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{0, 1, 0}},
	}, []uint16{0, 1, 2}, nil)
	g.valid = true
}

func (g *fakeGeometry) BoundingBox() BoundingBox {
	g.boxes++
	return g.box
}

// touch simulates an edit of the geometry data.
func (g *fakeGeometry) touch() {
	g.valid = false
}

func TestCacheNodeRenderCompilesOnce(t *testing.T) {
	dev := NewHeadlessDevice()
	g := newFakeGeometry()
	n := NewCacheNode(dev, g)

	for i := 0; i < 5; i++ {
		n.Render(RenderNormal)
	}

	if g.compiles != 1 {
		t.Errorf("compiles = %d, want 1", g.compiles)
	}
	if g.loads != 1 {
		t.Errorf("loads = %d, want 1", g.loads)
	}
	if g.draws != 1 {
		t.Errorf("draws = %d, want 1", g.draws)
	}
	st := dev.Stats()
	if st.Generated != 1 || st.Recorded != 1 || st.Replayed != 4 {
		t.Errorf("stats = %+v, want 1 generated, 1 recorded, 4 replayed", st)
	}
	if n.List() == nil || n.List().Len() != 1 {
		t.Fatal("expected a list with one recorded draw call")
	}
}

func TestCacheNodeRenderReusesListAfterInvalidation(t *testing.T) {
	dev := NewHeadlessDevice()
	g := newFakeGeometry()
	n := NewCacheNode(dev, g)

	n.Render(RenderNormal)
	list := n.List()
	g.touch()
	n.Render(RenderNormal)

	if n.List() != list {
		t.Error("display list reallocated; want the same handle re-recorded")
	}
	if g.draws != 2 {
		t.Errorf("draws = %d, want 2", g.draws)
	}
	if g.compiles != 1 {
		t.Errorf("compiles = %d, want 1 (list still valid)", g.compiles)
	}
	if dev.Stats().Generated != 1 {
		t.Errorf("generated = %d, want 1", dev.Stats().Generated)
	}
}

func TestCacheNodeRenderWithoutGeometry(t *testing.T) {
	dev := NewHeadlessDevice()
	n := NewCacheNode(dev, nil)
	n.Render(RenderNormal)

	if n.List() != nil {
		t.Error("node without geometry allocated a list")
	}
	if dev.Stats().Generated != 0 {
		t.Errorf("generated = %d, want 0", dev.Stats().Generated)
	}
}

func TestCacheNodeRenderRecomputesBoundingBox(t *testing.T) {
	g := newFakeGeometry()
	n := NewCacheNode(NewHeadlessDevice(), g)

	n.Render(RenderNormal)
	if g.boxes != 1 {
		t.Fatalf("boxes after first render = %d, want 1", g.boxes)
	}
	n.Render(RenderNormal)
	if g.boxes != 1 {
		t.Errorf("boxes after replay = %d, want 1", g.boxes)
	}
	g.touch()
	n.Render(RenderNormal)
	if g.boxes != 2 {
		t.Errorf("boxes after re-record = %d, want 2", g.boxes)
	}
}

func TestCacheNodeBoundingBoxIdempotent(t *testing.T) {
	g := newFakeGeometry()
	n := NewCacheNode(NewHeadlessDevice(), g)
	n.Render(RenderNormal)

	before := g.boxes
	a := n.BoundingBox()
	b := n.BoundingBox()

	if !a.Equal(b) {
		t.Errorf("boxes differ: %v vs %v", a, b)
	}
	if g.boxes != before {
		t.Errorf("BoundingBox recomputed %d times, want 0", g.boxes-before)
	}
	if !n.BoundingBoxValid() {
		t.Error("BoundingBoxValid = false after render")
	}
}

func TestCacheNodeBoundingBoxWithoutGeometry(t *testing.T) {
	n := NewCacheNode(NewHeadlessDevice(), nil)
	if !n.BoundingBox().IsEmpty() {
		t.Error("expected the null box for a node without geometry")
	}
}

func TestCacheNodeBoundingBoxBeforeRender(t *testing.T) {
	g := newFakeGeometry()
	n := NewCacheNode(NewHeadlessDevice(), g)

	box := n.BoundingBox()
	if !box.Equal(g.box) {
		t.Errorf("box = %v, want %v", box, g.box)
	}
	if g.boxes != 1 {
		t.Errorf("boxes = %d, want 1", g.boxes)
	}
}

func TestCacheNodeSetGeometry(t *testing.T) {
	n := NewCacheNode(NewHeadlessDevice(), nil)
	g := newFakeGeometry()

	if !n.SetGeometry(g) {
		t.Fatal("SetGeometry on an empty node failed")
	}
	if n.Geometry() != g {
		t.Error("Geometry does not report the bound geometry")
	}

	other := newFakeGeometry()
	if n.SetGeometry(other) {
		t.Error("SetGeometry on a bound node succeeded")
	}
	if n.Geometry() != g {
		t.Error("failed SetGeometry mutated the node")
	}
	if n.SetGeometry(nil) {
		t.Error("SetGeometry(nil) succeeded")
	}
}

func TestCacheNodeCopySharesGeometry(t *testing.T) {
	dev := NewHeadlessDevice()
	g := newFakeGeometry()
	a := NewCacheNode(dev, g)
	a.Render(RenderNormal)

	b := a.Copy()
	if b.Geometry() != g {
		t.Fatal("copy does not share the geometry")
	}
	if a.Owners() != 2 || b.Owners() != 2 {
		t.Errorf("owners = %d/%d, want 2/2", a.Owners(), b.Owners())
	}
	if b.List() != nil {
		t.Error("copy inherited the display list")
	}
	if b.bbox != nil {
		t.Error("copy inherited the bounding box")
	}

	b.Render(RenderNormal)
	if b.List() == nil || b.List() == a.List() {
		t.Error("copy must record its own list")
	}
	if g.compiles != 1 {
		t.Errorf("compiles = %d, want 1 (geometry compiled once)", g.compiles)
	}
}

func TestCacheNodeGeometryReleasedOnce(t *testing.T) {
	dev := NewHeadlessDevice()
	g := newFakeGeometry()
	a := NewCacheNode(dev, g)
	b := a.Copy()
	c := b.Copy()

	a.Render(RenderNormal)
	c.Render(RenderNormal)

	a.Release()
	if g.releases != 0 {
		t.Fatal("geometry released while copies remain")
	}
	if a.List() != nil || a.bbox != nil {
		t.Error("released node kept its own caches")
	}
	c.Release()
	if g.releases != 0 {
		t.Fatal("geometry released while a copy remains")
	}
	b.Release()
	if g.releases != 1 {
		t.Errorf("releases = %d, want 1", g.releases)
	}

	b.Release()
	if g.releases != 1 {
		t.Errorf("double Release freed again: releases = %d", g.releases)
	}
	if st := dev.Stats(); st.Live != 0 || st.Deleted != 2 {
		t.Errorf("stats = %+v, want 0 live, 2 deleted", st)
	}
}

func TestCacheNodeCopyOfReleasedPanics(t *testing.T) {
	n := NewCacheNode(NewHeadlessDevice(), newFakeGeometry())
	n.Release()

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	n.Copy()
}

func TestCacheNodeRevisionReachesEveryCopy(t *testing.T) {
	dev := NewHeadlessDevice()
	m := NewBoxMesh("box", 1, 1, 1, ColorWhite)
	a := NewCacheNode(dev, m)
	b := a.Copy()

	a.Render(RenderNormal)
	b.Render(RenderNormal)
	recorded := dev.Stats().Recorded

	m.SetColor(Color{1, 0, 0, 1})
	a.Render(RenderNormal)
	b.Render(RenderNormal)

	if got := dev.Stats().Recorded - recorded; got != 2 {
		t.Errorf("re-recorded %d lists after a shared change, want 2", got)
	}
}

func TestCacheNodeListValid(t *testing.T) {
	g := newFakeGeometry()
	n := NewCacheNode(NewHeadlessDevice(), g)
	if n.ListValid() {
		t.Error("ListValid before render")
	}
	n.Render(RenderNormal)
	if !n.ListValid() {
		t.Error("ListValid = false after render")
	}
	g.touch()
	if n.ListValid() {
		t.Error("ListValid = true after geometry change")
	}
}
