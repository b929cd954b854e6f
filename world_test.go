package grove

import (
	"errors"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

type recordingStore struct {
	events []WorldEvent
}

func (s *recordingStore) EmitEvent(e WorldEvent) {
	s.events = append(s.events, e)
}

func (s *recordingStore) types() []EventType {
	out := make([]EventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

// opaqueRep is a non-empty representation the World cannot render.
type opaqueRep struct{}

func (opaqueRep) Name() string     { return "opaque" }
func (opaqueRep) FileName() string { return "" }
func (opaqueRep) IsEmpty() bool    { return false }

func newTestWorld() (*World, *HeadlessDevice) {
	dev := NewHeadlessDevice()
	return NewWorld(dev), dev
}

func repOccurrence(dev Device, id uint32, name string) (*StructOccurrence, *fakeGeometry) {
	g := newFakeGeometry()
	occ := NewRepOccurrence(name, NewRep3D(dev, name, "", g))
	occ.SetID(id)
	return occ, g
}

func TestWorldAddSelectedScenario(t *testing.T) {
	w, dev := newTestWorld()
	a, _ := repOccurrence(dev, 1, "A")

	if err := w.AddOccurrence(a, true, 0); err != nil {
		t.Fatalf("AddOccurrence: %v", err)
	}
	insts := w.Instances()
	if len(insts) != 1 || insts[0] != Instance(a.Instance()) {
		t.Errorf("Instances = %v, want A's instance once", insts)
	}
	c := w.Collection()
	if !c.Contains(1) || !c.IsSelected(1) {
		t.Error("collection does not hold id 1 selected")
	}

	if err := w.RemoveOccurrence(a); err != nil {
		t.Fatalf("RemoveOccurrence: %v", err)
	}
	if w.Len() != 0 || c.Len() != 0 || c.SelectionSize() != 0 {
		t.Error("world not empty after remove")
	}
}

func TestWorldSharedReferenceScenario(t *testing.T) {
	w, dev := newTestWorld()
	ref := NewStructReference("bolt", NewRep3D(dev, "bolt", "", newFakeGeometry()))
	b := NewStructOccurrence(NewStructInstance("b", ref))
	b.SetID(2)
	c := NewStructOccurrence(NewStructInstance("c", ref))
	c.SetID(3)

	if err := w.AddOccurrence(b, false, 0); err != nil {
		t.Fatal(err)
	}
	if err := w.AddOccurrence(c, false, 0); err != nil {
		t.Fatal(err)
	}

	refs := w.References()
	if len(refs) != 1 || refs[0] != Reference(ref) {
		t.Errorf("References = %v, want the shared reference once", refs)
	}
	if len(w.Instances()) != 2 {
		t.Errorf("Instances = %d, want 2", len(w.Instances()))
	}
	if got := w.Collection().IDs(); !slices.Equal(got, []uint32{2, 3}) {
		t.Errorf("collection ids = %v, want [2 3]", got)
	}
	ib, ic := w.Collection().Instance(2), w.Collection().Instance(3)
	if ib == ic {
		t.Fatal("entries are not independent")
	}
	if ib.Nodes()[0].Geometry() != ic.Nodes()[0].Geometry() {
		t.Error("entries do not share the geometry")
	}
}

func TestWorldAddRemoveRestoresState(t *testing.T) {
	w, dev := newTestWorld()
	keep, _ := repOccurrence(dev, 10, "keep")
	w.AddOccurrence(keep, false, 0)

	beforeIDs := w.IDs()
	beforeShaders := w.Collection().Shaders()

	occ, g := repOccurrence(dev, 11, "temp")
	if err := w.AddOccurrence(occ, true, 5); err != nil {
		t.Fatal(err)
	}
	w.Collection().Render(RenderNormal)
	if err := w.RemoveOccurrence(occ); err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(w.IDs(), beforeIDs) || !slices.Equal(w.Collection().IDs(), beforeIDs) {
		t.Error("ids differ after add then remove")
	}
	if w.Collection().SelectionSize() != 0 || w.Collection().ShaderOf(11) != 0 {
		t.Error("dangling selection or shader binding")
	}
	if got := w.Collection().Shaders(); !slices.Equal(got, beforeShaders) {
		t.Errorf("shaders = %v after add then remove, want %v", got, beforeShaders)
	}
	if w.Collection().IsBound(5) {
		t.Error("shader 5 still bound after its only entry left")
	}
	if g.releases != 0 {
		t.Error("geometry freed while the occurrence's reference still holds it")
	}
	if dev.Stats().Live != 1 {
		t.Errorf("live lists = %d, want 1 (kept entry only)", dev.Stats().Live)
	}
}

func TestWorldAddKeepsExplicitShaderBinding(t *testing.T) {
	w, dev := newTestWorld()
	w.Collection().BindShader(3)

	a, _ := repOccurrence(dev, 1, "a")
	b, _ := repOccurrence(dev, 2, "b")
	w.AddOccurrence(a, false, 3)
	w.AddOccurrence(b, false, 6)
	c, _ := repOccurrence(dev, 3, "c")
	w.AddOccurrence(c, false, 6)

	w.RemoveOccurrence(b)
	if !w.Collection().IsBound(6) {
		t.Error("shader 6 unbound while an entry still uses it")
	}
	w.RemoveOccurrence(c)
	w.RemoveOccurrence(a)

	if got := w.Collection().Shaders(); !slices.Equal(got, []ShaderID{3}) {
		t.Errorf("shaders = %v, want [3]", got)
	}
}

func TestWorldResyncKeepsTransientShader(t *testing.T) {
	w, dev := newTestWorld()
	occ, _ := repOccurrence(dev, 4, "o")
	w.AddOccurrence(occ, false, 7)

	if err := w.Resync(occ); err != nil {
		t.Fatal(err)
	}
	if w.Collection().ShaderOf(4) != 7 {
		t.Errorf("shader = %d after resync, want 7", w.Collection().ShaderOf(4))
	}
	w.RemoveOccurrence(occ)
	if w.Collection().IsBound(7) {
		t.Error("shader 7 still bound after its only entry left")
	}
}

func TestWorldAddDoesNotSpendIDs(t *testing.T) {
	w, dev := newTestWorld()
	occ, _ := repOccurrence(dev, 500, "o")

	before := idCounter
	if err := w.AddOccurrence(occ, false, 0); err != nil {
		t.Fatal(err)
	}
	if err := w.Resync(occ); err != nil {
		t.Fatal(err)
	}
	if idCounter != before {
		t.Errorf("id counter advanced by %d registering one occurrence", idCounter-before)
	}
	if w.Collection().Instance(500) == nil {
		t.Error("render entry not keyed by the occurrence id")
	}
}

func TestWorldResolvePick(t *testing.T) {
	w, dev := newTestWorld()
	low, _ := repOccurrence(dev, 0x0000ff, "low")
	high, _ := repOccurrence(dev, MaxPickID+0xff, "high")
	w.AddOccurrence(low, false, 0)
	w.AddOccurrence(high, false, 0)

	tests := []struct {
		name string
		id   uint32
		want bool
	}{
		{"registered", 0x0000ff, true},
		{"background", 0, false},
		{"unregistered", 0x123456, false},
		{"above limit", MaxPickID + 0xff, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := w.resolvePick(tt.id)
			if ok != tt.want {
				t.Fatalf("resolvePick(%#x) ok = %v, want %v", tt.id, ok, tt.want)
			}
			if ok && got != tt.id {
				t.Errorf("resolvePick(%#x) = %#x", tt.id, got)
			}
		})
	}
}

func TestWorldAddDuplicateFails(t *testing.T) {
	w, dev := newTestWorld()
	a, _ := repOccurrence(dev, 7, "a")
	b, _ := repOccurrence(dev, 7, "b")

	if err := w.AddOccurrence(a, false, 0); err != nil {
		t.Fatal(err)
	}
	err := w.AddOccurrence(b, true, 0)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("err = %v, want ErrDuplicateID", err)
	}
	var ie *InvariantError
	if !errors.As(err, &ie) || ie.ID != 7 {
		t.Errorf("err = %#v, want *InvariantError for id 7", err)
	}
	if w.Occurrence(7) != Occurrence(a) {
		t.Error("duplicate add overwrote the registered occurrence")
	}
	if w.Collection().Len() != 1 || w.Collection().IsSelected(7) {
		t.Error("duplicate add changed the collection")
	}
}

func TestWorldRemoveUnknownFails(t *testing.T) {
	w, dev := newTestWorld()
	a, _ := repOccurrence(dev, 3, "a")
	if err := w.RemoveOccurrence(a); !errors.Is(err, ErrUnknownID) {
		t.Errorf("err = %v, want ErrUnknownID", err)
	}
	if err := w.RemoveOccurrence(nil); !errors.Is(err, ErrNilOccurrence) {
		t.Errorf("err = %v, want ErrNilOccurrence", err)
	}
	if err := w.AddOccurrence(nil, false, 0); !errors.Is(err, ErrNilOccurrence) {
		t.Errorf("err = %v, want ErrNilOccurrence", err)
	}
}

func TestWorldAddWithoutRepresentation(t *testing.T) {
	w, _ := newTestWorld()
	empty := NewRepOccurrence("group", NewRep("group", ""))
	bare := NewStructOccurrence(nil)

	if err := w.AddOccurrence(empty, true, 2); err != nil {
		t.Fatal(err)
	}
	if err := w.AddOccurrence(bare, false, 0); err != nil {
		t.Fatal(err)
	}
	if w.Len() != 2 || w.Collection().Len() != 0 {
		t.Errorf("len = %d/%d, want 2 registered, 0 rendered", w.Len(), w.Collection().Len())
	}
	if err := w.RemoveOccurrence(empty); err != nil {
		t.Fatal(err)
	}
	if len(w.References()) != 0 {
		t.Errorf("References = %v, want none (bare occurrence has no reference)", w.References())
	}
}

func TestWorldAddNotRenderable(t *testing.T) {
	w, _ := newTestWorld()
	occ := NewRepOccurrence("opaque", opaqueRep{})

	if err := w.AddOccurrence(occ, false, 0); !errors.Is(err, ErrNotRenderable) {
		t.Fatalf("err = %v, want ErrNotRenderable", err)
	}
	if w.Len() != 0 {
		t.Error("failed add registered the occurrence")
	}
}

func TestWorldResync(t *testing.T) {
	w, dev := newTestWorld()
	occ, g := repOccurrence(dev, 20, "part")
	if err := w.AddOccurrence(occ, true, 3); err != nil {
		t.Fatal(err)
	}
	w.Collection().Render(RenderNormal)

	g2 := newFakeGeometry()
	occ.Instance().Reference().SetRepresentation(NewRep3D(dev, "part v2", "", g2))
	if err := w.Resync(occ); err != nil {
		t.Fatal(err)
	}

	c := w.Collection()
	if !c.IsSelected(20) || c.ShaderOf(20) != 3 {
		t.Error("resync lost the selection or shader")
	}
	if c.Instance(20).Nodes()[0].Geometry() != g2 {
		t.Error("entry not rebuilt from the new representation")
	}
	if g.releases != 0 {
		t.Error("old geometry freed while its representation is still held")
	}

	occ.Instance().Reference().SetRepresentation(nil)
	if err := w.Resync(occ); err != nil {
		t.Fatal(err)
	}
	if c.Contains(20) || !w.Contains(20) {
		t.Error("occurrence without representation kept its render entry")
	}
	if err := w.RemoveOccurrence(occ); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 0 || w.Len() != 0 {
		t.Error("world not empty")
	}
}

func TestWorldResyncUnknown(t *testing.T) {
	w, dev := newTestWorld()
	occ, _ := repOccurrence(dev, 21, "x")
	if err := w.Resync(occ); !errors.Is(err, ErrUnknownID) {
		t.Errorf("err = %v, want ErrUnknownID", err)
	}
}

func TestWorldSubtree(t *testing.T) {
	w, dev := newTestWorld()
	root, _ := repOccurrence(dev, 100, "root")
	arm, _ := repOccurrence(dev, 101, "arm")
	hand, _ := repOccurrence(dev, 102, "hand")
	root.AddChild(arm)
	arm.AddChild(hand)

	if err := w.AddSubtree(root, false, 0); err != nil {
		t.Fatal(err)
	}
	if got := w.IDs(); !slices.Equal(got, []uint32{100, 101, 102}) {
		t.Errorf("ids = %v", got)
	}

	arm.RemoveChild(hand)
	if err := w.RemoveSubtree(root); err != nil {
		t.Fatal(err)
	}
	if got := w.IDs(); !slices.Equal(got, []uint32{102}) {
		t.Errorf("ids after remove = %v, want [102]", got)
	}
}

func TestWorldAddSubtreeRollsBack(t *testing.T) {
	w, dev := newTestWorld()
	taken, _ := repOccurrence(dev, 202, "taken")
	w.AddOccurrence(taken, false, 0)

	root, _ := repOccurrence(dev, 200, "root")
	a, _ := repOccurrence(dev, 201, "a")
	dup, _ := repOccurrence(dev, 202, "dup")
	root.AddChild(a)
	root.AddChild(dup)

	if err := w.AddSubtree(root, false, 0); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("err = %v, want ErrDuplicateID", err)
	}
	if got := w.IDs(); !slices.Equal(got, []uint32{202}) {
		t.Errorf("ids = %v, want only the pre-existing one", got)
	}
	if w.Collection().Len() != 1 {
		t.Errorf("collection len = %d, want 1", w.Collection().Len())
	}
}

func TestWorldRemoveSubtreeChecksFirst(t *testing.T) {
	w, dev := newTestWorld()
	root, _ := repOccurrence(dev, 300, "root")
	child, _ := repOccurrence(dev, 301, "child")
	root.AddChild(child)
	w.AddOccurrence(root, false, 0)

	if err := w.RemoveSubtree(root); !errors.Is(err, ErrUnknownID) {
		t.Fatalf("err = %v, want ErrUnknownID", err)
	}
	if !w.Contains(300) {
		t.Error("partial subtree removal")
	}
}

func TestWorldEvents(t *testing.T) {
	w, dev := newTestWorld()
	store := &recordingStore{}
	w.SetEntityStore(store)

	occ, _ := repOccurrence(dev, 40, "evt")
	w.AddOccurrence(occ, false, 0)
	w.Select(40)
	w.Unselect(40)
	w.Resync(occ)
	w.RemoveOccurrence(occ)

	want := []EventType{
		EventOccurrenceAdded, EventSelected, EventUnselected,
		EventResynced, EventOccurrenceRemoved,
	}
	if got := store.types(); !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if e := store.events[1]; !e.Selected || e.ID != 40 || e.Name != "evt" {
		t.Errorf("select event = %+v", e)
	}
	if e := store.events[4]; !e.Rendered {
		t.Errorf("remove event = %+v, want Rendered", e)
	}
}

func TestWorldSelectUnknown(t *testing.T) {
	w, _ := newTestWorld()
	if err := w.Select(999999); !errors.Is(err, ErrUnknownID) {
		t.Errorf("err = %v, want ErrUnknownID", err)
	}
}

func TestWorldSyncTransforms(t *testing.T) {
	w, dev := newTestWorld()
	parent, _ := repOccurrence(dev, 50, "parent")
	child, _ := repOccurrence(dev, 51, "child")
	parent.AddChild(child)
	w.AddSubtree(parent, false, 0)

	parent.SetPosition(1, 0, 0)
	child.SetPosition(0, 2, 0)
	w.SyncTransforms()

	got := w.Collection().Instance(51).Matrix()
	want := mgl32.Translate3D(1, 2, 0)
	if !got.ApproxEqual(want) {
		t.Errorf("child matrix = %v, want %v", got, want)
	}
}

func TestWorldClear(t *testing.T) {
	w, dev := newTestWorld()
	for id := uint32(60); id < 64; id++ {
		occ, _ := repOccurrence(dev, id, "x")
		w.AddOccurrence(occ, id%2 == 0, 0)
	}
	w.Collection().Render(RenderNormal)
	w.Clear()
	if w.Len() != 0 || w.Collection().Len() != 0 {
		t.Error("Clear left entries")
	}
	if dev.Stats().Live != 0 {
		t.Errorf("live lists = %d, want 0", dev.Stats().Live)
	}
}

func TestWorldDebugConsistency(t *testing.T) {
	w, dev := newTestWorld()
	w.SetDebugMode(true)
	defer w.SetDebugMode(false)

	occ, _ := repOccurrence(dev, 70, "dbg")
	if err := w.AddOccurrence(occ, false, 0); err != nil {
		t.Fatal(err)
	}
	if err := w.Resync(occ); err != nil {
		t.Fatal(err)
	}
	if err := w.RemoveOccurrence(occ); err != nil {
		t.Fatal(err)
	}
}

func TestWorldDebugConsistencyDetectsDrift(t *testing.T) {
	tests := []struct {
		name  string
		drift func(w *World, id uint32)
	}{
		{"missing entry", func(w *World, id uint32) { w.Collection().Remove(id) }},
		{"stray entry", func(w *World, id uint32) {
			inst, _ := newTestInstance(w.Device())
			inst.SetID(id + 1)
			w.Collection().Add(inst, 0)
		}},
		{"entry for plain occurrence", func(w *World, id uint32) {
			plain := NewStructOccurrence(nil)
			plain.SetID(id + 2)
			w.AddOccurrence(plain, false, 0)
			inst, _ := newTestInstance(w.Device())
			inst.SetID(id + 2)
			w.Collection().Add(inst, 0)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, dev := newTestWorld()
			occ, _ := repOccurrence(dev, 90, "o")
			w.AddOccurrence(occ, false, 0)
			w.debugCheckConsistency("setup")

			tt.drift(w, 90)
			expectPanic(t, tt.name, func() { w.debugCheckConsistency("drift") })
		})
	}
}
