package grove

import (
	"image"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tanema/gween/ease"
)

// EntityStore is the interface for optional ECS integration.
// When set on a World, registry events are forwarded to the ECS.
type EntityStore interface {
	EmitEvent(event WorldEvent)
}

// WorldEvent carries a registry change for the ECS bridge.
type WorldEvent struct {
	Type     EventType
	ID       uint32
	Name     string
	Selected bool
	Shader   ShaderID
	// Rendered is true when the occurrence has a render entry.
	Rendered bool
}

// frameBeginner is implemented by devices that draw into an image.
type frameBeginner interface {
	BeginFrame(target *ebiten.Image, view, proj mgl32.Mat4)
}

// frameStater is implemented by devices that count per-frame work.
type frameStater interface {
	FrameStats() FrameStats
}

// World maps occurrence ids to structural occurrences and keeps the render
// collection in step with them. Every registration that carries a
// renderable representation owns exactly one collection entry under the
// occurrence's id; the two maps are only changed together.
//
// World is not safe for concurrent use.
type World struct {
	// ClearColor fills the viewport before drawing. Zero leaves it as is.
	ClearColor Color
	// Camera views the world. Nil draws with identity matrices.
	Camera *Camera
	// ScreenshotDir is where Screenshot writes its files. Empty uses
	// "screenshots".
	ScreenshotDir string

	dev         Device
	collection  *Collection
	occurrences map[uint32]Occurrence
	rendered    map[uint32]struct{}
	store       EntityStore
	tweens      []*TweenGroup
	updateFunc  func() error
	debug       bool

	pickBuf         *ebiten.Image
	lastBounds      image.Rectangle
	screenshotQueue []string
}

// NewWorld creates an empty world rendering through dev.
func NewWorld(dev Device) *World {
	return &World{
		Camera:        NewCamera(Rect{}),
		ScreenshotDir: "screenshots",
		dev:           dev,
		collection:    NewCollection(dev),
		occurrences:   make(map[uint32]Occurrence),
		rendered:      make(map[uint32]struct{}),
	}
}

// Device returns the world's device.
func (w *World) Device() Device {
	return w.dev
}

// Collection returns the render collection. Adding or removing entries
// directly desynchronizes it from the registry; use the World methods.
func (w *World) Collection() *Collection {
	return w.collection
}

// SetEntityStore sets the optional ECS bridge.
func (w *World) SetEntityStore(store EntityStore) {
	w.store = store
}

// SetUpdateFunc sets a function Run calls once per tick before
// World.Update. Returning an error stops the loop.
func (w *World) SetUpdateFunc(fn func() error) {
	w.updateFunc = fn
}

// --- Registration ---

// AddOccurrence registers occ. When occ carries a representation a render
// entry is derived from it under occ's id, added under shader (bound on the
// fly when non-zero and unbound again with its last entry) and selected if
// asked. Either everything is registered
// or, on error, nothing is.
func (w *World) AddOccurrence(occ Occurrence, selected bool, shader ShaderID) error {
	if occ == nil {
		return invariant("add occurrence", 0, ErrNilOccurrence)
	}
	id := occ.ID()
	if _, ok := w.occurrences[id]; ok {
		return invariant("add occurrence", id, ErrDuplicateID)
	}

	var rep *Rep3D
	if occ.HasRepresentation() {
		r, err := renderable("add occurrence", occ)
		if err != nil {
			return err
		}
		if w.collection.Contains(id) {
			return invariant("add occurrence", id, ErrDuplicateID)
		}
		rep = r
	}

	w.occurrences[id] = occ
	if rep != nil {
		if err := w.addRenderEntry(occ, rep, selected, shader); err != nil {
			delete(w.occurrences, id)
			return err
		}
		w.rendered[id] = struct{}{}
	}
	setRemoved(occ, false)
	instrumentOccurrenceAdded()

	if globalDebug {
		Logger().Debug("grove: occurrence added", "id", id, "name", occ.Name(), "rendered", rep != nil)
	}
	if w.debug {
		w.debugCheckConsistency("AddOccurrence")
	}
	w.emit(EventOccurrenceAdded, occ)
	return nil
}

func setRemoved(occ Occurrence, removed bool) {
	if so, ok := occ.(*StructOccurrence); ok {
		so.removed = removed
	}
}

// renderable returns the Rep3D behind occ's reference.
func renderable(op string, occ Occurrence) (*Rep3D, error) {
	ref := occ.StructReference()
	if ref == nil {
		return nil, invariant(op, occ.ID(), ErrNotRenderable)
	}
	rep, ok := ref.RepresentationHandle().(*Rep3D)
	if !ok || rep == nil || rep.IsReleased() {
		return nil, invariant(op, occ.ID(), ErrNotRenderable)
	}
	return rep, nil
}

// addRenderEntry derives an instance from rep and inserts it. On error the
// collection is unchanged.
func (w *World) addRenderEntry(occ Occurrence, rep *Rep3D, selected bool, shader ShaderID) error {
	return w.insert(w.newRenderInstance(occ, rep), selected, shader)
}

// newRenderInstance derives the render entry of occ, keyed by occ's id.
func (w *World) newRenderInstance(occ Occurrence, rep *Rep3D) *ViewInstance {
	inst := newViewInstance(rep, occ.ID())
	if wm, ok := occ.(WorldMatrixer); ok {
		inst.SetMatrix(wm.WorldMatrix())
	}
	return inst
}

// insert adds inst under shader, binding it first if needed. A binding made
// here goes away with the group's last entry. On error inst is released and
// the collection is unchanged.
func (w *World) insert(inst *ViewInstance, selected bool, shader ShaderID) error {
	w.collection.bindTransient(shader)
	if err := w.collection.Add(inst, shader); err != nil {
		w.collection.dropEmptyTransient(shader)
		inst.Release()
		return err
	}
	if selected {
		// Cannot fail: the id was just added.
		_ = w.collection.Select(inst.ID())
	}
	return nil
}

// RemoveOccurrence unregisters occ and drops the render entry created when
// it was registered, whatever occ's representation is now.
func (w *World) RemoveOccurrence(occ Occurrence) error {
	if occ == nil {
		return invariant("remove occurrence", 0, ErrNilOccurrence)
	}
	return w.RemoveID(occ.ID())
}

// RemoveID unregisters the occurrence with the given id.
func (w *World) RemoveID(id uint32) error {
	occ, ok := w.occurrences[id]
	if !ok {
		return invariant("remove occurrence", id, ErrUnknownID)
	}
	_, rendered := w.rendered[id]
	if rendered {
		// Cannot fail: the entry was made with the registration.
		_ = w.collection.Remove(id)
	}
	delete(w.occurrences, id)
	delete(w.rendered, id)
	setRemoved(occ, true)
	instrumentOccurrenceRemoved()

	if globalDebug {
		Logger().Debug("grove: occurrence removed", "id", id, "rendered", rendered)
	}
	if w.debug {
		w.debugCheckConsistency("RemoveOccurrence")
	}
	w.emitEvent(WorldEvent{Type: EventOccurrenceRemoved, ID: id, Name: occ.Name(), Rendered: rendered})
	return nil
}

// Resync rebuilds occ's render entry from its current representation,
// keeping its selection and shader. Call it after changing the
// representation of a registered occurrence. An occurrence that lost its
// representation loses its render entry; one that gained one gets an entry.
func (w *World) Resync(occ Occurrence) error {
	if occ == nil {
		return invariant("resync", 0, ErrNilOccurrence)
	}
	id := occ.ID()
	if _, ok := w.occurrences[id]; !ok {
		return invariant("resync", id, ErrUnknownID)
	}

	var rep *Rep3D
	if occ.HasRepresentation() {
		r, err := renderable("resync", occ)
		if err != nil {
			return err
		}
		rep = r
	}

	selected := w.collection.IsSelected(id)
	shader := w.collection.ShaderOf(id)
	var inst *ViewInstance
	if rep != nil {
		inst = w.newRenderInstance(occ, rep)
	}
	if _, ok := w.rendered[id]; ok {
		_ = w.collection.Remove(id)
		delete(w.rendered, id)
	}
	w.occurrences[id] = occ
	if inst != nil {
		if err := w.insert(inst, selected, shader); err != nil {
			return err
		}
		w.rendered[id] = struct{}{}
	}

	if w.debug {
		w.debugCheckConsistency("Resync")
	}
	w.emit(EventResynced, occ)
	return nil
}

// AddSubtree registers root and all its descendants, parents first. If any
// registration fails, the ones already made are undone and the error is
// returned.
func (w *World) AddSubtree(root *StructOccurrence, selected bool, shader ShaderID) error {
	if root == nil {
		return invariant("add subtree", 0, ErrNilOccurrence)
	}
	var added []uint32
	var failed error
	root.Walk(func(o *StructOccurrence) bool {
		if failed != nil {
			return false
		}
		if err := w.AddOccurrence(o, selected, shader); err != nil {
			failed = err
			return false
		}
		added = append(added, o.ID())
		return true
	})
	if failed != nil {
		for i := len(added) - 1; i >= 0; i-- {
			_ = w.RemoveID(added[i])
		}
		return failed
	}
	return nil
}

// RemoveSubtree unregisters root and all its descendants. Nothing is removed
// unless every occurrence of the tree is registered.
func (w *World) RemoveSubtree(root *StructOccurrence) error {
	if root == nil {
		return invariant("remove subtree", 0, ErrNilOccurrence)
	}
	var ids []uint32
	var missing error
	root.Walk(func(o *StructOccurrence) bool {
		if missing != nil {
			return false
		}
		if !w.Contains(o.ID()) {
			missing = invariant("remove subtree", o.ID(), ErrUnknownID)
			return false
		}
		ids = append(ids, o.ID())
		return true
	})
	if missing != nil {
		return missing
	}
	for i := len(ids) - 1; i >= 0; i-- {
		_ = w.RemoveID(ids[i])
	}
	return nil
}

// Clear unregisters every occurrence.
func (w *World) Clear() {
	for _, id := range sortedKeys(w.occurrences) {
		_ = w.RemoveID(id)
	}
}

// --- Queries ---

// Occurrence returns the registered occurrence with the given id, or nil.
func (w *World) Occurrence(id uint32) Occurrence {
	return w.occurrences[id]
}

// Contains reports whether an occurrence with the given id is registered.
func (w *World) Contains(id uint32) bool {
	_, ok := w.occurrences[id]
	return ok
}

// Len returns the number of registered occurrences.
func (w *World) Len() int {
	return len(w.occurrences)
}

// IDs returns the registered ids in ascending order.
func (w *World) IDs() []uint32 {
	return sortedKeys(w.occurrences)
}

// Instances returns the distinct structural instances of the registered
// occurrences, in ascending order of the first occurrence using each.
// Instance implementations must be comparable.
func (w *World) Instances() []Instance {
	seen := make(map[Instance]struct{})
	var out []Instance
	for _, id := range sortedKeys(w.occurrences) {
		inst := w.occurrences[id].StructInstance()
		if inst == nil {
			continue
		}
		if _, ok := seen[inst]; ok {
			continue
		}
		seen[inst] = struct{}{}
		out = append(out, inst)
	}
	return out
}

// References returns the distinct structural references of the registered
// occurrences, in ascending order of the first occurrence using each.
// Reference implementations must be comparable.
func (w *World) References() []Reference {
	seen := make(map[Reference]struct{})
	var out []Reference
	for _, id := range sortedKeys(w.occurrences) {
		ref := w.occurrences[id].StructReference()
		if ref == nil {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// BoundingBox returns the world-space box of the visible render entries.
func (w *World) BoundingBox() BoundingBox {
	return w.collection.BoundingBox()
}

// --- Selection ---

// Select marks the occurrence's render entry selected.
func (w *World) Select(id uint32) error {
	if err := w.collection.Select(id); err != nil {
		return err
	}
	if globalDebug {
		Logger().Debug("grove: selected", "id", id)
	}
	w.emit(EventSelected, w.occurrences[id])
	return nil
}

// Unselect clears the selection mark of the occurrence's render entry.
func (w *World) Unselect(id uint32) error {
	if err := w.collection.Unselect(id); err != nil {
		return err
	}
	w.emit(EventUnselected, w.occurrences[id])
	return nil
}

// UnselectAll clears the selection.
func (w *World) UnselectAll() {
	for _, id := range w.collection.Selected() {
		_ = w.Unselect(id)
	}
}

// --- Frame ---

// AddTween registers a tween advanced by Update until it is done.
func (w *World) AddTween(g *TweenGroup) {
	if g != nil {
		w.tweens = append(w.tweens, g)
	}
}

// SyncTransforms copies the world matrix of every rendered occurrence that
// knows one into its render entry.
func (w *World) SyncTransforms() {
	for id, occ := range w.occurrences {
		wm, ok := occ.(WorldMatrixer)
		if !ok {
			continue
		}
		if inst := w.collection.Instance(id); inst != nil {
			inst.SetMatrix(wm.WorldMatrix())
		}
	}
}

// Update advances tweens and the camera by dt seconds and syncs transforms.
func (w *World) Update(dt float32) {
	live := w.tweens[:0]
	for _, g := range w.tweens {
		g.Update(dt)
		if !g.Done {
			live = append(live, g)
		}
	}
	clear(w.tweens[len(live):])
	w.tweens = live

	if w.Camera != nil {
		w.Camera.Update(dt)
	}
	w.SyncTransforms()
}

// Frame animates the camera so every visible render entry is in view.
func (w *World) Frame(duration float32, fn ease.TweenFunc) {
	if w.Camera == nil {
		return
	}
	w.Camera.Frame(w.BoundingBox(), duration, fn)
}

// Draw renders the world onto screen through the camera's viewport.
func (w *World) Draw(screen *ebiten.Image) {
	w.lastBounds = screen.Bounds()
	w.drawMode(screen, RenderNormal)
	w.flushScreenshots(screen)
}

func (w *World) drawMode(screen *ebiten.Image, mode RenderMode) int {
	var stats debugStats
	var t0 time.Time
	if w.debug {
		t0 = time.Now()
	}

	target := w.viewportImage(screen)
	if mode == RenderNormal && w.ClearColor != (Color{}) {
		target.Fill(w.ClearColor.toRGBA())
	}
	if fb, ok := w.dev.(frameBeginner); ok {
		view, proj := w.matrices(target)
		fb.BeginFrame(target, view, proj)
	}

	if w.debug {
		stats.syncTime = time.Since(t0)
		t0 = time.Now()
	}

	drawn := w.collection.Render(mode)

	if w.debug {
		stats.renderTime = time.Since(t0)
		stats.instances = w.collection.Len()
		stats.drawn = drawn
		if fs, ok := w.dev.(frameStater); ok {
			f := fs.FrameStats()
			stats.drawCalls, stats.triangles, stats.culled = f.DrawCalls, f.Triangles, f.Culled
		}
		if hd, ok := w.dev.(interface{ Stats() DeviceStats }); ok {
			stats.listsLive = hd.Stats().Live
		}
		w.debugLog(stats)
	}
	return drawn
}

// Pick renders the world in picking mode into an offscreen buffer the size
// of the last drawn screen and returns the id of the render entry under
// (x, y). It must run inside the Ebitengine loop, where pixels can be read
// back, after the first Draw.
//
// The picking pass encodes ids in the RGB channels and needs alpha opaque,
// so only ids up to MaxPickID can be told apart. Entries with larger ids
// are reported as a miss.
func (w *World) Pick(x, y int) (uint32, bool) {
	b := w.lastBounds
	if b.Empty() || !image.Pt(x, y).In(b) {
		return 0, false
	}
	if w.pickBuf == nil || w.pickBuf.Bounds() != b {
		if w.pickBuf != nil {
			w.pickBuf.Deallocate()
		}
		w.pickBuf = ebiten.NewImageWithOptions(b, nil)
	}
	w.pickBuf.Clear()
	w.drawMode(w.pickBuf, RenderPicking)

	r, g, bl, a := w.pickBuf.At(x, y).RGBA()
	if a == 0 {
		return 0, false
	}
	return w.resolvePick(ColorID(rgba8(r, g, bl, a)))
}

// resolvePick maps a decoded picking color back to a render entry.
func (w *World) resolvePick(id uint32) (uint32, bool) {
	if id == 0 || id > MaxPickID || !w.collection.Contains(id) {
		return 0, false
	}
	return id, true
}

// viewportImage returns the part of screen the camera renders into.
func (w *World) viewportImage(screen *ebiten.Image) *ebiten.Image {
	if w.Camera == nil || w.Camera.Viewport.Width <= 0 || w.Camera.Viewport.Height <= 0 {
		return screen
	}
	vp := w.Camera.Viewport
	return screen.SubImage(image.Rect(
		int(vp.X), int(vp.Y),
		int(vp.X+vp.Width), int(vp.Y+vp.Height),
	)).(*ebiten.Image)
}

// matrices returns the camera's view and projection for target.
func (w *World) matrices(target *ebiten.Image) (view, proj mgl32.Mat4) {
	if w.Camera == nil {
		return mgl32.Ident4(), mgl32.Ident4()
	}
	b := target.Bounds()
	aspect := float32(1)
	if b.Dy() > 0 {
		aspect = float32(b.Dx()) / float32(b.Dy())
	}
	return w.Camera.ViewMatrix(), w.Camera.projection(aspect)
}

// --- Events ---

func (w *World) emit(t EventType, occ Occurrence) {
	if w.store == nil || occ == nil {
		return
	}
	id := occ.ID()
	w.store.EmitEvent(WorldEvent{
		Type:     t,
		ID:       id,
		Name:     occ.Name(),
		Selected: w.collection.IsSelected(id),
		Shader:   w.collection.ShaderOf(id),
		Rendered: w.collection.Contains(id),
	})
}

func (w *World) emitEvent(e WorldEvent) {
	if w.store != nil {
		w.store.EmitEvent(e)
	}
}
