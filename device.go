package grove

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
)

// Device is the GPU context seen by the scene core. Every display list
// allocation, recording, replay and release goes through it, so a headless
// device can stand in for a real one.
//
// Devices are not safe for concurrent use. All calls must happen on the
// goroutine that owns the graphics context (the Ebitengine loop).
type Device interface {
	// GenList allocates an empty display list.
	GenList() *DisplayList
	// NewList starts (re)recording l, discarding its previous commands.
	NewList(l *DisplayList, mode RenderMode)
	// EndList closes the recording scope opened by NewList.
	EndList(l *DisplayList)
	// CallList replays l with the current instance state.
	CallList(l *DisplayList)
	// DeleteList releases l. The handle must not be used afterwards.
	DeleteList(l *DisplayList)
	// UseShader selects the shading program for subsequent replays.
	UseShader(id ShaderID)
	// SetInstance sets the id, model matrix and pass for subsequent replays.
	SetInstance(id uint32, model mgl32.Mat4, mode RenderMode)
}

// drawCommand is one recorded DrawTriangles call.
type drawCommand struct {
	vertices []Vertex
	indices  []uint16
	texture  *ebiten.Image
}

// DisplayList is a compiled draw-command cache: the draw calls recorded
// between Device.NewList and Device.EndList, replayed by Device.CallList.
// A nil *DisplayList means no list has been allocated.
type DisplayList struct {
	id        uint32
	commands  []drawCommand
	recording bool
	deleted   bool
}

// ID returns the device-assigned list id. Ids start at 1.
func (l *DisplayList) ID() uint32 {
	return l.id
}

// Len returns the number of recorded draw calls.
func (l *DisplayList) Len() int {
	return len(l.commands)
}

// Triangles returns the number of recorded triangles.
func (l *DisplayList) Triangles() int {
	n := 0
	for i := range l.commands {
		n += len(l.commands[i].indices) / 3
	}
	return n
}

// IsDeleted reports whether the list has been released by its device.
func (l *DisplayList) IsDeleted() bool {
	return l.deleted
}

// DrawTriangles records an indexed triangle list. Panics if the list is not
// being recorded.
func (l *DisplayList) DrawTriangles(vertices []Vertex, indices []uint16, texture *ebiten.Image) {
	if !l.recording {
		panic("grove: DrawTriangles outside a NewList/EndList scope")
	}
	if len(vertices) == 0 || len(indices) < 3 {
		return
	}
	cmd := drawCommand{
		vertices: make([]Vertex, len(vertices)),
		indices:  make([]uint16, len(indices)),
		texture:  texture,
	}
	copy(cmd.vertices, vertices)
	copy(cmd.indices, indices)
	l.commands = append(l.commands, cmd)
}

// listBook does the list bookkeeping shared by device implementations.
type listBook struct {
	nextID uint32
	live   map[uint32]*DisplayList
	stats  DeviceStats
}

// DeviceStats counts display list traffic on a device.
type DeviceStats struct {
	Generated int // lists allocated
	Deleted   int // lists released
	Live      int // lists allocated and not yet released
	Recorded  int // NewList/EndList scopes completed
	Replayed  int // CallList invocations
}

func (b *listBook) gen() *DisplayList {
	if b.live == nil {
		b.live = make(map[uint32]*DisplayList)
	}
	b.nextID++
	l := &DisplayList{id: b.nextID}
	b.live[l.id] = l
	b.stats.Generated++
	b.stats.Live = len(b.live)
	instrumentListAllocated()
	return l
}

func (b *listBook) begin(l *DisplayList) {
	b.mustOwn(l, "NewList")
	if l.recording {
		panic("grove: NewList on a list that is already recording")
	}
	l.commands = l.commands[:0]
	l.recording = true
}

func (b *listBook) end(l *DisplayList) {
	b.mustOwn(l, "EndList")
	if !l.recording {
		panic("grove: EndList without NewList")
	}
	l.recording = false
	b.stats.Recorded++
}

func (b *listBook) call(l *DisplayList) {
	b.mustOwn(l, "CallList")
	b.stats.Replayed++
}

func (b *listBook) delete(l *DisplayList) {
	b.mustOwn(l, "DeleteList")
	delete(b.live, l.id)
	l.deleted = true
	l.recording = false
	l.commands = nil
	b.stats.Deleted++
	b.stats.Live = len(b.live)
	instrumentListReleased()
}

// mustOwn panics when l is nil, deleted, or belongs to another device.
func (b *listBook) mustOwn(l *DisplayList, op string) {
	if l == nil {
		panic("grove: " + op + " on a nil display list")
	}
	if l.deleted {
		panic("grove: " + op + " on a deleted display list")
	}
	if b.live[l.id] != l {
		panic("grove: " + op + " on a display list from another device")
	}
}

// HeadlessDevice records display lists without drawing anything. It is
// the device for tools that never render (exporters, pickers on a server)
// and for tests.
type HeadlessDevice struct {
	book   listBook
	shader ShaderID
	id     uint32
	model  mgl32.Mat4
	mode   RenderMode

	// Calls logs the instance id of every list execution, in order. A list
	// executes when its recording ends and on each CallList. Nil unless
	// TrackCalls was set before rendering.
	Calls      []uint32
	TrackCalls bool
}

// NewHeadlessDevice creates a headless device.
func NewHeadlessDevice() *HeadlessDevice {
	return &HeadlessDevice{model: mgl32.Ident4()}
}

func (d *HeadlessDevice) GenList() *DisplayList                   { return d.book.gen() }
func (d *HeadlessDevice) NewList(l *DisplayList, mode RenderMode) { d.book.begin(l) }
func (d *HeadlessDevice) DeleteList(l *DisplayList)               { d.book.delete(l) }
func (d *HeadlessDevice) UseShader(id ShaderID)                   { d.shader = id }

// EndList closes the recording; a freshly recorded list counts as executed.
func (d *HeadlessDevice) EndList(l *DisplayList) {
	d.book.end(l)
	if d.TrackCalls {
		d.Calls = append(d.Calls, d.id)
	}
}

// CallList counts the replay; nothing is drawn.
func (d *HeadlessDevice) CallList(l *DisplayList) {
	d.book.call(l)
	if d.TrackCalls {
		d.Calls = append(d.Calls, d.id)
	}
}

// SetInstance stores the instance state for inspection.
func (d *HeadlessDevice) SetInstance(id uint32, model mgl32.Mat4, mode RenderMode) {
	d.id = id
	d.model = model
	d.mode = mode
}

// Stats returns the list counters.
func (d *HeadlessDevice) Stats() DeviceStats {
	return d.book.stats
}

// Shader returns the currently selected shader.
func (d *HeadlessDevice) Shader() ShaderID {
	return d.shader
}

// Mode returns the pass set by the last SetInstance.
func (d *HeadlessDevice) Mode() RenderMode {
	return d.mode
}
