package grove

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// Collection is the set of renderable instances keyed by id, with a
// selection set and shader groups. The collection owns its instances:
// Remove and Clear release them.
//
// Collection is not safe for concurrent use; Render must run on the
// goroutine owning the device.
type Collection struct {
	dev       Device
	instances map[uint32]*ViewInstance
	shaderOf  map[uint32]ShaderID
	groups    map[ShaderID]map[uint32]struct{}
	selected  map[uint32]struct{}
	// Groups created by bindTransient, dropped once they empty.
	transient map[ShaderID]struct{}

	// Reusable render buffer.
	order []uint32
}

// NewCollection creates an empty collection rendering through dev.
func NewCollection(dev Device) *Collection {
	return &Collection{
		dev:       dev,
		instances: make(map[uint32]*ViewInstance),
		shaderOf:  make(map[uint32]ShaderID),
		groups:    make(map[ShaderID]map[uint32]struct{}),
		selected:  make(map[uint32]struct{}),
		transient: make(map[ShaderID]struct{}),
	}
}

// Device returns the device the collection renders through.
func (c *Collection) Device() Device {
	return c.dev
}

// Add inserts inst under its id. A non-zero shader must have been bound
// with BindShader. On error the collection is unchanged and the caller
// keeps ownership of inst.
func (c *Collection) Add(inst *ViewInstance, shader ShaderID) error {
	if inst == nil {
		return invariant("add", 0, ErrNilInstance)
	}
	id := inst.ID()
	if _, ok := c.instances[id]; ok {
		return invariant("add", id, ErrDuplicateID)
	}
	if shader != 0 {
		g, ok := c.groups[shader]
		if !ok {
			return invariant("add", id, ErrShaderNotBound)
		}
		g[id] = struct{}{}
		c.shaderOf[id] = shader
	}
	c.instances[id] = inst
	instrumentInstanceAdded()
	return nil
}

// Remove drops the instance with the given id together with its selection
// and shader associations, and releases it.
func (c *Collection) Remove(id uint32) error {
	inst, ok := c.detach(id)
	if !ok {
		return invariant("remove", id, ErrUnknownID)
	}
	inst.Release()
	return nil
}

// detach removes id from every index without releasing the instance.
func (c *Collection) detach(id uint32) (*ViewInstance, bool) {
	inst, ok := c.instances[id]
	if !ok {
		return nil, false
	}
	delete(c.instances, id)
	delete(c.selected, id)
	if s, ok := c.shaderOf[id]; ok {
		delete(c.groups[s], id)
		delete(c.shaderOf, id)
		c.dropEmptyTransient(s)
	}
	instrumentInstanceRemoved()
	return inst, true
}

// Instance returns the instance with the given id, or nil.
func (c *Collection) Instance(id uint32) *ViewInstance {
	return c.instances[id]
}

// Contains reports whether an instance with the given id is present.
func (c *Collection) Contains(id uint32) bool {
	_, ok := c.instances[id]
	return ok
}

// Len returns the number of instances.
func (c *Collection) Len() int {
	return len(c.instances)
}

// IDs returns the instance ids in ascending order.
func (c *Collection) IDs() []uint32 {
	return sortedKeys(c.instances)
}

// Select marks the instance selected.
func (c *Collection) Select(id uint32) error {
	if !c.Contains(id) {
		return invariant("select", id, ErrUnknownID)
	}
	c.selected[id] = struct{}{}
	return nil
}

// Unselect clears the instance's selection mark.
func (c *Collection) Unselect(id uint32) error {
	if !c.Contains(id) {
		return invariant("unselect", id, ErrUnknownID)
	}
	delete(c.selected, id)
	return nil
}

// UnselectAll clears the selection.
func (c *Collection) UnselectAll() {
	clear(c.selected)
}

// IsSelected reports whether the instance is selected.
func (c *Collection) IsSelected(id uint32) bool {
	_, ok := c.selected[id]
	return ok
}

// Selected returns the selected ids in ascending order.
func (c *Collection) Selected() []uint32 {
	return sortedKeys(c.selected)
}

// SelectionSize returns the number of selected instances.
func (c *Collection) SelectionSize() int {
	return len(c.selected)
}

// BindShader registers shader as a group instances can be added under. It
// is bookkeeping only. Binding twice, or binding 0, does nothing. A group
// bound here stays bound until UnbindShader, even while empty.
func (c *Collection) BindShader(shader ShaderID) {
	if shader == 0 {
		return
	}
	delete(c.transient, shader)
	if _, ok := c.groups[shader]; !ok {
		c.groups[shader] = make(map[uint32]struct{})
	}
}

// bindTransient binds shader for an entry added on the fly. A group it
// creates is dropped when its last instance leaves.
func (c *Collection) bindTransient(shader ShaderID) {
	if shader == 0 {
		return
	}
	if _, ok := c.groups[shader]; ok {
		return
	}
	c.groups[shader] = make(map[uint32]struct{})
	c.transient[shader] = struct{}{}
}

// dropEmptyTransient undoes a bindTransient that no instance joined.
func (c *Collection) dropEmptyTransient(shader ShaderID) {
	if _, ok := c.transient[shader]; ok && len(c.groups[shader]) == 0 {
		delete(c.groups, shader)
		delete(c.transient, shader)
	}
}

// UnbindShader removes a shader group. Its instances move to the default
// group.
func (c *Collection) UnbindShader(shader ShaderID) error {
	g, ok := c.groups[shader]
	if !ok {
		return invariant("unbind shader", uint32(shader), ErrShaderNotBound)
	}
	for id := range g {
		delete(c.shaderOf, id)
	}
	delete(c.groups, shader)
	delete(c.transient, shader)
	return nil
}

// IsBound reports whether shader has been bound.
func (c *Collection) IsBound(shader ShaderID) bool {
	_, ok := c.groups[shader]
	return ok
}

// ShaderOf returns the shader the instance was added under, or 0.
func (c *Collection) ShaderOf(id uint32) ShaderID {
	return c.shaderOf[id]
}

// Shaders returns the bound shaders in ascending order.
func (c *Collection) Shaders() []ShaderID {
	return sortedKeys(c.groups)
}

// Clear removes and releases every instance. Shaders bound with BindShader
// stay bound.
func (c *Collection) Clear() {
	for _, id := range c.IDs() {
		inst, _ := c.detach(id)
		inst.Release()
	}
}

// Render draws the visible instances and returns how many were drawn.
// Unselected instances of the default group go first, then each shader
// group under its shader, then the selected instances in RenderSelected
// mode. In RenderPicking mode every instance is drawn once with the
// default program and selection is ignored.
func (c *Collection) Render(mode RenderMode) int {
	if c.dev == nil || len(c.instances) == 0 {
		return 0
	}
	drawn := 0

	if mode == RenderPicking {
		c.dev.UseShader(0)
		c.order = appendSortedKeys(c.order[:0], c.instances)
		for _, id := range c.order {
			drawn += c.renderOne(id, RenderPicking)
		}
		return drawn
	}

	c.dev.UseShader(0)
	c.order = appendSortedKeys(c.order[:0], c.instances)
	for _, id := range c.order {
		if c.shaderOf[id] != 0 || c.IsSelected(id) {
			continue
		}
		drawn += c.renderOne(id, mode)
	}

	for _, s := range c.Shaders() {
		c.order = appendSortedKeys(c.order[:0], c.groups[s])
		if len(c.order) == 0 {
			continue
		}
		c.dev.UseShader(s)
		for _, id := range c.order {
			if c.IsSelected(id) {
				continue
			}
			drawn += c.renderOne(id, mode)
		}
	}

	if len(c.selected) > 0 {
		c.order = appendSortedKeys(c.order[:0], c.selected)
		for _, id := range c.order {
			c.dev.UseShader(c.shaderOf[id])
			drawn += c.renderOne(id, RenderSelected)
		}
	}
	c.dev.UseShader(0)

	if globalDebug {
		Logger().Debug("grove: collection rendered", "drawn", drawn, "instances", len(c.instances))
	}
	return drawn
}

func (c *Collection) renderOne(id uint32, mode RenderMode) int {
	inst := c.instances[id]
	if inst == nil || !inst.Visible {
		return 0
	}
	inst.Render(mode)
	return 1
}

// SetMatrix sets the model matrix of the instance with the given id.
func (c *Collection) SetMatrix(id uint32, m mgl32.Mat4) error {
	inst := c.instances[id]
	if inst == nil {
		return invariant("set matrix", id, ErrUnknownID)
	}
	inst.SetMatrix(m)
	return nil
}

// BoundingBox returns the union of the visible instances' boxes.
func (c *Collection) BoundingBox() BoundingBox {
	box := NullBoundingBox()
	for _, inst := range c.instances {
		if inst.Visible {
			box = box.Union(inst.BoundingBox())
		}
	}
	return box
}

func sortedKeys[K ~uint16 | ~uint32, V any](m map[K]V) []K {
	return appendSortedKeys(make([]K, 0, len(m)), m)
}

func appendSortedKeys[K ~uint16 | ~uint32, V any](dst []K, m map[K]V) []K {
	for k := range m {
		dst = append(dst, k)
	}
	slices.Sort(dst)
	return dst
}
