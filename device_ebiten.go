package grove

import (
	"fmt"
	"image"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
)

// DeviceConfig configures an EbitenDevice.
type DeviceConfig struct {
	// SelectionColor tints instances drawn in RenderSelected mode.
	// Zero uses DefaultSelectionColor.
	SelectionColor Color
	// LightDirection is the direction light travels in world space. Zero
	// disables shading.
	LightDirection mgl32.Vec3
	// Ambient is the light level of faces turned away from the light, in
	// [0, 1].
	Ambient float32
	// Filter is the texture filter used when sampling mesh textures.
	Filter ebiten.Filter
}

// ToonShaderSrc is a Kage shader that quantizes lit colors into bands.
// Register it with EbitenDevice.RegisterShader to use it.
const ToonShaderSrc = `//kage:unit pixels
package main

var Bands float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src) * color
	if c.a == 0 {
		return c
	}
	n := Bands
	if n < 1 {
		n = 4
	}
	rgb := floor(c.rgb/c.a*n+0.5) / n
	return vec4(rgb*c.a, c.a)
}
`

// EbitenDevice replays display lists onto an Ebitengine image. Vertices are
// projected on the CPU with the frame's view and projection matrices and the
// instance's model matrix; triangles of each draw call are sorted back to
// front, since Ebitengine has no depth buffer.
type EbitenDevice struct {
	Config DeviceConfig

	book    listBook
	shaders map[ShaderID]*ebiten.Shader
	shader  ShaderID

	target   *ebiten.Image
	viewProj mgl32.Mat4
	id       uint32
	model    mgl32.Mat4
	mode     RenderMode

	// Reusable buffers.
	verts  []ebiten.Vertex
	inds   []uint16
	tris   []sortedTriangle
	depth  []float32
	behind []bool

	triOp    ebiten.DrawTrianglesOptions
	shaderOp ebiten.DrawTrianglesShaderOptions
	uniforms map[string]any

	frame FrameStats
}

// FrameStats counts the work done by an EbitenDevice since BeginFrame.
type FrameStats struct {
	DrawCalls int
	Triangles int
	Culled    int
}

type sortedTriangle struct {
	depth float32
	i0    uint16
	i1    uint16
	i2    uint16
}

// NewEbitenDevice creates a device with the given configuration.
func NewEbitenDevice(cfg DeviceConfig) *EbitenDevice {
	if cfg.SelectionColor == (Color{}) {
		cfg.SelectionColor = DefaultSelectionColor
	}
	return &EbitenDevice{
		Config:   cfg,
		shaders:  make(map[ShaderID]*ebiten.Shader),
		viewProj: mgl32.Ident4(),
		model:    mgl32.Ident4(),
		uniforms: make(map[string]any, 2),
	}
}

// RegisterShader compiles a Kage shader and makes it selectable with
// UseShader under id. id 0 is the default pipeline and cannot be replaced.
func (d *EbitenDevice) RegisterShader(id ShaderID, src []byte) error {
	if id == 0 {
		return fmt.Errorf("grove: shader id 0 is reserved")
	}
	s, err := ebiten.NewShader(src)
	if err != nil {
		return fmt.Errorf("grove: compile shader %d: %w", id, err)
	}
	if old := d.shaders[id]; old != nil {
		old.Deallocate()
	}
	d.shaders[id] = s
	return nil
}

// SetShaderUniform sets a uniform passed to every registered shader.
// Uniforms a shader does not declare are ignored by Ebitengine.
func (d *EbitenDevice) SetShaderUniform(name string, value any) {
	d.uniforms[name] = value
}

// BeginFrame selects the target image and camera matrices for the lists
// drawn until the next BeginFrame.
func (d *EbitenDevice) BeginFrame(target *ebiten.Image, view, proj mgl32.Mat4) {
	d.target = target
	d.viewProj = proj.Mul4(view)
	d.frame = FrameStats{}
}

// FrameStats returns the counters of the current frame.
func (d *EbitenDevice) FrameStats() FrameStats {
	return d.frame
}

// Stats returns the list counters.
func (d *EbitenDevice) Stats() DeviceStats {
	return d.book.stats
}

func (d *EbitenDevice) GenList() *DisplayList                   { return d.book.gen() }
func (d *EbitenDevice) NewList(l *DisplayList, mode RenderMode) { d.book.begin(l) }
func (d *EbitenDevice) DeleteList(l *DisplayList)               { d.book.delete(l) }

// EndList closes the recording and draws the freshly recorded list, so the
// frame that compiles a list also shows it.
func (d *EbitenDevice) EndList(l *DisplayList) {
	d.book.end(l)
	d.draw(l)
}

// CallList draws l with the current instance state.
func (d *EbitenDevice) CallList(l *DisplayList) {
	d.book.call(l)
	d.draw(l)
}

// UseShader selects a registered shader, or the default pipeline for 0.
func (d *EbitenDevice) UseShader(id ShaderID) {
	d.shader = id
}

// SetInstance sets the id, model matrix and pass for subsequent draws.
func (d *EbitenDevice) SetInstance(id uint32, model mgl32.Mat4, mode RenderMode) {
	d.id = id
	d.model = model
	d.mode = mode
}

func (d *EbitenDevice) draw(l *DisplayList) {
	if d.target == nil {
		return
	}
	for i := range l.commands {
		cmd := &l.commands[i]
		src := cmd.texture
		if src == nil || d.mode == RenderPicking {
			src = ensureWhitePixel()
		}
		if !d.project(cmd, src.Bounds()) {
			continue
		}
		d.submit(src)
	}
}

// project fills d.verts and d.inds with the screen-space triangles of cmd,
// sorted back to front. It reports false when nothing is visible.
func (d *EbitenDevice) project(cmd *drawCommand, srcBounds image.Rectangle) bool {
	b := d.target.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())
	mvp := d.viewProj.Mul4(d.model)
	tint := d.tint()
	shade := d.mode != RenderPicking && d.Config.LightDirection.Len() > 0
	var light mgl32.Vec3
	var normalMat mgl32.Mat3
	if shade {
		light = d.Config.LightDirection.Normalize().Mul(-1)
		normalMat = d.model.Mat3().Inv().Transpose()
	}

	d.verts = d.verts[:0]
	d.depth = d.depth[:0]
	d.behind = d.behind[:0]
	sw, sh := float32(srcBounds.Dx()), float32(srcBounds.Dy())
	for i := range cmd.vertices {
		v := &cmd.vertices[i]
		clip := mvp.Mul4x1(v.Position.Vec4(1))
		cw := clip.W()
		d.behind = append(d.behind, cw <= 1e-6)
		if cw <= 1e-6 {
			cw = 1e-6
		}
		ndc := clip.Vec3().Mul(1 / cw)
		d.depth = append(d.depth, ndc.Z())

		c := v.Color
		if d.mode == RenderPicking {
			c = tint
		} else {
			c = c.Mul(tint)
			if shade {
				n := normalMat.Mul3x1(v.Normal)
				f := float32(0)
				if n.Len() > 0 {
					f = max(n.Normalize().Dot(light), 0)
				}
				k := float64(d.Config.Ambient + (1-d.Config.Ambient)*f)
				c.R *= k
				c.G *= k
				c.B *= k
			}
		}
		d.verts = append(d.verts, ebiten.Vertex{
			DstX:   float32(b.Min.X) + (ndc.X()+1)/2*w,
			DstY:   float32(b.Min.Y) + (1-ndc.Y())/2*h,
			SrcX:   float32(srcBounds.Min.X) + v.U*sw,
			SrcY:   float32(srcBounds.Min.Y) + v.V*sh,
			ColorR: float32(c.R),
			ColorG: float32(c.G),
			ColorB: float32(c.B),
			ColorA: float32(c.A),
		})
	}

	d.tris = d.tris[:0]
	idx := cmd.indices
	for t := 0; t+2 < len(idx); t += 3 {
		i0, i1, i2 := idx[t], idx[t+1], idx[t+2]
		if int(i0) >= len(d.verts) || int(i1) >= len(d.verts) || int(i2) >= len(d.verts) {
			continue
		}
		if d.behind[i0] || d.behind[i1] || d.behind[i2] {
			d.frame.Culled++
			continue
		}
		d.tris = append(d.tris, sortedTriangle{
			depth: (d.depth[i0] + d.depth[i1] + d.depth[i2]) / 3,
			i0:    i0,
			i1:    i1,
			i2:    i2,
		})
	}
	if len(d.tris) == 0 {
		return false
	}
	slices.SortStableFunc(d.tris, func(a, b sortedTriangle) int {
		switch {
		case a.depth > b.depth:
			return -1
		case a.depth < b.depth:
			return 1
		}
		return 0
	})

	d.inds = d.inds[:0]
	for _, t := range d.tris {
		d.inds = append(d.inds, t.i0, t.i1, t.i2)
	}
	d.frame.Triangles += len(d.tris)
	return true
}

func (d *EbitenDevice) submit(src *ebiten.Image) {
	d.frame.DrawCalls++
	if s := d.shaders[d.shader]; s != nil && d.shader != 0 && d.mode != RenderPicking {
		d.shaderOp.Images[0] = src
		d.shaderOp.Uniforms = d.uniforms
		d.target.DrawTrianglesShader(d.verts, d.inds, s, &d.shaderOp)
		return
	}
	d.triOp.Filter = d.Config.Filter
	d.target.DrawTriangles(d.verts, d.inds, src, &d.triOp)
}

func (d *EbitenDevice) tint() Color {
	switch d.mode {
	case RenderSelected:
		return d.Config.SelectionColor
	case RenderPicking:
		return IDColor(d.id)
	}
	return ColorWhite
}

// whitePixel is the source image for untextured triangles.
// No sync.Once; grove is single-threaded.
var whitePixel *ebiten.Image

func ensureWhitePixel() *ebiten.Image {
	if whitePixel == nil {
		img := ebiten.NewImage(3, 3)
		img.Fill(ColorWhite.toRGBA())
		whitePixel = img.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	}
	return whitePixel
}
