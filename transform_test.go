package grove

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestIdentityTransform(t *testing.T) {
	if m := IdentityTransform().Matrix(); m != mgl32.Ident4() {
		t.Errorf("identity matrix = %v", m)
	}
}

func TestTransformMatrix(t *testing.T) {
	tests := []struct {
		name string
		tr   Transform
		in   mgl32.Vec3
		want mgl32.Vec3
	}{
		{
			name: "translate",
			tr:   Transform{Position: mgl32.Vec3{1, 2, 3}, Scale: mgl32.Vec3{1, 1, 1}},
			in:   mgl32.Vec3{1, 1, 1},
			want: mgl32.Vec3{2, 3, 4},
		},
		{
			name: "scale",
			tr:   Transform{Scale: mgl32.Vec3{2, 3, 4}},
			in:   mgl32.Vec3{1, 1, 1},
			want: mgl32.Vec3{2, 3, 4},
		},
		{
			name: "rotate y",
			tr:   Transform{Rotation: mgl32.Vec3{0, math.Pi / 2, 0}, Scale: mgl32.Vec3{1, 1, 1}},
			in:   mgl32.Vec3{1, 0, 0},
			want: mgl32.Vec3{0, 0, -1},
		},
		{
			name: "scale about pivot",
			tr:   Transform{Scale: mgl32.Vec3{2, 2, 2}, Pivot: mgl32.Vec3{1, 1, 1}},
			in:   mgl32.Vec3{1, 1, 1},
			want: mgl32.Vec3{1, 1, 1},
		},
		{
			name: "rotate about pivot then move",
			tr: Transform{
				Position: mgl32.Vec3{0, 0, 5},
				Rotation: mgl32.Vec3{0, 0, math.Pi},
				Scale:    mgl32.Vec3{1, 1, 1},
				Pivot:    mgl32.Vec3{1, 0, 0},
			},
			in:   mgl32.Vec3{2, 0, 0},
			want: mgl32.Vec3{0, 0, 5},
		},
	}
	for _, tt := range tests {
		got := transformPoint(tt.tr.Matrix(), tt.in)
		if !got.ApproxEqualThreshold(tt.want, 1e-5) {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTransformRotationOrder(t *testing.T) {
	// X first: (0, 1, 0) -> (0, 0, 1); then Y: (0, 0, 1) -> (1, 0, 0).
	tr := Transform{Rotation: mgl32.Vec3{math.Pi / 2, math.Pi / 2, 0}, Scale: mgl32.Vec3{1, 1, 1}}
	got := transformPoint(tr.Matrix(), mgl32.Vec3{0, 1, 0})
	if !got.ApproxEqualThreshold(mgl32.Vec3{1, 0, 0}, 1e-5) {
		t.Errorf("got %v, want (1, 0, 0)", got)
	}
}
