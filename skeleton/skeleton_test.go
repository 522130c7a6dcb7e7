package skeleton

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/akmonengine/ragdoll/actor"
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats/scalar"
)

func vec3Near(a, b mgl64.Vec3, epsilon float64) bool {
	return scalar.EqualWithinAbs(a.X(), b.X(), epsilon) &&
		scalar.EqualWithinAbs(a.Y(), b.Y(), epsilon) &&
		scalar.EqualWithinAbs(a.Z(), b.Z(), epsilon)
}

// chain builds root -> a -> b, plus a leaf c under root, each bone 1 unit above its parent
func chain(t *testing.T) *Skeleton {
	t.Helper()
	up := actor.NewTranslation(mgl64.Vec3{0, 0, 1})
	s, err := New([]Bone{
		{Name: "root", Parent: -1, Reference: up},
		{Name: "a", Parent: 0, Reference: up},
		{Name: "b", Parent: 1, Reference: up},
		{Name: "c", Parent: 0, Reference: actor.NewTranslation(mgl64.Vec3{1, 0, 0})},
	})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return s
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name  string
		bones []Bone
		want  error
	}{
		{"parent after child", []Bone{{Name: "a", Parent: 1}, {Name: "b", Parent: -1}}, ErrParentOrder},
		{"self parent", []Bone{{Name: "a", Parent: 0}}, ErrParentOrder},
		{"bad parent", []Bone{{Name: "a", Parent: -2}}, ErrParentOrder},
		{"duplicate", []Bone{{Name: "a", Parent: -1}, {Name: "a", Parent: 0}}, ErrDuplicateBone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.bones); !errors.Is(err, tt.want) {
				t.Errorf("New() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSkeleton_Lookups(t *testing.T) {
	s := chain(t)

	if s.NumBones() != 4 {
		t.Errorf("NumBones() = %d, want 4", s.NumBones())
	}
	if index, ok := s.BoneIndex("b"); !ok || index != 2 {
		t.Errorf("BoneIndex(b) = %d, %v, want 2, true", index, ok)
	}
	if _, ok := s.BoneIndex("missing"); ok {
		t.Errorf("BoneIndex(missing) found a bone")
	}
	if s.BoneName(3) != "c" || s.ParentIndex(3) != 0 || s.ParentIndex(0) != -1 {
		t.Errorf("unexpected hierarchy")
	}
}

func TestSkeleton_LODs(t *testing.T) {
	s := chain(t)
	if s.NumLODs() != 1 {
		t.Fatalf("NumLODs() = %d, want 1", s.NumLODs())
	}

	// requiring b pulls its ancestors in
	if err := s.AddLOD([]int{2}); err != nil {
		t.Fatalf("AddLOD() = %v", err)
	}
	if err := s.AddLOD([]int{0}); err != nil {
		t.Fatalf("AddLOD() = %v", err)
	}
	if err := s.AddLOD([]int{9}); !errors.Is(err, ErrUnknownBone) {
		t.Errorf("AddLOD(unknown) = %v, want ErrUnknownBone", err)
	}

	tests := []struct {
		lod  int
		want []int
	}{
		{0, []int{0, 1, 2, 3}},
		{1, []int{0, 1, 2}},
		{2, []int{0}},
		{7, []int{0}},
		{-1, []int{0, 1, 2, 3}},
	}
	for _, tt := range tests {
		if got := s.RequiredBones(tt.lod); !slices.Equal(got, tt.want) {
			t.Errorf("RequiredBones(%d) = %v, want %v", tt.lod, got, tt.want)
		}
	}
}

func TestPose_ComponentSpace(t *testing.T) {
	s := chain(t)
	pose := NewPose(s)

	if got := pose.ComponentSpaceTransform(2).Position; !vec3Near(got, mgl64.Vec3{0, 0, 3}, 1e-12) {
		t.Errorf("b at %v, want (0, 0, 3)", got)
	}

	// turning a by 90 degrees around X swings b from +Z to -Y
	pose.SetLocalSpaceTransform(1, actor.NewTransformFrom(mgl64.Vec3{0, 0, 1}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{1, 0, 0})))
	if got := pose.ComponentSpaceTransform(2).Position; !vec3Near(got, mgl64.Vec3{0, -1, 2}, 1e-9) {
		t.Errorf("b at %v, want (0, -1, 2)", got)
	}
}

func TestPose_AddOutputBoneTransform(t *testing.T) {
	s := chain(t)
	pose := NewPose(s)
	clone := pose.Clone()

	pose.AddOutputBoneTransform(1, actor.NewTranslation(mgl64.Vec3{5, 0, 2}))

	if got := pose.ComponentSpaceTransform(1).Position; !vec3Near(got, mgl64.Vec3{5, 0, 2}, 1e-12) {
		t.Errorf("a at %v, want (5, 0, 2)", got)
	}
	// children follow their parent
	if got := pose.ComponentSpaceTransform(2).Position; !vec3Near(got, mgl64.Vec3{5, 0, 3}, 1e-12) {
		t.Errorf("b at %v, want (5, 0, 3)", got)
	}
	if !pose.LocalSpaceTransform(1).ApproxEqual(actor.NewTranslation(mgl64.Vec3{5, 0, 1}), 1e-12) {
		t.Errorf("local a = %v, want (5, 0, 1) relative to root", pose.LocalSpaceTransform(1))
	}
	if got := clone.ComponentSpaceTransform(1).Position; !vec3Near(got, mgl64.Vec3{0, 0, 2}, 1e-12) {
		t.Errorf("clone changed with the original, a at %v", got)
	}
}
