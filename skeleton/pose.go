package skeleton

import (
	"slices"

	"github.com/akmonengine/ragdoll/actor"
)

// Pose holds one local transform per bone and evaluates component space transforms lazily
type Pose struct {
	skeleton  *Skeleton
	local     []actor.Transform
	component []actor.Transform
	dirty     bool
}

// NewPose returns the reference pose of s
func NewPose(s *Skeleton) *Pose {
	p := &Pose{
		skeleton:  s,
		local:     make([]actor.Transform, s.NumBones()),
		component: make([]actor.Transform, s.NumBones()),
		dirty:     true,
	}
	for i, bone := range s.bones {
		p.local[i] = actor.NewTransformFrom(bone.Reference.Position, bone.Reference.Rotation)
	}

	return p
}

func (p *Pose) Skeleton() *Skeleton {
	return p.skeleton
}

func (p *Pose) Clone() *Pose {
	return &Pose{
		skeleton:  p.skeleton,
		local:     slices.Clone(p.local),
		component: slices.Clone(p.component),
		dirty:     p.dirty,
	}
}

func (p *Pose) LocalSpaceTransform(bone int) actor.Transform {
	return p.local[bone]
}

func (p *Pose) SetLocalSpaceTransform(bone int, transform actor.Transform) {
	p.local[bone] = actor.NewTransformFrom(transform.Position, transform.Rotation)
	p.dirty = true
}

func (p *Pose) ComponentSpaceTransform(bone int) actor.Transform {
	p.evaluate()
	return p.component[bone]
}

// SetComponentSpaceTransform moves bone to transform; its descendants follow it
func (p *Pose) SetComponentSpaceTransform(bone int, transform actor.Transform) {
	parent := p.skeleton.ParentIndex(bone)
	if parent < 0 {
		p.SetLocalSpaceTransform(bone, transform)
		return
	}
	p.SetLocalSpaceTransform(bone, transform.Relative(p.ComponentSpaceTransform(parent)))
}

// AddOutputBoneTransform writes a component space result. Parents must be written before children.
func (p *Pose) AddOutputBoneTransform(bone int, transform actor.Transform) {
	p.SetComponentSpaceTransform(bone, transform)
}

func (p *Pose) evaluate() {
	if !p.dirty {
		return
	}
	// parents precede children, a single pass is enough
	for i := range p.local {
		parent := p.skeleton.ParentIndex(i)
		if parent < 0 {
			p.component[i] = p.local[i]
		} else {
			p.component[i] = p.component[parent].Mul(p.local[i])
		}
	}
	p.dirty = false
}
