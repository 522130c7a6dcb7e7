// Package skeleton provides a bone hierarchy with per-LOD bone sets and the poses evaluated on it.
package skeleton

import (
	"errors"
	"fmt"
	"slices"

	"github.com/akmonengine/ragdoll/actor"
)

var (
	ErrParentOrder   = errors.New("skeleton: parent bone must precede its children")
	ErrDuplicateBone = errors.New("skeleton: duplicate bone name")
	ErrUnknownBone   = errors.New("skeleton: unknown bone index")
)

// Bone is a node of the hierarchy. Parent is -1 for the root.
type Bone struct {
	Name   string
	Parent int
	// Reference is the bind pose, relative to the parent
	Reference actor.Transform
}

// Skeleton is an immutable bone hierarchy.
// LOD 0 is the most detailed level and requires every bone, each further LOD requires a subset.
type Skeleton struct {
	bones  []Bone
	byName map[string]int
	lods   [][]int
}

// New validates the hierarchy, LOD 0 requires every bone
func New(bones []Bone) (*Skeleton, error) {
	s := &Skeleton{
		bones:  slices.Clone(bones),
		byName: make(map[string]int, len(bones)),
	}

	all := make([]int, len(bones))
	for i, bone := range bones {
		if bone.Parent >= i || bone.Parent < -1 {
			return nil, fmt.Errorf("bone %q: %w", bone.Name, ErrParentOrder)
		}
		if _, ok := s.byName[bone.Name]; ok {
			return nil, fmt.Errorf("bone %q: %w", bone.Name, ErrDuplicateBone)
		}
		s.byName[bone.Name] = i
		all[i] = i
	}
	s.lods = [][]int{all}

	return s, nil
}

// AddLOD appends a coarser level requiring the given bones; every ancestor of a
// required bone is required as well
func (s *Skeleton) AddLOD(bones []int) error {
	required := make(map[int]struct{}, len(bones))
	for _, bone := range bones {
		if bone < 0 || bone >= len(s.bones) {
			return fmt.Errorf("lod %d, bone %d: %w", len(s.lods), bone, ErrUnknownBone)
		}
		for b := bone; b >= 0; b = s.bones[b].Parent {
			required[b] = struct{}{}
		}
	}

	lod := make([]int, 0, len(required))
	for bone := range required {
		lod = append(lod, bone)
	}
	slices.Sort(lod)
	s.lods = append(s.lods, lod)

	return nil
}

func (s *Skeleton) NumBones() int {
	return len(s.bones)
}

func (s *Skeleton) Bone(index int) Bone {
	return s.bones[index]
}

func (s *Skeleton) BoneIndex(name string) (int, bool) {
	index, ok := s.byName[name]
	return index, ok
}

func (s *Skeleton) BoneName(index int) string {
	return s.bones[index].Name
}

func (s *Skeleton) ParentIndex(index int) int {
	return s.bones[index].Parent
}

func (s *Skeleton) NumLODs() int {
	return len(s.lods)
}

// RequiredBones returns the sorted bone indices required at lod, parents before children.
// The slice must not be modified.
func (s *Skeleton) RequiredBones(lod int) []int {
	lod = max(0, min(lod, len(s.lods)-1))
	return s.lods[lod]
}
