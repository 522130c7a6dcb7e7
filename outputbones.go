package ragdoll

import (
	"github.com/akmonengine/ragdoll/actor"
)

// OutputBoneEntry tells how to read the result of one required bone back from the simulation
type OutputBoneEntry struct {
	BoneIndex int
	// BodyIndex is the body driving the bone, INDEX_NONE when the bone follows ParentBodyIndex
	BodyIndex int
	// ParentBodyIndex is the body of the nearest ancestor owning one, INDEX_NONE below the root
	ParentBodyIndex int
	// BoneToParentBody holds the local transforms from the bone up to the parent body bone, excluded.
	// The bone's own local transform comes first.
	BoneToParentBody []actor.Transform
}

// RelativeTransform is the transform of the bone in the frame of its parent body
func (e OutputBoneEntry) RelativeTransform() actor.Transform {
	relative := actor.NewTransform()
	for _, local := range e.BoneToParentBody {
		relative = local.Mul(relative)
	}
	return relative
}

// BuildOutputBones maps every bone of required onto the simulation.
// A bone gets an entry when it owns a simulated body, or when it has no body and its nearest
// ancestor with a body is simulated. Other bones keep the incoming pose.
func BuildOutputBones(topology *Topology, bones BoneContainer, pose PoseSource, required []int) []OutputBoneEntry {
	entries := make([]OutputBoneEntry, 0, len(required))

	for _, bone := range required {
		bodyIndex := bodyOf(topology, bone)
		if bodyIndex != INDEX_NONE && !topology.Bodies[bodyIndex].Simulated {
			continue
		}

		parentBody, chain := nearestBodyAncestor(topology, bones, pose, bone)
		if bodyIndex == INDEX_NONE && (parentBody == INDEX_NONE || !topology.Bodies[parentBody].Simulated) {
			continue
		}

		entries = append(entries, OutputBoneEntry{
			BoneIndex:        bone,
			BodyIndex:        bodyIndex,
			ParentBodyIndex:  parentBody,
			BoneToParentBody: chain,
		})
	}

	return entries
}

func bodyOf(topology *Topology, bone int) int {
	if bone < 0 || bone >= len(topology.BoneToBody) {
		return INDEX_NONE
	}
	return topology.BoneToBody[bone]
}

// nearestBodyAncestor walks up from bone, collecting local transforms until a bone owning a body
func nearestBodyAncestor(topology *Topology, bones BoneContainer, pose PoseSource, bone int) (int, []actor.Transform) {
	var chain []actor.Transform

	for current := bone; current >= 0; current = bones.ParentIndex(current) {
		parent := bones.ParentIndex(current)
		chain = append(chain, pose.LocalSpaceTransform(current))
		if parent < 0 {
			break
		}
		if body := bodyOf(topology, parent); body != INDEX_NONE {
			return body, chain
		}
	}

	return INDEX_NONE, nil
}
