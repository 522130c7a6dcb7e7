package ragdoll

import (
	"github.com/akmonengine/ragdoll/actor"
)

// capturedPose is a copy of a pose, taken before the simulation starts
type capturedPose struct {
	component []actor.Transform
	local     []actor.Transform
}

func capturePose(pose PoseSource, numBones int) *capturedPose {
	captured := &capturedPose{
		component: make([]actor.Transform, numBones),
		local:     make([]actor.Transform, numBones),
	}
	for bone := range numBones {
		captured.component[bone] = pose.ComponentSpaceTransform(bone)
		captured.local[bone] = pose.LocalSpaceTransform(bone)
	}

	return captured
}

func (p *capturedPose) ComponentSpaceTransform(bone int) actor.Transform {
	return p.component[bone]
}

func (p *capturedPose) LocalSpaceTransform(bone int) actor.Transform {
	return p.local[bone]
}
